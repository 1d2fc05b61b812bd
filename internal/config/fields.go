package config

import "strings"

// FieldType classifies the kind of value an action input accepts.
type FieldType string

const (
	// FieldBool accepts true or false.
	FieldBool FieldType = "bool"
	// FieldEnum accepts one of a fixed set of options.
	FieldEnum FieldType = "enum"
	// FieldString accepts arbitrary string input.
	FieldString FieldType = "string"
	// FieldList accepts one entry per line; blank and # lines are dropped.
	FieldList FieldType = "list"
	// FieldStringOrBool accepts true, false, or any other string.
	FieldStringOrBool FieldType = "string_or_bool"
	// FieldListOrBool accepts true, false, or a list.
	FieldListOrBool FieldType = "list_or_bool"
	// FieldPatternMap accepts a JSON object of pattern to template, or a
	// single template applied to every crate.
	FieldPatternMap FieldType = "pattern_map"
)

// FieldDef maps one action input to its config key.
type FieldDef struct {
	Input   string
	Key     string
	Type    FieldType
	Options []string
	target  func(*File) any
}

// fields is the canonical ordered registry of action inputs, in config
// section order.
var fields = []FieldDef{
	{Input: "toolchain", Key: "setup.toolchain", Type: FieldString, target: func(f *File) any { return &f.Setup.Toolchain }},
	{Input: "target", Key: "setup.target", Type: FieldString, target: func(f *File) any { return &f.Setup.Target }},
	{Input: "cross-version", Key: "setup.cross-version", Type: FieldString, target: func(f *File) any { return &f.Setup.CrossVersion }},

	{Input: "crates", Key: "build.crates", Type: FieldList, target: func(f *File) any { return &f.Build.Crates }},
	{Input: "features", Key: "build.features", Type: FieldList, target: func(f *File) any { return &f.Build.Features }},
	{Input: "buildstd", Key: "build.buildstd", Type: FieldBool, target: func(f *File) any { return &f.Build.BuildStd }},
	{Input: "debuginfo", Key: "build.debuginfo", Type: FieldBool, target: func(f *File) any { return &f.Build.DebugInfo }},
	{Input: "musl-libgcc", Key: "build.musl-libgcc", Type: FieldBool, target: func(f *File) any { return &f.Build.MuslLibGcc }},
	{Input: "crt-static", Key: "build.crt-static", Type: FieldBool, target: func(f *File) any { return &f.Build.CrtStatic }},
	{Input: "use-cross", Key: "build.use-cross", Type: FieldBool, target: func(f *File) any { return &f.Build.UseCross }},

	{Input: "extra-rustup-components", Key: "extras.rustup-components", Type: FieldList, target: func(f *File) any { return &f.Extras.RustupComponents }},
	{Input: "extra-cargo-flags", Key: "extras.cargo-flags", Type: FieldList, target: func(f *File) any { return &f.Extras.CargoFlags }},
	{Input: "extra-rustc-flags", Key: "extras.rustc-flags", Type: FieldList, target: func(f *File) any { return &f.Extras.RustcFlags }},
	{Input: "extra-cosign-flags", Key: "extras.cosign-flags", Type: FieldList, target: func(f *File) any { return &f.Extras.CosignFlags }},

	{
		Input:   "package-archive",
		Key:     "package.archive",
		Type:    FieldEnum,
		Options: []string{"none", "zip", "tar+gzip", "tar+bzip2", "tar+xz", "tar+zstd"},
		target:  func(f *File) any { return &f.Package.Archive },
	},
	{Input: "package-files", Key: "package.files", Type: FieldList, target: func(f *File) any { return &f.Package.Files }},
	{Input: "package-name", Key: "package.name", Type: FieldString, target: func(f *File) any { return &f.Package.Name }},
	{Input: "package-in-dir", Key: "package.in-dir", Type: FieldBool, target: func(f *File) any { return &f.Package.InDir }},
	{Input: "package-separately", Key: "package.separately", Type: FieldBool, target: func(f *File) any { return &f.Package.Separately }},
	{Input: "package-short-ext", Key: "package.short-ext", Type: FieldBool, target: func(f *File) any { return &f.Package.ShortExt }},
	{Input: "package-output", Key: "package.output", Type: FieldString, target: func(f *File) any { return &f.Package.Output }},
	{Input: "package-sign", Key: "package.sign", Type: FieldBool, target: func(f *File) any { return &f.Package.Sign }},

	{Input: "publish-crate", Key: "publish.crate", Type: FieldBool, target: func(f *File) any { return &f.Publish.Crate }},
	{Input: "publish-crate-only", Key: "publish.crate-only", Type: FieldBool, target: func(f *File) any { return &f.Publish.CrateOnly }},
	{Input: "publish-all-crates", Key: "publish.all-crates", Type: FieldBool, target: func(f *File) any { return &f.Publish.AllCrates }},

	{Input: "tag", Key: "tag.name", Type: FieldStringOrBool, target: func(f *File) any { return &f.Tag.Name }},
	{Input: "tag-crates", Key: "tag.crates", Type: FieldBool, target: func(f *File) any { return &f.Tag.Crates }},
	{Input: "tag-sign", Key: "tag.sign", Type: FieldBool, target: func(f *File) any { return &f.Tag.Sign }},

	{Input: "release", Key: "release.enabled", Type: FieldBool, target: func(f *File) any { return &f.Release.Enabled }},
	{Input: "release-name", Key: "release.name", Type: FieldPatternMap, target: func(f *File) any { return &f.Release.Name }},
	{Input: "release-notes", Key: "release.notes", Type: FieldPatternMap, target: func(f *File) any { return &f.Release.Notes }},
	{Input: "release-separately", Key: "release.separately", Type: FieldBool, target: func(f *File) any { return &f.Release.Separately }},
	{Input: "release-latest", Key: "release.latest", Type: FieldStringOrBool, target: func(f *File) any { return &f.Release.Latest }},
	{Input: "release-pre", Key: "release.pre", Type: FieldListOrBool, target: func(f *File) any { return &f.Release.Pre }},

	{Input: "shell", Key: "hooks.shell", Type: FieldString, target: func(f *File) any { return &f.Hooks.Shell }},
	{Input: "post-setup", Key: "hooks.post-setup", Type: FieldString, target: func(f *File) any { return &f.Hooks.PostSetup }},
	{Input: "post-publish", Key: "hooks.post-publish", Type: FieldString, target: func(f *File) any { return &f.Hooks.PostPublish }},
	{Input: "custom-build", Key: "hooks.custom-build", Type: FieldString, target: func(f *File) any { return &f.Hooks.CustomBuild }},
	{Input: "post-build", Key: "hooks.post-build", Type: FieldString, target: func(f *File) any { return &f.Hooks.PostBuild }},
	{Input: "pre-package", Key: "hooks.pre-package", Type: FieldString, target: func(f *File) any { return &f.Hooks.PrePackage }},
	{Input: "post-package", Key: "hooks.post-package", Type: FieldString, target: func(f *File) any { return &f.Hooks.PostPackage }},
	{Input: "post-sign", Key: "hooks.post-sign", Type: FieldString, target: func(f *File) any { return &f.Hooks.PostSign }},
	{Input: "post-tag", Key: "hooks.post-tag", Type: FieldString, target: func(f *File) any { return &f.Hooks.PostTag }},
	{Input: "post-release", Key: "hooks.post-release", Type: FieldString, target: func(f *File) any { return &f.Hooks.PostRelease }},

	{Input: "github-repository", Key: "github.repository", Type: FieldString, target: func(f *File) any { return &f.GitHub.Repository }},
	{Input: "github-api-url", Key: "github.api-url", Type: FieldString, target: func(f *File) any { return &f.GitHub.APIURL }},
	{Input: "registry-url", Key: "registry.url", Type: FieldString, target: func(f *File) any { return &f.Registry.URL }},
}

// fieldIndex provides O(1) lookup by key.
var fieldIndex = buildFieldIndex()

func buildFieldIndex() map[string]int {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.Key] = i
	}
	return idx
}

// LookupField returns the field definition for the given config key.
// Returns false when the key is not in the catalog.
func LookupField(key string) (FieldDef, bool) {
	i, ok := fieldIndex[key]
	if !ok {
		return FieldDef{}, false
	}
	return copyFieldDef(fields[i]), true
}

// Fields returns a copy of all registered field definitions in catalog order.
func Fields() []FieldDef {
	out := make([]FieldDef, len(fields))
	for i, f := range fields {
		out[i] = copyFieldDef(f)
	}
	return out
}

// InputEnvName returns the environment variable carrying an action input.
func InputEnvName(input string) string {
	return "INPUT_" + strings.ToUpper(input)
}

// copyFieldDef returns a copy of a FieldDef so callers cannot mutate the registry.
func copyFieldDef(f FieldDef) FieldDef {
	if len(f.Options) > 0 {
		f.Options = append([]string(nil), f.Options...)
	}
	return f
}
