package config

import (
	"github.com/conn-castle/release-rust/internal/hooks"
	"github.com/conn-castle/release-rust/internal/patterns"
)

// File is release-rust.toml (or .yaml) as written. Pointers and the untyped
// union fields distinguish unset values from zero values; Resolve turns a
// File into a Config.
type File struct {
	Setup    SetupFile    `toml:"setup" yaml:"setup"`
	Build    BuildFile    `toml:"build" yaml:"build"`
	Extras   ExtrasFile   `toml:"extras" yaml:"extras"`
	Package  PackageFile  `toml:"package" yaml:"package"`
	Publish  PublishFile  `toml:"publish" yaml:"publish"`
	Tag      TagFile      `toml:"tag" yaml:"tag"`
	Release  ReleaseFile  `toml:"release" yaml:"release"`
	Hooks    HooksFile    `toml:"hooks" yaml:"hooks"`
	GitHub   GitHubFile   `toml:"github" yaml:"github"`
	Registry RegistryFile `toml:"registry" yaml:"registry"`
}

// SetupFile is the [setup] table.
type SetupFile struct {
	Toolchain    string `toml:"toolchain" yaml:"toolchain"`
	Target       string `toml:"target" yaml:"target"`
	CrossVersion string `toml:"cross-version" yaml:"cross-version"`
}

// BuildFile is the [build] table.
type BuildFile struct {
	Crates     []string `toml:"crates" yaml:"crates"`
	Features   []string `toml:"features" yaml:"features"`
	BuildStd   *bool    `toml:"buildstd" yaml:"buildstd"`
	DebugInfo  *bool    `toml:"debuginfo" yaml:"debuginfo"`
	MuslLibGcc *bool    `toml:"musl-libgcc" yaml:"musl-libgcc"`
	CrtStatic  *bool    `toml:"crt-static" yaml:"crt-static"`
	UseCross   *bool    `toml:"use-cross" yaml:"use-cross"`
}

// ExtrasFile is the [extras] table.
type ExtrasFile struct {
	RustupComponents []string `toml:"rustup-components" yaml:"rustup-components"`
	CargoFlags       []string `toml:"cargo-flags" yaml:"cargo-flags"`
	RustcFlags       []string `toml:"rustc-flags" yaml:"rustc-flags"`
	CosignFlags      []string `toml:"cosign-flags" yaml:"cosign-flags"`
}

// PackageFile is the [package] table.
type PackageFile struct {
	Archive    string   `toml:"archive" yaml:"archive"`
	Files      []string `toml:"files" yaml:"files"`
	Name       string   `toml:"name" yaml:"name"`
	InDir      *bool    `toml:"in-dir" yaml:"in-dir"`
	Separately *bool    `toml:"separately" yaml:"separately"`
	ShortExt   *bool    `toml:"short-ext" yaml:"short-ext"`
	Output     string   `toml:"output" yaml:"output"`
	Sign       *bool    `toml:"sign" yaml:"sign"`
}

// PublishFile is the [publish] table.
type PublishFile struct {
	Crate     *bool `toml:"crate" yaml:"crate"`
	CrateOnly *bool `toml:"crate-only" yaml:"crate-only"`
	AllCrates *bool `toml:"all-crates" yaml:"all-crates"`
}

// TagFile is the [tag] table. Name is true, false, or a tag name template.
type TagFile struct {
	Name   any   `toml:"name" yaml:"name"`
	Crates *bool `toml:"crates" yaml:"crates"`
	Sign   *bool `toml:"sign" yaml:"sign"`
}

// ReleaseFile is the [release] table.
//
// Name and Notes are a template string, a pattern-to-template table, or a
// list of {pattern, template} entries. Latest is a bool or a crate name. Pre
// is a bool or a list of crate patterns.
type ReleaseFile struct {
	Enabled    *bool `toml:"enabled" yaml:"enabled"`
	Name       any   `toml:"name" yaml:"name"`
	Notes      any   `toml:"notes" yaml:"notes"`
	Separately *bool `toml:"separately" yaml:"separately"`
	Latest     any   `toml:"latest" yaml:"latest"`
	Pre        any   `toml:"pre" yaml:"pre"`
}

// HooksFile is the [hooks] table of inline scripts.
type HooksFile struct {
	Shell       string `toml:"shell" yaml:"shell"`
	PostSetup   string `toml:"post-setup" yaml:"post-setup"`
	PostPublish string `toml:"post-publish" yaml:"post-publish"`
	CustomBuild string `toml:"custom-build" yaml:"custom-build"`
	PostBuild   string `toml:"post-build" yaml:"post-build"`
	PrePackage  string `toml:"pre-package" yaml:"pre-package"`
	PostPackage string `toml:"post-package" yaml:"post-package"`
	PostSign    string `toml:"post-sign" yaml:"post-sign"`
	PostTag     string `toml:"post-tag" yaml:"post-tag"`
	PostRelease string `toml:"post-release" yaml:"post-release"`
}

// GitHubFile is the [github] table.
type GitHubFile struct {
	Repository string `toml:"repository" yaml:"repository"`
	APIURL     string `toml:"api-url" yaml:"api-url"`
}

// RegistryFile is the [registry] table.
type RegistryFile struct {
	URL string `toml:"url" yaml:"url"`
}

// Config is the resolved configuration of one run.
type Config struct {
	// Root is the absolute workspace root.
	Root     string
	Setup    SetupConfig
	Build    BuildConfig
	Extras   ExtrasConfig
	Package  PackageConfig
	Publish  PublishConfig
	Tag      TagConfig
	Release  ReleaseConfig
	Hooks    HooksConfig
	GitHub   GitHubConfig
	Registry RegistryConfig
	Runner   RunnerConfig
}

// SetupConfig holds toolchain settings.
type SetupConfig struct {
	Toolchain    string
	Target       string
	Host         string
	CrossVersion string
}

// BuildConfig holds build settings. BuildStd and UseCross are final
// decisions for the toolchain and target.
type BuildConfig struct {
	Crates     *patterns.List
	Features   []string
	BuildStd   bool
	DebugInfo  bool
	MuslLibGcc bool
	CrtStatic  *bool
	UseCross   bool
}

// ExtrasConfig holds extra tool flags, one entry per input line.
type ExtrasConfig struct {
	RustupComponents []string
	CargoFlags       []string
	RustcFlags       []string
	CosignFlags      []string
}

// PackageConfig holds packaging settings. Output is absolute.
type PackageConfig struct {
	Archive    string
	Files      *patterns.List
	Name       string
	InDir      bool
	Separately bool
	ShortExt   bool
	Output     string
	Sign       bool
}

// PublishConfig holds crates.io publishing settings.
type PublishConfig struct {
	Crate     bool
	CrateOnly bool
	AllCrates bool
}

// TagConfig holds tagging settings. Name is empty when tags use the crate
// version.
type TagConfig struct {
	Enabled bool
	Name    string
	Crates  bool
	Sign    bool
}

// ReleaseConfig holds GitHub release settings.
type ReleaseConfig struct {
	Enabled    bool
	Name       *patterns.Map
	Notes      *patterns.Map
	Separately bool
	Latest     LatestFlag
	Pre        PreFlag
}

// HooksConfig holds hook scripts by hook name.
type HooksConfig struct {
	Shell   string
	Scripts map[hooks.Name]string
}

// GitHubConfig holds GitHub API settings.
type GitHubConfig struct {
	Token      string
	Repository string
	APIURL     string
}

// RegistryConfig holds crate registry settings.
type RegistryConfig struct {
	URL   string
	Token string
}

// RunnerConfig describes the CI runner.
type RunnerConfig struct {
	OS    string
	CI    bool
	Debug bool
}

// TagPerCrate reports whether tags are made per crate rather than once for
// the release crate. Releases are per crate only with Release.Separately.
func (c *Config) TagPerCrate() bool {
	return c.Publish.AllCrates || c.Release.Separately
}
