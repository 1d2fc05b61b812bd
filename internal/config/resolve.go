package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/conn-castle/release-rust/internal/github"
	"github.com/conn-castle/release-rust/internal/hooks"
	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/patterns"
	"github.com/conn-castle/release-rust/internal/registry"
	"github.com/conn-castle/release-rust/internal/toolchain"
)

// Defaults applied by Resolve.
const (
	DefaultToolchain    = toolchain.Nightly
	DefaultArchive      = "zip"
	DefaultOutput       = "packages/"
	DefaultPackageName  = "{release-name}-{target}"
	DefaultSeparateName = "{crate-name}-{target}"
	DefaultReleaseName  = "{crate-version}"
	DefaultShell        = hooks.DefaultShell
	DefaultCratePattern = "*"
)

// Boundary environment read by Resolve.
const (
	envGitHubToken        = "GITHUB_TOKEN"
	envCargoRegistryToken = "CARGO_REGISTRY_TOKEN"
	envGitHubRepository   = "GITHUB_REPOSITORY"
	envGitHubAPIURL       = "GITHUB_API_URL"
	envRunnerOS           = "RUNNER_OS"
	envRunnerDebug        = "RUNNER_DEBUG"
	envCI                 = "CI"
	envGitHubActions      = "GITHUB_ACTIONS"
	inputGitHubToken      = "github-token"
	inputCratesToken      = "crates-token"
)

// ResolveOptions carries the run context Resolve needs besides the file.
type ResolveOptions struct {
	Root string
	Env  LookupEnv
	Now  time.Time
	// GOOS and GOARCH describe the host when RUNNER_OS is unset; empty uses
	// the running binary's platform.
	GOOS   string
	GOARCH string
}

// Resolve validates file and applies defaults, returning the strict config.
// Every validation failure wraps ErrConfigValidation.
func Resolve(file *File, opts ResolveOptions) (*Config, error) {
	cfg, err := resolve(file, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigValidation, err)
	}
	return cfg, nil
}

func resolve(file *File, opts ResolveOptions) (*Config, error) {
	env := opts.Env
	cfg := &Config{Root: opts.Root}

	cfg.Runner = RunnerConfig{
		OS:    env.first(envRunnerOS),
		CI:    isTrue(env.first(envCI)) || isTrue(env.first(envGitHubActions)),
		Debug: env.first(envRunnerDebug) == "1",
	}

	if err := resolveSetup(cfg, file.Setup, opts); err != nil {
		return nil, err
	}
	if err := resolveBuild(cfg, file.Build, opts.Now); err != nil {
		return nil, err
	}
	cfg.Extras = ExtrasConfig{
		RustupComponents: file.Extras.RustupComponents,
		CargoFlags:       file.Extras.CargoFlags,
		RustcFlags:       file.Extras.RustcFlags,
		CosignFlags:      file.Extras.CosignFlags,
	}
	if err := resolvePackage(cfg, file.Package); err != nil {
		return nil, err
	}
	cfg.Publish = PublishConfig{
		Crate:     boolOr(file.Publish.Crate, true),
		CrateOnly: boolOr(file.Publish.CrateOnly, false),
		AllCrates: boolOr(file.Publish.AllCrates, false),
	}
	if err := resolveTag(cfg, file.Tag); err != nil {
		return nil, err
	}
	if err := resolveRelease(cfg, file.Release); err != nil {
		return nil, err
	}
	cfg.Hooks = resolveHooks(file.Hooks)

	cfg.GitHub = GitHubConfig{
		Token:      env.first(InputEnvName(inputGitHubToken), envGitHubToken),
		Repository: firstNonEmpty(file.GitHub.Repository, env.first(envGitHubRepository)),
		APIURL:     firstNonEmpty(file.GitHub.APIURL, env.first(envGitHubAPIURL), github.DefaultAPIURL),
	}
	cfg.Registry = RegistryConfig{
		URL:   strings.TrimSuffix(firstNonEmpty(file.Registry.URL, registry.DefaultURL), "/"),
		Token: env.first(InputEnvName(inputCratesToken), envCargoRegistryToken),
	}
	return cfg, nil
}

func resolveSetup(cfg *Config, file SetupFile, opts ResolveOptions) error {
	name := firstNonEmpty(file.Toolchain, DefaultToolchain)
	if err := toolchain.Validate(name); err != nil {
		return err
	}
	goos, goarch := opts.GOOS, opts.GOARCH
	if goos == "" {
		goos = runtime.GOOS
	}
	if goarch == "" {
		goarch = runtime.GOARCH
	}
	host, hostErr := toolchain.HostTarget(cfg.Runner.OS, goos, goarch)
	target := file.Target
	if target == "" {
		if hostErr != nil {
			return hostErr
		}
		target = host
	}
	if err := toolchain.ValidateCrossVersion(file.CrossVersion); err != nil {
		return err
	}
	cfg.Setup = SetupConfig{Toolchain: name, Target: target, Host: host, CrossVersion: file.CrossVersion}
	return nil
}

func resolveBuild(cfg *Config, file BuildFile, now time.Time) error {
	crates := file.Crates
	if len(crates) == 0 {
		crates = []string{DefaultCratePattern}
	}
	list, err := patterns.New(crates)
	if err != nil {
		return fmt.Errorf(messages.ConfigFieldFmt, "build.crates", err)
	}
	buildStd, err := toolchain.BuildStd(boolOr(file.BuildStd, true), cfg.Setup.Toolchain, cfg.Setup.Target, now)
	if err != nil {
		return err
	}
	cfg.Build = BuildConfig{
		Crates:     list,
		Features:   file.Features,
		BuildStd:   buildStd,
		DebugInfo:  boolOr(file.DebugInfo, true),
		MuslLibGcc: boolOr(file.MuslLibGcc, true),
		CrtStatic:  file.CrtStatic,
		UseCross:   toolchain.UseCross(file.UseCross, cfg.Setup.Target, cfg.Setup.Host),
	}
	return nil
}

func resolvePackage(cfg *Config, file PackageFile) error {
	archive := firstNonEmpty(file.Archive, DefaultArchive)
	if field, ok := LookupField("package.archive"); ok && !slices.Contains(field.Options, archive) {
		return fmt.Errorf(messages.ConfigEnumFmt, "package.archive", archive, strings.Join(field.Options, ", "))
	}
	files, err := patterns.New(file.Files)
	if err != nil {
		return fmt.Errorf(messages.ConfigFieldFmt, "package.files", err)
	}
	separately := boolOr(file.Separately, false)
	name := file.Name
	if name == "" {
		name = DefaultPackageName
		if separately {
			name = DefaultSeparateName
		}
	}
	output, err := homedir.Expand(firstNonEmpty(file.Output, DefaultOutput))
	if err != nil {
		return fmt.Errorf(messages.ConfigFieldFmt, "package.output", err)
	}
	if !filepath.IsAbs(output) {
		output = filepath.Join(cfg.Root, output)
	}
	cfg.Package = PackageConfig{
		Archive:    archive,
		Files:      files,
		Name:       name,
		InDir:      boolOr(file.InDir, true),
		Separately: separately,
		ShortExt:   boolOr(file.ShortExt, false),
		Output:     filepath.Clean(output),
		Sign:       boolOr(file.Sign, true),
	}
	return nil
}

func resolveTag(cfg *Config, file TagFile) error {
	enabled, name, err := stringOrBool("tag.name", file.Name, true)
	if err != nil {
		return err
	}
	cfg.Tag = TagConfig{
		Enabled: enabled,
		Name:    name,
		Crates:  enabled && boolOr(file.Crates, true),
		Sign:    enabled && boolOr(file.Sign, true),
	}
	return nil
}

func resolveRelease(cfg *Config, file ReleaseFile) error {
	names, err := patternMap("release.name", file.Name, DefaultReleaseName)
	if err != nil {
		return err
	}
	notes, err := patternMap("release.notes", file.Notes, "")
	if err != nil {
		return err
	}
	latest, latestCrate, err := stringOrBool("release.latest", file.Latest, true)
	if err != nil {
		return err
	}
	pre, preList, err := listOrBool("release.pre", file.Pre, false)
	if err != nil {
		return err
	}
	preFlag := PreFlag{Value: pre}
	if preList != nil {
		list, err := patterns.New(preList)
		if err != nil {
			return fmt.Errorf(messages.ConfigFieldFmt, "release.pre", err)
		}
		preFlag = PreFlag{Crates: list}
	}
	cfg.Release = ReleaseConfig{
		Enabled:    boolOr(file.Enabled, true),
		Name:       names,
		Notes:      notes,
		Separately: boolOr(file.Separately, false),
		Latest:     LatestFlag{Value: latest, Crate: latestCrate},
		Pre:        preFlag,
	}
	return nil
}

func patternMap(key string, raw any, def string) (*patterns.Map, error) {
	entries, err := patternEntries(key, raw, def)
	if err != nil {
		return nil, err
	}
	m, err := patterns.NewMap(entries)
	if err != nil {
		return nil, fmt.Errorf(messages.ConfigFieldFmt, key, err)
	}
	return m, nil
}

func resolveHooks(file HooksFile) HooksConfig {
	scripts := map[hooks.Name]string{
		hooks.PostSetup:   file.PostSetup,
		hooks.PostPublish: file.PostPublish,
		hooks.CustomBuild: file.CustomBuild,
		hooks.PostBuild:   file.PostBuild,
		hooks.PrePackage:  file.PrePackage,
		hooks.PostPackage: file.PostPackage,
		hooks.PostSign:    file.PostSign,
		hooks.PostTag:     file.PostTag,
		hooks.PostRelease: file.PostRelease,
	}
	for name, script := range scripts {
		if strings.TrimSpace(script) == "" {
			delete(scripts, name)
		}
	}
	return HooksConfig{Shell: firstNonEmpty(file.Shell, DefaultShell), Scripts: scripts}
}

func isTrue(s string) bool {
	b, ok := boolWord(s)
	return ok && b
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
