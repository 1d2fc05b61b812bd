package messages

// Pattern and template messages.
const (
	PatternEmptyFmt     = "empty pattern %q"
	PatternInvalidFmt   = "invalid pattern %q: %w"
	PatternFindFilesFmt = "expand pattern %q: %w"
)

// Command and hook messages.
const (
	// CommandFailedFmt formats a subprocess that exited non-zero.
	CommandFailedFmt   = "%s exited with code %d"
	CommandStartFmt    = "run %s: %w"
	CommandNameMissing = "command name is required"

	HookUnknownFmt       = "unknown hook %q"
	HookShellEmpty       = "hook shell is empty"
	HookCreateTempDirFmt = "create temp dir for hook %s: %w"
	HookWriteScriptFmt   = "write hook script %s: %w"
	HookFailedFmt        = "hook %s: %w"
)

// Retry messages.
const (
	RetryAttemptsInvalidFmt = "retry policy needs at least one attempt, got %d"
)

// Cargo and registry messages.
const (
	CargoMetadataFmt      = "cargo metadata: %w"
	CargoParseMetadataFmt = "parse cargo metadata: %w"
	CargoPublishFmt       = "publish %s: %w"

	RegistryCreateRequestFmt = "create registry request: %w"
	RegistryStatusFmt        = "registry returned %s"
)

// Selection messages.
const (
	SelectorNoReleaseCrate   = "no crate matches the release crate rules"
	SelectorNothingToPublish = "no crates to publish and the run is publish-only"
)

// Git and tag messages.
const (
	GitCommandFmt = "git %s: %w"

	TagFetchFmt        = "fetch tags: %w"
	TagListFmt         = "list tags: %w"
	TagCreateFmt       = "create tag %s: %w"
	TagPushFmt         = "push tags: %w"
	TagMessageFmt      = "%s %s"
	TagMessageOtherFmt = "%s %s (release %s)"
)

// GitHub and release messages.
const (
	GitHubStatusFmt            = "github api status %d: %v"
	GitHubRepositoryInvalidFmt = "invalid github repository %q (expected owner/name)"
	GitHubURLInvalidFmt        = "invalid github url %q: %w"

	ReleaseNoTagFmt      = "no tag for release crate %s"
	ReleaseCreateFmt     = "create release for tag %s: %w"
	ReleaseListOutputFmt = "list output dir %s: %w"
	ReleaseAssetIsDirFmt = "%s is a directory"
)

// Manifest messages.
const (
	ManifestReadFmt    = "read manifest %s: %w"
	ManifestParseFmt   = "parse manifest %s: %w"
	ManifestEncodeFmt  = "encode manifest: %w"
	ManifestWriteFmt   = "write manifest %s: %w"
	ManifestLockFmt    = "lock manifest %s: %w"
	ManifestNoMatchFmt = "no manifest entry matches %v"
)

// Toolchain messages.
const (
	ToolchainInvalidFmt      = "invalid toolchain %q (expected stable, nightly, nightly-YYYY-MM-DD or 1.x.y)"
	ToolchainUnknownHostFmt  = "cannot determine host target (runner os %q, goos %q)"
	ToolchainCrossVersionFmt = "invalid cross version %q: %w"
	ToolchainCrossTooOldFmt  = "cross version %s is older than %s"
)

// Extra flag messages.
const (
	ExtrasParseFmt    = "parse extra flags %q: %w"
	ExtrasOperatorFmt = "extra flags may not contain shell operator %q: %q"
)

// Phase messages.
const (
	BuildFailedFmt = "build: %w"
)

// Package messages.
const (
	PackageTempDirFmt        = "create packaging dir: %w"
	PackageOutputDirFmt      = "create output dir %s: %w"
	PackageDebugSymbolsFmt   = "find debug symbols for %s: %w"
	PackageCopyFmt           = "copy %s: %w"
	PackageArchiveInvalidFmt = "unknown archive format %q"
	PackageArchiveFmt        = "archive %s: %w"
	PackageEmptyFmt          = "nothing to package for %s"

	SignFailedFmt = "sign %s: %w"
)

// Pipeline messages.
const (
	PipelinePhaseFmt       = "%s phase: %w"
	PipelineNoGitHub       = "releasing needs a github repository (set github.repository or GITHUB_REPOSITORY)"
	PipelineGitHubFmt      = "github client: %w"
	PipelineManifestAddFmt = "add %s to manifest: %w"
)

// Logging messages.
const (
	LogFileFmt = "open log file %s: %w"
)
