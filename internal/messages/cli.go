package messages

// CLI messages for user-facing commands.
const (
	// RootUse is the CLI command name.
	RootUse = "release-rust"
	// RootShort is the short description for the root command.
	RootShort       = "Publish, build, package and release Rust crates"
	RootVersionFlag = "Print version and exit"

	FlagConfig    = "Config file (default: release-rust.toml, .yaml or .yml in the workspace)"
	FlagDebug     = "Log debug output"
	FlagLogFile   = "Also write a rotated JSON log to this file"
	FlagDir       = "Workspace root (default: current directory)"
	FlagSkipSetup = "Skip toolchain installation and git configuration"
	FlagOutput    = "Package output directory (default: $RELEASE_PACKAGE_OUTPUT, then package.output)"

	// VersionCommitFmt formats the commit hash for version display.
	VersionCommitFmt = "commit %s"
	VersionBuildFmt  = "built %s"
	VersionFullFmt   = "%s (%s)"
	VersionTemplate  = "{{.Version}}\n"

	// RunUse is the run command name.
	RunUse        = "run"
	RunShort      = "Run the full release pipeline"
	RunStoppedFmt = "Publish-only run finished: %d crate(s) published\n"
	RunDoneFmt    = "Release run %s finished: %d published, %d tag(s), %d release(s)\n"
	RunReleaseFmt = "  %s: %d/%d files uploaded\n"

	// PlanUse is the plan command name.
	PlanUse                 = "plan"
	PlanShort               = "Show what a run would publish, package, tag and release"
	PlanTargetFmt           = "Target: %s\n"
	PlanHeaderPublish       = "Publish:"
	PlanHeaderPublished     = "Already published:"
	PlanHeaderPackage       = "Build and package:"
	PlanHeaderTags          = "Tags:"
	PlanHeaderReleases      = "Releases:"
	PlanReleaseCrateFmt     = "Release crate: %s\n"
	PlanItemFmt             = "  %s %s\n"
	PlanNone                = "  (none)"
	PlanCrateOnly           = "Publish-only: nothing is built, tagged or released."
	PlanNothingToPublishFmt = "Nothing to publish: %v\n"

	// ManifestUse is the manifest command name.
	ManifestUse       = "manifest"
	ManifestShort     = "Inspect or extend the package manifest"
	ManifestAddUse    = "add <crate-glob> <file>"
	ManifestAddShort  = "Add a package file to the matching crates"
	ManifestAddedFmt  = "Added %s to %s\n"
	ManifestShowUse   = "show"
	ManifestShowShort = "Print the package manifest"
	ManifestEmptyFmt  = "No manifest in %s\n"
)
