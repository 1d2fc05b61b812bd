// Package packager collects build artifacts and extra files per crate and
// archives them into the output directory.
package packager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/conn-castle/release-rust/internal/cargo"
	"github.com/conn-castle/release-rust/internal/command"
	"github.com/conn-castle/release-rust/internal/hooks"
	"github.com/conn-castle/release-rust/internal/manifest"
	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/patterns"
	"github.com/conn-castle/release-rust/internal/template"
)

// Archive formats.
const (
	ArchiveNone     = "none"
	ArchiveZip      = "zip"
	ArchiveTarGzip  = "tar+gzip"
	ArchiveTarBzip2 = "tar+bzip2"
	ArchiveTarXz    = "tar+xz"
	ArchiveTarZstd  = "tar+zstd"
)

// Formats lists the accepted archive formats.
var Formats = []string{ArchiveNone, ArchiveZip, ArchiveTarGzip, ArchiveTarBzip2, ArchiveTarXz, ArchiveTarZstd}

// Hook variables set for pre-package and post-package.
const (
	EnvSeparately   = "RELEASE_PACKAGE_SEPARATELY"
	EnvPackagingDir = "RELEASE_PACKAGING_DIR"
	EnvPackageName  = "RELEASE_PACKAGE_NAME"
	EnvCrateName    = "RELEASE_PACKAGE_CRATE_NAME"
	EnvCrateVersion = "RELEASE_PACKAGE_CRATE_VERSION"
)

// Hooks runs hook scripts.
type Hooks interface {
	Run(ctx context.Context, name hooks.Name, extra map[string]string, workdir string) error
}

// Options configures packaging.
type Options struct {
	Archive string
	// Files selects extra files added to every package.
	Files *patterns.List
	// Name is the package name template.
	Name       string
	InDir      bool
	Separately bool
	ShortExt   bool
	// Output is the absolute output directory.
	Output string
	Target string
	// Root resolves relative Files patterns.
	Root string
	// Windows archives zip files with 7z.
	Windows bool
	// TempDir holds the packaging directory; empty uses os.TempDir.
	TempDir string
}

// Packager runs the package phase.
type Packager struct {
	Runner  command.Runner
	Hooks   Hooks
	Options Options
	Log     *zap.Logger
}

// Result describes the packaged output.
type Result struct {
	PackagingDir string
	Manifests    []manifest.Crate
}

// HookVars returns the variables shared by the package hooks.
func (r Result) HookVars(separately bool) map[string]string {
	return map[string]string{
		EnvSeparately:   strconv.FormatBool(separately),
		EnvPackagingDir: r.PackagingDir,
	}
}

type unit struct {
	crate   cargo.Package
	files   []string
	dirName string
}

// Package prepares and archives crates. Without Separately a single package
// named after the release crate holds the artifacts of every crate.
func (p *Packager) Package(ctx context.Context, crates []cargo.Package, release cargo.Package, buildOutput string) (Result, error) {
	log := p.logger()
	o := p.Options

	ids := make(map[string]bool, len(crates))
	for _, c := range crates {
		ids[c.ID] = true
	}
	var artifacts []cargo.Artifact
	for _, a := range cargo.ParseBuildOutput(buildOutput) {
		if ids[a.PackageID] {
			artifacts = append(artifacts, a)
		}
	}

	packagingDir, err := os.MkdirTemp(o.TempDir, "packaging-")
	if err != nil {
		return Result{}, fmt.Errorf(messages.PackageTempDirFmt, err)
	}
	if err := os.MkdirAll(o.Output, 0o755); err != nil {
		return Result{}, fmt.Errorf(messages.PackageOutputDirFmt, o.Output, err)
	}
	res := Result{PackagingDir: packagingDir}

	var units []unit
	if o.Separately {
		for _, c := range crates {
			units = append(units, unit{crate: c, files: cargo.Files(cargo.ArtifactsFor(artifacts, c.ID))})
		}
	} else {
		units = append(units, unit{crate: release, files: cargo.Files(artifacts)})
	}

	for i := range units {
		entry, err := p.prepare(units[i], release, packagingDir)
		if err != nil {
			return res, err
		}
		res.Manifests = append(res.Manifests, entry)
	}
	if err := manifest.Write(ctx, o.Output, res.Manifests); err != nil {
		return res, err
	}

	for i, u := range units {
		entry := &res.Manifests[i]
		vars := res.HookVars(o.Separately)
		vars[EnvPackageName] = entry.PackageName
		vars[EnvCrateName] = u.crate.Name
		vars[EnvCrateVersion] = u.crate.Version
		if p.Hooks != nil {
			if err := p.Hooks.Run(ctx, hooks.PrePackage, vars, ""); err != nil {
				return res, err
			}
		}
		file, err := p.archive(ctx, entry.PackageName, filepath.Join(packagingDir, u.crate.Name))
		if err != nil {
			return res, err
		}
		if file != "" {
			entry.PackageFiles = append(entry.PackageFiles, file)
			log.Info("packaged crate", zap.String("crate", u.crate.Name), zap.String("file", file))
		}
	}
	// pre-package hooks may have added package files with `manifest add`.
	merged, err := manifest.Update(ctx, o.Output, res.Manifests)
	if err != nil {
		return res, err
	}
	res.Manifests = merged
	return res, nil
}

func (p *Packager) prepare(u unit, release cargo.Package, packagingDir string) (manifest.Crate, error) {
	o := p.Options
	ctx := template.ForCrate(o.Target, u.crate.Name, u.crate.Version, release.Name, release.Version)
	packageName := template.Render(o.Name, ctx)

	debug, err := cargo.FindDebugSymbols(u.files)
	if err != nil {
		return manifest.Crate{}, fmt.Errorf(messages.PackageDebugSymbolsFmt, u.crate.Name, err)
	}
	files := append(append([]string{}, u.files...), debug...)

	extra, err := o.Files.FindFiles(o.Root)
	if err != nil {
		return manifest.Crate{}, err
	}
	files = append(files, extra...)
	files = dedupe(files)

	dir := filepath.Join(packagingDir, u.crate.Name)
	if o.InDir {
		dir = filepath.Join(dir, packageName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return manifest.Crate{}, fmt.Errorf(messages.PackageCopyFmt, dir, err)
	}
	for _, f := range files {
		p.logger().Debug("copying file", zap.String("file", f), zap.String("to", dir))
		if err := copyInto(f, dir); err != nil {
			return manifest.Crate{}, fmt.Errorf(messages.PackageCopyFmt, f, err)
		}
	}
	return manifest.Crate{
		Name:         u.crate.Name,
		Version:      u.crate.Version,
		Files:        files,
		PackageName:  packageName,
		PackageFiles: []string{},
	}, nil
}

// Extension returns the archive file extension for format.
func Extension(format string, short bool) (string, error) {
	switch format {
	case ArchiveZip:
		return "zip", nil
	case ArchiveTarGzip:
		return pick(short, "tgz", "tar.gz"), nil
	case ArchiveTarBzip2:
		return pick(short, "tbz2", "tar.bz2"), nil
	case ArchiveTarXz:
		return pick(short, "txz", "tar.xz"), nil
	case ArchiveTarZstd:
		return pick(short, "tzst", "tar.zst"), nil
	default:
		return "", fmt.Errorf(messages.PackageArchiveInvalidFmt, format)
	}
}

// archive packs the contents of fromDir and returns the archive name
// relative to the output directory, or "" when archiving is off.
func (p *Packager) archive(ctx context.Context, packageName, fromDir string) (string, error) {
	o := p.Options
	if o.Archive == ArchiveNone {
		return "", nil
	}
	ext, err := Extension(o.Archive, o.ShortExt)
	if err != nil {
		return "", err
	}
	filename := packageName + "." + ext
	out := filepath.Join(o.Output, filename)

	entries, err := os.ReadDir(fromDir)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf(messages.PackageArchiveFmt, filename, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "", fmt.Errorf(messages.PackageEmptyFmt, packageName)
	}

	if o.Archive == ArchiveZip {
		if o.Windows {
			err = p.run(ctx, fromDir, "7z", append([]string{"a", "-mx9", out}, names...)...)
		} else {
			err = p.run(ctx, fromDir, "zip", append([]string{"-r", "-9", out}, names...)...)
		}
		if err != nil {
			return "", fmt.Errorf(messages.PackageArchiveFmt, filename, err)
		}
		return filename, nil
	}

	tarball := filepath.Join(filepath.Dir(fromDir), packageName+".tar")
	if err := p.run(ctx, fromDir, "tar", append([]string{"cf", tarball}, names...)...); err != nil {
		return "", fmt.Errorf(messages.PackageArchiveFmt, filename, err)
	}
	if err := p.compress(ctx, tarball, out); err != nil {
		return "", fmt.Errorf(messages.PackageArchiveFmt, filename, err)
	}
	return filename, nil
}

func (p *Packager) compress(ctx context.Context, tarball, out string) error {
	if p.Options.Archive == ArchiveTarZstd {
		return p.run(ctx, "", "zstd", "-22", "--ultra", "-T0", "-o", out, tarball)
	}
	tool := map[string]string{
		ArchiveTarGzip:  "gzip",
		ArchiveTarBzip2: "bzip2",
		ArchiveTarXz:    "xz",
	}[p.Options.Archive]

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	_, runErr := p.Runner.Run(ctx, command.Cmd{Name: tool, Args: []string{"-9", "--stdout", tarball}, Stdout: f})
	closeErr := f.Close()
	if runErr != nil {
		_ = os.Remove(out)
		return runErr
	}
	return closeErr
}

func (p *Packager) run(ctx context.Context, dir, name string, args ...string) error {
	_, err := p.Runner.Run(ctx, command.Cmd{Name: name, Args: args, Dir: dir})
	return err
}

func (p *Packager) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

func pick(short bool, a, b string) string {
	if short {
		return a
	}
	return b
}

func dedupe(files []string) []string {
	seen := make(map[string]bool, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
