package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/release-rust/internal/cargo"
	"github.com/conn-castle/release-rust/internal/command"
	"github.com/conn-castle/release-rust/internal/config"
	"github.com/conn-castle/release-rust/internal/github"
	"github.com/conn-castle/release-rust/internal/hooks"
	"github.com/conn-castle/release-rust/internal/manifest"
	"github.com/conn-castle/release-rust/internal/selector"
)

const target = "x86_64-unknown-linux-gnu"

type fakeCargo struct {
	packages  []cargo.Package
	published []string
	err       error
}

func (f *fakeCargo) Metadata(context.Context) (*cargo.Metadata, error) {
	return &cargo.Metadata{Packages: f.packages}, nil
}

func (f *fakeCargo) Publish(_ context.Context, name string, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, name)
	return nil
}

type fakeRegistry map[string]bool

func (f fakeRegistry) IsVersionPublished(_ context.Context, name, version string) bool {
	return f[name+"@"+version]
}

type fakeRepo struct {
	mu      sync.Mutex
	tags    []string
	created []string
	pushes  int
	config  map[string]string
}

func (f *fakeRepo) FetchTags(context.Context) error { return nil }

func (f *fakeRepo) ListTags(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.tags...), nil
}

func (f *fakeRepo) CreateTag(_ context.Context, name, _ string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, name)
	f.created = append(f.created, name)
	return nil
}

func (f *fakeRepo) PushTags(context.Context) error {
	f.pushes++
	return nil
}

func (f *fakeRepo) SetGlobalConfig(_ context.Context, key, value string) error {
	if f.config == nil {
		f.config = map[string]string{}
	}
	f.config[key] = value
	return nil
}

type fakeGitHub struct {
	releases map[string]int64
	created  []github.NewRelease
	uploads  map[int64][]string
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{releases: map[string]int64{}, uploads: map[int64][]string{}}
}

func (f *fakeGitHub) ReleaseByTag(_ context.Context, tag string) (int64, bool, error) {
	id, ok := f.releases[tag]
	return id, ok, nil
}

func (f *fakeGitHub) CreateRelease(_ context.Context, r github.NewRelease) (int64, error) {
	id := int64(len(f.releases) + 1)
	f.releases[r.Tag] = id
	f.created = append(f.created, r)
	return id, nil
}

func (f *fakeGitHub) UploadAsset(_ context.Context, releaseID int64, path string) error {
	f.uploads[releaseID] = append(f.uploads[releaseID], filepath.Base(path))
	return nil
}

func bin(name, version string) cargo.Package {
	return cargo.Package{
		ID:      name + " " + version,
		Name:    name,
		Version: version,
		Targets: []cargo.Target{{Name: name, Kind: []string{"bin"}}},
	}
}

type env struct {
	root   string
	runner *command.Fake
	cargo  *fakeCargo
	repo   *fakeRepo
	gh     *fakeGitHub
	p      *Pipeline
}

// newEnv builds a workspace whose build writes one binary per crate.
func newEnv(t *testing.T, crates []cargo.Package, registry fakeRegistry) *env {
	t.Helper()
	prev := newRunID
	newRunID = func() string { return "run-1" }
	t.Cleanup(func() { newRunID = prev })

	root := t.TempDir()
	binDir := filepath.Join(root, "target", target, "release")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	var lines []string
	for _, c := range crates {
		path := filepath.Join(binDir, c.Name)
		require.NoError(t, os.WriteFile(path, []byte(c.Name), 0o755))
		data, err := json.Marshal(cargo.Artifact{Reason: "compiler-artifact", PackageID: c.ID, Filenames: []string{path}})
		require.NoError(t, err)
		lines = append(lines, string(data))
	}
	buildOutput := strings.Join(lines, "\n")

	runner := &command.Fake{Handler: func(cmd command.Cmd) (command.Result, error) {
		switch {
		case cmd.Name == "cargo" && cmd.Args[0] == "build":
			return command.Result{Stdout: buildOutput}, nil
		case cmd.Name == "zip":
			return command.Result{}, os.WriteFile(cmd.Args[2], []byte("zip"), 0o644)
		}
		return command.Result{}, nil
	}}

	cfg, err := config.Resolve(&config.File{}, config.ResolveOptions{
		Root:   root,
		Env:    config.MapEnv(nil),
		Now:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		GOOS:   "linux",
		GOARCH: "amd64",
	})
	require.NoError(t, err)

	e := &env{
		root:   root,
		runner: runner,
		cargo:  &fakeCargo{packages: crates},
		repo:   &fakeRepo{},
		gh:     newFakeGitHub(),
	}
	e.p = &Pipeline{
		Config:   cfg,
		Runner:   runner,
		Cargo:    e.cargo,
		Registry: registry,
		Repo:     e.repo,
		GitHub:   e.gh,
		TempDir:  t.TempDir(),
	}
	return e
}

func (e *env) commandNames() []string {
	var out []string
	for _, c := range e.runner.Calls {
		name := c.Name
		if len(c.Args) > 0 {
			name += " " + c.Args[0]
		}
		out = append(out, name)
	}
	return out
}

func TestRunSingleCrate(t *testing.T) {
	foo := bin("foo", "1.0.0")
	e := newEnv(t, []cargo.Package{foo}, fakeRegistry{})

	s, err := e.p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, []string{"foo"}, e.cargo.published)
	assert.Equal(t, "foo", s.Selection.ReleaseCrate.Name)
	assert.Equal(t, []string{
		"rustup toolchain",
		"rustup target",
		"rustup default",
		"cargo build",
		"zip -r",
		"cosign sign-blob",
	}, e.commandNames())

	archive := "foo-" + target + ".zip"
	assert.FileExists(t, filepath.Join(e.p.Config.Package.Output, archive))
	manifests, err := manifest.Read(e.p.Config.Package.Output)
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	assert.Equal(t, []string{archive}, manifests[0].PackageFiles)

	assert.Equal(t, []string{"1.0.0"}, e.repo.created)
	assert.Equal(t, 1, e.repo.pushes)
	assert.Equal(t, "true", e.repo.config["tag.gpgsign"])

	require.Len(t, e.gh.created, 1)
	assert.Equal(t, "1.0.0", e.gh.created[0].Tag)
	assert.Equal(t, "1.0.0", e.gh.created[0].Name)
	assert.True(t, e.gh.created[0].Latest)
	assert.Equal(t, []string{archive}, e.gh.uploads[1])

	require.Len(t, s.Releases, 1)
	assert.True(t, s.Releases[0].Created)
	assert.Equal(t, 1, s.Releases[0].Upload.Uploaded)
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	foo := bin("foo", "1.0.0")
	e := newEnv(t, []cargo.Package{foo}, fakeRegistry{})

	_, err := e.p.Run(context.Background())
	require.NoError(t, err)
	e.p.Registry = fakeRegistry{"foo@1.0.0": true}
	s, err := e.p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"foo"}, e.cargo.published)
	assert.Equal(t, []string{"1.0.0"}, e.repo.created)
	assert.Len(t, e.gh.created, 1)
	require.Len(t, s.Releases, 1)
	assert.False(t, s.Releases[0].Created)
}

func TestRunReleaseSeparatelyTagsUnpublishedReleaseCrate(t *testing.T) {
	foo := bin("foo", "1.0.0")
	bar := bin("bar", "2.0.0")
	bar.Publish = cargo.Unpublishable()
	e := newEnv(t, []cargo.Package{foo, bar}, fakeRegistry{})
	e.p.Config.Release.Separately = true

	s, err := e.p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"foo"}, e.cargo.published)
	assert.Equal(t, "bar", s.Selection.ReleaseCrate.Name)
	assert.Equal(t, []string{"bar"}, cargo.Names(s.Selection.Release))
	assert.Equal(t, []string{"1.0.0", "2.0.0"}, e.repo.created)

	require.Len(t, e.gh.created, 2)
	assert.Equal(t, "1.0.0", e.gh.created[0].Tag)
	assert.Equal(t, "2.0.0", e.gh.created[1].Tag)
	assert.Empty(t, e.gh.uploads[e.gh.releases["1.0.0"]])
	assert.Equal(t, []string{"bar-" + target + ".zip"}, e.gh.uploads[e.gh.releases["2.0.0"]])
}

func TestRunReleaseSeparatelyNamesPackagesAfterPackagedCrate(t *testing.T) {
	afoo := bin("afoo", "1.0.0")
	bar := bin("bar", "2.0.0")
	bar.Publish = cargo.Unpublishable()
	e := newEnv(t, []cargo.Package{afoo, bar}, fakeRegistry{})
	e.p.Config.Release.Separately = true

	s, err := e.p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"afoo"}, e.cargo.published)
	assert.Equal(t, []string{"bar"}, cargo.Names(s.Selection.Release))
	assert.Equal(t, "bar", s.Selection.ReleaseCrate.Name)

	archive := "bar-" + target + ".zip"
	manifests, err := manifest.Read(e.p.Config.Package.Output)
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	assert.Equal(t, "bar", manifests[0].Name)
	assert.Equal(t, "2.0.0", manifests[0].Version)
	assert.Equal(t, "bar-"+target, manifests[0].PackageName)
	assert.Equal(t, []string{archive}, manifests[0].PackageFiles)
	require.Len(t, manifests[0].Files, 1)
	assert.Equal(t, "bar", filepath.Base(manifests[0].Files[0]))
	assert.FileExists(t, filepath.Join(e.p.Config.Package.Output, archive))
	assert.NoFileExists(t, filepath.Join(e.p.Config.Package.Output, "afoo-"+target+".zip"))

	assert.Equal(t, []string{"1.0.0", "2.0.0"}, e.repo.created)
	assert.Empty(t, e.gh.uploads[e.gh.releases["1.0.0"]])
	assert.Equal(t, []string{archive}, e.gh.uploads[e.gh.releases["2.0.0"]])
}

func TestRunCrateOnlyStopsAfterPublish(t *testing.T) {
	foo := bin("foo", "1.0.0")
	e := newEnv(t, []cargo.Package{foo}, fakeRegistry{})
	e.p.Config.Publish.CrateOnly = true
	e.p.SkipSetup = true
	e.p.Hooks = &hooks.Runner{Scripts: map[hooks.Name]string{
		hooks.PostPublish: "echo published",
		hooks.PostBuild:   "echo built",
	}}

	s, err := e.p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, s.Done)
	assert.Equal(t, []string{"foo"}, e.cargo.published)
	require.Len(t, e.runner.Calls, 1)
	assert.Equal(t, "bash", e.runner.Calls[0].Name)
	assert.Contains(t, e.runner.Calls[0].Args[0], "post-publish")
	assert.Empty(t, e.repo.created)
	assert.Empty(t, e.gh.created)
}

func TestRunCrateOnlyNothingToPublish(t *testing.T) {
	foo := bin("foo", "1.0.0")
	e := newEnv(t, []cargo.Package{foo}, fakeRegistry{"foo@1.0.0": true})
	e.p.Config.Publish.CrateOnly = true
	e.p.SkipSetup = true

	_, err := e.p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, selector.ErrNothingToPublish)
	assert.Contains(t, err.Error(), "publish phase")
}

func TestRunPackageHooksGetPackageVariables(t *testing.T) {
	foo := bin("foo", "1.0.0")
	e := newEnv(t, []cargo.Package{foo}, fakeRegistry{})
	e.p.SkipSetup = true
	e.p.Config.Release.Enabled = false
	e.p.Hooks = &hooks.Runner{Scripts: map[hooks.Name]string{hooks.PostPackage: "ls"}}

	_, err := e.p.Run(context.Background())
	require.NoError(t, err)

	idx := slices.IndexFunc(e.runner.Calls, func(c command.Cmd) bool { return c.Name == "bash" })
	require.GreaterOrEqual(t, idx, 0)
	hook := e.runner.Calls[idx]
	assert.Equal(t, e.p.Config.Package.Output, hook.Dir)
	assert.Contains(t, hook.Env, "RELEASE_RUN_ID=run-1")
	assert.Contains(t, hook.Env, "RELEASE_TARGET="+target)
	assert.Contains(t, hook.Env, "RELEASE_ROOT="+e.root)
	assert.Contains(t, hook.Env, "RELEASE_PACKAGE_SEPARATELY=false")
	assert.Empty(t, e.gh.created)
}

func TestRunFailingPhaseSkipsItsHookAndLaterPhases(t *testing.T) {
	foo := bin("foo", "1.0.0")
	e := newEnv(t, []cargo.Package{foo}, fakeRegistry{})
	e.p.SkipSetup = true
	e.p.Hooks = &hooks.Runner{Scripts: map[hooks.Name]string{
		hooks.PostPublish: "true",
		hooks.PostBuild:   "true",
	}}
	e.runner.Handler = func(cmd command.Cmd) (command.Result, error) {
		if cmd.Name == "cargo" {
			return command.Result{}, &command.ExitError{Name: "cargo", Code: 101, Err: errors.New("exit status 101")}
		}
		return command.Result{}, nil
	}

	_, err := e.p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build phase")
	code, ok := command.ExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 101, code)

	var hookNames []string
	for _, c := range e.runner.Calls {
		if c.Name == "bash" {
			hookNames = append(hookNames, filepath.Base(c.Args[0]))
		}
	}
	assert.Equal(t, []string{"post-publish.sh"}, hookNames)
	assert.Empty(t, e.repo.created)
}

func TestRunReleaseWithoutGitHub(t *testing.T) {
	foo := bin("foo", "1.0.0")
	e := newEnv(t, []cargo.Package{foo}, fakeRegistry{})
	e.p.SkipSetup = true
	e.p.GitHub = nil

	_, err := e.p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release phase")
}

func TestPlanHasNoSideEffects(t *testing.T) {
	foo := bin("foo", "1.0.0")
	lib := cargo.Package{ID: "lib 0.1.0", Name: "lib", Version: "0.1.0", Targets: []cargo.Target{{Kind: []string{"lib"}}}}
	e := newEnv(t, []cargo.Package{foo, lib}, fakeRegistry{"lib@0.1.0": true})
	e.p.Config.Publish.AllCrates = true

	plan, err := e.p.Plan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"foo"}, cargo.Names(plan.Selection.Publish))
	assert.Equal(t, []string{"lib"}, cargo.Names(plan.Selection.AlreadyPublished))
	assert.Equal(t, "foo", plan.Selection.ReleaseCrate.Name)
	assert.Equal(t, []string{"1.0.0"}, plan.Tags)
	assert.Equal(t, []string{"1.0.0"}, plan.Releases)
	assert.Empty(t, e.runner.Calls)
	assert.Empty(t, e.cargo.published)
	assert.Empty(t, e.repo.created)
}

func TestIsWindows(t *testing.T) {
	assert.True(t, isWindows("Windows", "linux"))
	assert.False(t, isWindows("Linux", "windows"))
	assert.True(t, isWindows("", "windows"))
	assert.False(t, isWindows("", "darwin"))
}
