package cargo

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/release-rust/internal/command"
)

const metadataJSON = `{
  "packages": [
    {"id": "foo 1.0.0 (path+file:///ws/foo)", "name": "foo", "version": "1.0.0", "source": null,
     "targets": [{"name": "foo", "kind": ["lib"], "crate_types": ["lib"]}], "publish": null},
    {"id": "bar 2.0.0 (path+file:///ws/bar)", "name": "bar", "version": "2.0.0", "source": null,
     "targets": [{"name": "bar", "kind": ["bin"], "crate_types": ["bin"]}], "publish": []},
    {"id": "serde 1.0.0 (registry+https://github.com/rust-lang/crates.io-index)", "name": "serde", "version": "1.0.0",
     "source": "registry+https://github.com/rust-lang/crates.io-index", "targets": [], "publish": null},
    {"id": "baz 0.1.0 (path+file:///ws/baz)", "name": "baz", "version": "0.1.0", "source": null,
     "targets": [], "publish": false}
  ],
  "workspace_members": ["foo 1.0.0 (path+file:///ws/foo)"],
  "workspace_root": "/ws",
  "target_directory": "/ws/target"
}`

func TestParseMetadata(t *testing.T) {
	m, err := ParseMetadata([]byte(metadataJSON))
	require.NoError(t, err)
	assert.Equal(t, "/ws", m.WorkspaceRoot)
	assert.Equal(t, "/ws/target", m.TargetDirectory)

	local := m.LocalPackages()
	assert.Equal(t, []string{"foo", "bar", "baz"}, Names(local))

	assert.True(t, local[0].IsPublishable())
	assert.False(t, local[1].IsPublishable())
	assert.False(t, local[2].IsPublishable())

	assert.False(t, local[0].IsBinary())
	assert.True(t, local[1].IsBinary())
}

func TestParseMetadataInvalid(t *testing.T) {
	_, err := ParseMetadata([]byte("not json"))
	require.Error(t, err)
}

func TestPublishSettingRoundTrip(t *testing.T) {
	for _, raw := range []string{"null", "false", "true", `["crates-io"]`, `[]`} {
		var p PublishSetting
		require.NoError(t, json.Unmarshal([]byte(raw), &p))
		out, err := json.Marshal(p)
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(out))
	}
	assert.False(t, Unpublishable().Allowed())
}

func TestIsBinaryByCrateType(t *testing.T) {
	p := Package{Targets: []Target{{Kind: []string{"custom"}, CrateTypes: []string{"bin"}}}}
	assert.True(t, p.IsBinary())
}

func TestContainsID(t *testing.T) {
	pkgs := []Package{{ID: "a"}, {ID: "b"}}
	assert.True(t, ContainsID(pkgs, "b"))
	assert.False(t, ContainsID(pkgs, "c"))
}

func TestCargoMetadataRunsCargo(t *testing.T) {
	fake := &command.Fake{Handler: func(cmd command.Cmd) (command.Result, error) {
		return command.Result{Stdout: metadataJSON}, nil
	}}
	c := &Cargo{Runner: fake, Dir: "/ws"}
	m, err := c.Metadata(context.Background())
	require.NoError(t, err)
	assert.Len(t, m.Packages, 4)
	assert.Equal(t, []string{"cargo metadata --format-version 1"}, fake.Commands())
	assert.Equal(t, "/ws", fake.Calls[0].Dir)
}

func TestCargoMetadataFailure(t *testing.T) {
	fake := &command.Fake{Handler: func(command.Cmd) (command.Result, error) {
		return command.Result{}, &command.ExitError{Name: "cargo", Code: 101}
	}}
	_, err := (&Cargo{Runner: fake}).Metadata(context.Background())
	require.Error(t, err)
	code, ok := command.ExitCode(err)
	assert.True(t, ok)
	assert.Equal(t, 101, code)
}

func TestCargoPublishPassesToken(t *testing.T) {
	fake := &command.Fake{}
	require.NoError(t, (&Cargo{Runner: fake}).Publish(context.Background(), "foo", "secret"))
	assert.Equal(t, []string{"cargo publish --package foo"}, fake.Commands())
	assert.Equal(t, []string{"CARGO_REGISTRY_TOKEN=secret"}, fake.Calls[0].Env)
}

func TestCargoPublishFailure(t *testing.T) {
	boom := errors.New("boom")
	fake := &command.Fake{Handler: func(command.Cmd) (command.Result, error) { return command.Result{}, boom }}
	err := (&Cargo{Runner: fake}).Publish(context.Background(), "foo", "")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, fake.Calls[0].Env)
}

func TestParseBuildOutput(t *testing.T) {
	out := `   Compiling foo v1.0.0
{"reason":"compiler-artifact","package_id":"foo 1.0.0","filenames":["/t/release/foo"],"executable":"/t/release/foo","target":{"name":"foo","kind":["bin"],"crate_types":["bin"]}}
{"reason":"build-script-executed","package_id":"foo 1.0.0"}
{broken
{"reason":"compiler-artifact","package_id":"bar 1.0.0","filenames":["/t/release/libbar.rlib"],"target":{"name":"bar","kind":["lib"],"crate_types":["lib"]}}
{"reason":"build-finished","success":true}
`
	artifacts := ParseBuildOutput(out)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "foo 1.0.0", artifacts[0].PackageID)
	assert.Equal(t, []string{"/t/release/foo"}, Files(ArtifactsFor(artifacts, "foo 1.0.0")))
	assert.Empty(t, ArtifactsFor(artifacts, "baz"))
}

func TestFilesDeduplicates(t *testing.T) {
	files := Files([]Artifact{
		{Filenames: []string{"a", "b"}},
		{Filenames: []string{"b", "c"}},
	})
	assert.Equal(t, []string{"a", "b", "c"}, files)
}

func TestFindDebugSymbols(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"foo", "foo.pdb", "foo.dwp", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "foo.dSYM", "Contents"), 0o755))

	got, err := FindDebugSymbols([]string{filepath.Join(dir, "foo"), filepath.Join(dir, "foo.pdb")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "foo.dSYM"),
		filepath.Join(dir, "foo.pdb"),
		filepath.Join(dir, "foo.dwp"),
	}, got)
}
