package git

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/release-rust/internal/command"
	"github.com/conn-castle/release-rust/internal/testutil"
)

func TestGitCommands(t *testing.T) {
	fake := &command.Fake{Handler: func(cmd command.Cmd) (command.Result, error) {
		if len(cmd.Args) > 0 && cmd.Args[0] == "tag" && cmd.Args[1] == "-l" {
			return command.Result{Stdout: "v1.0.0\n\nfoo-v2\n"}, nil
		}
		return command.Result{}, nil
	}}
	g := &Git{Runner: fake, Dir: "/repo"}
	ctx := context.Background()

	require.NoError(t, g.FetchTags(ctx))
	tags, err := g.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1.0.0", "foo-v2"}, tags)
	require.NoError(t, g.CreateTag(ctx, "v1.1.0", "foo 1.1.0", false))
	require.NoError(t, g.CreateTag(ctx, "v1.2.0", "foo 1.2.0", true))
	require.NoError(t, g.PushTags(ctx))
	require.NoError(t, g.SetGlobalConfig(ctx, "gpg.format", "x509"))

	assert.Equal(t, []string{
		"git fetch --tags",
		"git tag -l",
		"git tag -a v1.1.0 -m foo 1.1.0",
		"git tag -a v1.2.0 -m foo 1.2.0 -s",
		"git push --tags",
		"git config --global gpg.format x509",
	}, fake.Commands())
	for _, c := range fake.Calls {
		assert.Equal(t, "/repo", c.Dir)
	}
}

func TestGitErrorsWrap(t *testing.T) {
	boom := &command.ExitError{Name: "git", Code: 128}
	fake := &command.Fake{Handler: func(command.Cmd) (command.Result, error) { return command.Result{}, boom }}
	g := &Git{Runner: fake}

	err := g.PushTags(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "push --tags")

	_, err = g.ListTags(context.Background())
	require.Error(t, err)
}

func TestGitRunsBinaryOnPath(t *testing.T) {
	testutil.RequireShell(t)
	bin := t.TempDir()
	log := filepath.Join(bin, "calls.log")
	testutil.WriteRecordingStub(t, bin, "git", log, 0)
	testutil.PrependPath(t, bin)

	repo := t.TempDir()
	g := &Git{Runner: &command.ExecRunner{}, Dir: repo}
	ctx := context.Background()
	require.NoError(t, g.CreateTag(ctx, "v1.0.0", "foo 1.0.0", true))
	require.NoError(t, g.PushTags(ctx))

	assert.Equal(t, []string{
		"git tag -a v1.0.0 -m foo 1.0.0 -s",
		"git push --tags",
	}, testutil.ReadLines(t, log))
}

func TestGitExitCodeFromBinary(t *testing.T) {
	testutil.RequireShell(t)
	bin := t.TempDir()
	testutil.WriteStubWithExit(t, bin, "git", 128)
	testutil.PrependPath(t, bin)

	g := &Git{Runner: &command.ExecRunner{}, Dir: t.TempDir()}
	err := g.FetchTags(context.Background())
	require.Error(t, err)
	code, ok := command.ExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 128, code)
}
