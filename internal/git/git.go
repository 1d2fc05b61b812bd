// Package git drives the git CLI for tagging and configuration.
package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/conn-castle/release-rust/internal/command"
	"github.com/conn-castle/release-rust/internal/messages"
)

// Git runs git in one repository.
type Git struct {
	Runner command.Runner
	Dir    string
}

func (g *Git) run(ctx context.Context, args ...string) (command.Result, error) {
	res, err := g.Runner.Run(ctx, command.Cmd{Name: "git", Args: args, Dir: g.Dir})
	if err != nil {
		return res, fmt.Errorf(messages.GitCommandFmt, strings.Join(args, " "), err)
	}
	return res, nil
}

// FetchTags fetches tags from the default remote.
func (g *Git) FetchTags(ctx context.Context) error {
	_, err := g.run(ctx, "fetch", "--tags")
	return err
}

// ListTags returns the local tag names.
func (g *Git) ListTags(ctx context.Context) ([]string, error) {
	res, err := g.run(ctx, "tag", "-l")
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tags = append(tags, line)
		}
	}
	return tags, nil
}

// CreateTag creates an annotated tag, signed when sign is set.
func (g *Git) CreateTag(ctx context.Context, name, message string, sign bool) error {
	args := []string{"tag", "-a", name, "-m", message}
	if sign {
		args = append(args, "-s")
	}
	_, err := g.run(ctx, args...)
	return err
}

// PushTags pushes all tags to the default remote.
func (g *Git) PushTags(ctx context.Context) error {
	_, err := g.run(ctx, "push", "--tags")
	return err
}

// SetGlobalConfig writes key=value to the global git config.
func (g *Git) SetGlobalConfig(ctx context.Context, key, value string) error {
	_, err := g.run(ctx, "config", "--global", key, value)
	return err
}
