package cargo

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/conn-castle/release-rust/internal/command"
	"github.com/conn-castle/release-rust/internal/messages"
)

// Metadata is the subset of `cargo metadata --format-version 1` in use.
type Metadata struct {
	Packages         []Package `json:"packages"`
	WorkspaceMembers []string  `json:"workspace_members"`
	WorkspaceRoot    string    `json:"workspace_root"`
	TargetDirectory  string    `json:"target_directory"`
}

// ParseMetadata decodes cargo metadata JSON.
func ParseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf(messages.CargoParseMetadataFmt, err)
	}
	return &m, nil
}

// LocalPackages returns the packages without a registry source, in
// metadata order.
func (m *Metadata) LocalPackages() []Package {
	var out []Package
	for _, p := range m.Packages {
		if p.IsLocal() {
			out = append(out, p)
		}
	}
	return out
}

// Cargo runs cargo subcommands in a workspace.
type Cargo struct {
	Runner command.Runner
	Dir    string
	Log    *zap.Logger
}

// Metadata loads the workspace crate graph.
func (c *Cargo) Metadata(ctx context.Context) (*Metadata, error) {
	res, err := c.Runner.Run(ctx, command.Cmd{
		Name: "cargo",
		Args: []string{"metadata", "--format-version", "1"},
		Dir:  c.Dir,
	})
	if err != nil {
		return nil, fmt.Errorf(messages.CargoMetadataFmt, err)
	}
	return ParseMetadata([]byte(res.Stdout))
}

// Publish uploads one package to the registry. token, when set, is passed as
// CARGO_REGISTRY_TOKEN.
func (c *Cargo) Publish(ctx context.Context, name string, token string) error {
	var env []string
	if token != "" {
		env = append(env, "CARGO_REGISTRY_TOKEN="+token)
	}
	if c.Log != nil {
		c.Log.Info("publishing crate", zap.String("crate", name))
	}
	_, err := c.Runner.Run(ctx, command.Cmd{
		Name: "cargo",
		Args: []string{"publish", "--package", name},
		Dir:  c.Dir,
		Env:  env,
	})
	if err != nil {
		return fmt.Errorf(messages.CargoPublishFmt, name, err)
	}
	return nil
}
