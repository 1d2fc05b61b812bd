package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/conn-castle/release-rust/internal/messages"
)

// ErrConfigValidation is a sentinel that wraps config validation failures
// (as opposed to syntax, filesystem, or other loading errors).
// Callers can use errors.Is(err, ErrConfigValidation) to distinguish
// validation problems from other Load failure modes.
var ErrConfigValidation = errors.New("config validation failed")

// DefaultFileNames are probed in the workspace root, in order, when no
// config path is given.
var DefaultFileNames = []string{"release-rust.toml", "release-rust.yaml", "release-rust.yml"}

// LoadOptions controls where configuration comes from.
type LoadOptions struct {
	// Path is an explicit config file; it must exist. Empty probes
	// DefaultFileNames in Root and falls back to defaults.
	Path string
	// Root is the workspace root; empty uses the working directory.
	Root string
	// Env supplies action inputs and runner variables; nil reads nothing.
	Env LookupEnv
	// Now dates nightly toolchains; nil uses time.Now.
	Now func() time.Time
}

// Load reads the config file, applies action inputs, and resolves the result.
func Load(opts LoadOptions) (*Config, error) {
	root, err := resolveRoot(opts.Root)
	if err != nil {
		return nil, err
	}
	file, err := readFile(opts.Path, root)
	if err != nil {
		return nil, err
	}
	if err := ApplyInputs(file, opts.Env); err != nil {
		return nil, err
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	return Resolve(file, ResolveOptions{Root: root, Env: opts.Env, Now: now()})
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf(messages.ConfigRootFmt, err)
		}
		return wd, nil
	}
	expanded, err := homedir.Expand(root)
	if err != nil {
		return "", fmt.Errorf(messages.ConfigRootFmt, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf(messages.ConfigRootFmt, err)
	}
	return abs, nil
}

func readFile(path, root string) (*File, error) {
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf(messages.ConfigMissingFileFmt, path, err)
		}
		data, err := os.ReadFile(expanded)
		if err != nil {
			return nil, fmt.Errorf(messages.ConfigMissingFileFmt, path, err)
		}
		return ParseFile(data, expanded)
	}
	for _, name := range DefaultFileNames {
		candidate := filepath.Join(root, name)
		data, err := os.ReadFile(candidate)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf(messages.ConfigMissingFileFmt, candidate, err)
		}
		return ParseFile(data, candidate)
	}
	return &File{}, nil
}

// ParseFile decodes config data. YAML is used for .yaml and .yml sources,
// TOML otherwise. Unknown keys are validation errors.
func ParseFile(data []byte, source string) (*File, error) {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".yaml", ".yml":
		return parseYAML(data, source)
	default:
		return parseTOML(data, source)
	}
}

func parseTOML(data []byte, source string) (*File, error) {
	var file File
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf(messages.ConfigInvalidConfigFmt, source, err)
	}
	if err := decodeStrict(data); err != nil {
		return nil, fmt.Errorf("%w: "+messages.ConfigUnrecognizedKeysFmt, ErrConfigValidation, source, err)
	}
	return &file, nil
}

// decodeStrict re-decodes the TOML data with strict unknown-field rejection.
// This catches keys that toml.Unmarshal silently ignores.
func decodeStrict(data []byte) error {
	var file File
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	return decoder.Decode(&file)
}

func parseYAML(data []byte, source string) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf(messages.ConfigInvalidConfigFmt, source, err)
	}
	var strict File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&strict); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: "+messages.ConfigUnrecognizedKeysFmt, ErrConfigValidation, source, err)
	}
	return &file, nil
}
