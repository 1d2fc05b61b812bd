// Package manifest records the packaged files of each crate in the output
// directory so later phases and hooks can find them.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/patterns"
)

// FileName is the manifest file inside the output directory.
const FileName = ".crates.json"

const lockSuffix = ".lock"

var lockRetryDelay = 50 * time.Millisecond

// Crate is the manifest entry of one packaged crate.
type Crate struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	// Files are the paths copied into the packaging directory.
	Files []string `json:"files"`
	// PackageName is the archive base name.
	PackageName string `json:"packageName"`
	// PackageFiles are output-relative files to upload for the crate.
	PackageFiles []string `json:"packageFiles"`
}

// Path returns the manifest path for output.
func Path(output string) string {
	return filepath.Join(output, FileName)
}

// Read loads the manifest. A missing manifest reads as empty.
func Read(output string) ([]Crate, error) {
	data, err := os.ReadFile(Path(output))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf(messages.ManifestReadFmt, Path(output), err)
	}
	var crates []Crate
	if err := json.Unmarshal(data, &crates); err != nil {
		return nil, fmt.Errorf(messages.ManifestParseFmt, Path(output), err)
	}
	return crates, nil
}

// Write replaces the manifest under the manifest lock.
func Write(ctx context.Context, output string, crates []Crate) error {
	return withLock(ctx, output, func() error {
		return write(output, crates)
	})
}

// Update writes crates under the manifest lock, keeping package files that
// were added to the stored entries since they were written. It returns the
// entries as written.
func Update(ctx context.Context, output string, crates []Crate) ([]Crate, error) {
	merged := make([]Crate, len(crates))
	err := withLock(ctx, output, func() error {
		stored, err := Read(output)
		if err != nil {
			return err
		}
		for i, c := range crates {
			files := append([]string{}, c.PackageFiles...)
			if prev, ok := Find(stored, c.Name); ok {
				for _, f := range prev.PackageFiles {
					if !contains(files, f) {
						files = append(files, f)
					}
				}
			}
			c.PackageFiles = files
			merged[i] = c
		}
		return write(output, merged)
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// AddPackageFile appends file to the package files of every crate matching
// filter and returns the names of the updated crates.
func AddPackageFile(ctx context.Context, output string, filter *patterns.List, file string) ([]string, error) {
	var updated []string
	err := withLock(ctx, output, func() error {
		crates, err := Read(output)
		if err != nil {
			return err
		}
		for i := range crates {
			if !filter.MatchOne(crates[i].Name) {
				continue
			}
			if !contains(crates[i].PackageFiles, file) {
				crates[i].PackageFiles = append(crates[i].PackageFiles, file)
			}
			updated = append(updated, crates[i].Name)
		}
		if len(updated) == 0 {
			return fmt.Errorf(messages.ManifestNoMatchFmt, filter.Patterns())
		}
		return write(output, crates)
	})
	return updated, err
}

// Find returns the entry for name.
func Find(crates []Crate, name string) (Crate, bool) {
	for _, c := range crates {
		if c.Name == name {
			return c, true
		}
	}
	return Crate{}, false
}

// PackageFiles returns the package files of all crates joined with output,
// without duplicates.
func PackageFiles(output string, crates []Crate) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range crates {
		for _, f := range c.PackageFiles {
			p := f
			if !filepath.IsAbs(p) {
				p = filepath.Join(output, f)
			}
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

func write(output string, crates []Crate) error {
	normalized := make([]Crate, len(crates))
	for i, c := range crates {
		if c.Files == nil {
			c.Files = []string{}
		}
		if c.PackageFiles == nil {
			c.PackageFiles = []string{}
		}
		normalized[i] = c
	}
	data, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return fmt.Errorf(messages.ManifestEncodeFmt, err)
	}
	data = append(data, '\n')

	path := Path(output)
	tmp, err := os.CreateTemp(output, FileName+".*")
	if err != nil {
		return fmt.Errorf(messages.ManifestWriteFmt, path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf(messages.ManifestWriteFmt, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf(messages.ManifestWriteFmt, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf(messages.ManifestWriteFmt, path, err)
	}
	return nil
}

func withLock(ctx context.Context, output string, fn func() error) error {
	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf(messages.ManifestWriteFmt, Path(output), err)
	}
	fl := flock.New(Path(output) + lockSuffix)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf(messages.ManifestLockFmt, fl.Path(), err)
	}
	if !locked {
		return fmt.Errorf(messages.ManifestLockFmt, fl.Path(), ctx.Err())
	}
	defer func() { _ = fl.Unlock() }()
	return fn()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
