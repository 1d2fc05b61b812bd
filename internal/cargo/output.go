package cargo

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Artifact is a compiler-artifact message from cargo's JSON build output.
type Artifact struct {
	Reason     string   `json:"reason"`
	PackageID  string   `json:"package_id"`
	Filenames  []string `json:"filenames"`
	Executable *string  `json:"executable"`
	Target     Target   `json:"target"`
}

const reasonArtifact = "compiler-artifact"

// ParseBuildOutput returns the compiler-artifact messages in output, in order.
// Lines that are not JSON objects are skipped.
func ParseBuildOutput(output string) []Artifact {
	var out []Artifact
	sc := bufio.NewScanner(strings.NewReader(output))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var a Artifact
		if err := json.Unmarshal([]byte(line), &a); err != nil {
			continue
		}
		if a.Reason == reasonArtifact {
			out = append(out, a)
		}
	}
	return out
}

// ArtifactsFor filters artifacts down to one package id.
func ArtifactsFor(artifacts []Artifact, packageID string) []Artifact {
	var out []Artifact
	for _, a := range artifacts {
		if a.PackageID == packageID {
			out = append(out, a)
		}
	}
	return out
}

// Files lists the distinct files of artifacts in order.
func Files(artifacts []Artifact) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range artifacts {
		for _, f := range a.Filenames {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// FindDebugSymbols returns split debug info (dSYM bundles, pdb and dwp files)
// found next to the given build outputs.
func FindDebugSymbols(files []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, f := range files {
		dir := filepath.Dir(f)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		matches, err := doublestar.Glob(os.DirFS(dir), "*.{dSYM,pdb,dwp}")
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			out = append(out, filepath.Join(dir, filepath.FromSlash(m)))
		}
	}
	return out, nil
}
