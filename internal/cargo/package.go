// Package cargo reads workspace metadata and build output from cargo and
// drives cargo publish.
package cargo

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Target is one build target of a package.
type Target struct {
	Name       string   `json:"name"`
	Kind       []string `json:"kind"`
	CrateTypes []string `json:"crate_types"`
	SrcPath    string   `json:"src_path,omitempty"`
}

// PublishSetting is the package's publish field: null (anywhere), false, or
// a list of allowed registries where an empty list also means false.
type PublishSetting struct {
	set        bool
	allowed    bool
	Registries []string
}

// UnmarshalJSON accepts null, a boolean, or a registry list.
func (p *PublishSetting) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = PublishSetting{}
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*p = PublishSetting{set: true, allowed: b}
		return nil
	}
	var regs []string
	if err := json.Unmarshal(data, &regs); err != nil {
		return err
	}
	*p = PublishSetting{set: true, allowed: len(regs) > 0, Registries: regs}
	return nil
}

// MarshalJSON writes the setting back in cargo's shape.
func (p PublishSetting) MarshalJSON() ([]byte, error) {
	switch {
	case !p.set:
		return []byte("null"), nil
	case p.Registries != nil:
		return json.Marshal(p.Registries)
	default:
		return json.Marshal(p.allowed)
	}
}

// Allowed reports whether the package may be published.
func (p PublishSetting) Allowed() bool {
	return !p.set || p.allowed
}

// Unpublishable is the setting of a package with publish = false.
func Unpublishable() PublishSetting {
	return PublishSetting{set: true}
}

// Package is one crate from cargo metadata.
type Package struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Version  string         `json:"version"`
	Source   *string        `json:"source"`
	Targets  []Target       `json:"targets"`
	Publish  PublishSetting `json:"publish"`
	Manifest string         `json:"manifest_path,omitempty"`
}

// IsLocal reports whether the package lives in the workspace rather than a registry.
func (p Package) IsLocal() bool {
	return p.Source == nil || *p.Source == ""
}

// IsPublishable reports whether the package's publish field allows publishing.
func (p Package) IsPublishable() bool {
	return p.Publish.Allowed()
}

// IsBinary reports whether any target builds an executable.
func (p Package) IsBinary() bool {
	for _, t := range p.Targets {
		if slices.Contains(t.Kind, "bin") || slices.Contains(t.CrateTypes, "bin") {
			return true
		}
	}
	return false
}

// Names returns the package names in order.
func Names(pkgs []Package) []string {
	out := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, p.Name)
	}
	return out
}

// ContainsID reports whether pkgs holds a package with id.
func ContainsID(pkgs []Package, id string) bool {
	return slices.ContainsFunc(pkgs, func(p Package) bool { return p.ID == id })
}
