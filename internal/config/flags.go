package config

import "github.com/conn-castle/release-rust/internal/patterns"

// LatestFlag is release.latest: a boolean for every release, or the name of
// the one crate whose release is marked latest.
type LatestFlag struct {
	Value bool
	// Crate, when set, overrides Value.
	Crate string
}

// For reports whether the release of crate is marked latest.
func (f LatestFlag) For(crate string) bool {
	if f.Crate != "" {
		return f.Crate == crate
	}
	return f.Value
}

// PreFlag is release.pre: a boolean for every release, or the crates whose
// releases are prereleases.
type PreFlag struct {
	Value bool
	// Crates, when set, overrides Value.
	Crates *patterns.List
}

// For reports whether the release of crate is a prerelease.
func (f PreFlag) For(crate string) bool {
	if f.Crates != nil {
		return f.Crates.MatchOne(crate)
	}
	return f.Value
}
