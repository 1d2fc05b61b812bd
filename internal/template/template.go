// Package template renders "{key}" placeholders in names and paths.
package template

import (
	"sort"
	"strings"
)

// Keys understood by release naming templates.
const (
	Target         = "target"
	CrateName      = "crate-name"
	CrateVersion   = "crate-version"
	ReleaseName    = "release-name"
	ReleaseVersion = "release-version"
	ReleaseTag     = "release-tag"
)

// maxPasses bounds rendering when a value keeps reintroducing tokens.
const maxPasses = 32

// Context maps placeholder keys to values.
type Context map[string]string

// With returns a copy of c with key set to value.
func (c Context) With(key, value string) Context {
	out := make(Context, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	out[key] = value
	return out
}

// ForCrate builds the context used for crate-level naming.
// An empty releaseName makes the crate its own release crate.
func ForCrate(target, crateName, crateVersion, releaseName, releaseVersion string) Context {
	if releaseName == "" {
		releaseName, releaseVersion = crateName, crateVersion
	}
	return Context{
		Target:         target,
		CrateName:      crateName,
		CrateVersion:   crateVersion,
		ReleaseName:    releaseName,
		ReleaseVersion: releaseVersion,
	}
}

// Render replaces every "{key}" token with its value, repeating until no key
// token remains. A pass that changes nothing stops rendering, so a value
// equal to its own token is left in place. Unknown tokens are kept verbatim.
func Render(tmpl string, ctx Context) string {
	if len(ctx) == 0 {
		return tmpl
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := tmpl
	for pass := 0; pass < maxPasses; pass++ {
		if !containsToken(out, keys) {
			break
		}
		next := out
		for _, k := range keys {
			next = strings.ReplaceAll(next, "{"+k+"}", ctx[k])
		}
		if next == out {
			break
		}
		out = next
	}
	return out
}

func containsToken(s string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s, "{"+k+"}") {
			return true
		}
	}
	return false
}
