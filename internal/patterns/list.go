// Package patterns implements ordered glob matching over crate names and file
// paths, and glob-keyed template lookup.
package patterns

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"

	"github.com/conn-castle/release-rust/internal/messages"
)

type pattern struct {
	raw    string
	body   string
	negate bool
	glob   glob.Glob
}

// List is an ordered set of glob patterns. Patterns prefixed with '!' only
// exclude; a value matches when at least one plain pattern matches it and no
// negated pattern does.
type List struct {
	patterns []pattern
}

// New compiles patterns in order.
// An empty input yields a list that matches nothing.
func New(patterns []string) (*List, error) {
	l := &List{patterns: make([]pattern, 0, len(patterns))}
	for _, raw := range patterns {
		p, err := compile(raw)
		if err != nil {
			return nil, err
		}
		l.patterns = append(l.patterns, p)
	}
	return l, nil
}

// MustNew is New for patterns known to be valid.
func MustNew(patterns ...string) *List {
	l, err := New(patterns)
	if err != nil {
		panic(err)
	}
	return l
}

// FromLines splits multi-line input into patterns, dropping blank lines and
// lines starting with '#'.
func FromLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func compile(raw string) (pattern, error) {
	body := strings.TrimSpace(raw)
	negate := false
	if strings.HasPrefix(body, "!") {
		negate = true
		body = body[1:]
	}
	if body == "" {
		return pattern{}, fmt.Errorf(messages.PatternEmptyFmt, raw)
	}
	body = path.Clean(filepath.ToSlash(body))
	g, err := glob.Compile(body, '/')
	if err != nil {
		return pattern{}, fmt.Errorf(messages.PatternInvalidFmt, raw, err)
	}
	if !doublestar.ValidatePattern(body) {
		return pattern{}, fmt.Errorf(messages.PatternInvalidFmt, raw, doublestar.ErrBadPattern)
	}
	return pattern{raw: raw, body: body, negate: negate, glob: g}, nil
}

// Patterns returns the patterns as given to New.
func (l *List) Patterns() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.patterns))
	for _, p := range l.patterns {
		out = append(out, p.raw)
	}
	return out
}

// Len reports the number of patterns, negated ones included.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.patterns)
}

// MatchOne reports whether value matches the list.
func (l *List) MatchOne(value string) bool {
	return l.match([]string{value}, func(p pattern, key string) bool {
		return p.glob.Match(key)
	})
}

// matchPath is MatchOne for filesystem paths, where "**/" may match zero
// directories. keys are alternative spellings of the same path.
func (l *List) matchPath(keys []string) bool {
	return l.match(keys, func(p pattern, key string) bool {
		ok, err := doublestar.Match(p.body, key)
		return err == nil && ok
	})
}

func (l *List) match(keys []string, fn func(pattern, string) bool) bool {
	if l == nil {
		return false
	}
	included := false
	for _, p := range l.patterns {
		for _, key := range keys {
			if !fn(p, key) {
				continue
			}
			if p.negate {
				return false
			}
			included = true
		}
	}
	return included
}

// MatchMany filters values, keeping their order.
func (l *List) MatchMany(values []string) []string {
	return MatchManyBy(l, values, func(v string) string { return v })
}

// MatchManyBy filters values by the string key derives from each, keeping
// their order.
func MatchManyBy[T any](l *List, values []T, key func(T) string) []T {
	var out []T
	for _, v := range values {
		if l.MatchOne(key(v)) {
			out = append(out, v)
		}
	}
	return out
}

// FindFiles expands the plain patterns against the filesystem. Relative
// patterns resolve against root (the working directory when root is empty).
// Results are de-duplicated in first-seen order and every match is checked
// against the whole list, so a negation excludes files regardless of where it
// appears.
func (l *List) FindFiles(root string) ([]string, error) {
	if l == nil {
		return nil, nil
	}
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}

	seen := make(map[string]bool)
	var out []string
	for _, p := range l.patterns {
		if p.negate {
			continue
		}
		absolute := path.IsAbs(p.body) || filepath.IsAbs(filepath.FromSlash(p.body))
		expr := filepath.FromSlash(p.body)
		if !absolute {
			expr = filepath.Join(root, expr)
		}
		matches, err := doublestar.FilepathGlob(expr)
		if err != nil {
			return nil, fmt.Errorf(messages.PatternFindFilesFmt, p.raw, err)
		}
		for _, match := range matches {
			if seen[match] {
				continue
			}
			keys := []string{filepath.ToSlash(match)}
			if rel, err := filepath.Rel(root, match); err == nil {
				keys = append(keys, filepath.ToSlash(rel))
			}
			if !l.matchPath(keys) {
				continue
			}
			seen[match] = true
			out = append(out, match)
		}
	}
	return out, nil
}
