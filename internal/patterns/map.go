package patterns

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Entry pairs a glob with the template used for names it matches.
type Entry struct {
	Pattern  string
	Template string
}

type mapEntry struct {
	Entry
	matcher   pattern
	precision float64
}

// Map resolves a name to the template of its most specific matching pattern.
// Ties keep declaration order.
type Map struct {
	entries []mapEntry
}

// NewMap compiles entries and orders them by precision.
func NewMap(entries []Entry) (*Map, error) {
	m := &Map{entries: make([]mapEntry, 0, len(entries))}
	for _, e := range entries {
		p, err := compile(e.Pattern)
		if err != nil {
			return nil, err
		}
		m.entries = append(m.entries, mapEntry{Entry: e, matcher: p, precision: Precision(e.Pattern)})
	}
	sort.SliceStable(m.entries, func(i, j int) bool {
		return m.entries[i].precision > m.entries[j].precision
	})
	return m, nil
}

// SingleMap maps every name to template.
func SingleMap(template string) *Map {
	m, err := NewMap([]Entry{{Pattern: "*", Template: template}})
	if err != nil {
		panic(fmt.Sprintf("compile catch-all pattern: %v", err))
	}
	return m
}

// Lookup returns the template for name and whether any pattern matched.
func (m *Map) Lookup(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, e := range m.entries {
		matched := e.matcher.glob.Match(name)
		if e.matcher.negate {
			matched = !matched
		}
		if matched {
			return e.Template, true
		}
	}
	return "", false
}

// Entries returns the entries in resolution order.
func (m *Map) Entries() []Entry {
	if m == nil {
		return nil
	}
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Entry)
	}
	return out
}

// Precision scores how literal a pattern is: 1 minus the share of '?', '*',
// '{' and '}' characters.
func Precision(p string) float64 {
	n := utf8.RuneCountInString(p)
	if n == 0 {
		return 0
	}
	specials := 0
	for _, r := range p {
		switch r {
		case '?', '*', '{', '}':
			specials++
		}
	}
	return 1 - float64(specials)/float64(n)
}

