package patterns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchOne(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		value    string
		want     bool
	}{
		{name: "star matches anything", patterns: []string{"*"}, value: "foo", want: true},
		{name: "negation excludes", patterns: []string{"*", "!foo"}, value: "foo", want: false},
		{name: "negation keeps others", patterns: []string{"*", "!foo"}, value: "bar", want: true},
		{name: "negation first still excludes", patterns: []string{"!foo", "*"}, value: "foo", want: false},
		{name: "only negations match nothing", patterns: []string{"!foo"}, value: "bar", want: false},
		{name: "empty list matches nothing", patterns: nil, value: "foo", want: false},
		{name: "prefix glob", patterns: []string{"b*"}, value: "baz", want: true},
		{name: "question mark", patterns: []string{"fo?"}, value: "foo", want: true},
		{name: "braces", patterns: []string{"{foo,bar}-cli"}, value: "bar-cli", want: true},
		{name: "class", patterns: []string{"[bf]oo"}, value: "boo", want: true},
		{name: "star does not cross slash", patterns: []string{"*.txt"}, value: "dir/a.txt", want: false},
		{name: "double star crosses slash", patterns: []string{"**.txt"}, value: "dir/a.txt", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.MatchOne(tt.value))
		})
	}
}

func TestNewRejectsInvalidPatterns(t *testing.T) {
	_, err := New([]string{"foo["})
	require.Error(t, err)

	_, err = New([]string{"!"})
	require.Error(t, err)
}

func TestMatchManyKeepsOrder(t *testing.T) {
	l := MustNew("b*", "foo")
	got := l.MatchMany([]string{"foo", "bar", "qux", "baz"})
	assert.Equal(t, []string{"foo", "bar", "baz"}, got)
}

func TestMatchManyBy(t *testing.T) {
	type crate struct{ name string }
	l := MustNew("*", "!skip")
	got := MatchManyBy(l, []crate{{"a"}, {"skip"}, {"b"}}, func(c crate) string { return c.name })
	assert.Equal(t, []crate{{"a"}, {"b"}}, got)
}

func TestFromLines(t *testing.T) {
	got := FromLines("foo\n\n  # comment\n !bar \n*\n")
	assert.Equal(t, []string{"foo", "!bar", "*"}, got)
}

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
	}
}

func TestFindFilesExcludesNegatedRegardlessOfOrder(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "b.txt", "docs/c.txt", "docs/d.md")

	for _, order := range [][]string{
		{"**/*.txt", "!b.txt"},
		{"!b.txt", "**/*.txt"},
	} {
		l := MustNew(order...)
		got, err := l.FindFiles(root)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			filepath.Join(root, "a.txt"),
			filepath.Join(root, "docs", "c.txt"),
		}, got, "order %v", order)
	}
}

func TestFindFilesDeduplicatesInFirstSeenOrder(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "LICENSE", "README.md")

	l := MustNew("README.md", "*", "./LICENSE")
	got, err := l.FindFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "README.md"),
		filepath.Join(root, "LICENSE"),
	}, got)
}

func TestFindFilesAbsolutePattern(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	writeFiles(t, other, "notes.txt")

	l := MustNew(filepath.ToSlash(filepath.Join(other, "*.txt")))
	got, err := l.FindFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(other, "notes.txt")}, got)
}

func TestFindFilesNoMatches(t *testing.T) {
	l := MustNew("missing/*")
	got, err := l.FindFiles(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}
