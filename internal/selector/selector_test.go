package selector

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/release-rust/internal/cargo"
	"github.com/conn-castle/release-rust/internal/patterns"
)

type fakeLookup struct {
	mu        sync.Mutex
	published map[string]bool
	asked     []string
}

func (f *fakeLookup) IsVersionPublished(_ context.Context, name, version string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, name+"@"+version)
	return f.published[name+"@"+version]
}

func lib(name string) cargo.Package {
	return cargo.Package{ID: name + " id", Name: name, Version: "1.0.0", Targets: []cargo.Target{{Name: name, Kind: []string{"lib"}}}}
}

func bin(name string) cargo.Package {
	return cargo.Package{ID: name + " id", Name: name, Version: "1.0.0", Targets: []cargo.Target{{Name: name, Kind: []string{"bin"}}}}
}

func unpublishable(p cargo.Package) cargo.Package {
	p.Publish = cargo.Unpublishable()
	return p
}

func TestReleaseCrateCatchAllPicksFirstBinary(t *testing.T) {
	got, err := ReleaseCrate([]string{"*"}, []cargo.Package{lib("foo"), bin("bar"), lib("baz")})
	require.NoError(t, err)
	assert.Equal(t, "bar", got.Name)
}

func TestReleaseCrateCatchAllSortsBinaries(t *testing.T) {
	got, err := ReleaseCrate([]string{"*"}, []cargo.Package{bin("zed"), bin("alpha"), lib("aaa")})
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Name)
}

func TestReleaseCrateUsesFirstPatternInWorkspaceOrder(t *testing.T) {
	got, err := ReleaseCrate([]string{"b*", "foo"}, []cargo.Package{lib("foo"), lib("baz"), bin("bar")})
	require.NoError(t, err)
	assert.Equal(t, "baz", got.Name)
}

func TestReleaseCrateNone(t *testing.T) {
	_, err := ReleaseCrate([]string{"*"}, []cargo.Package{lib("foo")})
	assert.ErrorIs(t, err, ErrNoReleaseCrate)

	_, err = ReleaseCrate([]string{"nope"}, []cargo.Package{bin("foo")})
	assert.ErrorIs(t, err, ErrNoReleaseCrate)

	_, err = ReleaseCrate(nil, []cargo.Package{bin("foo")})
	assert.ErrorIs(t, err, ErrNoReleaseCrate)
}

func TestSelectDefault(t *testing.T) {
	local := []cargo.Package{lib("foo"), bin("bar"), unpublishable(lib("baz"))}
	lookup := &fakeLookup{published: map[string]bool{"foo@1.0.0": true}}

	sel, err := Select(context.Background(), local, Options{Crates: patterns.MustNew("*"), Publish: true}, lookup, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar"}, cargo.Names(sel.Publish))
	assert.Equal(t, []string{"foo"}, cargo.Names(sel.AlreadyPublished))
	assert.Equal(t, []string{"foo", "bar", "baz"}, cargo.Names(sel.Release))
	assert.Equal(t, "bar", sel.ReleaseCrate.Name)
	assert.ElementsMatch(t, []string{"foo@1.0.0", "bar@1.0.0"}, lookup.asked)
}

func TestSelectFilterLimitsPublishUnlessAllCrates(t *testing.T) {
	local := []cargo.Package{lib("foo"), bin("bar"), lib("baz")}
	opts := Options{Crates: patterns.MustNew("bar"), Publish: true}

	sel, err := Select(context.Background(), local, opts, &fakeLookup{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar"}, cargo.Names(sel.Publish))

	opts.AllCrates = true
	sel, err = Select(context.Background(), local, opts, &fakeLookup{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar", "baz"}, cargo.Names(sel.Publish))
	assert.Equal(t, []string{"bar"}, cargo.Names(sel.Release))
}

func TestSelectPublishDisabled(t *testing.T) {
	lookup := &fakeLookup{}
	sel, err := Select(context.Background(), []cargo.Package{bin("foo")}, Options{Crates: patterns.MustNew("*")}, lookup, nil)
	require.NoError(t, err)
	assert.Empty(t, sel.Publish)
	assert.Empty(t, lookup.asked)
	assert.Equal(t, "foo", sel.ReleaseCrate.Name)
}

func TestSelectSeparatelyRemovesPublishCandidates(t *testing.T) {
	local := []cargo.Package{lib("foo"), bin("bar"), unpublishable(bin("tool"))}
	lookup := &fakeLookup{published: map[string]bool{"foo@1.0.0": true}}
	opts := Options{Crates: patterns.MustNew("*"), Publish: true, Separately: true}

	sel, err := Select(context.Background(), local, opts, lookup, nil)
	require.NoError(t, err)
	// foo was a candidate even though it is already published.
	assert.Equal(t, []string{"tool"}, cargo.Names(sel.Release))
	assert.Equal(t, []string{"bar"}, cargo.Names(sel.Publish))
	// The release crate is one of the crates that get packaged.
	assert.Equal(t, "tool", sel.ReleaseCrate.Name)
}

func TestSelectSeparatelyReleaseCrateIsPackaged(t *testing.T) {
	local := []cargo.Package{bin("afoo"), unpublishable(bin("bar"))}
	opts := Options{Crates: patterns.MustNew("*"), Publish: true, Separately: true}

	sel, err := Select(context.Background(), local, opts, &fakeLookup{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"afoo"}, cargo.Names(sel.Publish))
	assert.Equal(t, []string{"bar"}, cargo.Names(sel.Release))
	assert.Equal(t, "bar", sel.ReleaseCrate.Name)

	sel, err = Select(context.Background(), local, Options{Crates: patterns.MustNew("*"), Publish: true}, &fakeLookup{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "afoo", sel.ReleaseCrate.Name)
}

func TestSelectSeparatelyNothingToPackage(t *testing.T) {
	local := []cargo.Package{bin("afoo")}
	opts := Options{Crates: patterns.MustNew("*"), Publish: true, Separately: true}

	sel, err := Select(context.Background(), local, opts, &fakeLookup{}, nil)
	assert.ErrorIs(t, err, ErrNoReleaseCrate)
	assert.Equal(t, []string{"afoo"}, cargo.Names(sel.Publish))
	assert.Empty(t, sel.Release)
}

func TestSelectCrateOnly(t *testing.T) {
	local := []cargo.Package{lib("foo")}
	opts := Options{Crates: patterns.MustNew("*"), Publish: true, CrateOnly: true}

	sel, err := Select(context.Background(), local, opts, &fakeLookup{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, cargo.Names(sel.Publish))
	assert.Empty(t, sel.ReleaseCrate.Name)

	_, err = Select(context.Background(), local, opts, &fakeLookup{published: map[string]bool{"foo@1.0.0": true}}, nil)
	assert.ErrorIs(t, err, ErrNothingToPublish)
}

func TestSelectNoReleaseCrate(t *testing.T) {
	_, err := Select(context.Background(), []cargo.Package{lib("foo")}, Options{Crates: patterns.MustNew("*")}, nil, nil)
	assert.ErrorIs(t, err, ErrNoReleaseCrate)
}

func TestSelectManyLookups(t *testing.T) {
	var local []cargo.Package
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		local = append(local, bin(name))
	}
	lookup := &fakeLookup{published: map[string]bool{"c@1.0.0": true, "h@1.0.0": true}}
	sel, err := Select(context.Background(), local, Options{Crates: patterns.MustNew("*"), Publish: true}, lookup, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d", "e", "f", "g", "i", "j"}, cargo.Names(sel.Publish))
	assert.Len(t, lookup.asked, 10)
}
