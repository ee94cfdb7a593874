package resolver

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attache/internal/attachments"
)

// Attach two prompt files, one with a nested plain-file include, and check
// the aggregate view keeps insertion order across attachments and
// children-before-root order within one.
func TestCollectionAggregatesResolvedTrees(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.prompt.md", "no includes\n")
	writeFile(t, dir, "x.md", "leaf\n")
	writeFile(t, dir, "b.prompt.md", "see [x](x.md)\n")

	res := newResolver(t)
	col := attachments.NewCollection(res)
	defer col.Close()

	a := &url.URL{Scheme: "file", Path: filepath.Join(dir, "a.prompt.md")}
	b := &url.URL{Scheme: "file", Path: filepath.Join(dir, "b.prompt.md")}
	require.False(t, col.Add(context.Background(), a))
	require.False(t, col.Add(context.Background(), b))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, col.AllSettled(ctx))

	vars := col.ChatVariables()
	require.Len(t, vars, 3)
	assert.Equal(t, attachments.PromptVariableID(a, true), vars[0].ID)
	assert.Equal(t, "file:x.md", vars[1].Name)
	assert.Equal(t, attachments.PromptVariableID(b, true), vars[2].ID)

	refs := col.References()
	require.Len(t, refs, 3)
	assert.Equal(t, a.String(), refs[0].String())
	assert.Equal(t, filepath.Join(dir, "x.md"), refs[1].Path)
	assert.Equal(t, b.String(), refs[2].String())
}

// Removing an attachment mid-resolution must stop its updates from reaching
// the collection.
func TestRemoveDuringResolutionSilencesHandle(t *testing.T) {
	dir := t.TempDir()
	// A chain deep enough that resolution does observable work.
	writeFile(t, dir, "c.md", "leaf\n")
	writeFile(t, dir, "mid.prompt.md", "[c](c.md)\n")
	writeFile(t, dir, "top.prompt.md", "[mid](mid.prompt.md)\n")

	res := newResolver(t)
	col := attachments.NewCollection(res)
	defer col.Close()

	top := &url.URL{Scheme: "file", Path: filepath.Join(dir, "top.prompt.md")}
	col.Add(context.Background(), top)
	col.Remove(top)

	require.False(t, col.Has(top))
	assert.Empty(t, col.ChatVariables())
	assert.Empty(t, col.References())

	// The disposed handle settles without repopulating the collection.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, col.AllSettled(ctx))
	assert.Empty(t, col.ChatVariables())
}
