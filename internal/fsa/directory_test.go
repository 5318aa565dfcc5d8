package fsa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharefs/internal/common"
)

func TestGetDirectoryHandle(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()
	root := fs.Root()

	dir, err := root.GetDirectoryHandle(ctx, "first", nil)
	require.NoError(t, err)
	assert.Equal(t, "first", dir.Name())
	assert.Equal(t, KindDirectory, dir.Kind())

	_, err = root.GetDirectoryHandle(ctx, "missing", nil)
	require.Error(t, err)
	assert.Equal(t, `Directory "missing" not found`, err.Error())

	_, err = root.GetDirectoryHandle(ctx, "annar", nil)
	require.Error(t, err)
	assert.Equal(t, "The path supplied exists, but was not an entry of requested type.", err.Error())
}

func TestGetDirectoryHandleCreate(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()
	root := fs.Root()

	created, err := root.GetDirectoryHandle(ctx, "fresh", &GetDirectoryOptions{Create: true})
	require.NoError(t, err)

	// A later lookup without create finds it.
	again, err := root.GetDirectoryHandle(ctx, "fresh", nil)
	require.NoError(t, err)
	assert.True(t, created.IsSameEntry(again))

	// Create on an existing directory just returns it.
	_, err = root.GetDirectoryHandle(ctx, "fresh", &GetDirectoryOptions{Create: true})
	require.NoError(t, err)
}

func TestGetFileHandle(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()
	root := fs.Root()

	fh, err := root.GetFileHandle(ctx, "annar", nil)
	require.NoError(t, err)
	assert.Equal(t, KindFile, fh.Kind())

	_, err = root.GetFileHandle(ctx, "nope", nil)
	require.Error(t, err)
	assert.Equal(t, `File "nope" not found`, err.Error())

	_, err = root.GetFileHandle(ctx, "first", nil)
	require.Error(t, err)
	assert.Equal(t, common.KindTypeMismatch, common.KindOf(err))
}

func TestGetFileHandleCreate(t *testing.T) {
	t.Parallel()
	fs, mem := newTestFS(t)
	ctx := context.Background()
	root := fs.Root()

	_, err := root.GetFileHandle(ctx, "zero", &GetFileOptions{Create: true})
	require.NoError(t, err)
	data, ok := mem.Bytes("zero")
	require.True(t, ok)
	assert.Empty(t, data, "created files are zero-length")
}

func TestInvalidNames(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()
	root := fs.Root()

	for _, bad := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := root.GetFileHandle(ctx, bad, nil)
		assert.Equal(t, common.KindInvalidName, common.KindOf(err), "GetFileHandle(%q)", bad)
		_, err = root.GetDirectoryHandle(ctx, bad, nil)
		assert.Equal(t, common.KindInvalidName, common.KindOf(err), "GetDirectoryHandle(%q)", bad)
		err = root.RemoveEntry(ctx, bad, nil)
		assert.Equal(t, common.KindInvalidName, common.KindOf(err), "RemoveEntry(%q)", bad)
	}
}

func TestRemoveEntryFile(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()
	root := fs.Root()

	require.NoError(t, root.RemoveEntry(ctx, "3", nil))
	_, err := root.GetFileHandle(ctx, "3", nil)
	require.Error(t, err)
	assert.Equal(t, `File "3" not found`, err.Error())

	err = root.RemoveEntry(ctx, "3", nil)
	require.Error(t, err)
	assert.Equal(t, `Entry "3" not found`, err.Error())
}

func TestRemoveEntryDirectory(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()
	root := fs.Root()

	err := root.RemoveEntry(ctx, "first", nil)
	require.Error(t, err)
	assert.Equal(t, `Directory "first" is not empty`, err.Error())

	require.NoError(t, root.RemoveEntry(ctx, "first", &RemoveOptions{Recursive: true}))
	_, err = root.GetDirectoryHandle(ctx, "first", nil)
	require.Error(t, err)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestRemoveEntryRecursiveDeepTree(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()
	root := fs.Root()

	// Build top/mid/leaf with files at each level.
	top, err := root.GetDirectoryHandle(ctx, "top", &GetDirectoryOptions{Create: true})
	require.NoError(t, err)
	mid, err := top.GetDirectoryHandle(ctx, "mid", &GetDirectoryOptions{Create: true})
	require.NoError(t, err)
	_, err = mid.GetDirectoryHandle(ctx, "leaf", &GetDirectoryOptions{Create: true})
	require.NoError(t, err)
	_, err = top.GetFileHandle(ctx, "a", &GetFileOptions{Create: true})
	require.NoError(t, err)
	_, err = mid.GetFileHandle(ctx, "b", &GetFileOptions{Create: true})
	require.NoError(t, err)

	require.NoError(t, root.RemoveEntry(ctx, "top", &RemoveOptions{Recursive: true}))
	_, err = root.GetDirectoryHandle(ctx, "top", nil)
	assert.Error(t, err)
}

func TestRemoveEmptyDirectoryNonRecursive(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()
	root := fs.Root()

	_, err := root.GetDirectoryHandle(ctx, "hollow", &GetDirectoryOptions{Create: true})
	require.NoError(t, err)
	require.NoError(t, root.RemoveEntry(ctx, "hollow", nil))
}

func TestEntriesIteration(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()
	root := fs.Root()

	it, err := root.Entries(ctx)
	require.NoError(t, err)
	defer it.Close()

	byName := map[string]HandleKind{}
	for {
		e, err := it.Next(ctx)
		require.NoError(t, err)
		if e == nil {
			break
		}
		byName[e.Name] = e.Handle.Entry().Kind()
	}
	assert.Equal(t, map[string]HandleKind{
		"3":      KindFile,
		"annar":  KindFile,
		"first":  KindDirectory,
		"quatre": KindDirectory,
	}, byName, "dot entries are filtered; order is server-defined")

	// Exhausted iterators keep returning the end marker.
	e, err := it.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestEntriesOfMissingDirectory(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()

	dir, err := fs.Root().GetDirectoryHandle(ctx, "first", nil)
	require.NoError(t, err)
	require.NoError(t, fs.Root().RemoveEntry(ctx, "first", &RemoveOptions{Recursive: true}))

	_, err = dir.Entries(ctx)
	require.Error(t, err)
	assert.Equal(t, `Directory "first" not found`, err.Error())
}

func TestEntriesEarlyClose(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()
	root := fs.Root()

	it, err := root.Entries(ctx)
	require.NoError(t, err)
	e, err := it.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, e)
	it.Close()

	// Dropping the iterator early leaves the share usable.
	names := mustKeys(t, root)
	assert.Len(t, names, 4)
}

func TestIterationCompleteness(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()
	root := fs.Root()

	keys := mustKeys(t, root)

	values, err := root.Values(ctx)
	require.NoError(t, err)
	var valueNames []string
	for _, h := range values {
		valueNames = append(valueNames, h.Entry().Name())
	}

	it, err := root.Entries(ctx)
	require.NoError(t, err)
	defer it.Close()
	var entryNames []string
	for {
		e, err := it.Next(ctx)
		require.NoError(t, err)
		if e == nil {
			break
		}
		entryNames = append(entryNames, e.Name)
	}

	assert.ElementsMatch(t, keys, valueNames)
	assert.ElementsMatch(t, keys, entryNames)
}

func TestResolve(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()
	root := fs.Root()

	first, err := root.GetDirectoryHandle(ctx, "first", nil)
	require.NoError(t, err)
	comment, err := first.GetFileHandle(ctx, "comment", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "comment"}, root.Resolve(comment))
	assert.Equal(t, []string{"comment"}, first.Resolve(comment))
	assert.Equal(t, []string{}, root.Resolve(root), "a handle resolves against itself as the empty path")

	quatre, err := root.GetDirectoryHandle(ctx, "quatre", nil)
	require.NoError(t, err)
	assert.Nil(t, quatre.Resolve(comment), "not a descendant")
	assert.Nil(t, first.Resolve(root), "ancestors do not resolve")
}

func TestResolveAcrossEndpoints(t *testing.T) {
	t.Parallel()
	_, mem := newTestFS(t)
	fsA := newTestFSOn(t, mem, "smb://testserver/export")
	fsB := newTestFSOn(t, mem, "smb://otherserver/export")

	ctx := context.Background()
	fh, err := fsB.Root().GetFileHandle(ctx, "annar", nil)
	require.NoError(t, err)
	assert.Nil(t, fsA.Root().Resolve(fh), "descendant checks require the same endpoint")
}
