package fsa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSameEntryReflexive(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()

	root := fs.Root()
	assert.True(t, root.IsSameEntry(root))

	fh, err := root.GetFileHandle(ctx, "annar", nil)
	require.NoError(t, err)
	assert.True(t, fh.IsSameEntry(fh))
}

func TestIsSameEntryByValue(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()

	root := fs.Root()
	a, err := root.GetFileHandle(ctx, "annar", nil)
	require.NoError(t, err)
	b, err := root.GetFileHandle(ctx, "annar", nil)
	require.NoError(t, err)
	assert.True(t, a.IsSameEntry(b), "separately obtained handles to the same entry are the same entry")

	other, err := root.GetFileHandle(ctx, "3", nil)
	require.NoError(t, err)
	assert.False(t, a.IsSameEntry(other))

	dir, err := root.GetDirectoryHandle(ctx, "first", nil)
	require.NoError(t, err)
	assert.False(t, dir.IsSameEntry(a), "kind participates in identity")
}

func TestIsSameEntryAcrossEndpoints(t *testing.T) {
	t.Parallel()
	_, mem := newTestFS(t)
	fsA := newTestFSOn(t, mem, "smb://testserver/export")
	fsB := newTestFSOn(t, mem, "smb://otherserver/export")

	ctx := context.Background()
	a, err := fsA.Root().GetFileHandle(ctx, "annar", nil)
	require.NoError(t, err)
	b, err := fsB.Root().GetFileHandle(ctx, "annar", nil)
	require.NoError(t, err)
	assert.False(t, a.IsSameEntry(b), "different endpoints never alias")
}

func TestRootHandleName(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)

	root := fs.Root()
	assert.Equal(t, "export", root.Name(), "the root is named after the share")
	assert.Equal(t, KindDirectory, root.Kind())
}

func TestHandleOutlivesEntry(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()

	root := fs.Root()
	fh, err := root.GetFileHandle(ctx, "3", nil)
	require.NoError(t, err)
	require.NoError(t, root.RemoveEntry(ctx, "3", nil))

	_, err = fh.Stat(ctx)
	require.Error(t, err)
	assert.Equal(t, `File "3" not found`, err.Error())
}

func TestStatRecord(t *testing.T) {
	t.Parallel()
	fs, _ := newTestFS(t)
	ctx := context.Background()

	fh, err := fs.Root().GetFileHandle(ctx, "annar", nil)
	require.NoError(t, err)
	st, err := fh.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(123), st.Size)
	assert.Equal(t, KindFile, st.Kind)
	assert.Equal(t, int64(1658159058723), st.ModifiedTime, "times are epoch milliseconds")
	assert.Equal(t, int64(1658159058718), st.CreationTime)
	assert.Zero(t, st.Inode, "the in-memory backend supplies no inode")
}
