package backend

import (
	"io"
	"os"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectNames(t *testing.T, m *Memory, path string) []string {
	t.Helper()
	dir, err := m.OpenDir(path)
	require.NoError(t, err)
	defer dir.Close()
	var names []string
	for {
		e, err := dir.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

func TestFixtureTree(t *testing.T) {
	t.Parallel()
	m := NewMemoryFixture()

	assert.Equal(t, []string{".", "..", "3", "annar", "first", "quatre"}, collectNames(t, m, ""))
	assert.Equal(t, []string{".", "..", "comment"}, collectNames(t, m, "first"))

	st, err := m.Stat("annar")
	require.NoError(t, err)
	assert.Equal(t, int64(123), st.Size)
	assert.Equal(t, KindFile, st.Kind)
	assert.Len(t, FixtureSentence, 123)

	st, err = m.Stat("quatre")
	require.NoError(t, err)
	assert.Equal(t, KindDirectory, st.Kind)

	_, err = m.Stat("nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadFixtureContents(t *testing.T) {
	t.Parallel()
	m := NewMemoryFixture()

	f, err := m.Open("annar", OpenRead)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 200)
	n, err := f.ReadAt(buf, 0)
	assert.Equal(t, 123, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, FixtureSentence, string(buf[:n]))

	_, err = f.ReadAt(buf, 500)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWritePastEOFZeroFills(t *testing.T) {
	t.Parallel()
	m := NewMemory()

	f, err := m.Create("gap")
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("tail"), 6)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, ok := m.Bytes("gap")
	require.True(t, ok)
	assert.Equal(t, []byte("\x00\x00\x00\x00\x00\x00tail"), data)
}

func TestOverwriteKeepsTail(t *testing.T) {
	t.Parallel()
	m := NewMemory()

	f, err := m.Create("doc")
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("hello world"), 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("HELLO"), 0)
	require.NoError(t, err)

	data, _ := m.Bytes("doc")
	assert.Equal(t, "HELLO world", string(data))
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	m := NewMemory()

	f, err := m.Create("t")
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("abcdef"), 0)
	require.NoError(t, err)

	require.NoError(t, m.Truncate("t", 3))
	data, _ := m.Bytes("t")
	assert.Equal(t, "abc", string(data))

	require.NoError(t, m.Truncate("t", 5))
	data, _ = m.Bytes("t")
	assert.Equal(t, "abc\x00\x00", string(data))

	assert.ErrorIs(t, m.Truncate("missing", 1), os.ErrNotExist)
}

func TestOpenModes(t *testing.T) {
	t.Parallel()
	m := NewMemoryFixture()

	_, err := m.Open("missing", OpenRead)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = m.Open("first", OpenRead)
	assert.ErrorIs(t, err, ErrIsDirectory)

	f, err := m.Open("annar", OpenWriteTruncate)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	data, _ := m.Bytes("annar")
	assert.Empty(t, data)
}

func TestReadOnlyEntries(t *testing.T) {
	t.Parallel()
	m := NewMemoryFixture()
	m.SetReadOnly("3", true)

	_, err := m.Open("3", OpenWriteKeep)
	assert.ErrorIs(t, err, os.ErrPermission)

	f, err := m.Open("3", OpenRead)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestMkdirRmdir(t *testing.T) {
	t.Parallel()
	m := NewMemoryFixture()

	require.NoError(t, m.Mkdir("newdir"))
	assert.ErrorIs(t, m.Mkdir("newdir"), os.ErrExist)
	assert.ErrorIs(t, m.Mkdir("no/parent/here"), os.ErrNotExist)

	assert.ErrorIs(t, m.Rmdir("first"), ErrNotEmpty)
	require.NoError(t, m.Unlink("first/comment"))
	require.NoError(t, m.Rmdir("first"))
	_, err := m.Stat("first")
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.ErrorIs(t, m.Rmdir("annar"), ErrNotDirectory)
	assert.ErrorIs(t, m.Unlink("quatre"), ErrIsDirectory)
}
