package scp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArbitrate(t *testing.T) {
	tmp := t.TempDir()
	existing := filepath.Join(tmp, "existing.txt")
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0o644))

	t.Run("directory target receives the leaf", func(t *testing.T) {
		dest, err := arbitrate(OsFS{}, tmp, "out.txt", true)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(tmp, "out.txt"), dest)
	})

	t.Run("file target is overwritten in place", func(t *testing.T) {
		dest, err := arbitrate(OsFS{}, existing, "other.txt", true)
		require.NoError(t, err)
		assert.Equal(t, existing, dest)
	})

	t.Run("file target refuses directory records", func(t *testing.T) {
		_, err := arbitrate(OsFS{}, existing, "sub", false)
		require.Error(t, err)
		typ, ok := TypeOf(err)
		require.True(t, ok)
		assert.Equal(t, ErrCannotWrite, typ)
	})

	t.Run("missing target with existing parent", func(t *testing.T) {
		fresh := filepath.Join(tmp, "fresh.txt")
		dest, err := arbitrate(OsFS{}, fresh, "out.txt", true)
		require.NoError(t, err)
		assert.Equal(t, fresh, dest)
	})

	t.Run("missing parent fails", func(t *testing.T) {
		_, err := arbitrate(OsFS{}, filepath.Join(tmp, "missing", "out.txt"), "out.txt", true)
		require.Error(t, err)
		typ, ok := TypeOf(err)
		require.True(t, ok)
		assert.Equal(t, ErrCannotWrite, typ)
	})
}

func TestSplitGlob(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct {
		pattern string
		basedir string
		leaf    string
	}{
		{"dir" + sep + "*", "dir", "*"},
		{"a" + sep + "b" + sep + "*.txt", "a" + sep + "b", "*.txt"},
		{"*.txt", "", "*.txt"},
		{"dir" + sep + "out*" + sep + "x", "dir", "out*" + sep + "x"},
	}
	for _, tt := range tests {
		basedir, leaf := splitGlob(tt.pattern)
		assert.Equal(t, tt.basedir, basedir, tt.pattern)
		assert.Equal(t, tt.leaf, leaf, tt.pattern)
	}
}

func TestExpandGlob(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "out1.txt"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "out2.txt"), []byte("2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "other.log"), []byte("x"), 0o644))

	names, err := expandGlob(OsFS{}, tmp, "*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"out1.txt", "out2.txt"}, names)

	names, err = expandGlob(OsFS{}, tmp, "*")
	require.NoError(t, err)
	assert.Len(t, names, 3)

	_, err = expandGlob(OsFS{}, filepath.Join(tmp, "missing"), "*")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestResolveLocalPath(t *testing.T) {
	sep := string(filepath.Separator)
	assert.Equal(t, "a"+sep+"b", resolveLocalPath("a", "b"))
	assert.Equal(t, "b", resolveLocalPath("", "b"))
	assert.Equal(t, "a"+sep+"b"+sep+"c", resolveLocalPath("a", "b/c"))
}
