package fileutil

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAtomicWriteFile tests atomic replacement of a file
// TestAtomicWriteFile 测试文件的原子替换
func TestAtomicWriteFile(t *testing.T) {
	fsys := afero.NewMemMapFs()

	require.NoError(t, AtomicWriteFile(fsys, "/etc/logtap/logtap.yaml", []byte("v1"), 0600))
	require.NoError(t, AtomicWriteFile(fsys, "/etc/logtap/logtap.yaml", []byte("v2"), 0644))

	data, err := afero.ReadFile(fsys, "/etc/logtap/logtap.yaml")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	info, err := fsys.Stat("/etc/logtap/logtap.yaml")
	require.NoError(t, err)
	assert.Equal(t, "-rw-r--r--", info.Mode().Perm().String())

	entries, err := afero.ReadDir(fsys, "/etc/logtap")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

// TestReadLines tests reading lines with comments and blanks
// TestReadLines 测试读取带注释和空行的文件
func TestReadLines(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/patterns.txt", []byte("# noise\nDEBUG\n\n  health check  \n"), 0644))

	lines, err := ReadLines(fsys, "/patterns.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"DEBUG", "health check"}, lines)

	lines, err = ReadLines(fsys, "/missing.txt")
	assert.NoError(t, err)
	assert.Nil(t, lines)

	lines, err = ReadLines(fsys, "")
	assert.NoError(t, err)
	assert.Nil(t, lines)

	assert.True(t, Exists(fsys, "/patterns.txt"))
	assert.False(t, Exists(fsys, "/missing.txt"))
}
