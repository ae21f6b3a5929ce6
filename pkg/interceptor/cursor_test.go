package interceptor

import (
	"os"
	"testing"

	lterrors "github.com/livp123/logtap/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openCursor(t *testing.T, fsys afero.Fs, path string, follow bool, maxSize int64) *fileCursor {
	t.Helper()
	c := newFileCursor(fsys, path, utf8Decoder{}, follow, maxSize)
	require.NoError(t, c.Open(true))
	t.Cleanup(func() { c.Close() })
	return c
}

func mustNext(t *testing.T, c *fileCursor) readResult {
	t.Helper()
	res, err := c.Next()
	require.NoError(t, err)
	return res
}

// TestFileCursor_NoReplay tests that content present at open is skipped
// TestFileCursor_NoReplay 测试打开前已存在的内容不会被回放
func TestFileCursor_NoReplay(t *testing.T) {
	path := newSource(t, "old 1\nold 2\n")
	c := openCursor(t, afero.NewOsFs(), path, true, 0)

	assert.Empty(t, mustNext(t, c).Lines)

	appendTo(t, path, "new 1\nnew 2\n")
	assert.Equal(t, []string{"new 1", "new 2"}, mustNext(t, c).Lines)
	assert.Empty(t, mustNext(t, c).Lines)
}

// TestFileCursor_PartialLine tests hold-back of an unterminated line
// TestFileCursor_PartialLine 测试未结束的行被暂存直到换行符出现
func TestFileCursor_PartialLine(t *testing.T) {
	path := newSource(t, "")
	c := openCursor(t, afero.NewOsFs(), path, true, 0)

	appendTo(t, path, "hel")
	assert.Empty(t, mustNext(t, c).Lines)
	offset, pending := c.Position()
	assert.Equal(t, int64(0), offset)
	assert.Equal(t, 3, pending)

	appendTo(t, path, "lo\nwor")
	assert.Equal(t, []string{"hello"}, mustNext(t, c).Lines)

	appendTo(t, path, "ld\r\n\n")
	assert.Equal(t, []string{"world", ""}, mustNext(t, c).Lines)
	offset, pending = c.Position()
	assert.Equal(t, int64(len("hello\nworld\r\n\n")), offset)
	assert.Equal(t, 0, pending)
}

// TestFileCursor_Truncation tests reset to the start after truncation
// TestFileCursor_Truncation 测试文件截断后从头读取
func TestFileCursor_Truncation(t *testing.T) {
	path := newSource(t, "")
	c := openCursor(t, afero.NewOsFs(), path, true, 0)

	appendTo(t, path, "first line\nsecond line\n")
	assert.Len(t, mustNext(t, c).Lines, 2)

	require.NoError(t, os.Truncate(path, 0))
	appendTo(t, path, "after\n")

	res := mustNext(t, c)
	assert.True(t, res.Truncated)
	assert.Equal(t, []string{"after"}, res.Lines)
}

// TestFileCursor_Rotation tests draining the old file before switching
// TestFileCursor_Rotation 测试轮转时先读完旧文件再切换到新文件
func TestFileCursor_Rotation(t *testing.T) {
	path := newSource(t, "")
	c := openCursor(t, afero.NewOsFs(), path, true, 0)

	appendTo(t, path, "before\ntail of old\n")
	require.NoError(t, os.Rename(path, path+".1"))
	appendTo(t, path+".1", "late write\n")
	appendTo(t, path, "fresh\n")

	res := mustNext(t, c)
	assert.True(t, res.Rotated)
	assert.Equal(t, []string{"before", "tail of old", "late write", "fresh"}, res.Lines)

	appendTo(t, path, "next\n")
	assert.Equal(t, []string{"next"}, mustNext(t, c).Lines)
}

// TestFileCursor_DeleteRecreate tests waiting for a deleted file to come back
// TestFileCursor_DeleteRecreate 测试文件删除后等待其重新创建
func TestFileCursor_DeleteRecreate(t *testing.T) {
	path := newSource(t, "")
	c := openCursor(t, afero.NewOsFs(), path, true, 0)

	appendTo(t, path, "a\npartial")
	require.NoError(t, os.Remove(path))

	res := mustNext(t, c)
	assert.True(t, res.Rotated)
	assert.Equal(t, []string{"a"}, res.Lines)
	assert.False(t, c.IsOpen())

	assert.Empty(t, mustNext(t, c).Lines)

	appendTo(t, path, "b\n")
	res = mustNext(t, c)
	assert.True(t, res.Opened)
	assert.Equal(t, []string{"b"}, res.Lines)
}

// TestFileCursor_NoFollow tests that rotations are ignored when disabled
// TestFileCursor_NoFollow 测试关闭轮转跟踪时继续读取旧文件
func TestFileCursor_NoFollow(t *testing.T) {
	path := newSource(t, "")
	c := openCursor(t, afero.NewOsFs(), path, false, 0)

	require.NoError(t, os.Rename(path, path+".1"))
	appendTo(t, path, "new file\n")
	appendTo(t, path+".1", "old file\n")

	res := mustNext(t, c)
	assert.False(t, res.Rotated)
	assert.Equal(t, []string{"old file"}, res.Lines)
}

// TestFileCursor_PermissionRecovery tests that a transient error keeps the position
// TestFileCursor_PermissionRecovery 测试临时错误后读取位置和暂存行保持不变
func TestFileCursor_PermissionRecovery(t *testing.T) {
	path := newSource(t, "")
	fsys := newFaultFS()
	c := openCursor(t, fsys, path, true, 0)

	appendTo(t, path, "one\ntw")
	assert.Equal(t, []string{"one"}, mustNext(t, c).Lines)

	fsys.fail.Store(true)
	appendTo(t, path, "o\nthree\n")

	res, err := c.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, lterrors.ErrTransientIO)
	assert.ErrorIs(t, err, lterrors.ErrPermissionDenied)
	assert.Empty(t, res.Lines)
	assert.True(t, lterrors.IsTransient(err))

	fsys.fail.Store(false)
	assert.Equal(t, []string{"two", "three"}, mustNext(t, c).Lines)
}

// TestFileCursor_MaxFileSize tests the size limit error
// TestFileCursor_MaxFileSize 测试文件大小上限错误
func TestFileCursor_MaxFileSize(t *testing.T) {
	path := newSource(t, "")
	c := openCursor(t, afero.NewOsFs(), path, true, 16)

	appendTo(t, path, "short\n")
	assert.Equal(t, []string{"short"}, mustNext(t, c).Lines)

	appendTo(t, path, "this pushes it over\n")
	_, err := c.Next()
	assert.ErrorIs(t, err, lterrors.ErrFileTooLarge)
	assert.True(t, lterrors.IsFatal(err))
}

// TestFileCursor_DecodeErrors tests counting of replaced byte sequences
// TestFileCursor_DecodeErrors 测试无效字节替换的计数
func TestFileCursor_DecodeErrors(t *testing.T) {
	path := newSource(t, "")
	c := openCursor(t, afero.NewOsFs(), path, true, 0)

	appendTo(t, path, "ok\nbad \xff\n")
	res := mustNext(t, c)
	assert.Equal(t, []string{"ok", "bad �"}, res.Lines)
	assert.Equal(t, 1, res.DecodeErrors)
}
