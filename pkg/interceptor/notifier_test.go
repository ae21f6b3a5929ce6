package interceptor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitOp(t *testing.T, sub Subscription, want Op) {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case n, ok := <-sub.Events():
			require.True(t, ok, "event stream closed")
			if n.Op == want {
				return
			}
		case <-deadline:
			t.Fatalf("no %s notification", want)
		}
	}
}

// TestFSNotifier_Events tests write, remove and create notifications
// TestFSNotifier_Events 测试写入、删除和创建通知
func TestFSNotifier_Events(t *testing.T) {
	path := newSource(t, "")
	sub, err := NewFSNotifier().Subscribe(path)
	require.NoError(t, err)
	defer sub.Close()

	// Changes to siblings are not reported.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.log"), []byte("x\n"), 0644))

	appendTo(t, path, "a\n")
	waitOp(t, sub, OpModified)

	require.NoError(t, os.Remove(path))
	waitOp(t, sub, OpDeleted)

	appendTo(t, path, "b\n")
	waitOp(t, sub, OpCreated)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	for range sub.Events() {
	}
	_, ok := <-sub.Events()
	assert.False(t, ok)
}

// TestFSNotifier_MissingDirectory tests subscribing below a missing directory
// TestFSNotifier_MissingDirectory 测试订阅不存在目录下的文件
func TestFSNotifier_MissingDirectory(t *testing.T) {
	_, err := NewFSNotifier().Subscribe(filepath.Join(t.TempDir(), "nope", "app.log"))
	assert.Error(t, err)
}

// TestPollNotifier_Events tests the polling notifier
// TestPollNotifier_Events 测试轮询通知器
func TestPollNotifier_Events(t *testing.T) {
	path := newSource(t, "")
	sub, err := NewPollNotifier().Subscribe(path)
	require.NoError(t, err)

	waitOp(t, sub, OpCreated)
	appendTo(t, path, "a\n")
	waitOp(t, sub, OpModified)

	require.NoError(t, sub.Close())
}

// TestOp_String tests notification op names
// TestOp_String 测试通知类型名称
func TestOp_String(t *testing.T) {
	assert.Equal(t, "modified", OpModified.String())
	assert.Equal(t, "created", OpCreated.String())
	assert.Equal(t, "deleted", OpDeleted.String())
	assert.Equal(t, "unknown", Op(0).String())
}
