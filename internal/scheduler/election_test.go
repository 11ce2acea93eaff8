package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatFreshness(t *testing.T) {
	e := newElection(t.TempDir())

	assert.False(t, e.heartbeatFresh(), "no file yet")

	require.NoError(t, e.touchHeartbeat())
	assert.True(t, e.heartbeatFresh())

	// A heartbeat written beyond the window is stale.
	old := fmt.Sprintf("%f", float64(time.Now().Add(-2*time.Minute).UnixNano())/1e9)
	require.NoError(t, os.WriteFile(e.heartbeatPath(), []byte(old), 0o644))
	assert.False(t, e.heartbeatFresh())

	// Garbage content never counts as alive.
	require.NoError(t, os.WriteFile(e.heartbeatPath(), []byte("not a timestamp"), 0o644))
	assert.False(t, e.heartbeatFresh())
}

func TestStartupLockBlocksConcurrentStart(t *testing.T) {
	dir := t.TempDir()
	first := newElection(dir)
	second := newElection(dir)

	ok, err := first.acquireLock()
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.acquireLock()
	require.NoError(t, err)
	assert.False(t, ok, "fresh lock from another process must block startup")

	first.releaseLock()
	ok, err = second.acquireLock()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStaleLockIsRemoved(t *testing.T) {
	dir := t.TempDir()
	e := newElection(dir)

	stale := fmt.Sprintf("%d\n%d\n", time.Now().Add(-time.Minute).Unix(), 12345)
	require.NoError(t, os.WriteFile(e.lockPath(), []byte(stale), 0o644))

	ok, err := e.acquireLock()
	require.NoError(t, err)
	assert.True(t, ok, "stale lock must not block startup")

	_, statErr := os.Stat(filepath.Join(dir, lockFile))
	assert.NoError(t, statErr, "acquire rewrites the lock file")
}

func TestLockFileFormat(t *testing.T) {
	e := newElection(t.TempDir())

	ok, err := e.acquireLock()
	require.NoError(t, err)
	require.True(t, ok)

	raw, err := os.ReadFile(e.lockPath())
	require.NoError(t, err)

	var ts int64
	var pid int
	_, err = fmt.Sscanf(string(raw), "%d\n%d", &ts, &pid)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.InDelta(t, time.Now().Unix(), ts, 2)
}
