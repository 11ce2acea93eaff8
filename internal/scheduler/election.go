// -----------------------------------------------------------------------
// Scheduler Election - cross-process single-owner guarantee
// Multiple processes in one container may construct a scheduler; file-based
// heartbeat and startup-lock protocols ensure exactly one owner.
// -----------------------------------------------------------------------

package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	heartbeatFile     = ".scheduler_heartbeat"
	lockFile          = ".scheduler_lock"
	heartbeatInterval = 20 * time.Second
	heartbeatFreshFor = 60 * time.Second
	lockFreshFor      = 10 * time.Second
)

// election owns the heartbeat and startup-lock files under the logs dir.
type election struct {
	dir string
}

func newElection(logsDir string) *election {
	return &election{dir: logsDir}
}

func (e *election) heartbeatPath() string { return filepath.Join(e.dir, heartbeatFile) }
func (e *election) lockPath() string      { return filepath.Join(e.dir, lockFile) }

// touchHeartbeat writes the current Unix time. The file's content, not its
// mtime, is authoritative so clock handling survives copy-based deploys.
func (e *election) touchHeartbeat() error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return err
	}
	line := strconv.FormatFloat(float64(time.Now().UnixNano())/1e9, 'f', 6, 64)
	return os.WriteFile(e.heartbeatPath(), []byte(line), 0o644)
}

// heartbeatFresh reports whether another scheduler touched the heartbeat
// within the freshness window.
func (e *election) heartbeatFresh() bool {
	raw, err := os.ReadFile(e.heartbeatPath())
	if err != nil {
		return false
	}
	ts, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return false
	}
	written := time.Unix(0, int64(ts*1e9))
	return time.Since(written) < heartbeatFreshFor
}

func (e *election) clearHeartbeat() {
	os.Remove(e.heartbeatPath())
}

// acquireLock writes the startup lock. A fresh lock from another process
// means a concurrent startup is in progress and this one must abort.
func (e *election) acquireLock() (bool, error) {
	if e.lockFresh() {
		return false, nil
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return false, err
	}
	content := fmt.Sprintf("%d\n%d\n", time.Now().Unix(), os.Getpid())
	if err := os.WriteFile(e.lockPath(), []byte(content), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// lockFresh reports whether a startup lock younger than the freshness window
// exists. Stale locks are removed on sight.
func (e *election) lockFresh() bool {
	raw, err := os.ReadFile(e.lockPath())
	if err != nil {
		return false
	}
	lines := strings.SplitN(strings.TrimSpace(string(raw)), "\n", 2)
	ts, err := strconv.ParseInt(strings.TrimSpace(lines[0]), 10, 64)
	if err != nil {
		os.Remove(e.lockPath())
		return false
	}
	if time.Since(time.Unix(ts, 0)) >= lockFreshFor {
		os.Remove(e.lockPath())
		return false
	}
	return true
}

func (e *election) releaseLock() {
	os.Remove(e.lockPath())
}
