// Package worker launches a local analysis host for the bridge when it is
// asked to bring its own instead of attaching to a running one.
package worker

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

const socketPattern = "binja-host-*.sock"

// Manager owns at most one host process.
type Manager struct {
	binary   string
	baseArgs []string
	logger   *log.Logger

	mu         sync.Mutex
	cmd        *exec.Cmd
	cancel     context.CancelFunc
	done       chan struct{}
	socketPath string
}

// NewManager creates a manager that runs binary. baseArgs precede the
// per-launch flags.
func NewManager(binary string, baseArgs []string, logger *log.Logger) *Manager {
	return &Manager{
		binary:   binary,
		baseArgs: baseArgs,
		logger:   logger,
	}
}

// SocketPath is where a host launched for sessionID listens.
func SocketPath(dir, sessionID string) string {
	return filepath.Join(dir, "binja-host-"+sessionID+".sock")
}

// Start spawns the host serving snapshot on socketPath and waits until the
// socket accepts connections.
func (m *Manager) Start(socketPath, snapshot string, readyTimeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd != nil {
		return fmt.Errorf("host already running (PID %d)", m.cmd.Process.Pid)
	}
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("failed to remove old socket: %w", err)
	}

	// The host outlives any single tool call.
	hostCtx, cancel := context.WithCancel(context.Background())
	args := append(append([]string(nil), m.baseArgs...),
		"--socket", socketPath,
		"--snapshot", snapshot)
	cmd := exec.CommandContext(hostCtx, m.binary, args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = 5 * time.Second

	// stdout belongs to the MCP channel; never let the child write there
	if flag.Lookup("test.v") != nil {
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
	} else {
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start host: %w", err)
	}
	m.logger.Printf("[Worker] Started host PID %d on %s", cmd.Process.Pid, socketPath)

	done := make(chan struct{})
	go m.monitor(hostCtx, cmd, done)

	if err := waitForSocket(socketPath, readyTimeout, done); err != nil {
		cancel()
		<-done
		_ = os.Remove(socketPath)
		return fmt.Errorf("host socket not ready: %w", err)
	}

	m.cmd = cmd
	m.cancel = cancel
	m.done = done
	m.socketPath = socketPath
	return nil
}

func (m *Manager) monitor(ctx context.Context, cmd *exec.Cmd, done chan struct{}) {
	defer close(done)
	err := cmd.Wait()
	if err != nil && ctx.Err() == nil {
		m.logger.Printf("[Worker] Host PID %d exited with error: %v", cmd.Process.Pid, err)
	} else {
		m.logger.Printf("[Worker] Host PID %d exited", cmd.Process.Pid)
	}
}

// Running reports whether the launched host is still alive.
func (m *Manager) Running() bool {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Stop asks the host to exit, kills it after a grace period and removes its
// socket.
func (m *Manager) Stop() error {
	m.mu.Lock()
	cmd, cancel, done, socketPath := m.cmd, m.cancel, m.done, m.socketPath
	m.cmd, m.cancel, m.done, m.socketPath = nil, nil, nil, ""
	m.mu.Unlock()
	if cmd == nil {
		return errors.New("no host running")
	}

	m.logger.Printf("[Worker] Stopping host PID %d", cmd.Process.Pid)
	cancel()
	<-done

	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove socket: %w", err)
	}
	return nil
}

// CleanupOrphanSockets removes host sockets in dir that nothing listens on,
// left behind by earlier crashes.
func (m *Manager) CleanupOrphanSockets(dir string) int {
	matches, err := filepath.Glob(filepath.Join(dir, socketPattern))
	if err != nil {
		m.logger.Printf("[Worker] Failed to glob orphan sockets: %v", err)
		return 0
	}

	removed := 0
	for _, sock := range matches {
		if conn, err := net.DialTimeout("unix", sock, 200*time.Millisecond); err == nil {
			conn.Close()
			continue
		}
		if err := os.Remove(sock); err != nil {
			m.logger.Printf("[Worker] Failed to remove orphan socket %s: %v", sock, err)
		} else {
			removed++
		}
	}
	if removed > 0 {
		m.logger.Printf("[Worker] Cleaned up %d orphan socket(s)", removed)
	}
	return removed
}

// waitForSocket polls until the socket accepts a connection, the process
// exits or timeout elapses.
func waitForSocket(socketPath string, timeout time.Duration, exited <-chan struct{}) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(socketPath); err == nil {
			conn, err := net.Dial("unix", socketPath)
			if err == nil {
				conn.Close()
				return nil
			}
		}
		select {
		case <-exited:
			return errors.New("host exited before listening")
		case <-time.After(100 * time.Millisecond):
		}
	}
	return fmt.Errorf("timeout waiting for socket %s", socketPath)
}
