package worker

import (
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperEnv = "BINJA_WORKER_HELPER"

// TestHelperHost is not a real test: it is the host process the manager
// launches, re-executing the test binary.
func TestHelperHost(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		t.Skip("helper process")
	}
	var socket string
	args := os.Args
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "--socket" {
			socket = args[i+1]
		}
	}
	if os.Getenv("BINJA_WORKER_HELPER_FAIL") == "1" || socket == "" {
		os.Exit(3)
	}
	ln, err := net.Listen("unix", socket)
	if err != nil {
		os.Exit(2)
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM)
	go func() { _ = http.Serve(ln, http.NotFoundHandler()) }()
	<-sig
	ln.Close()
	os.Exit(0)
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(os.Args[0], []string{"-test.run=TestHelperHost", "--"}, log.New(io.Discard, "", 0))
}

// shortDir keeps unix socket paths under the platform length limit.
func shortDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "bh")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestStartStop(t *testing.T) {
	t.Setenv(helperEnv, "1")
	m := newTestManager(t)
	sock := SocketPath(shortDir(t), "s1")

	require.NoError(t, m.Start(sock, "program.yaml", 10*time.Second))
	assert.True(t, m.Running())
	assert.Error(t, m.Start(sock, "program.yaml", time.Second), "second start must fail")

	conn, err := net.Dial("unix", sock)
	require.NoError(t, err)
	conn.Close()

	require.NoError(t, m.Stop())
	assert.False(t, m.Running())
	_, err = os.Stat(sock)
	assert.True(t, os.IsNotExist(err))
	assert.Error(t, m.Stop())
}

func TestStartFailsWhenHostExits(t *testing.T) {
	t.Setenv(helperEnv, "1")
	t.Setenv("BINJA_WORKER_HELPER_FAIL", "1")
	m := newTestManager(t)

	err := m.Start(SocketPath(shortDir(t), "s2"), "program.yaml", 10*time.Second)
	require.Error(t, err)
	assert.False(t, m.Running())
}

func TestCleanupOrphanSockets(t *testing.T) {
	dir := shortDir(t)
	m := newTestManager(t)

	stale := SocketPath(dir, "stale")
	ln, err := net.Listen("unix", stale)
	require.NoError(t, err)
	ln.(*net.UnixListener).SetUnlinkOnClose(false)
	ln.Close()

	live := SocketPath(dir, "live")
	liveLn, err := net.Listen("unix", live)
	require.NoError(t, err)
	defer liveLn.Close()

	other := filepath.Join(dir, "unrelated.sock")
	require.NoError(t, os.WriteFile(other, nil, 0o600))

	assert.Equal(t, 1, m.CleanupOrphanSockets(dir))
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(live)
	assert.NoError(t, err)
	_, err = os.Stat(other)
	assert.NoError(t, err)
}
