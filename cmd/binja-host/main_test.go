package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zboralski/binja-mcp/internal/hostexec"
	"github.com/zboralski/binja-mcp/internal/model"
)

func current(t *testing.T, q *hostexec.Queue, host *model.Host) *model.Program {
	t.Helper()
	var prog *model.Program
	require.NoError(t, q.Do(context.Background(), func() { prog = host.Current() }))
	return prog
}

func TestReloadSnapshot(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	q := hostexec.NewQueue(4, logger)
	t.Cleanup(q.Close)
	host := model.NewHost()

	fixture, err := os.ReadFile("../../internal/model/testdata/program.yaml")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "program.yaml")
	require.NoError(t, os.WriteFile(path, fixture, 0o644))

	require.NoError(t, reloadSnapshot(context.Background(), q, host, path, logger))
	first := current(t, q, host)
	require.NotNil(t, first)
	assert.Equal(t, "/samples/crackme.elf", first.Filename)

	require.NoError(t, reloadSnapshot(context.Background(), q, host, path, logger))
	second := current(t, q, host)
	assert.NotSame(t, first, second)

	// a broken snapshot keeps the loaded one
	require.NoError(t, os.WriteFile(path, []byte("functions: [\n"), 0o644))
	assert.Error(t, reloadSnapshot(context.Background(), q, host, path, logger))
	assert.Same(t, second, current(t, q, host))
}
