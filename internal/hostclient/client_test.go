package hostclient

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
	"github.com/zboralski/binja-mcp/binja/ops/v1/opsv1connect"
)

// stubService answers Execute through a configurable function.
type stubService struct {
	execute func(ctx context.Context, req *opsv1.Request) *opsv1.Response
}

func (s *stubService) Execute(ctx context.Context, req *connect.Request[opsv1.Request]) (*connect.Response[opsv1.Response], error) {
	return connect.NewResponse(s.execute(ctx, req.Msg)), nil
}

func (s *stubService) Ping(context.Context, *connect.Request[opsv1.PingRequest]) (*connect.Response[opsv1.PingResponse], error) {
	return connect.NewResponse(&opsv1.PingResponse{Version: opsv1.ProtocolVersion, Loaded: true}), nil
}

func startStub(t *testing.T, svc *stubService) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(opsv1connect.NewOperationServiceHandler(svc))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return strings.TrimPrefix(ts.URL, "http://")
}

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func TestExecuteAttachesRequestID(t *testing.T) {
	var (
		mu   sync.Mutex
		seen string
	)
	addr := startStub(t, &stubService{execute: func(_ context.Context, req *opsv1.Request) *opsv1.Response {
		mu.Lock()
		seen = req.RequestID
		mu.Unlock()
		return &opsv1.Response{Status: opsv1.StatusOK, Data: &opsv1.Payload{Success: true}, RequestID: req.RequestID}
	}})
	for _, name := range []string{"json", "cbor"} {
		c, err := Dial(Config{Address: addr, Timeout: time.Second, Codec: name}, discard())
		require.NoError(t, err)

		resp, err := c.Execute(context.Background(), &opsv1.Request{Op: opsv1.OpRenameFunction})
		require.NoError(t, err, name)
		assert.True(t, resp.OK())
		mu.Lock()
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, resp.RequestID)
		mu.Unlock()
	}
}

func TestUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c, err := Dial(Config{Address: addr, Timeout: 2 * time.Second}, discard())
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Execute(context.Background(), &opsv1.Request{Op: opsv1.OpListMethods})
	var rerr *RemoteError
	require.True(t, errors.As(err, &rerr), "got %v", err)
	assert.Equal(t, opsv1.KindRemoteUnreachable, rerr.Kind)
	assert.Less(t, time.Since(start), 2*time.Second+500*time.Millisecond)
}

func TestUnreachableUnixSocket(t *testing.T) {
	c, err := Dial(Config{Address: "unix://" + t.TempDir() + "/missing.sock", Timeout: time.Second}, discard())
	require.NoError(t, err)
	_, err = c.Ping(context.Background())
	var rerr *RemoteError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, opsv1.KindRemoteUnreachable, rerr.Kind)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	addr := startStub(t, &stubService{execute: func(ctx context.Context, req *opsv1.Request) *opsv1.Response {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return &opsv1.Response{Status: opsv1.StatusOK}
	}})
	c, err := Dial(Config{Address: addr, Timeout: 50 * time.Millisecond}, discard())
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), &opsv1.Request{Op: opsv1.OpRenameFunction})
	var rerr *RemoteError
	require.True(t, errors.As(err, &rerr), "got %v", err)
	assert.Equal(t, opsv1.KindRemoteTimeout, rerr.Kind)
}

func TestOneOutstandingRequest(t *testing.T) {
	var (
		active  int32
		maxSeen int32
	)
	addr := startStub(t, &stubService{execute: func(_ context.Context, req *opsv1.Request) *opsv1.Response {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxSeen)
			if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return &opsv1.Response{Status: opsv1.StatusOK}
	}})
	c, err := Dial(Config{Address: addr, Timeout: 5 * time.Second}, discard())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Execute(context.Background(), &opsv1.Request{Op: opsv1.OpListMethods})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxSeen))
}

func TestWaitReady(t *testing.T) {
	addr := startStub(t, &stubService{})
	c, err := Dial(Config{Address: addr, Timeout: time.Second}, discard())
	require.NoError(t, err)
	assert.NoError(t, c.WaitReady(context.Background(), time.Second))

	dead, err := Dial(Config{Address: "127.0.0.1:1", Timeout: 50 * time.Millisecond}, discard())
	require.NoError(t, err)
	assert.Error(t, dead.WaitReady(context.Background(), 200*time.Millisecond))
}

func TestDialRejectsBadConfig(t *testing.T) {
	_, err := Dial(Config{Address: "no-port"}, discard())
	assert.Error(t, err)
	_, err = Dial(Config{Address: "unix://"}, discard())
	assert.Error(t, err)
	_, err = Dial(Config{Address: "localhost:9009", Codec: "xml"}, discard())
	assert.Error(t, err)
}
