// Package hostclient is the tool bridge's side of the local channel to the
// operation server.
package hostclient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
	"github.com/zboralski/binja-mcp/binja/ops/v1/opsv1connect"
	"github.com/zboralski/binja-mcp/internal/codec"
)

// Config locates the operation server.
type Config struct {
	// Address is host:port or unix:///path/to.sock.
	Address string
	Timeout time.Duration
	Codec   string
}

// RemoteError is a failure of the channel rather than of the operation.
type RemoteError struct {
	Kind opsv1.ErrorKind
	Op   string
	Err  error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Client sends one request at a time to the operation server.
type Client struct {
	rpc     opsv1connect.OperationServiceClient
	address string
	timeout time.Duration
	sem     *semaphore.Weighted
	logger  *log.Logger
}

// Dial builds a client. No connection is made until the first call.
func Dial(cfg Config, logger *log.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	c, err := codec.ByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	httpClient, baseURL, err := newHTTPClient(cfg.Address, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		rpc:     opsv1connect.NewOperationServiceClient(httpClient, baseURL, c),
		address: cfg.Address,
		timeout: cfg.Timeout,
		sem:     semaphore.NewWeighted(1),
		logger:  logger,
	}, nil
}

func newHTTPClient(address string, dialTimeout time.Duration) (*http.Client, string, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}
	if strings.HasPrefix(address, "unix://") {
		socketPath := strings.TrimPrefix(address, "unix://")
		if socketPath == "" {
			return nil, "", errors.New("empty unix socket path")
		}
		return &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return dialer.DialContext(ctx, "unix", socketPath)
				},
			},
		}, "http://unix", nil
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		return nil, "", fmt.Errorf("invalid operation server address %q: %w", address, err)
	}
	return &http.Client{
		Transport: &http.Transport{DialContext: dialer.DialContext},
	}, "http://" + address, nil
}

// Address returns the configured endpoint.
func (c *Client) Address() string { return c.address }

// Timeout returns the per-request bound.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Execute sends req and waits at most the configured timeout, including time
// spent queued behind another request. A fresh request id is attached when
// req has none. Failures of the channel come back as *RemoteError; failures
// of the operation come back inside the response.
func (c *Client) Execute(ctx context.Context, req *opsv1.Request) (*opsv1.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, &RemoteError{Kind: opsv1.KindRemoteTimeout, Op: req.Op, Err: fmt.Errorf("not dispatched, waited %s for an earlier request: %w", c.timeout, err)}
	}
	defer c.sem.Release(1)

	start := time.Now()
	resp, err := c.rpc.Execute(ctx, connect.NewRequest(req))
	if err != nil {
		rerr := classify(ctx, req.Op, err)
		c.logger.Printf("[Host] %s request=%s failed after %s: %v", req.Op, req.RequestID, time.Since(start).Round(time.Millisecond), rerr)
		return nil, rerr
	}
	return resp.Msg, nil
}

// Ping checks the server is up.
func (c *Client) Ping(ctx context.Context) (*opsv1.PingResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.rpc.Ping(ctx, connect.NewRequest(&opsv1.PingRequest{}))
	if err != nil {
		return nil, classify(ctx, "ping", err)
	}
	return resp.Msg, nil
}

// WaitReady polls Ping until it answers or timeout elapses.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		_, err := c.Ping(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return fmt.Errorf("timeout waiting for operation server at %s: %w", c.address, lastErr)
}

// classify maps a transport failure to a remote kind.
func classify(ctx context.Context, op string, err error) *RemoteError {
	kind := opsv1.KindInternal
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = opsv1.KindRemoteTimeout
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ENOENT), isDialError(err):
		kind = opsv1.KindRemoteUnreachable
	default:
		switch connect.CodeOf(err) {
		case connect.CodeDeadlineExceeded:
			kind = opsv1.KindRemoteTimeout
		case connect.CodeUnavailable:
			kind = opsv1.KindRemoteUnreachable
		}
	}
	return &RemoteError{Kind: kind, Op: op, Err: err}
}

func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
