// Package opserver is the operation server embedded in the analysis host. It
// exposes the live program model as a fixed catalog of named operations over
// connect-rpc, executing every request on the host thread.
package opserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"connectrpc.com/connect"
	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
	"github.com/zboralski/binja-mcp/binja/ops/v1/opsv1connect"
	"github.com/zboralski/binja-mcp/internal/hostexec"
	"github.com/zboralski/binja-mcp/internal/model"
)

// Options tunes a Server. Zero values pick the defaults.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	AckCapacity  int
	Debug        bool
}

// Server executes operations against the host's current program.
type Server struct {
	host     *model.Host
	queue    *hostexec.Queue
	logger   *log.Logger
	debug    bool
	registry map[string]operation
	acks     *ackTable

	defaultLimit int
	maxLimit     int

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	socketPath string
}

var _ opsv1connect.OperationServiceHandler = (*Server)(nil)

// New builds a server over host. All model access goes through queue.
func New(host *model.Host, queue *hostexec.Queue, logger *log.Logger, opts Options) (*Server, error) {
	reg, err := buildRegistry(catalog())
	if err != nil {
		return nil, err
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = MaxLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	return &Server{
		host:         host,
		queue:        queue,
		logger:       logger,
		debug:        opts.Debug,
		registry:     reg,
		acks:         newAckTable(opts.AckCapacity),
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
	}, nil
}

// Execute runs one operation. Failures are always returned in the response
// body; the connect error is reserved for transport problems.
func (s *Server) Execute(ctx context.Context, req *connect.Request[opsv1.Request]) (*connect.Response[opsv1.Response], error) {
	return connect.NewResponse(s.execute(ctx, req.Msg)), nil
}

func (s *Server) execute(ctx context.Context, msg *opsv1.Request) *opsv1.Response {
	s.logger.Printf("[Host] %s request=%s args=%v", msg.Op, msg.RequestID, msg.Args)
	op, ok := s.registry[msg.Op]
	if !ok {
		return errorResponse(msg.RequestID, invalidArgs("unknown operation %q", msg.Op))
	}
	if err := op.validate(msg.Args); err != nil {
		return errorResponse(msg.RequestID, err)
	}
	var page window
	if op.paginated {
		w, err := normalizePagination(msg.Pagination, s.defaultLimit, s.maxLimit)
		if err != nil {
			return errorResponse(msg.RequestID, err)
		}
		page = w
	}

	mutating := opsv1.IsMutating(op.name)
	var resp *opsv1.Response
	err := s.queue.DoErr(ctx, func() error {
		// checked and recorded on the host thread so a concurrent redelivery
		// cannot slip between the two
		if mutating && msg.RequestID != "" {
			if prev, ok := s.acks.lookup(msg.RequestID); ok {
				if !prev.answers(op.name, msg.Args) {
					resp = errorResponse(msg.RequestID, conflict("request id %q reused for a different request (first used by %s)", msg.RequestID, prev.op))
					return nil
				}
				s.debugf("replaying acknowledged %s request %s", op.name, msg.RequestID)
				resp = prev.resp
				return nil
			}
		}
		resp = s.run(op, msg, page)
		if mutating && msg.RequestID != "" {
			s.acks.record(msg.RequestID, op.name, msg.Args, resp)
		}
		return nil
	})
	if err != nil {
		s.logger.Printf("[Error] %s request=%s: %v", op.name, msg.RequestID, err)
		return errorResponse(msg.RequestID, err)
	}
	return resp
}

// run executes op on the host thread and never panics.
func (s *Server) run(op operation, msg *opsv1.Request, page window) (resp *opsv1.Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("[Error] %s panicked: %v", op.name, r)
			resp = errorResponse(msg.RequestID, fmt.Errorf("operation %s panicked: %v", op.name, r))
		}
		s.debugf("%s finished in %s", op.name, time.Since(start))
	}()

	prog := s.host.Current()
	if prog == nil && !op.anyState {
		return errorResponse(msg.RequestID, errNoBinary)
	}
	args := msg.Args
	if args == nil {
		args = map[string]string{}
	}
	payload, err := op.run(&call{host: s.host, prog: prog, args: args, page: page})
	if err != nil {
		s.logger.Printf("[Host] %s failed: %v", op.name, err)
		return errorResponse(msg.RequestID, err)
	}
	return &opsv1.Response{Status: opsv1.StatusOK, Data: payload, RequestID: msg.RequestID}
}

// Ping reports the protocol version and whether a binary is loaded.
func (s *Server) Ping(ctx context.Context, _ *connect.Request[opsv1.PingRequest]) (*connect.Response[opsv1.PingResponse], error) {
	var loaded bool
	if err := s.queue.Do(ctx, func() { loaded = s.host.Current() != nil }); err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewResponse(&opsv1.PingResponse{Version: opsv1.ProtocolVersion, Loaded: loaded}), nil
}

// Handler returns the HTTP handler serving the operation service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	path, handler := opsv1connect.NewOperationServiceHandler(s, connect.WithReadMaxBytes(1<<20))
	mux.Handle(path, handler)
	return mux
}

// Start listens on addr and serves in the background. addr is host:port or
// unix:///path/to.sock.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return errors.New("operation server already running")
	}

	network, address := "tcp", addr
	if strings.HasPrefix(addr, "unix://") {
		network, address = "unix", strings.TrimPrefix(addr, "unix://")
		if err := os.RemoveAll(address); err != nil {
			return fmt.Errorf("failed to remove old socket: %w", err)
		}
	}
	ln, err := net.Listen(network, address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.httpServer = srv
	s.listener = ln
	if network == "unix" {
		s.socketPath = address
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("[Host] serve error: %v", err)
		}
	}()
	s.logger.Printf("[Host] operation server listening on %s://%s", network, ln.Addr())
	return nil
}

// Addr returns the bound listener address, or nil when stopped.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the listener down and waits for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, socketPath := s.httpServer, s.socketPath
	s.httpServer, s.listener, s.socketPath = nil, nil, ""
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	if socketPath != "" {
		_ = os.Remove(socketPath)
	}
	s.logger.Printf("[Host] operation server stopped")
	return err
}

func (s *Server) debugf(format string, args ...any) {
	if s.debug {
		s.logger.Printf("[DEBUG] "+format, args...)
	}
}
