// Package opsv1connect wires the opsv1 messages to connect-rpc clients and
// handlers.
package opsv1connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
	"github.com/zboralski/binja-mcp/internal/codec"
)

const (
	OperationServiceName = "binja.ops.v1.OperationService"

	OperationServiceExecuteProcedure = "/" + OperationServiceName + "/Execute"
	OperationServicePingProcedure    = "/" + OperationServiceName + "/Ping"
)

// OperationServiceClient calls the operation server.
type OperationServiceClient interface {
	Execute(context.Context, *connect.Request[opsv1.Request]) (*connect.Response[opsv1.Response], error)
	Ping(context.Context, *connect.Request[opsv1.PingRequest]) (*connect.Response[opsv1.PingResponse], error)
}

type operationServiceClient struct {
	execute *connect.Client[opsv1.Request, opsv1.Response]
	ping    *connect.Client[opsv1.PingRequest, opsv1.PingResponse]
}

// NewOperationServiceClient builds a client for the service at baseURL. The
// codec must be one of internal/codec's; it defaults to json.
func NewOperationServiceClient(httpClient connect.HTTPClient, baseURL string, c connect.Codec, opts ...connect.ClientOption) OperationServiceClient {
	if c == nil {
		c = codec.JSON{}
	}
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(c)}, opts...)
	return &operationServiceClient{
		execute: connect.NewClient[opsv1.Request, opsv1.Response](httpClient, baseURL+OperationServiceExecuteProcedure, opts...),
		ping:    connect.NewClient[opsv1.PingRequest, opsv1.PingResponse](httpClient, baseURL+OperationServicePingProcedure, opts...),
	}
}

func (c *operationServiceClient) Execute(ctx context.Context, req *connect.Request[opsv1.Request]) (*connect.Response[opsv1.Response], error) {
	return c.execute.CallUnary(ctx, req)
}

func (c *operationServiceClient) Ping(ctx context.Context, req *connect.Request[opsv1.PingRequest]) (*connect.Response[opsv1.PingResponse], error) {
	return c.ping.CallUnary(ctx, req)
}

// OperationServiceHandler is implemented by the operation server.
type OperationServiceHandler interface {
	Execute(context.Context, *connect.Request[opsv1.Request]) (*connect.Response[opsv1.Response], error)
	Ping(context.Context, *connect.Request[opsv1.PingRequest]) (*connect.Response[opsv1.PingResponse], error)
}

// NewOperationServiceHandler returns the mount path and an http.Handler
// serving svc. All internal/codec codecs are accepted.
func NewOperationServiceHandler(svc OperationServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	for _, c := range codec.All() {
		opts = append(opts, connect.WithCodec(c))
	}
	execute := connect.NewUnaryHandler(OperationServiceExecuteProcedure, svc.Execute, opts...)
	ping := connect.NewUnaryHandler(OperationServicePingProcedure, svc.Ping, opts...)
	return "/" + OperationServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case OperationServiceExecuteProcedure:
			execute.ServeHTTP(w, r)
		case OperationServicePingProcedure:
			ping.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
