package server

import (
	"fmt"

	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
	"github.com/zboralski/binja-mcp/internal/hostclient"
)

// ErrorKind categorises errors by what the caller CAN DO, not by origin.
type ErrorKind = opsv1.ErrorKind

const (
	ErrValidation        = opsv1.KindValidation
	ErrNotFound          = opsv1.KindNotFound
	ErrConflict          = opsv1.KindConflict
	ErrUnavailable       = opsv1.KindUnavailable
	ErrRemoteTimeout     = opsv1.KindRemoteTimeout
	ErrRemoteUnreachable = opsv1.KindRemoteUnreachable
	ErrInternal          = opsv1.KindInternal
)

// ErrorStatus explicitly declares retry-ability.
type ErrorStatus string

const (
	StatusPermanent ErrorStatus = "permanent"
	StatusTemporary ErrorStatus = "temporary"
)

// ToolError is the single flat error type for MCP tool responses.
type ToolError struct {
	Kind      ErrorKind      `json:"kind"`
	Status    ErrorStatus    `json:"status"`
	Message   string         `json:"message"`
	Operation string         `json:"operation"`
	Context   map[string]any `json:"context,omitempty"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Operation, e.Message)
}

func statusOf(kind ErrorKind) ErrorStatus {
	switch kind {
	case ErrUnavailable, ErrRemoteTimeout, ErrRemoteUnreachable:
		return StatusTemporary
	default:
		return StatusPermanent
	}
}

// --- Factory functions ---

func invalidInput(operation, message string) *ToolError {
	return &ToolError{
		Kind:      ErrValidation,
		Status:    StatusPermanent,
		Message:   message,
		Operation: operation,
	}
}

// hostFailure converts an error response from the operation server.
func hostFailure(operation string, resp *opsv1.Response) *ToolError {
	kind := resp.ErrorKind
	if kind == "" {
		kind = ErrInternal
	}
	terr := &ToolError{
		Kind:      kind,
		Status:    statusOf(kind),
		Message:   resp.Message,
		Operation: operation,
	}
	if len(resp.Hints) > 0 {
		terr.Context = map[string]any{"did_you_mean": resp.Hints}
	}
	return terr
}

// remoteFailure reports a failed channel. A mutating request that timed out
// may still have been applied by the host.
func remoteFailure(operation string, req *opsv1.Request, err *hostclient.RemoteError) *ToolError {
	terr := &ToolError{
		Kind:      err.Kind,
		Status:    statusOf(err.Kind),
		Operation: operation,
		Context:   map[string]any{"request_id": req.RequestID},
	}
	switch err.Kind {
	case ErrRemoteUnreachable:
		terr.Message = "operation server not reachable; is the analysis host running with the server started?"
		terr.Context["detail"] = err.Err.Error()
	case ErrRemoteTimeout:
		terr.Message = "no response from operation server within the timeout"
		terr.Context["detail"] = err.Err.Error()
		if opsv1.IsMutating(req.Op) {
			terr.Context["mutating"] = true
			terr.Context["note"] = "the change may still have been applied; read the current state before retrying"
		}
	default:
		terr.Message = err.Err.Error()
	}
	return terr
}

func internalError(operation string, err error) *ToolError {
	return &ToolError{
		Kind:      ErrInternal,
		Status:    StatusPermanent,
		Message:   err.Error(),
		Operation: operation,
	}
}
