package opserver

import (
	"context"
	"errors"
	"fmt"

	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
	"github.com/zboralski/binja-mcp/internal/hostexec"
	"github.com/zboralski/binja-mcp/internal/model"
)

// opError is a failure with a wire kind attached.
type opError struct {
	Kind    opsv1.ErrorKind
	Message string
	Hints   []string
}

func (e *opError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func invalidArgs(format string, args ...any) *opError {
	return &opError{Kind: opsv1.KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFound(hints []string, format string, args ...any) *opError {
	return &opError{Kind: opsv1.KindNotFound, Message: fmt.Sprintf(format, args...), Hints: hints}
}

func conflict(format string, args ...any) *opError {
	return &opError{Kind: opsv1.KindConflict, Message: fmt.Sprintf(format, args...)}
}

func unavailable(format string, args ...any) *opError {
	return &opError{Kind: opsv1.KindUnavailable, Message: fmt.Sprintf(format, args...)}
}

var errNoBinary = unavailable("no binary loaded")

// classify maps any failure to a kind. Nothing escapes untyped.
func classify(err error) *opError {
	var oe *opError
	switch {
	case errors.As(err, &oe):
		return oe
	case errors.Is(err, model.ErrNotFound):
		return &opError{Kind: opsv1.KindNotFound, Message: err.Error()}
	case errors.Is(err, model.ErrConflict):
		return &opError{Kind: opsv1.KindConflict, Message: err.Error()}
	case errors.Is(err, model.ErrInvalidAddress):
		return &opError{Kind: opsv1.KindValidation, Message: err.Error()}
	case errors.Is(err, model.ErrDecompilationFailed):
		return &opError{Kind: opsv1.KindUnavailable, Message: err.Error() + " (missing debug information or unsupported architecture)"}
	case errors.Is(err, hostexec.ErrClosed):
		return &opError{Kind: opsv1.KindUnavailable, Message: "host is shutting down"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &opError{Kind: opsv1.KindUnavailable, Message: "request abandoned before the host finished it"}
	default:
		return &opError{Kind: opsv1.KindInternal, Message: err.Error()}
	}
}

func errorResponse(requestID string, err error) *opsv1.Response {
	oe := classify(err)
	return &opsv1.Response{
		Status:    opsv1.StatusError,
		ErrorKind: oe.Kind,
		Message:   oe.Message,
		Hints:     oe.Hints,
		RequestID: requestID,
	}
}
