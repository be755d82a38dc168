package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/userroles/internal/pkg/ctxlog"
)

// InternalErrorMessage is returned for errors that match no mapping.
const InternalErrorMessage = "服务器内部错误"

// ErrorMapping defines how a domain error maps to an HTTP response.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // if empty, uses err.Error()
}

// HandleError maps err to a plain text response using the first matching mapping.
// Server-side failures are logged; if no mapping matches the response is 500.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	for _, m := range mappings {
		if !errors.Is(err, m.Error) {
			continue
		}
		msg := m.Message
		if msg == "" {
			msg = err.Error()
		}
		if m.Status >= http.StatusInternalServerError {
			ctxlog.FromContext(ctx).Error(msg, "error", err)
		}
		Text(w, m.Status, msg)
		return
	}
	ctxlog.FromContext(ctx).Error("internal error", "error", err)
	Text(w, http.StatusInternalServerError, InternalErrorMessage)
}
