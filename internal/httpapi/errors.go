package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"modelrun/internal/catalog"
	"modelrun/internal/device"
	"modelrun/internal/launcher"
	"modelrun/pkg/types"
)

// httpError lets a Service error pick its own HTTP status code.
type httpError interface {
	error
	StatusCode() int
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var he httpError
	switch {
	case catalog.IsModelNotFound(err):
		return http.StatusNotFound
	case catalog.IsCatalogUnavailable(err), device.IsDeviceQuery(err):
		return http.StatusServiceUnavailable
	case device.IsInsufficientMemory(err), launcher.IsIncompleteModelDetails(err):
		return http.StatusUnprocessableEntity
	case launcher.IsUsage(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &he):
		return he.StatusCode()
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
