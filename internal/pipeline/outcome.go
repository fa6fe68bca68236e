package pipeline

import (
	"context"
	"errors"

	"modelrun/internal/catalog"
	"modelrun/internal/device"
	"modelrun/internal/launcher"
)

// Outcome classifies err into a low-cardinality metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case catalog.IsModelNotFound(err):
		return "model_not_found"
	case catalog.IsCatalogUnavailable(err):
		return "catalog_unavailable"
	case device.IsInsufficientMemory(err):
		return "insufficient_memory"
	case device.IsDeviceQuery(err):
		return "device_query"
	case launcher.IsIncompleteModelDetails(err):
		return "incomplete_details"
	case launcher.IsMissingWorker(err):
		return "missing_worker"
	case launcher.IsWorkerExit(err):
		return "worker_exit"
	case launcher.IsUsage(err):
		return "usage"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
