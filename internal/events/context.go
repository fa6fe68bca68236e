package events

import "context"

type runIDKey struct{}

// WithRunID tags ctx with the pipeline run id so that events published
// further down (the launcher's spawn events) can be correlated.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFrom returns the run id carried by ctx, or "".
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
