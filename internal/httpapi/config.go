package httpapi

import "time"

// planTimeout bounds a single /plan request. Zero means no additional
// timeout beyond server/connection timeouts.
var planTimeout time.Duration

// SetPlanTimeout sets the plan timeout (negative disables).
func SetPlanTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	planTimeout = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
// Empty methods/headers select GET/OPTIONS and Accept/Content-Type.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
