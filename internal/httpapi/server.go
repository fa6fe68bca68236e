package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelrun/internal/launcher"
	"modelrun/internal/metrics"
	"modelrun/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Models(ctx context.Context) ([]types.CatalogRecord, error)
	GPUs(ctx context.Context) ([]types.GPUStatus, error)
	Plan(ctx context.Context, modelID string, args types.LaunchArgs) (types.PlanResult, error)
	Ratio(modelID string, availableMB int) types.UtilizationPlan
}

// NewMux builds the read-only planning API. rec may be nil, in which case
// /metrics serves the default registry.
func NewMux(svc Service, rec *metrics.Recorder) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware(rec))
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		methods := corsAllowedMethods
		if len(methods) == 0 {
			methods = []string{http.MethodGet, http.MethodOptions}
		}
		headers := corsAllowedHeaders
		if len(headers) == 0 {
			headers = []string{"Accept", "Content-Type", "X-Log-Level"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: methods,
			AllowedHeaders: headers,
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, cancel := requestContext(r.Context())
		defer cancel()
		recs, err := svc.Models(ctx)
		if err != nil {
			respondError(w, r, start, err)
			return
		}
		if recs == nil {
			recs = []types.CatalogRecord{}
		}
		respond(w, r, start, types.ModelsResponse{Models: recs})
	})

	r.Get("/gpus", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, cancel := requestContext(r.Context())
		defer cancel()
		gpus, err := svc.GPUs(ctx)
		if err != nil {
			respondError(w, r, start, err)
			return
		}
		if gpus == nil {
			gpus = []types.GPUStatus{}
		}
		respond(w, r, start, types.GPUsResponse{GPUs: gpus})
	})

	r.Get("/plan/{model}", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		model := strings.TrimSpace(chi.URLParam(r, "model"))
		if model == "" {
			writeJSONError(w, http.StatusBadRequest, "model is required")
			return
		}
		args, err := planArgs(r)
		if err != nil {
			respondError(w, r, start, err)
			return
		}
		ctx, cancel := requestContext(r.Context())
		defer cancel()
		res, err := svc.Plan(ctx, model, args)
		if err != nil {
			// client went away; nothing to report
			if r.Context().Err() != nil {
				return
			}
			respondError(w, r, start, err)
			return
		}
		respond(w, r, start, res)
	})

	r.Get("/ratio", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := r.URL.Query()
		model := strings.TrimSpace(q.Get("model"))
		if model == "" {
			writeJSONError(w, http.StatusBadRequest, "model is required")
			return
		}
		avail, err := strconv.Atoi(q.Get("available_mb"))
		if err != nil || avail < 0 {
			writeJSONError(w, http.StatusBadRequest, "available_mb must be a non-negative integer")
			return
		}
		respond(w, r, start, types.RatioResponse{Model: model, AvailableMB: avail, UtilizationPlan: svc.Ratio(model, avail)})
	})

	// Prometheus metrics endpoint
	if reg := rec.Registry(); reg != nil {
		r.Get("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP)
	} else {
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
	}

	MountSwagger(r)
	return r
}

// planArgs maps query parameters onto the launch flags so the same
// validation applies as on the command line. gpu=N is shorthand for gpu_ids=N.
func planArgs(r *http.Request) (types.LaunchArgs, error) {
	q := r.URL.Query()
	var tokens []string
	if v := q.Get("miner_id_index"); v != "" {
		tokens = append(tokens, "--miner-id-index", v)
	}
	if v := q.Get("port"); v != "" {
		tokens = append(tokens, "--port", v)
	}
	gpuIDs := q.Get("gpu_ids")
	if gpuIDs == "" {
		gpuIDs = q.Get("gpu")
	}
	if gpuIDs != "" {
		tokens = append(tokens, "--gpu-ids", gpuIDs)
	}
	args, err := launcher.ParseArgs(tokens)
	if err != nil {
		return args, err
	}
	if _, err := launcher.PrimaryGPU(args.GPUIDs); err != nil {
		return args, err
	}
	return args, nil
}

func respond(w http.ResponseWriter, r *http.Request, start time.Time, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		logRequest(r, http.StatusInternalServerError, start, err)
		return
	}
	logRequest(r, http.StatusOK, start, nil)
}

func respondError(w http.ResponseWriter, r *http.Request, start time.Time, err error) {
	status := statusFor(err)
	writeJSONError(w, status, err.Error())
	logRequest(r, status, start, err)
}
