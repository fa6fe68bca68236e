package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"modelrun/internal/catalog"
	"modelrun/internal/device"
	"modelrun/internal/launcher"
	"modelrun/internal/metrics"
	"modelrun/pkg/types"
)

type mockService struct {
	models   []types.CatalogRecord
	gpus     []types.GPUStatus
	err      error
	lastArgs types.LaunchArgs
}

func (m *mockService) Models(context.Context) ([]types.CatalogRecord, error) {
	return m.models, m.err
}

func (m *mockService) GPUs(context.Context) ([]types.GPUStatus, error) { return m.gpus, m.err }

func (m *mockService) Plan(_ context.Context, model string, args types.LaunchArgs) (types.PlanResult, error) {
	m.lastArgs = args
	if m.err != nil {
		return types.PlanResult{}, m.err
	}
	return types.PlanResult{RunID: "run-1", Descriptor: types.ModelDescriptor{ID: model}, Plan: types.UtilizationPlan{Ratio: 0.86, Rule: model}}, nil
}

func (m *mockService) Ratio(model string, avail int) types.UtilizationPlan {
	return types.UtilizationPlan{Ratio: 0.73, Rule: "default"}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func strp(s string) *string { return &s }

func TestHealthz(t *testing.T) {
	w := get(t, NewMux(&mockService{}, nil), "/healthz")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: []types.CatalogRecord{{Name: "m1", HFID: strp("org/m1")}, {Name: "m2"}}}
	w := get(t, NewMux(svc, nil), "/models")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Models) != 2 || *body.Models[0].HFID != "org/m1" {
		t.Fatalf("models=%+v", body.Models)
	}
}

func TestGPUsHandlerEmpty(t *testing.T) {
	w := get(t, NewMux(&mockService{}, nil), "/gpus")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"gpus":[]}` {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestPlanHandler(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, nil)
	w := get(t, h, "/plan/yi-34b-gptq?port=9000&gpu_ids=1,0&miner_id_index=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var res types.PlanResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if res.Descriptor.ID != "yi-34b-gptq" || res.Plan.Ratio != 0.86 {
		t.Fatalf("res=%+v", res)
	}
	if svc.lastArgs.Port != 9000 || svc.lastArgs.GPUIDs != "1,0" || svc.lastArgs.MinerIndex != 2 {
		t.Fatalf("args=%+v", svc.lastArgs)
	}

	get(t, h, "/plan/yi-34b-gptq?gpu=3")
	if svc.lastArgs.GPUIDs != "3" || svc.lastArgs.Port != launcher.DefaultPort {
		t.Fatalf("gpu shorthand: %+v", svc.lastArgs)
	}
}

func TestPlanHandlerBadArgs(t *testing.T) {
	h := NewMux(&mockService{}, nil)
	for _, q := range []string{"port=abc", "miner_id_index=-1", "gpu_ids=x"} {
		w := get(t, h, "/plan/m?"+q)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", q, w.Code)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{catalog.ErrModelNotFound("x", "y"), http.StatusNotFound},
		{catalog.ErrCatalogUnavailable("u", errors.New("down")), http.StatusServiceUnavailable},
		{device.ErrDeviceQuery(0, "no smi", nil), http.StatusServiceUnavailable},
		{device.ErrInsufficientMemory("m", 0, 1, 2), http.StatusUnprocessableEntity},
		{launcher.ErrIncompleteModelDetails("m", "revision"), http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := get(t, NewMux(&mockService{err: tc.err}, nil), "/plan/m")
		if w.Code != tc.want {
			t.Fatalf("%v: status=%d want %d", tc.err, w.Code, tc.want)
		}
		var body types.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("json: %v", err)
		}
		if body.Code != tc.want || body.Error != tc.err.Error() {
			t.Fatalf("body=%+v", body)
		}
	}
}

type teapot struct{}

func (teapot) Error() string   { return "short and stout" }
func (teapot) StatusCode() int { return http.StatusTeapot }

func TestErrorMappingCustomStatus(t *testing.T) {
	w := get(t, NewMux(&mockService{err: teapot{}}, nil), "/models")
	if w.Code != http.StatusTeapot {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestRatioHandler(t *testing.T) {
	h := NewMux(&mockService{}, nil)
	w := get(t, h, "/ratio?model=unknown-model-x&available_mb=15000")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var res types.RatioResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if res.Model != "unknown-model-x" || res.AvailableMB != 15000 || res.Ratio != 0.73 || res.Rule != "default" {
		t.Fatalf("res=%+v", res)
	}
	for _, q := range []string{"", "model=m", "model=m&available_mb=x", "model=m&available_mb=-1", "available_mb=5"} {
		if w := get(t, h, "/ratio?"+q); w.Code != http.StatusBadRequest {
			t.Fatalf("%q: status=%d", q, w.Code)
		}
	}
}

func TestMetricsEndpointUsesRoutePattern(t *testing.T) {
	rec := metrics.New(false)
	h := NewMux(&mockService{err: catalog.ErrModelNotFound("m")}, rec)
	get(t, h, "/plan/some-model")
	w := get(t, h, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", w.Code)
	}
	body := w.Body.String()
	want := `modelrun_http_requests_total{method="GET",path="/plan/{model}",status="404"} 1`
	if !strings.Contains(body, want) {
		t.Fatalf("missing %q in metrics output", want)
	}
	if strings.Contains(body, "/plan/some-model") {
		t.Fatal("raw path leaked into labels")
	}
}

func TestSecurityHeader(t *testing.T) {
	w := get(t, NewMux(&mockService{}, nil), "/healthz")
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("headers=%v", w.Header())
	}
}

func TestCORS(t *testing.T) {
	SetCORSOptions(true, []string{"https://ui.example"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)
	h := NewMux(&mockService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://ui.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://ui.example" {
		t.Fatalf("allow-origin=%q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin=%q", got)
	}
}
