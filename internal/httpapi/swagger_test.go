//go:build swagger

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/swaggo/swag"
)

type staticDoc string

func (d staticDoc) ReadDoc() string { return string(d) }

func TestSwaggerDocFromRegistry(t *testing.T) {
	r := chi.NewRouter()
	MountSwagger(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, swaggerDocPath, nil))
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "swag init") {
		t.Fatalf("without docs: code=%d body=%s", w.Code, w.Body.String())
	}

	swag.Register(swag.Name, staticDoc(`{"swagger":"2.0"}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, swaggerDocPath, nil))
	if w.Code != http.StatusOK || w.Body.String() != `{"swagger":"2.0"}` {
		t.Fatalf("with docs: code=%d body=%s", w.Code, w.Body.String())
	}
}
