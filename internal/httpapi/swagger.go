//go:build swagger

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

const swaggerDocPath = "/swagger/doc.json"

// MountSwagger serves the Swagger UI under /swagger/. The document comes from
// the swag registry, filled by the package `swag init` generates (see
// cmd/modelrun/docs.go); without it doc.json answers 503.
func MountSwagger(r chi.Router) {
	r.Get(swaggerDocPath, func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, "swagger docs not generated: run swag init and blank-import the docs package")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(swaggerDocPath)))
}
