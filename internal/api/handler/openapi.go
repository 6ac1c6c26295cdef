package handler

import (
	"log/slog"
	"net/http"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/daap14/teamup/internal/api/middleware"
	"github.com/daap14/teamup/internal/api/response"
)

// OpenAPIHandler serves the API description as JSON.
type OpenAPIHandler struct {
	rawYAML  []byte
	jsonOnce sync.Once
	jsonDoc []byte
	jsonErr  error
}

// NewOpenAPIHandler creates a handler for the given YAML document. The
// document is converted once, on the first request.
func NewOpenAPIHandler(yamlDoc []byte) *OpenAPIHandler {
	return &OpenAPIHandler{rawYAML: yamlDoc}
}

func (h *OpenAPIHandler) document() ([]byte, error) {
	h.jsonOnce.Do(func() {
		h.jsonDoc, h.jsonErr = yaml.YAMLToJSON(h.rawYAML)
	})
	return h.jsonDoc, h.jsonErr
}

// ServeHTTP handles GET /openapi.json.
func (h *OpenAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	doc, err := h.document()
	if err != nil {
		slog.Error("openapi document is not valid YAML", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "API description unavailable", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		slog.Error("writing openapi document", "error", err)
	}
}
