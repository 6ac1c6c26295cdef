package handler

import (
	"context"
	"net/http"

	"github.com/daap14/teamup/internal/api/middleware"
	"github.com/daap14/teamup/internal/api/response"
)

// Pinger checks connectivity to a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	db      Pinger
	broker  Pinger
	version string
}

// NewHealthHandler creates a new HealthHandler. broker may be nil when
// notifications are only logged.
func NewHealthHandler(db, broker Pinger, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		broker:  broker,
		version: version,
	}
}

type dependencyStatus struct {
	Connected bool `json:"connected"`
}

type healthData struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Database dependencyStatus  `json:"database"`
	Broker   *dependencyStatus `json:"broker,omitempty"`
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	data := healthData{
		Status:   "healthy",
		Version:  h.version,
		Database: dependencyStatus{Connected: h.db.Ping(r.Context()) == nil},
	}
	if !data.Database.Connected {
		data.Status = "degraded"
	}

	if h.broker != nil {
		data.Broker = &dependencyStatus{Connected: h.broker.Ping(r.Context()) == nil}
		if !data.Broker.Connected {
			data.Status = "degraded"
		}
	}

	response.Success(w, http.StatusOK, data, requestID)
}
