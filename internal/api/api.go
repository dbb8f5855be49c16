// Package api exposes sensor state over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/thurmanmarka/suntrack/internal/oracle"
	"github.com/thurmanmarka/suntrack/internal/service"
	"github.com/thurmanmarka/suntrack/internal/telemetry"
)

// Sensors is the part of the service the API reads and updates.
type Sensors interface {
	Sensors() []service.Snapshot
	Sensor(id string) (service.Snapshot, bool)
	Locations() []service.Location
	SetLocation(name string, p oracle.Params) error
}

// API holds the HTTP handlers.
type API struct {
	svc    Sensors
	logger zerolog.Logger
}

// New creates the API.
func New(svc Sensors, logger zerolog.Logger) *API {
	return &API{svc: svc, logger: logger}
}

// Router builds the full HTTP handler, metrics included.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(telemetry.MetricsMiddleware)

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", telemetry.Handler())
	a.Routes(r)
	return r
}

// Routes registers the versioned API.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", a.handleSensorsList)
			r.Get("/{sensorID}", a.handleSensorsGet)
		})
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", a.handleLocationsList)
			r.Put("/{name}", a.handleLocationsUpdate)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

func (a *API) handleSensorsList(w http.ResponseWriter, r *http.Request) {
	sensors := a.svc.Sensors()
	if loc := r.URL.Query().Get("location"); loc != "" {
		filtered := sensors[:0:0]
		for _, s := range sensors {
			if s.Location == loc {
				filtered = append(filtered, s)
			}
		}
		sensors = filtered
	}
	writeJSON(w, http.StatusOK, sensors)
}

func (a *API) handleSensorsGet(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.svc.Sensor(chi.URLParam(r, "sensorID"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) handleLocationsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Locations())
}

func (a *API) handleLocationsUpdate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	found := false
	for _, l := range a.svc.Locations() {
		found = found || l.Name == name
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	var p oracle.Params
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := p.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid_params", "detail": err.Error()})
		return
	}
	if err := a.svc.SetLocation(name, p); err != nil {
		a.logger.Error().Err(err).Str("location", name).Msg("update location failed")
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}
	writeJSON(w, http.StatusOK, service.Location{Name: name, Params: p})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
