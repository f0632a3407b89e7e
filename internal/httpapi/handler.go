package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"citygrid/core-go/internal/device"
	"citygrid/core-go/internal/ingestworker"
	"citygrid/core-go/internal/mapview"
	"citygrid/core-go/internal/metrics"
	"citygrid/core-go/internal/reporting"
)

// Inventory is the minimal device-store surface the handlers need.
type Inventory interface {
	Devices() []device.Device
	Get(id string) (device.Device, error)
	AddUserDevice(req device.NewDeviceRequest) (device.Device, error)
	RemoveUserDevice(id string) bool
}

// Ingest reports refresh state and accepts manual refresh requests.
type Ingest interface {
	Loading() bool
	Ready() bool
	LastCycle() ingestworker.CycleStats
	RefreshNow()
}

// Reporter receives the report-issue hand-off from marker interactions.
type Reporter interface {
	Submit(deviceID, deviceName, location string, status device.Status, message string) (reference string)
	Recent(limit int) []reporting.Ticket
}

type Handler struct {
	log      zerolog.Logger
	store    Inventory
	view     *mapview.View
	ingest   Ingest
	reporter Reporter
	metrics  *metrics.Metrics
}

func NewHandler(log zerolog.Logger, store Inventory, view *mapview.View, ingest Ingest, reporter Reporter, m *metrics.Metrics) *Handler {
	return &Handler{
		log:      log,
		store:    store,
		view:     view,
		ingest:   ingest,
		reporter: reporter,
		metrics:  m,
	}
}

func (h *Handler) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", h.handleListDevices)
				r.Post("/", h.handleCreateDevice)
				r.Get("/{id}", h.handleGetDevice)
				r.Delete("/{id}", h.handleDeleteDevice)
			})

			r.Route("/map", func(r chi.Router) {
				r.Get("/", h.handleGetMapState)
				r.Put("/filters", h.handleSetFilters)
				r.Put("/addmode", h.handleSetAddMode)
				r.Post("/clicks", h.handleMapClick)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", h.handleListReports)
				r.Post("/", h.handleCreateReport)
			})

			r.Route("/ingest", func(r chi.Router) {
				r.Post("/refresh", h.handleIngestRefresh)
				r.Get("/status", h.handleIngestStatus)
			})
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		h.metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.Status(), duration)
		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleReadyZ reports ready once the first ingest cycle has settled,
// success or failure. Partial sheet data still counts as ready; the system
// degrades to stale or partial data rather than stopping.
func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	if h.ingest == nil || !h.ingest.Ready() {
		h.writeError(w, http.StatusServiceUnavailable, "not_ready", "first ingest cycle has not settled", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}
