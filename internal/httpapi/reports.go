package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"citygrid/core-go/internal/inventory"
)

type createReportRequest struct {
	DeviceID string `json:"device_id"`
	Message  string `json:"message"`
}

// handleCreateReport files an issue report against a device. The report is
// pre-filled from the device's current inventory record so the submitter
// only supplies the device id and an optional free-text message.
func (h *Handler) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		h.writeError(w, http.StatusUnprocessableEntity, "invalid_report", "device_id is required", nil)
		return
	}

	d, err := h.store.Get(req.DeviceID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "device not found", map[string]any{"id": req.DeviceID})
			return
		}
		h.log.Error().Err(err).Str("id", req.DeviceID).Msg("report lookup")
		h.writeError(w, http.StatusInternalServerError, "internal", "failed to look up device", nil)
		return
	}

	location := strconv.FormatFloat(d.Lat, 'f', 6, 64) + ", " + strconv.FormatFloat(d.Lng, 'f', 6, 64)
	ref := h.reporter.Submit(d.ID, d.Name, location, d.Status, req.Message)

	h.log.Info().
		Str("reference", ref).
		Str("device_id", d.ID).
		Str("status", string(d.Status)).
		Msg("issue report filed")
	h.writeJSON(w, http.StatusCreated, map[string]any{"reference": ref})
}

func (h *Handler) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	reports := h.reporter.Recent(limit)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"reports": reports,
		"count":   len(reports),
	})
}
