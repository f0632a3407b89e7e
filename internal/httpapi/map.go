package httpapi

import (
	"errors"
	"net/http"

	"citygrid/core-go/internal/device"
	"citygrid/core-go/internal/mapview"
)

func (h *Handler) handleGetMapState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.view.Snapshot())
}

type setFiltersRequest struct {
	Categories   map[string]bool `json:"categories"`
	ShowCoverage *bool           `json:"show_coverage"`
}

// handleSetFilters toggles per-category visibility and the coverage overlay.
// Omitted categories keep their current setting.
func (h *Handler) handleSetFilters(w http.ResponseWriter, r *http.Request) {
	var req setFiltersRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return
	}

	// Validate the whole payload before touching the view, so a rejected
	// request never leaves a half-applied filter state behind.
	toggles := make(map[device.Category]bool, len(req.Categories))
	for raw, enabled := range req.Categories {
		cat := device.NormalizeCategory(raw)
		if !device.IsValidCategory(cat) {
			h.writeError(w, http.StatusBadRequest, "invalid_category", "unknown category", map[string]any{"category": raw})
			return
		}
		toggles[cat] = enabled
	}

	for cat, enabled := range toggles {
		h.view.SetFilter(cat, enabled)
	}
	if req.ShowCoverage != nil {
		h.view.SetShowCoverage(*req.ShowCoverage)
	}

	h.writeJSON(w, http.StatusOK, h.view.Snapshot())
}

type setAddModeRequest struct {
	Active   bool            `json:"active"`
	Category device.Category `json:"category"`
}

// handleSetAddMode enters or leaves click-to-place mode. While active, map
// clicks post to /map/clicks and place a temporary marker at the clicked
// point; leaving the mode discards it.
func (h *Handler) handleSetAddMode(w http.ResponseWriter, r *http.Request) {
	var req setAddModeRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return
	}

	if !req.Active {
		h.view.SetAddMode(false, nil)
		h.writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}

	if !device.IsValidCategory(req.Category) {
		h.writeError(w, http.StatusBadRequest, "invalid_category", "unknown category", map[string]any{"category": string(req.Category)})
		return
	}
	cat := req.Category
	h.view.SetAddMode(true, func(lat, lng float64) {
		h.log.Debug().
			Str("category", string(cat)).
			Float64("lat", lat).
			Float64("lng", lng).
			Msg("placement point selected")
	})
	h.writeJSON(w, http.StatusOK, map[string]any{"active": true, "category": cat})
}

type mapClickRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *Handler) handleMapClick(w http.ResponseWriter, r *http.Request) {
	var req mapClickRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return
	}

	pos, err := h.view.Click(req.Lat, req.Lng)
	switch {
	case errors.Is(err, mapview.ErrAddModeInactive):
		h.writeError(w, http.StatusConflict, "addmode_inactive", "add-mode is not active", nil)
		return
	case errors.Is(err, mapview.ErrTornDown):
		h.writeError(w, http.StatusConflict, "map_torn_down", "map has been torn down", nil)
		return
	case err != nil:
		h.writeError(w, http.StatusBadRequest, "invalid_click", err.Error(), nil)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"temp_marker": pos})
}
