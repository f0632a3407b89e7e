package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"citygrid/core-go/internal/device"
	"citygrid/core-go/internal/inventory"
)

// handleListDevices returns the normalized device list, optionally narrowed
// by category and status query parameters.
func (h *Handler) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices := h.store.Devices()

	if raw := r.URL.Query().Get("category"); raw != "" {
		cat := device.NormalizeCategory(raw)
		if !device.IsValidCategory(cat) {
			h.writeError(w, http.StatusBadRequest, "invalid_category", "unknown category", map[string]any{"category": raw})
			return
		}
		devices = filterDevices(devices, func(d device.Device) bool { return d.Category == cat })
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := device.Status(raw)
		if !device.IsValidStatus(st) {
			h.writeError(w, http.StatusBadRequest, "invalid_status", "unknown status", map[string]any{"status": raw})
			return
		}
		devices = filterDevices(devices, func(d device.Device) bool { return d.Status == st })
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

func filterDevices(in []device.Device, keep func(device.Device) bool) []device.Device {
	out := make([]device.Device, 0, len(in))
	for _, d := range in {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func (h *Handler) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "device not found", map[string]any{"id": id})
			return
		}
		h.log.Error().Err(err).Str("id", id).Msg("get device")
		h.writeError(w, http.StatusInternalServerError, "internal", "failed to look up device", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

// handleDeleteDevice removes a user-added device. Sheet-fed devices cannot
// be deleted; the sheet is the source of truth and the next refresh would
// bring them back anyway.
func (h *Handler) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "device not found", map[string]any{"id": id})
			return
		}
		h.log.Error().Err(err).Str("id", id).Msg("delete lookup")
		h.writeError(w, http.StatusInternalServerError, "internal", "failed to look up device", nil)
		return
	}
	if !d.UserAdded {
		h.writeError(w, http.StatusConflict, "not_user_added", "only user-added devices can be removed", map[string]any{"id": id})
		return
	}

	if !h.store.RemoveUserDevice(id) {
		h.writeError(w, http.StatusNotFound, "not_found", "device not found", map[string]any{"id": id})
		return
	}
	h.log.Info().Str("id", id).Msg("user device removed")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req device.NewDeviceRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, "invalid_device", err.Error(), nil)
		return
	}

	d, err := h.store.AddUserDevice(req)
	if err != nil {
		h.log.Error().Err(err).Msg("add user device")
		h.writeError(w, http.StatusInternalServerError, "internal", "failed to add device", nil)
		return
	}

	h.log.Info().Str("id", d.ID).Str("category", string(d.Category)).Msg("user device added")
	h.writeJSON(w, http.StatusCreated, d)
}
