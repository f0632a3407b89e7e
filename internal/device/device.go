package device

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// RawRow is one header-keyed record from a published sheet. Rows are
// consumed immediately by Normalize and never persisted.
type RawRow map[string]string

// Device is the unified, validated representation of one municipal asset.
// Every Device holds finite coordinates; rows that cannot produce them are
// dropped during normalization.
type Device struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Category        Category `json:"category"`
	Lat             float64  `json:"lat"`
	Lng             float64  `json:"lng"`
	Status          Status   `json:"status"`
	Organization    string   `json:"organization"`
	Note            string   `json:"note,omitempty"`
	CoverageRadiusM float64  `json:"coverage_radius_m,omitempty"`
	UserAdded       bool     `json:"user_added,omitempty"`
}

// NewDeviceRequest is the creation hand-off from the add-position form.
type NewDeviceRequest struct {
	Category    Category `json:"category"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
}

func (r NewDeviceRequest) Validate() error {
	if !IsValidCategory(r.Category) {
		return fmt.Errorf("unknown category %q", string(r.Category))
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if r.Status != "" && !IsValidStatus(r.Status) {
		return fmt.Errorf("unknown status %q", string(r.Status))
	}
	if !isFinite(r.Lat) || !isFinite(r.Lng) {
		return fmt.Errorf("coordinates must be finite")
	}
	return nil
}

var userDeviceSeq atomic.Uint64

// NewUserDevice builds a device from the creation hand-off. The id is
// timestamp-based with a sequence suffix so adds within the same
// millisecond stay unique. User devices live only in memory.
func NewUserDevice(req NewDeviceRequest) (Device, error) {
	if err := req.Validate(); err != nil {
		return Device{}, err
	}

	status := req.Status
	if status == "" {
		status = StatusNormal
	}

	id := fmt.Sprintf("user-%d-%d", time.Now().UnixMilli(), userDeviceSeq.Add(1))
	return Device{
		ID:           id,
		Name:         strings.TrimSpace(req.Name),
		Category:     req.Category,
		Lat:          req.Lat,
		Lng:          req.Lng,
		Status:       status,
		Organization: DefaultOrganization,
		Note:         strings.TrimSpace(req.Description),
		UserAdded:    true,
	}, nil
}
