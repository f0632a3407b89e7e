// Package mapview owns the map state: viewport, tile layer, the two overlay
// layers (coverage circles and device markers), category visibility, and the
// click-to-place add-mode. The browser renders this state; the package keeps
// it consistent with the device inventory.
package mapview

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"citygrid/core-go/internal/device"
	"citygrid/core-go/internal/metrics"
)

// ErrAddModeInactive is returned by Click when add-mode is not active.
var ErrAddModeInactive = errors.New("add-mode not active")

// ErrTornDown is returned by Click after Teardown.
var ErrTornDown = errors.New("map torn down")

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type TileLayer struct {
	URLTemplate string `json:"url_template"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"max_zoom"`
}

// Circle is one non-interactive filled ring of a coverage overlay.
type Circle struct {
	DeviceID    string     `json:"device_id"`
	Center      Coordinate `json:"center"`
	RadiusM     float64    `json:"radius_m"`
	FillColor   string     `json:"fill_color"`
	FillOpacity float64    `json:"fill_opacity"`
}

// Marker is one interactive device marker with its popup payload.
type Marker struct {
	DeviceID string     `json:"device_id"`
	Position Coordinate `json:"position"`
	Color    string     `json:"color"`
	Icon     string     `json:"icon"`
	Popup    Popup      `json:"popup"`
}

type Popup struct {
	DeviceID     string `json:"device_id"`
	Name         string `json:"name"`
	Coordinates  string `json:"coordinates"`
	Status       string `json:"status"`
	StatusLabel  string `json:"status_label"`
	Organization string `json:"organization"`
	Note         string `json:"note,omitempty"`
}

type LegendEntry struct {
	Category device.Category `json:"category"`
	Label    string          `json:"label"`
	Icon     string          `json:"icon"`
	Color    string          `json:"color"`
	Count    int             `json:"count"`
	Enabled  bool            `json:"enabled"`
}

// Snapshot is the immutable view model served to clients.
type Snapshot struct {
	Center       Coordinate               `json:"center"`
	Zoom         int                      `json:"zoom"`
	Tiles        TileLayer                `json:"tiles"`
	Circles      []Circle                 `json:"circles"`
	Markers      []Marker                 `json:"markers"`
	Legend       []LegendEntry            `json:"legend"`
	Filters      map[device.Category]bool `json:"filters"`
	ShowCoverage bool                     `json:"show_coverage"`
	AddMode      bool                     `json:"add_mode"`
	TempMarker   *Coordinate              `json:"temp_marker,omitempty"`
}

type Config struct {
	Center          Coordinate
	Zoom            int
	FocusZoom       int
	TileURL         string
	TileAttribution string
	TileMaxZoom     int
	ShowCoverage    bool
}

// Coverage ring fractions and opacities, densest toward the center. The map
// widget has no radial-gradient fill, so three stacked circles approximate
// the falloff.
var coverageRings = []struct {
	fraction float64
	opacity  float64
}{
	{1.00, 0.10},
	{0.66, 0.14},
	{0.33, 0.22},
}

type View struct {
	mu sync.Mutex

	cfg     Config
	devices []device.Device
	filters map[device.Category]bool

	showCoverage bool
	addMode      bool
	tempMarker   *Coordinate
	onPlace      func(lat, lng float64)

	center  Coordinate
	zoom    int
	circles []Circle
	markers []Marker

	lastVisible      []device.Device
	lastShowCoverage bool
	built            bool
	rebuilds         int
	torn             bool

	metrics *metrics.Metrics
}

// New creates the view centered on the configured fallback location. All
// categories start visible.
func New(cfg Config, m *metrics.Metrics) *View {
	if cfg.Zoom <= 0 {
		cfg.Zoom = 13
	}
	if cfg.FocusZoom <= 0 {
		cfg.FocusZoom = 14
	}
	if cfg.TileMaxZoom <= 0 {
		cfg.TileMaxZoom = 19
	}

	filters := make(map[device.Category]bool)
	for _, cat := range device.AllCategories() {
		filters[cat] = true
	}

	return &View{
		cfg:          cfg,
		filters:      filters,
		showCoverage: cfg.ShowCoverage,
		center:       cfg.Center,
		zoom:         cfg.Zoom,
		metrics:      m,
	}
}

// SetDevices replaces the device set and rebuilds both layers.
func (v *View) SetDevices(devices []device.Device) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.torn {
		return
	}
	v.devices = slices.Clone(devices)
	v.rebuildLocked()
}

// SetFilter toggles one category's visibility.
func (v *View) SetFilter(cat device.Category, enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.torn {
		return
	}
	v.filters[cat] = enabled
	v.rebuildLocked()
}

// SetShowCoverage toggles the coverage overlay layer.
func (v *View) SetShowCoverage(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.torn {
		return
	}
	v.showCoverage = on
	v.rebuildLocked()
}

// SetAddMode enters or leaves add-mode. onPlace receives each captured
// click while the mode stays active; leaving clears the temp marker and
// detaches the handler.
func (v *View) SetAddMode(active bool, onPlace func(lat, lng float64)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.torn {
		return
	}
	v.addMode = active
	if active {
		v.onPlace = onPlace
	} else {
		v.onPlace = nil
		v.tempMarker = nil
	}
}

func (v *View) AddModeActive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.addMode
}

// Click handles a viewport click. While add-mode is active it replaces the
// temp marker (never accumulates) and fires the place handler; otherwise it
// reports an error.
func (v *View) Click(lat, lng float64) (Coordinate, error) {
	v.mu.Lock()
	if v.torn {
		v.mu.Unlock()
		return Coordinate{}, ErrTornDown
	}
	if !v.addMode {
		v.mu.Unlock()
		return Coordinate{}, ErrAddModeInactive
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		v.mu.Unlock()
		return Coordinate{}, fmt.Errorf("coordinates must be finite")
	}

	pos := Coordinate{Lat: lat, Lng: lng}
	v.tempMarker = &pos
	handler := v.onPlace
	v.mu.Unlock()

	if handler != nil {
		handler(lat, lng)
	}
	return pos, nil
}

// Teardown releases the layers and handlers. The view ignores all further
// mutations.
func (v *View) Teardown() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.torn = true
	v.devices = nil
	v.circles = nil
	v.markers = nil
	v.tempMarker = nil
	v.onPlace = nil
	v.addMode = false
	v.lastVisible = nil
	v.built = false
}

// Snapshot returns a copy of the current view model. Mutating the result
// does not affect the view.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := Snapshot{
		Center:       v.center,
		Zoom:         v.zoom,
		Tiles:        TileLayer{URLTemplate: v.cfg.TileURL, Attribution: v.cfg.TileAttribution, MaxZoom: v.cfg.TileMaxZoom},
		Circles:      slices.Clone(v.circles),
		Markers:      slices.Clone(v.markers),
		Legend:       v.legendLocked(),
		Filters:      make(map[device.Category]bool, len(v.filters)),
		ShowCoverage: v.showCoverage,
		AddMode:      v.addMode,
	}
	for cat, on := range v.filters {
		snap.Filters[cat] = on
	}
	if v.tempMarker != nil {
		tm := *v.tempMarker
		snap.TempMarker = &tm
	}
	return snap
}

func (v *View) visibleLocked() []device.Device {
	var out []device.Device
	for _, d := range v.devices {
		if v.filters[d.Category] {
			out = append(out, d)
		}
	}
	return out
}

// rebuildLocked tears down and rebuilds both overlay layers from the
// visible set, then recenters the viewport. The new layers are assembled
// aside and swapped in whole, so readers never observe a partial overlay
// state. Identical visible input skips the rebuild.
func (v *View) rebuildLocked() {
	visible := v.visibleLocked()
	if v.built && v.showCoverage == v.lastShowCoverage && slices.Equal(visible, v.lastVisible) {
		return
	}

	var circles []Circle
	var markers []Marker
	for _, d := range visible {
		info, ok := device.Info(d.Category)
		if !ok {
			continue
		}

		if v.showCoverage && d.CoverageRadiusM > 0 {
			color := device.StatusColor(d.Status)
			for _, ring := range coverageRings {
				circles = append(circles, Circle{
					DeviceID:    d.ID,
					Center:      Coordinate{Lat: d.Lat, Lng: d.Lng},
					RadiusM:     d.CoverageRadiusM * ring.fraction,
					FillColor:   color,
					FillOpacity: ring.opacity,
				})
			}
		}

		markers = append(markers, Marker{
			DeviceID: d.ID,
			Position: Coordinate{Lat: d.Lat, Lng: d.Lng},
			Color:    device.StatusColor(d.Status),
			Icon:     info.Icon,
			Popup: Popup{
				DeviceID:     d.ID,
				Name:         d.Name,
				Coordinates:  fmt.Sprintf("%.6f, %.6f", d.Lat, d.Lng),
				Status:       string(d.Status),
				StatusLabel:  device.StatusLabel(d.Status),
				Organization: d.Organization,
				Note:         d.Note,
			},
		})
	}

	v.circles = circles
	v.markers = markers

	// Recenter on the centroid of the visible set; an empty set leaves the
	// viewport where it was.
	if len(visible) > 0 {
		var latSum, lngSum float64
		for _, d := range visible {
			latSum += d.Lat
			lngSum += d.Lng
		}
		v.center = Coordinate{
			Lat: latSum / float64(len(visible)),
			Lng: lngSum / float64(len(visible)),
		}
		v.zoom = v.cfg.FocusZoom
	}

	v.lastVisible = visible
	v.lastShowCoverage = v.showCoverage
	v.built = true
	v.rebuilds++
	v.metrics.IncMapRebuild()
}

// legendLocked lists the categories present in the device set with their
// counts and visibility, in taxonomy order.
func (v *View) legendLocked() []LegendEntry {
	counts := make(map[device.Category]int)
	for _, d := range v.devices {
		counts[d.Category]++
	}

	var out []LegendEntry
	for _, cat := range device.AllCategories() {
		n, present := counts[cat]
		if !present {
			continue
		}
		info, _ := device.Info(cat)
		out = append(out, LegendEntry{
			Category: cat,
			Label:    info.Label,
			Icon:     info.Icon,
			Color:    info.Color,
			Count:    n,
			Enabled:  v.filters[cat],
		})
	}
	return out
}
