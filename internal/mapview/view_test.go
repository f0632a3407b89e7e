package mapview

import (
	"math"
	"testing"

	"citygrid/core-go/internal/device"
)

func testConfig() Config {
	return Config{
		Center:          Coordinate{Lat: 13.7367, Lng: 100.5332},
		Zoom:            13,
		FocusZoom:       14,
		TileURL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		TileAttribution: "© OpenStreetMap contributors",
		ShowCoverage:    true,
	}
}

func dev(id string, cat device.Category, lat, lng float64) device.Device {
	return device.Device{
		ID:           id,
		Name:         id,
		Category:     cat,
		Lat:          lat,
		Lng:          lng,
		Status:       device.StatusNormal,
		Organization: device.DefaultOrganization,
	}
}

func TestRecenter_CentroidOfVisibleDevices(t *testing.T) {
	v := New(testConfig(), nil)
	v.SetDevices([]device.Device{
		dev("SL-1", device.CategoryStreetlight, 10, 20),
		dev("SL-2", device.CategoryStreetlight, 20, 30),
	})

	snap := v.Snapshot()
	if snap.Center.Lat != 15 || snap.Center.Lng != 25 {
		t.Fatalf("expected centroid (15,25), got %+v", snap.Center)
	}
	if snap.Zoom != 14 {
		t.Fatalf("expected focus zoom after recenter, got %d", snap.Zoom)
	}
}

func TestEmptySet_ViewportUnchanged(t *testing.T) {
	v := New(testConfig(), nil)
	v.SetDevices(nil)

	snap := v.Snapshot()
	if snap.Center.Lat != 13.7367 || snap.Center.Lng != 100.5332 {
		t.Fatalf("expected fallback center, got %+v", snap.Center)
	}
	if snap.Zoom != 13 {
		t.Fatalf("expected fallback zoom, got %d", snap.Zoom)
	}
}

func TestCoverageRings_ThreeConcentricCircles(t *testing.T) {
	v := New(testConfig(), nil)
	d := dev("WIFI-1", device.CategoryWifi, 13.7, 100.5)
	d.Status = device.StatusDamaged
	d.CoverageRadiusM = 300
	v.SetDevices([]device.Device{d})

	snap := v.Snapshot()
	if len(snap.Circles) != 3 {
		t.Fatalf("expected 3 rings, got %d", len(snap.Circles))
	}
	wantRadii := []float64{300, 198, 99}
	wantOpacity := []float64{0.10, 0.14, 0.22}
	for i, c := range snap.Circles {
		if math.Abs(c.RadiusM-wantRadii[i]) > 1e-9 {
			t.Fatalf("ring %d: expected radius %v, got %v", i, wantRadii[i], c.RadiusM)
		}
		if c.FillOpacity != wantOpacity[i] {
			t.Fatalf("ring %d: expected opacity %v, got %v", i, wantOpacity[i], c.FillOpacity)
		}
		if c.FillColor != device.StatusColor(device.StatusDamaged) {
			t.Fatalf("ring %d: expected status color, got %q", i, c.FillColor)
		}
	}
}

func TestCoverage_SkippedWhenDisabledOrZeroRadius(t *testing.T) {
	v := New(testConfig(), nil)
	noRange := dev("SL-1", device.CategoryStreetlight, 13.7, 100.5)
	v.SetDevices([]device.Device{noRange})
	if snap := v.Snapshot(); len(snap.Circles) != 0 {
		t.Fatalf("expected no rings for zero radius, got %d", len(snap.Circles))
	}

	withRange := dev("WIFI-1", device.CategoryWifi, 13.7, 100.5)
	withRange.CoverageRadiusM = 100
	v.SetDevices([]device.Device{withRange})
	v.SetShowCoverage(false)
	if snap := v.Snapshot(); len(snap.Circles) != 0 {
		t.Fatalf("expected no rings with coverage disabled, got %d", len(snap.Circles))
	}
}

func TestSetFilter_RemovesOnlyThatCategory(t *testing.T) {
	v := New(testConfig(), nil)
	wifi := dev("WIFI-1", device.CategoryWifi, 13.7, 100.5)
	wifi.CoverageRadiusM = 100
	hyd := dev("HYD-1", device.CategoryHydrant, 13.0, 100.0)
	hyd.CoverageRadiusM = 50
	v.SetDevices([]device.Device{wifi, hyd})

	v.SetFilter(device.CategoryWifi, false)
	snap := v.Snapshot()
	if len(snap.Markers) != 1 || snap.Markers[0].DeviceID != "HYD-1" {
		t.Fatalf("expected only hydrant marker, got %+v", snap.Markers)
	}
	for _, c := range snap.Circles {
		if c.DeviceID != "HYD-1" {
			t.Fatalf("expected only hydrant rings, got %+v", c)
		}
	}

	v.SetFilter(device.CategoryWifi, true)
	if snap := v.Snapshot(); len(snap.Markers) != 2 {
		t.Fatalf("expected both markers back, got %d", len(snap.Markers))
	}
}

func TestRebuild_SkippedOnIdenticalVisibleSet(t *testing.T) {
	v := New(testConfig(), nil)
	devices := []device.Device{dev("SL-1", device.CategoryStreetlight, 13.1, 100.1)}
	v.SetDevices(devices)
	if v.rebuilds != 1 {
		t.Fatalf("expected initial build, got %d rebuilds", v.rebuilds)
	}

	// Toggling an absent category does not change the visible set.
	v.SetFilter(device.CategoryBusStop, false)
	v.SetDevices(devices)
	if v.rebuilds != 1 {
		t.Fatalf("expected identical input to skip the rebuild, got %d rebuilds", v.rebuilds)
	}
}

func TestMarkerPopupPayload(t *testing.T) {
	v := New(testConfig(), nil)
	d := dev("HYD-3", device.CategoryHydrant, 13.7308, 100.5316)
	d.Name = "หัวดับเพลิงถนนสีลม"
	d.Status = device.StatusDamaged
	d.Note = "ชำรุด ต้องเปลี่ยนวาล์ว"
	v.SetDevices([]device.Device{d})

	snap := v.Snapshot()
	if len(snap.Markers) != 1 {
		t.Fatalf("expected one marker, got %d", len(snap.Markers))
	}
	p := snap.Markers[0].Popup
	if p.DeviceID != "HYD-3" || p.Name != "หัวดับเพลิงถนนสีลม" {
		t.Fatalf("unexpected popup identity: %+v", p)
	}
	if p.Coordinates != "13.730800, 100.531600" {
		t.Fatalf("unexpected popup coordinates: %q", p.Coordinates)
	}
	if p.Status != "damaged" || p.Note == "" {
		t.Fatalf("unexpected popup detail: %+v", p)
	}
	if snap.Markers[0].Color != device.StatusColor(device.StatusDamaged) {
		t.Fatalf("expected status color marker, got %q", snap.Markers[0].Color)
	}
}

func TestAddMode_StateMachine(t *testing.T) {
	v := New(testConfig(), nil)

	if _, err := v.Click(13.7, 100.5); err == nil {
		t.Fatalf("expected click rejected while inactive")
	}

	var captured []Coordinate
	v.SetAddMode(true, func(lat, lng float64) {
		captured = append(captured, Coordinate{Lat: lat, Lng: lng})
	})

	if _, err := v.Click(13.1, 100.1); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if _, err := v.Click(13.2, 100.2); err != nil {
		t.Fatalf("Click: %v", err)
	}

	snap := v.Snapshot()
	if snap.TempMarker == nil || snap.TempMarker.Lat != 13.2 {
		t.Fatalf("expected temp marker replaced by second click, got %+v", snap.TempMarker)
	}
	if len(captured) != 2 {
		t.Fatalf("expected callback per click, got %d", len(captured))
	}

	v.SetAddMode(false, nil)
	snap = v.Snapshot()
	if snap.AddMode || snap.TempMarker != nil {
		t.Fatalf("expected add-mode exit to clear temp marker, got %+v", snap)
	}
	if _, err := v.Click(13.3, 100.3); err == nil {
		t.Fatalf("expected click rejected after exit")
	}
}

func TestTeardown_IgnoresFurtherMutations(t *testing.T) {
	v := New(testConfig(), nil)
	v.SetDevices([]device.Device{dev("SL-1", device.CategoryStreetlight, 13.1, 100.1)})
	v.Teardown()

	if snap := v.Snapshot(); len(snap.Markers) != 0 {
		t.Fatalf("expected layers released, got %+v", snap.Markers)
	}
	v.SetDevices([]device.Device{dev("SL-2", device.CategoryStreetlight, 13.2, 100.2)})
	if snap := v.Snapshot(); len(snap.Markers) != 0 {
		t.Fatalf("expected mutations ignored after teardown")
	}
	if _, err := v.Click(13.1, 100.1); err == nil {
		t.Fatalf("expected click rejected after teardown")
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	v := New(testConfig(), nil)
	v.SetDevices([]device.Device{dev("SL-1", device.CategoryStreetlight, 13.1, 100.1)})

	snap := v.Snapshot()
	snap.Markers[0].DeviceID = "mutated"
	snap.Filters[device.CategoryWifi] = false

	fresh := v.Snapshot()
	if fresh.Markers[0].DeviceID != "SL-1" {
		t.Fatalf("expected snapshot mutation not to leak into the view")
	}
	if !fresh.Filters[device.CategoryWifi] {
		t.Fatalf("expected filter map copied")
	}
}
