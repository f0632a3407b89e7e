package httpapi

import (
	"net/http"
	"testing"

	"citygrid/core-go/internal/device"
)

func TestMap_GetState(t *testing.T) {
	e := newTestEnv(t)
	seedStreetlights(e)

	rr := e.do(t, http.MethodGet, "/api/v1/map", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	markers := body["markers"].([]any)
	if len(markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(markers))
	}
	if body["show_coverage"] != true {
		t.Fatalf("expected coverage overlay on by default")
	}
}

func TestMap_SetFilters_HidesCategory(t *testing.T) {
	e := newTestEnv(t)
	seedStreetlights(e)
	e.store.ReplaceRows(device.CategoryWifi, []device.RawRow{
		{"WIFI_ID": "WF-1", "LAT": "13.73", "LNG": "100.51", "RANGE": "150"},
	})

	rr := e.do(t, http.MethodPut, "/api/v1/map/filters", `{"categories":{"streetlight":false}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	markers := body["markers"].([]any)
	if len(markers) != 1 {
		t.Fatalf("expected only the wifi marker, got %d markers", len(markers))
	}
	mk := markers[0].(map[string]any)
	if mk["device_id"] != "WF-1" {
		t.Fatalf("expected WF-1 to stay visible, got %v", mk["device_id"])
	}
}

func TestMap_SetFilters_UnknownCategory(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPut, "/api/v1/map/filters", `{"categories":{"submarine":true}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestMap_SetFilters_RejectedRequestLeavesStateUntouched(t *testing.T) {
	e := newTestEnv(t)
	seedStreetlights(e)

	rr := e.do(t, http.MethodPut, "/api/v1/map/filters", `{"categories":{"streetlight":false,"submarine":true},"show_coverage":false}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}

	snap := e.view.Snapshot()
	if !snap.Filters[device.CategoryStreetlight] {
		t.Fatalf("rejected request must not toggle streetlight off")
	}
	if !snap.ShowCoverage {
		t.Fatalf("rejected request must not touch the coverage flag")
	}
	if len(snap.Markers) != 2 {
		t.Fatalf("expected both markers still visible, got %d", len(snap.Markers))
	}
}

func TestMap_SetFilters_CoverageToggle(t *testing.T) {
	e := newTestEnv(t)
	e.store.ReplaceRows(device.CategoryWifi, []device.RawRow{
		{"WIFI_ID": "WF-1", "LAT": "13.73", "LNG": "100.51", "RANGE": "150"},
	})

	rr := e.do(t, http.MethodPut, "/api/v1/map/filters", `{"show_coverage":false}`)
	body := decodeBody(t, rr)
	if body["show_coverage"] != false {
		t.Fatalf("expected coverage off, got %v", body["show_coverage"])
	}
	if circles, ok := body["circles"].([]any); ok && len(circles) != 0 {
		t.Fatalf("expected no circles with coverage off, got %d", len(circles))
	}
}

func TestMap_Click_RequiresAddMode(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/api/v1/map/clicks", `{"lat":13.7,"lng":100.5}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 while add-mode inactive, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestMap_AddModeFlow(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPut, "/api/v1/map/addmode", `{"active":true,"category":"hydrant"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 entering add-mode, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = e.do(t, http.MethodPost, "/api/v1/map/clicks", `{"lat":13.70,"lng":100.52}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for click, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	tm := body["temp_marker"].(map[string]any)
	if tm["lat"].(float64) != 13.70 {
		t.Fatalf("expected temp marker at clicked point, got %v", tm)
	}

	// Leaving add-mode discards the temporary marker.
	rr = e.do(t, http.MethodPut, "/api/v1/map/addmode", `{"active":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 leaving add-mode, got %d", rr.Code)
	}
	rr = e.do(t, http.MethodGet, "/api/v1/map", "")
	state := decodeBody(t, rr)
	if _, present := state["temp_marker"]; present {
		t.Fatalf("expected temp marker cleared after leaving add-mode")
	}
}

func TestMap_AddMode_UnknownCategory(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPut, "/api/v1/map/addmode", `{"active":true,"category":"submarine"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}
