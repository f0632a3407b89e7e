package device

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Column aliases, in resolution order. The sheets are not consistent:
// longitude appears as LNG on some tabs and LON on others.
var (
	latAliases   = []string{"LAT"}
	lngAliases   = []string{"LNG", "LON"}
	rangeAliases = []string{"RANGE", "RANGE_M"}
)

const locationField = "LOCATION"
const statusField = "STATUS"

// fieldValue finds the first alias with a non-empty value. Header lookup is
// case-insensitive; case-variant duplicate columns are resolved in sorted
// key order so the same row always yields the same value.
func fieldValue(row RawRow, aliases []string) (string, bool) {
	keys := make([]string, 0, len(row))
	for key := range row {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, alias := range aliases {
		for _, key := range keys {
			if !strings.EqualFold(strings.TrimSpace(key), alias) {
				continue
			}
			v := strings.TrimSpace(row[key])
			if v != "" {
				return v, true
			}
		}
	}
	return "", false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func parseCoordinate(raw string, ok bool) (float64, bool) {
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}

// parseCoverageRadius normalizes the optional RANGE column. Missing,
// non-numeric, non-finite, and non-positive values all mean "no coverage
// overlay", reported as 0.
func parseCoverageRadius(row RawRow) float64 {
	raw, ok := fieldValue(row, rangeAliases)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || !isFinite(f) || f <= 0 {
		return 0
	}
	return f
}

// FromRow derives one Device from a raw sheet row. ok is false when the row
// has no identifier or no usable coordinates; such rows are dropped, never
// given fabricated locations.
func FromRow(cat Category, row RawRow) (Device, bool) {
	info, valid := Info(cat)
	if !valid || info.IDField == "" {
		return Device{}, false
	}

	id, ok := fieldValue(row, []string{info.IDField})
	if !ok {
		return Device{}, false
	}

	lat, ok := parseCoordinate(fieldValue(row, latAliases))
	if !ok {
		return Device{}, false
	}
	lng, ok := parseCoordinate(fieldValue(row, lngAliases))
	if !ok {
		return Device{}, false
	}

	name, ok := fieldValue(row, []string{locationField})
	if !ok {
		name = fmt.Sprintf("%s %s", info.Label, id)
	}

	statusText, _ := fieldValue(row, []string{statusField})
	note, _ := fieldValue(row, []string{info.NoteField})

	return Device{
		ID:              id,
		Name:            name,
		Category:        cat,
		Lat:             lat,
		Lng:             lng,
		Status:          ParseStatus(statusText),
		Organization:    DefaultOrganization,
		Note:            note,
		CoverageRadiusM: parseCoverageRadius(row),
	}, true
}

// Normalize derives the unified device list from the per-category raw row
// snapshots plus user-added devices. It is pure and deterministic: output is
// grouped by category in taxonomy order, sheet rows first in source order,
// then user-added devices in insertion order.
func Normalize(rows map[Category][]RawRow, userAdded []Device) []Device {
	var out []Device
	for _, cat := range allCategories {
		for _, row := range rows[cat] {
			if d, ok := FromRow(cat, row); ok {
				out = append(out, d)
			}
		}
		for _, d := range userAdded {
			if d.Category == cat && isFinite(d.Lat) && isFinite(d.Lng) {
				out = append(out, d)
			}
		}
	}
	return out
}
