package device

import "strings"

type Status string

const (
	StatusNormal    Status = "normal"
	StatusDamaged   Status = "damaged"
	StatusRepairing Status = "repairing"
)

var statusColors = map[Status]string{
	StatusNormal:    "#10b981",
	StatusDamaged:   "#ef4444",
	StatusRepairing: "#f59e0b",
}

var statusLabels = map[Status]string{
	StatusNormal:    "✓ ปกติ",
	StatusDamaged:   "⚠️ ชำรุด",
	StatusRepairing: "🔧 กำลังซ่อม",
}

// statusPhrases is the ordered substring table for free-text status values
// from the sheets (Thai phrases). First match wins.
var statusPhrases = []struct {
	phrase string
	status Status
}{
	{"ปกติ", StatusNormal},
	{"ชำรุด", StatusDamaged},
	{"กำลังซ่อม", StatusRepairing},
	{"ซ่อม", StatusRepairing},
}

// ParseStatus maps free-text status to the enum. Empty or unrecognized
// text is reported as normal; sheet data quality is not under our control.
func ParseStatus(raw string) Status {
	s := strings.TrimSpace(raw)
	if s == "" {
		return StatusNormal
	}
	for _, p := range statusPhrases {
		if strings.Contains(s, p.phrase) {
			return p.status
		}
	}
	return StatusNormal
}

func StatusColor(s Status) string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return statusColors[StatusNormal]
}

func StatusLabel(s Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return statusLabels[StatusNormal]
}

func IsValidStatus(s Status) bool {
	_, ok := statusColors[s]
	return ok
}
