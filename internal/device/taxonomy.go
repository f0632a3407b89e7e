package device

import "strings"

type Category string

const (
	CategoryStreetlight Category = "streetlight"
	CategoryWifi        Category = "wifi"
	CategoryHydrant     Category = "hydrant"
	CategoryCCTV        Category = "cctv"
	CategoryBusStop     Category = "busstop"
)

// DefaultOrganization is the owning authority stamped on every normalized
// device. The published sheets carry no organization column.
const DefaultOrganization = "กรุงเทพมหานคร"

// CategoryInfo carries the per-category presentation and source-column
// metadata. IDField/NoteField are empty for kinds with no published sheet;
// those categories exist only through user-added devices.
type CategoryInfo struct {
	Color     string
	Icon      string
	Label     string
	IDField   string
	NoteField string
}

var categoryInfos = map[Category]CategoryInfo{
	CategoryStreetlight: {
		Color:     "#f59e0b",
		Icon:      "💡",
		Label:     "ไฟส่องสว่าง",
		IDField:   "ASSET_ID",
		NoteField: "LAMP_TYPE",
	},
	CategoryWifi: {
		Color:     "#10b981",
		Icon:      "📶",
		Label:     "Wi-Fi สาธารณะ",
		IDField:   "WIFI_ID",
		NoteField: "ISP",
	},
	CategoryHydrant: {
		Color:     "#ef4444",
		Icon:      "🚒",
		Label:     "หัวดับเพลิง/ประปา",
		IDField:   "HYDRANT_ID",
		NoteField: "PRESSURE",
	},
	CategoryCCTV: {
		Color: "#3b82f6",
		Icon:  "📹",
		Label: "กล้อง CCTV",
	},
	CategoryBusStop: {
		Color: "#8b5cf6",
		Icon:  "🚌",
		Label: "ป้ายรถเมล์",
	},
}

// allCategories fixes the presentation order; Normalize emits devices
// grouped in this order.
var allCategories = []Category{
	CategoryStreetlight,
	CategoryWifi,
	CategoryHydrant,
	CategoryCCTV,
	CategoryBusStop,
}

func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func Info(c Category) (CategoryInfo, bool) {
	info, ok := categoryInfos[c]
	return info, ok
}

func NormalizeCategory(raw string) Category {
	return Category(strings.ToLower(strings.TrimSpace(raw)))
}

func IsValidCategory(c Category) bool {
	_, ok := categoryInfos[c]
	return ok
}
