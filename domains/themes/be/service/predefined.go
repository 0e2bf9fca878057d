package service

// Predefined theme keys.
const (
	KeyDefault  = "default"
	KeyPenarol  = "penarol"
	KeyNacional = "nacional"
)

// Classes are the structural style attributes the UI applies per surface.
type Classes struct {
	Background string `json:"background"`
	Text       string `json:"text"`
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Border     string `json:"border"`
	Card       string `json:"card"`
}

// PredefinedTheme is a built-in theme. Both representations are kept so predefined and
// custom themes resolve to the same Snapshot shape.
type PredefinedTheme struct {
	Key      string
	ClubName string
	LogoURL  string
	Colors   Palette
	Classes  Classes
}

var predefined = []PredefinedTheme{
	{
		Key:      KeyDefault,
		ClubName: "Sports System",
		Colors: Palette{
			Primary: "#16a34a", Secondary: "#1f2937", Background: "#ffffff",
			Text: "#111827", Accent: "#4b5563", Border: "#d1d5db",
		},
		Classes: Classes{
			Background: "bg-white",
			Text:       "text-gray-900",
			Primary:    "bg-green-600 hover:bg-green-700",
			Secondary:  "bg-gray-800 hover:bg-gray-700",
			Accent:     "bg-gray-600 hover:bg-gray-500",
			Border:     "border-gray-300",
			Card:       "bg-gray-50",
		},
	},
	{
		Key:      KeyPenarol,
		ClubName: "Club Atlético Peñarol",
		LogoURL:  "/penarol-white-bg.png",
		Colors: Palette{
			Primary: "#eab308", Secondary: "#1f2937", Background: "#000000",
			Text: "#facc15", Accent: "#ca8a04", Border: "#facc15",
		},
		Classes: Classes{
			Background: "bg-black",
			Text:       "text-yellow-400",
			Primary:    "bg-yellow-500 hover:bg-yellow-600",
			Secondary:  "bg-gray-800 hover:bg-gray-700",
			Accent:     "bg-yellow-600 hover:bg-yellow-500",
			Border:     "border-yellow-400",
			Card:       "bg-gray-900",
		},
	},
	{
		Key:      KeyNacional,
		ClubName: "Club Nacional de Football",
		LogoURL:  "/logos/nacional.png",
		Colors: Palette{
			Primary: "#ef4444", Secondary: "#1f2937", Background: "#ffffff",
			Text: "#1e40af", Accent: "#2563eb", Border: "#93c5fd",
		},
		Classes: Classes{
			Background: "bg-white",
			Text:       "text-blue-800",
			Primary:    "bg-red-500 hover:bg-red-600",
			Secondary:  "bg-gray-800 hover:bg-gray-700",
			Accent:     "bg-blue-600 hover:bg-blue-500",
			Border:     "border-blue-300",
			Card:       "bg-blue-50",
		},
	},
}

// PredefinedThemes returns a copy of the built-in table.
func PredefinedThemes() []PredefinedTheme {
	out := make([]PredefinedTheme, len(predefined))
	copy(out, predefined)
	return out
}

// LookupPredefined finds a built-in theme by key.
func LookupPredefined(key string) (PredefinedTheme, bool) {
	for _, p := range predefined {
		if p.Key == key {
			return p, true
		}
	}
	return PredefinedTheme{}, false
}

func IsPredefined(key string) bool {
	_, ok := LookupPredefined(key)
	return ok
}
