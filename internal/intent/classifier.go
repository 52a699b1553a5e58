// Package intent maps a farmer's query onto a small closed set of intents and
// decides how the request is routed: full cognitive pipeline or the fast
// single-call path.
package intent

import (
	"strings"
	"unicode"
)

// Intent is one element of the closed intent set.
type Intent string

const (
	Weather    Intent = "weather"
	Crop       Intent = "crop"
	Pest       Intent = "pest"
	Irrigation Intent = "irrigation"
	Schemes    Intent = "schemes"
	Profile    Intent = "profile"
	General    Intent = "general"
)

// toolPriority orders intents for tool routing. Pest first: an active
// infestation is the most time-critical query type.
var toolPriority = []Intent{Pest, Weather, Irrigation, Crop, Schemes, Profile}

// Keyword lists carry English vocabulary plus literal Hindi terms (romanized
// and Devanagari), so common intents resolve even before translation quality
// is known.
var intentKeywords = map[Intent][]string{
	Weather: {
		"weather", "rain", "rainfall", "temperature", "forecast", "humidity",
		"monsoon", "hailstorm", "storm", "heat wave", "frost",
		"mausam", "barish", "baarish", "मौसम", "बारिश", "वर्षा", "तापमान",
	},
	Crop: {
		"crop", "sow", "sowing", "harvest", "seed", "variety", "yield",
		"fertilizer", "fertiliser", "urea", "soil", "wheat", "rice", "paddy",
		"cotton", "maize", "sugarcane", "mustard", "soybean",
		"fasal", "beej", "khad", "फसल", "बीज", "खाद", "गेहूं", "धान", "कपास",
	},
	Pest: {
		"pest", "insect", "disease", "fungus", "blight", "rust", "rot",
		"aphid", "bollworm", "whitefly", "borer", "larvae", "infestation",
		"spray", "pesticide", "insecticide", "fungicide",
		"keet", "keeda", "rog", "कीट", "कीड़ा", "रोग", "इल्ली", "दवा",
	},
	Irrigation: {
		"irrigation", "irrigate", "water", "watering", "drip", "sprinkler",
		"canal", "borewell", "tube well", "moisture",
		"sinchai", "pani", "सिंचाई", "पानी", "नहर",
	},
	Schemes: {
		"scheme", "subsidy", "loan", "insurance", "pm-kisan", "pm kisan",
		"kisan credit", "fasal bima", "government support", "compensation",
		"yojana", "योजना", "सब्सिडी", "बीमा", "क़र्ज़", "कर्ज",
	},
	Profile: {
		"my profile", "my details", "my account", "my land", "my farm record",
		"registered", "update my", "change my",
		"mera khata", "मेरा खाता", "मेरी जानकारी",
	},
}

// Classify returns the set of intents detected across the translated text and
// the original text, ordered by tool priority. A query with Indic script but
// no keyword hit defaults to {crop} — the single most common query type —
// rather than falling through with no tool hint.
func Classify(translated, original string) []Intent {
	lowerT := strings.ToLower(translated)
	lowerO := strings.ToLower(original)

	found := make(map[Intent]bool)
	for in, words := range intentKeywords {
		for _, w := range words {
			if strings.Contains(lowerT, w) || strings.Contains(lowerO, w) {
				found[in] = true
				break
			}
		}
	}

	if len(found) == 0 {
		if hasIndicScript(original) || hasIndicScript(translated) {
			return []Intent{Crop}
		}
		return []Intent{General}
	}

	out := make([]Intent, 0, len(found))
	for _, in := range toolPriority {
		if found[in] {
			out = append(out, in)
		}
	}
	return out
}

// hasIndicScript reports whether any rune belongs to a major Indic script.
func hasIndicScript(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Devanagari, unicode.Bengali, unicode.Gurmukhi,
			unicode.Gujarati, unicode.Oriya, unicode.Tamil, unicode.Telugu,
			unicode.Kannada, unicode.Malayalam) {
			return true
		}
	}
	return false
}

// ToolFor maps an intent to the tool that can ground it. General has no tool.
func ToolFor(in Intent) string {
	switch in {
	case Weather:
		return "weather"
	case Crop:
		return "crop_advisory"
	case Pest:
		return "pest_alert"
	case Irrigation:
		return "weather" // irrigation advice grounds on the same forecast data
	case Schemes:
		return "schemes_search"
	case Profile:
		return "profile_lookup"
	default:
		return ""
	}
}

// RequiresGrounding reports whether an intent demands tool evidence before an
// advisory claim is trusted.
func RequiresGrounding(in Intent) bool {
	switch in {
	case Weather, Crop, Pest, Schemes, Profile:
		return true
	default:
		return false
	}
}
