// Package locale maps onboarding country codes to the location context and
// translation language used by the prompt pipeline.
package locale

import "strings"

// Global is the country code for onboarding without a market.
const Global = "GLOBAL"

// englishSpeaking lists country codes whose prompts stay in English.
var englishSpeaking = map[string]bool{
	"US": true, "GB": true, "UK": true, "CA": true, "AU": true, "NZ": true,
	"IE": true, "ZA": true, "SG": true, "IN": true, "PH": true, "NG": true,
	"KE": true, "GH": true, "JM": true, "MT": true,
}

type country struct {
	Name     string
	Language string
}

var countries = map[string]country{
	"US": {"United States", "English"},
	"GB": {"United Kingdom", "English"},
	"UK": {"United Kingdom", "English"},
	"CA": {"Canada", "English"},
	"AU": {"Australia", "English"},
	"NZ": {"New Zealand", "English"},
	"IE": {"Ireland", "English"},
	"ZA": {"South Africa", "English"},
	"SG": {"Singapore", "English"},
	"IN": {"India", "English"},
	"PH": {"Philippines", "English"},
	"NG": {"Nigeria", "English"},
	"KE": {"Kenya", "English"},
	"GH": {"Ghana", "English"},
	"JM": {"Jamaica", "English"},
	"MT": {"Malta", "English"},
	"FR": {"France", "French"},
	"BE": {"Belgium", "French"},
	"DE": {"Germany", "German"},
	"AT": {"Austria", "German"},
	"CH": {"Switzerland", "German"},
	"ES": {"Spain", "Spanish"},
	"MX": {"Mexico", "Spanish"},
	"AR": {"Argentina", "Spanish"},
	"CO": {"Colombia", "Spanish"},
	"CL": {"Chile", "Spanish"},
	"IT": {"Italy", "Italian"},
	"PT": {"Portugal", "Portuguese"},
	"BR": {"Brazil", "Portuguese"},
	"NL": {"Netherlands", "Dutch"},
	"SE": {"Sweden", "Swedish"},
	"NO": {"Norway", "Norwegian"},
	"DK": {"Denmark", "Danish"},
	"FI": {"Finland", "Finnish"},
	"PL": {"Poland", "Polish"},
	"CZ": {"Czech Republic", "Czech"},
	"RO": {"Romania", "Romanian"},
	"GR": {"Greece", "Greek"},
	"TR": {"Turkey", "Turkish"},
	"JP": {"Japan", "Japanese"},
	"KR": {"South Korea", "Korean"},
	"CN": {"China", "Chinese (Simplified)"},
	"TW": {"Taiwan", "Chinese (Traditional)"},
	"HK": {"Hong Kong", "Chinese (Traditional)"},
	"AE": {"United Arab Emirates", "Arabic"},
	"SA": {"Saudi Arabia", "Arabic"},
	"IL": {"Israel", "Hebrew"},
	"ID": {"Indonesia", "Indonesian"},
	"TH": {"Thailand", "Thai"},
	"VN": {"Vietnam", "Vietnamese"},
}

// Normalize upper-cases code and maps empty to Global.
func Normalize(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Global
	}
	return code
}

// RequiresTranslation reports whether prompts for code must be translated.
func RequiresTranslation(code string) bool {
	code = Normalize(code)
	if code == Global {
		return false
	}
	return !englishSpeaking[code]
}

// CountryName returns the location context for code, or "" for global and
// unknown codes.
func CountryName(code string) string {
	return countries[Normalize(code)].Name
}

// Language returns the translation target language for code. Unknown
// non-English codes fall back to the code itself so the translator can
// still resolve it.
func Language(code string) string {
	code = Normalize(code)
	if c, ok := countries[code]; ok {
		return c.Language
	}
	if !RequiresTranslation(code) {
		return "English"
	}
	return code
}
