package subtitles

const defaultFont = "Anton"

var languageFonts = map[string]string{
	"hi-IN": "Noto Sans Devanagari",
	"mr-IN": "Noto Sans Devanagari",
	"bn-IN": "Noto Sans Bengali",
	"as-IN": "Noto Sans Bengali",
	"gu-IN": "Noto Sans Gujarati",
	"ta-IN": "Noto Sans Tamil",
	"kn-IN": "Noto Sans Kannada",
	"ml-IN": "Noto Sans Malayalam",
	"te-IN": "Noto Sans Telugu",
	"pa-IN": "Noto Sans Gurmukhi",
	"od-IN": "Noto Sans Oriya",
	"ur-IN": "DejaVu Sans",
	"en-IN": defaultFont,
}

// FontForLanguage returns the font able to render the script of a language
// code such as "ta-IN". Unknown or empty codes get the display default.
func FontForLanguage(code string) string {
	if f, ok := languageFonts[code]; ok {
		return f
	}
	return defaultFont
}
