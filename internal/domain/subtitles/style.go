package subtitles

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forPelevin/clipforge/internal/domain/reframe"
)

// Customization is a partial style supplied by a request or a --style file.
// Nil fields take the defaults applied by Resolve.
type Customization struct {
	Enabled           *bool    `json:"enabled,omitempty" toml:"enabled"`
	Position          *string  `json:"position,omitempty" toml:"position"`
	FontSize          *int     `json:"font_size,omitempty" toml:"font_size"`
	FontFamily        *string  `json:"font_family,omitempty" toml:"font_family"`
	FontColor         *string  `json:"font_color,omitempty" toml:"font_color"`
	OutlineColor      *string  `json:"outline_color,omitempty" toml:"outline_color"`
	OutlineWidth      *float64 `json:"outline_width,omitempty" toml:"outline_width"`
	BackgroundColor   *string  `json:"background_color,omitempty" toml:"background_color"`
	BackgroundOpacity *float64 `json:"background_opacity,omitempty" toml:"background_opacity"`
	ShadowEnabled     *bool    `json:"shadow_enabled,omitempty" toml:"shadow_enabled"`
	ShadowColor       *string  `json:"shadow_color,omitempty" toml:"shadow_color"`
	ShadowOffset      *float64 `json:"shadow_offset,omitempty" toml:"shadow_offset"`
	MaxWordsPerLine   *int     `json:"max_words_per_line,omitempty" toml:"max_words_per_line"`
	MarginHorizontal  *int     `json:"margin_horizontal,omitempty" toml:"margin_horizontal"`
	MarginVertical    *int     `json:"margin_vertical,omitempty" toml:"margin_vertical"`
	FadeIn            *float64 `json:"fade_in_duration,omitempty" toml:"fade_in_duration"`
	FadeOut           *float64 `json:"fade_out_duration,omitempty" toml:"fade_out_duration"`
	KaraokeEnabled    *bool    `json:"karaoke_enabled,omitempty" toml:"karaoke_enabled"`
	KaraokeHighlight  *string  `json:"karaoke_highlight_color,omitempty" toml:"karaoke_highlight_color"`
	KaraokePopupScale *float64 `json:"karaoke_popup_scale,omitempty" toml:"karaoke_popup_scale"`
}

// Style is a fully resolved subtitle style. Colours are already in ASS form.
type Style struct {
	Enabled bool

	PlayResX int
	PlayResY int

	FontName      string
	FontSize      int
	PrimaryColour string
	OutlineColour string
	BackColour    string
	BorderStyle   int
	Outline       float64
	Shadow        float64
	Alignment     int
	MarginL       int
	MarginR       int
	MarginV       int

	MaxWords int
	FadeIn   float64
	FadeOut  float64

	Karaoke    bool
	Highlight  string // BBGGRR
	PopupScale float64

	// Language drives karaoke upper-casing.
	Language string
}

const (
	AlignTop    = 8
	AlignMiddle = 5
	AlignBottom = 2
)

type aspectPreset struct {
	fontSize int
	marginV  int
}

var aspectPresets = map[string]aspectPreset{
	reframe.Landscape.Name: {fontSize: 100, marginV: 80},
	reframe.Square.Name:    {fontSize: 80, marginV: 70},
	reframe.Vertical.Name:  {fontSize: 120, marginV: 160},
}

// Resolve merges partial over the defaults for the aspect and subtitle
// language. It never fails: malformed colours fall back to their defaults.
func Resolve(partial Customization, aspect, language string) Style {
	a := reframe.ParseAspect(aspect)
	preset := aspectPresets[a.Name]

	s := Style{
		Enabled:  boolOr(partial.Enabled, true),
		PlayResX: a.Width,
		PlayResY: a.Height,
		FontName: strOr(partial.FontFamily, FontForLanguage(language)),
		FontSize: intOr(partial.FontSize, preset.fontSize),
		Outline:  floatOr(partial.OutlineWidth, 2),
		MarginL:  intOr(partial.MarginHorizontal, 50),
		MarginV:  intOr(partial.MarginVertical, preset.marginV),
		MaxWords: intOr(partial.MaxWordsPerLine, 5),
		FadeIn:   floatOr(partial.FadeIn, 0.2),
		FadeOut:  floatOr(partial.FadeOut, 0.2),
		Karaoke:  boolOr(partial.KaraokeEnabled, false),

		PopupScale: floatOr(partial.KaraokePopupScale, 1.2),
		Language:   language,
	}
	s.MarginR = s.MarginL
	if s.MaxWords <= 0 {
		s.MaxWords = 5
	}
	if s.FontSize <= 0 {
		s.FontSize = preset.fontSize
	}
	s.Alignment = alignment(strOr(partial.Position, "bottom"))

	s.PrimaryColour = colourOr(strOr(partial.FontColor, ""), "#FFFFFF")
	s.OutlineColour = colourOr(strOr(partial.OutlineColor, ""), "#000000")
	s.Highlight = bgrOr(strOr(partial.KaraokeHighlight, ""), "#FFFF00")

	if boolOr(partial.ShadowEnabled, true) {
		s.Shadow = floatOr(partial.ShadowOffset, 2)
	}

	// BackColour doubles as the shadow colour in outline mode and as the box
	// fill when a background is requested.
	if bg := strOr(partial.BackgroundColor, ""); bg != "" {
		if bgr, err := hexToBGR(bg); err == nil {
			opacity := min(max(floatOr(partial.BackgroundOpacity, 0.7), 0), 1)
			alpha := 255 - int(opacity*255)
			s.BackColour = fmt.Sprintf("&H%02X%s", alpha, bgr)
			s.BorderStyle = 3
		}
	}
	if s.BorderStyle == 0 {
		s.BorderStyle = 1
		s.BackColour = colourOr(strOr(partial.ShadowColor, ""), "#000000")
	}
	return s
}

func alignment(position string) int {
	switch strings.ToLower(strings.TrimSpace(position)) {
	case "top":
		return AlignTop
	case "middle":
		return AlignMiddle
	default:
		return AlignBottom
	}
}

// HexToASS converts "#RRGGBB" to the ASS colour "&H00BBGGRR".
func HexToASS(hex string) (string, error) {
	bgr, err := hexToBGR(hex)
	if err != nil {
		return "", err
	}
	return "&H00" + bgr, nil
}

func hexToBGR(hex string) (string, error) {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 6 {
		return "", fmt.Errorf("invalid colour %q", hex)
	}
	if _, err := strconv.ParseUint(h, 16, 32); err != nil {
		return "", fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	h = strings.ToUpper(h)
	return h[4:6] + h[2:4] + h[0:2], nil
}

func colourOr(hex, def string) string {
	if c, err := HexToASS(hex); err == nil {
		return c
	}
	c, _ := HexToASS(def)
	return c
}

func bgrOr(hex, def string) string {
	if c, err := hexToBGR(hex); err == nil {
		return c
	}
	c, _ := hexToBGR(def)
	return c
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func strOr(p *string, def string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return def
	}
	return strings.TrimSpace(*p)
}
