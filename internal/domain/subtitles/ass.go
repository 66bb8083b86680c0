package subtitles

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/forPelevin/clipforge/internal/types"
)

// Line is one subtitle event. Times are on the rendering timeline.
type Line struct {
	Words []types.Word
	Start float64
	End   float64
}

// ClipWords rebases words onto the rendering timeline of a clip that starts
// at offset and lasts duration seconds. A non-positive duration disables the
// upper bound.
func ClipWords(words []types.Word, offset, duration float64) []types.Word {
	var out []types.Word
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		start := max(0, w.Start-offset)
		end := w.End - offset
		if end <= 0 {
			continue
		}
		if duration > 0 && start >= duration {
			continue
		}
		out = append(out, types.Word{Text: text, Start: start, End: end, Speaker: w.Speaker})
	}
	return out
}

// GroupLines packs consecutive words into lines of at most maxWords.
func GroupLines(words []types.Word, maxWords int) []Line {
	if maxWords <= 0 {
		maxWords = 5
	}
	var out []Line
	for i := 0; i < len(words); i += maxWords {
		j := min(i+maxWords, len(words))
		group := append([]types.Word(nil), words[i:j]...)
		out = append(out, Line{Words: group, Start: group[0].Start, End: group[len(group)-1].End})
	}
	return out
}

// Build renders lines as an ASS document using style.
func Build(lines []Line, style Style) string {
	var b strings.Builder
	b.WriteString(assHeader(style))
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	upper := upperCaser(style.Language)
	for _, ln := range lines {
		if len(ln.Words) == 0 {
			continue
		}
		var text string
		if style.Karaoke {
			text = karaokeText(ln, style, upper)
		} else {
			text = plainText(ln, style)
		}
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(seconds(ln.Start)))
		b.WriteString(",")
		b.WriteString(assTime(seconds(ln.End)))
		b.WriteString(",Default,,0,0,0,,")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

func plainText(ln Line, style Style) string {
	parts := make([]string, 0, len(ln.Words))
	for _, w := range ln.Words {
		parts = append(parts, sanitizeASS(w.Text))
	}
	text := strings.Join(parts, " ")
	if style.FadeIn > 0 || style.FadeOut > 0 {
		return fmt.Sprintf("{\\fad(%d,%d)}%s", int(style.FadeIn*1000), int(style.FadeOut*1000), text)
	}
	return text
}

// karaokeText pops each word to the highlight colour and scale while it is
// spoken. Transform times are milliseconds from the line start.
func karaokeText(ln Line, style Style, upper cases.Caser) string {
	scale := int(100 * style.PopupScale)
	parts := make([]string, 0, len(ln.Words))
	for _, w := range ln.Words {
		startMS := int((w.Start - ln.Start) * 1000)
		endMS := int((w.End - ln.Start) * 1000)
		startHL := max(1, startMS)
		endHL := max(startHL+1, endMS)
		parts = append(parts, fmt.Sprintf(
			"{\\r}{\\t(%d,%d,\\fscx%d\\fscy%d\\1c&H%s&)}{\\t(%d,%d,\\fscx100\\fscy100\\1c&HFFFFFF&)}%s",
			startMS, startHL, scale, scale, style.Highlight,
			endMS, endHL,
			sanitizeASS(upper.String(w.Text)),
		))
	}
	return strings.Join(parts, " ")
}

func upperCaser(code string) cases.Caser {
	tag, err := language.Parse(code)
	if err != nil {
		tag = language.Und
	}
	return cases.Upper(tag)
}

func assHeader(s Style) string {
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	b.WriteString("WrapStyle: 0\n")
	b.WriteString("ScaledBorderAndShadow: yes\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", s.PlayResX)
	fmt.Fprintf(&b, "PlayResY: %d\n", s.PlayResY)
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,%s,&H000000FF,%s,%s,-1,0,0,0,100,100,0,0,%d,%s,%s,%d,%d,%d,%d,1\n",
		s.FontName, s.FontSize,
		s.PrimaryColour, s.OutlineColour, s.BackColour,
		s.BorderStyle, fmtFloat(s.Outline), fmtFloat(s.Shadow),
		s.Alignment, s.MarginL, s.MarginR, s.MarginV,
	)
	return b.String()
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

func fmtFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func seconds(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
