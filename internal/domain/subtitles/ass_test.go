package subtitles

import (
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

func ptr[T any](v T) *T { return &v }

func TestResolve_AspectPresets(t *testing.T) {
	tests := []struct {
		aspect        string
		resX, resY    int
		size, marginV int
	}{
		{"16:9", 1920, 1080, 100, 80},
		{"1:1", 1080, 1080, 80, 70},
		{"9:16", 1080, 1920, 120, 160},
		{"4:3", 1080, 1920, 120, 160},
	}
	for _, tt := range tests {
		t.Run(tt.aspect, func(t *testing.T) {
			s := Resolve(Customization{}, tt.aspect, "")
			if s.PlayResX != tt.resX || s.PlayResY != tt.resY || s.FontSize != tt.size || s.MarginV != tt.marginV {
				t.Fatalf("unexpected preset: %+v", s)
			}
		})
	}
}

func TestResolve_Defaults(t *testing.T) {
	s := Resolve(Customization{}, "9:16", "")
	if !s.Enabled || s.FontName != "Anton" || s.Alignment != AlignBottom {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.PrimaryColour != "&H00FFFFFF" || s.OutlineColour != "&H00000000" || s.Outline != 2 {
		t.Fatalf("unexpected colours: %+v", s)
	}
	if s.Shadow != 2 || s.BorderStyle != 1 || s.MaxWords != 5 || s.MarginL != 50 || s.MarginR != 50 {
		t.Fatalf("unexpected layout: %+v", s)
	}
	if s.FadeIn != 0.2 || s.FadeOut != 0.2 || s.Karaoke || s.Highlight != "00FFFF" || s.PopupScale != 1.2 {
		t.Fatalf("unexpected animation defaults: %+v", s)
	}
}

func TestResolve_PositionAndFont(t *testing.T) {
	if got := Resolve(Customization{Position: ptr("top")}, "", "").Alignment; got != AlignTop {
		t.Fatalf("top alignment = %d", got)
	}
	if got := Resolve(Customization{Position: ptr("middle")}, "", "").Alignment; got != AlignMiddle {
		t.Fatalf("middle alignment = %d", got)
	}
	if got := Resolve(Customization{}, "", "ta-IN").FontName; got != "Noto Sans Tamil" {
		t.Fatalf("tamil font = %q", got)
	}
	if got := Resolve(Customization{}, "", "mr-IN").FontName; got != "Noto Sans Devanagari" {
		t.Fatalf("marathi font = %q", got)
	}
	if got := Resolve(Customization{FontFamily: ptr("Inter")}, "", "ta-IN").FontName; got != "Inter" {
		t.Fatalf("explicit font = %q", got)
	}
}

func TestResolve_Background(t *testing.T) {
	s := Resolve(Customization{BackgroundColor: ptr("#102030"), BackgroundOpacity: ptr(0.5)}, "", "")
	if s.BorderStyle != 3 {
		t.Fatalf("expected box border style, got %d", s.BorderStyle)
	}
	// 255 - int(0.5*255) = 128
	if s.BackColour != "&H80302010" {
		t.Fatalf("unexpected back colour %q", s.BackColour)
	}
}

func TestHexToASS(t *testing.T) {
	got, err := HexToASS("#FF8800")
	if err != nil {
		t.Fatal(err)
	}
	if got != "&H000088FF" {
		t.Fatalf("HexToASS = %q", got)
	}
	if _, err := HexToASS("#GG0000"); err == nil {
		t.Fatal("expected error for invalid colour")
	}
	if _, err := HexToASS("#FFF"); err == nil {
		t.Fatal("expected error for short colour")
	}
}

func TestClipWords_Rebases(t *testing.T) {
	words := []types.Word{
		{Text: "before", Start: 8, End: 9.5},
		{Text: "edge", Start: 9.5, End: 10.4},
		{Text: "inside", Start: 11, End: 11.5},
		{Text: "  ", Start: 12, End: 12.5},
		{Text: "after", Start: 40, End: 41},
	}
	got := ClipWords(words, 10, 20)
	if len(got) != 2 {
		t.Fatalf("expected 2 words, got %+v", got)
	}
	if got[0].Text != "edge" || got[0].Start != 0 {
		t.Fatalf("start must clamp to zero: %+v", got[0])
	}
	if got[1].Text != "inside" || got[1].Start != 1 {
		t.Fatalf("unexpected rebase: %+v", got[1])
	}
}

func TestGroupLines_MaxWords(t *testing.T) {
	var words []types.Word
	for i := range 12 {
		words = append(words, types.Word{Text: "w", Start: float64(i), End: float64(i) + 0.5})
	}
	lines := GroupLines(words, 5)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for _, ln := range lines {
		if len(ln.Words) > 5 {
			t.Fatalf("line has %d words", len(ln.Words))
		}
	}
	if lines[1].Start != 5 || lines[1].End != 9.5 {
		t.Fatalf("unexpected line bounds: %+v", lines[1])
	}
}

func TestBuild_PlainHasFade(t *testing.T) {
	lines := GroupLines([]types.Word{{Text: "Hello", Start: 0, End: 0.3}, {Text: "world", Start: 0.3, End: 0.8}}, 5)
	ass := Build(lines, Resolve(Customization{}, "9:16", ""))
	for _, want := range []string{"PlayResX: 1080", "PlayResY: 1920", "WrapStyle: 0", "Style: Default,Anton,120,", "{\\fad(200,200)}Hello world"} {
		if !strings.Contains(ass, want) {
			t.Fatalf("expected %q in ASS:\n%s", want, ass)
		}
	}
}

func TestBuild_NoFadeWhenZero(t *testing.T) {
	lines := GroupLines([]types.Word{{Text: "Hi", Start: 0, End: 1}}, 5)
	ass := Build(lines, Resolve(Customization{FadeIn: ptr(0.0), FadeOut: ptr(0.0)}, "", ""))
	if strings.Contains(ass, "\\fad") {
		t.Fatalf("unexpected fade tag:\n%s", ass)
	}
}

func TestBuild_KaraokeTags(t *testing.T) {
	lines := GroupLines([]types.Word{
		{Text: "hello", Start: 1.0, End: 1.5},
		{Text: "world", Start: 1.5, End: 2.0},
	}, 5)
	ass := Build(lines, Resolve(Customization{KaraokeEnabled: ptr(true)}, "9:16", "en-IN"))
	first := "{\\r}{\\t(0,1,\\fscx120\\fscy120\\1c&H00FFFF&)}{\\t(500,500,\\fscx100\\fscy100\\1c&HFFFFFF&)}HELLO"
	second := "{\\r}{\\t(500,500,\\fscx120\\fscy120\\1c&H00FFFF&)}{\\t(1000,1000,\\fscx100\\fscy100\\1c&HFFFFFF&)}WORLD"
	if !strings.Contains(ass, first) {
		t.Fatalf("missing first karaoke word in:\n%s", ass)
	}
	if !strings.Contains(ass, second) {
		t.Fatalf("missing second karaoke word in:\n%s", ass)
	}
	if strings.Contains(ass, "\\fad") {
		t.Fatal("karaoke lines must not fade")
	}
}

func TestAssTime_Format(t *testing.T) {
	got := assTime(61*time.Second + 234*time.Millisecond)
	if got != "0:01:01.23" {
		t.Fatalf("unexpected assTime: %s", got)
	}
}
