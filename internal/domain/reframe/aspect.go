package reframe

import "strings"

// Aspect is an output canvas preset.
type Aspect struct {
	Name   string
	Width  int
	Height int
}

var (
	Landscape = Aspect{Name: "16:9", Width: 1920, Height: 1080}
	Square    = Aspect{Name: "1:1", Width: 1080, Height: 1080}
	Vertical  = Aspect{Name: "9:16", Width: 1080, Height: 1920}
)

// ParseAspect maps a ratio string to its preset. Anything unrecognised is
// treated as vertical.
func ParseAspect(s string) Aspect {
	switch strings.TrimSpace(s) {
	case "16:9":
		return Landscape
	case "1:1":
		return Square
	default:
		return Vertical
	}
}

func (a Aspect) String() string { return a.Name }
