package highlights

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reNum     = regexp.MustCompile(`\b\d+(?:[\.,]\d+)?\b`)
	reHook    = regexp.MustCompile(`(?i)\b(important|key|secret|mistake|never|always|here\s+is\s+why|remember|nobody|truth|crazy)\b`)
	reHow     = regexp.MustCompile(`(?i)\b(how\s+to|step\s+\d+|first|second|third|do\s+this|the\s+reason)\b`)
	reStepNum = regexp.MustCompile(`(?i)\bstep\s+\d+\b`)
	reStory   = regexp.MustCompile(`(?i)\b(i\s+remember|one\s+day|when\s+i\s+was|story)\b`)
)

// Signals is a cheap pre-ranking of a transcript window. Both values are in
// [0, 10].
type Signals struct {
	Info float64
	Hook float64
}

func (s Signals) Total() float64 { return s.Info + s.Hook }

func Score(text string) Signals {
	t := strings.TrimSpace(text)
	if t == "" {
		return Signals{}
	}
	lower := strings.ToLower(t)

	info := 0.4 * float64(len(reNum.FindAllStringIndex(t, -1)))
	if reHow.MatchString(lower) {
		info += 1.2
	}
	info -= 0.0006 * float64(utf8.RuneCountInString(t))

	hook := 0.9 * float64(len(reHook.FindAllStringIndex(lower, -1)))
	hook += 0.4 * float64(len(reStepNum.FindAllStringIndex(lower, -1)))
	hook += 0.6 * float64(len(reStory.FindAllStringIndex(lower, -1)))
	hook += 0.7 * float64(strings.Count(t, "?"))
	hook += 0.3 * float64(strings.Count(t, "!"))

	return Signals{Info: clamp(info, 0, 10), Hook: clamp(hook, 0, 10)}
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
