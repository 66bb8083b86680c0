package highlights

import (
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

// Bounds limits the duration of a discovered clip.
type Bounds struct {
	Min time.Duration
	Max time.Duration
}

func (b Bounds) Valid() bool { return b.Min > 0 && b.Max >= b.Min }

// BuildCandidates slides windows over the word timeline and scores each one.
// Windows start at word boundaries and end on terminal punctuation when the
// transcript has any, otherwise every few words.
func BuildCandidates(words []types.Word, b Bounds) []types.Candidate {
	if !b.Valid() {
		return nil
	}
	ws := timeline(words)
	if len(ws) < 2 {
		return nil
	}

	const (
		maxCandidates = 500
		maxWindow     = 400
		maxStarts     = 160
		endStride     = 4
	)
	punctuated := false
	for _, w := range ws {
		if terminal(w.Text) {
			punctuated = true
			break
		}
	}

	stride := 1
	if len(ws) > maxStarts {
		stride = (len(ws) + maxStarts - 1) / maxStarts
	}
	var out []types.Candidate
	for i := 0; i < len(ws)-1; i += stride {
		// Start right after a sentence end when possible.
		if punctuated && i > 0 && !terminal(ws[i-1].Text) && stride == 1 {
			continue
		}
		start := ws[i].Start
		var text strings.Builder
		for j := i; j < len(ws) && j-i <= maxWindow; j++ {
			if j > i {
				text.WriteByte(' ')
			}
			text.WriteString(ws[j].Text)

			win := ws[j].End - start
			if win > b.Max {
				break
			}
			if win < b.Min {
				continue
			}
			if punctuated {
				if !terminal(ws[j].Text) {
					continue
				}
			} else if (j-i)%endStride != 0 {
				continue
			}
			s := Score(text.String())
			out = append(out, types.Candidate{Start: start, End: ws[j].End, Text: text.String(), InfoScore: s.Info, HookScore: s.Hook})
			if len(out) >= maxCandidates {
				return out
			}
		}
	}
	return out
}

type timedWord struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

func timeline(words []types.Word) []timedWord {
	out := make([]timedWord, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" || w.End <= w.Start {
			continue
		}
		out = append(out, timedWord{Start: seconds(w.Start), End: seconds(w.End), Text: text})
	}
	return out
}

func terminal(s string) bool {
	s = strings.TrimRight(strings.TrimSpace(s), `"')]}`+"`")
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") || strings.HasSuffix(s, "।")
}

func seconds(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
