package speakers

import (
	"strings"

	"github.com/forPelevin/clipforge/internal/types"
)

const (
	DefaultMinCoverage = 0.5
	DefaultMinOverlap  = 0.1
)

// Options holds the back-fill heuristics. Zero values fall back to the
// defaults above.
type Options struct {
	// MinCoverage is the labelled-word fraction below which back-fill runs.
	MinCoverage float64
	// MinOverlap is the share of a word's duration an interval must cover.
	MinOverlap float64
}

func (o Options) withDefaults() Options {
	if o.MinCoverage <= 0 {
		o.MinCoverage = DefaultMinCoverage
	}
	if o.MinOverlap <= 0 {
		o.MinOverlap = DefaultMinOverlap
	}
	return o
}

type Timeline struct {
	Turns []types.SpeakerTurn
	// Speakers lists distinct labels in first-seen order.
	Speakers []string
	// Degraded is set when native coverage was below Options.MinCoverage.
	Degraded bool
	// Backfilled counts words whose label came from diarization intervals.
	Backfilled int
}

// Labelled reports whether the timeline carries speaker labels at all.
func (t Timeline) Labelled() bool { return len(t.Speakers) > 0 }

func Build(words []types.Word, intervals []types.SpeakerInterval, opts Options) Timeline {
	filled, degraded, n := Backfill(words, intervals, opts)
	turns := BuildTurns(filled)
	return Timeline{
		Turns:      turns,
		Speakers:   distinctSpeakers(turns),
		Degraded:   degraded,
		Backfilled: n,
	}
}

// Coverage returns the fraction of words with a speaker label.
func Coverage(words []types.Word) float64 {
	if len(words) == 0 {
		return 0
	}
	n := 0
	for _, w := range words {
		if w.Speaker != "" {
			n++
		}
	}
	return float64(n) / float64(len(words))
}

// Backfill assigns speakers from diarization intervals when native coverage
// is low. The input slice is not modified.
func Backfill(words []types.Word, intervals []types.SpeakerInterval, opts Options) ([]types.Word, bool, int) {
	opts = opts.withDefaults()
	out := make([]types.Word, len(words))
	copy(out, words)

	if len(words) == 0 || Coverage(words) >= opts.MinCoverage {
		return out, false, 0
	}
	if len(intervals) == 0 {
		return out, true, 0
	}

	assigned := 0
	for i := range out {
		dur := out[i].Duration()
		if dur <= 0 {
			continue
		}
		speaker, overlap := bestInterval(out[i], intervals)
		if speaker == "" || overlap <= 0 || overlap < opts.MinOverlap*dur {
			continue
		}
		if out[i].Speaker != speaker {
			out[i].Speaker = speaker
			assigned++
		}
	}
	return out, true, assigned
}

func bestInterval(w types.Word, intervals []types.SpeakerInterval) (string, float64) {
	var (
		best    string
		maxOver float64
	)
	for _, iv := range intervals {
		over := min(w.End, iv.End) - max(w.Start, iv.Start)
		if over > maxOver {
			maxOver = over
			best = iv.Speaker
		}
	}
	return best, maxOver
}

// BuildTurns groups consecutive same-speaker words. With no labels at all the
// result is a single unlabelled turn; otherwise unlabelled runs are dropped.
func BuildTurns(words []types.Word) []types.SpeakerTurn {
	if len(words) == 0 {
		return nil
	}
	if Coverage(words) == 0 {
		t := types.SpeakerTurn{Start: words[0].Start, End: words[len(words)-1].End}
		t.Text = joinText(words)
		if t.Text == "" {
			return nil
		}
		return []types.SpeakerTurn{t}
	}

	var (
		out   []types.SpeakerTurn
		cur   types.SpeakerTurn
		parts []string
	)
	flush := func() {
		cur.Text = strings.Join(parts, " ")
		if cur.Speaker != "" && cur.Text != "" {
			out = append(out, cur)
		}
	}
	for i, w := range words {
		text := strings.TrimSpace(w.Text)
		if i == 0 || w.Speaker != cur.Speaker {
			if i > 0 {
				flush()
			}
			cur = types.SpeakerTurn{Speaker: w.Speaker, Start: w.Start, End: w.End}
			parts = parts[:0]
		}
		if text != "" {
			parts = append(parts, text)
		}
		cur.End = w.End
	}
	flush()
	return out
}

func joinText(words []types.Word) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if t := strings.TrimSpace(w.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func distinctSpeakers(turns []types.SpeakerTurn) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range turns {
		if t.Speaker == "" {
			continue
		}
		if _, ok := seen[t.Speaker]; ok {
			continue
		}
		seen[t.Speaker] = struct{}{}
		out = append(out, t.Speaker)
	}
	return out
}
