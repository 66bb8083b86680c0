// Package reframe follows the active speaker when converting a clip to a
// target aspect ratio.
package reframe

import "github.com/forPelevin/clipforge/internal/types"

// ScoreWindow is the half-width, in track frames, of the score smoothing window.
const ScoreWindow = 30

// Candidate is one tracked face present in an output frame.
type Candidate struct {
	TrackID int
	Score   float64
	X, Y, S float64
}

// BuildCandidates returns, for each of frameCount frames, the faces present
// in it with their windowed mean speaking score. Track frames outside
// [0, frameCount) are ignored.
func BuildCandidates(tracks []types.FaceTrack, frameCount int) [][]Candidate {
	if frameCount <= 0 {
		return nil
	}
	out := make([][]Candidate, frameCount)
	for _, tr := range tracks {
		for i, pos := range tr.Frames {
			if pos.Frame < 0 || pos.Frame >= frameCount {
				continue
			}
			out[pos.Frame] = append(out[pos.Frame], Candidate{
				TrackID: tr.ID,
				Score:   windowMean(tr.Scores, i),
				X:       pos.X,
				Y:       pos.Y,
				S:       pos.S,
			})
		}
	}
	return out
}

func windowMean(scores []float64, i int) float64 {
	lo := max(i-ScoreWindow, 0)
	hi := min(i+ScoreWindow, len(scores))
	if hi <= lo {
		return 0
	}
	var sum float64
	for _, s := range scores[lo:hi] {
		sum += s
	}
	return sum / float64(hi-lo)
}

// Select picks the highest scoring candidate. It reports false when there is
// none or the best score is negative, meaning nobody is speaking.
func Select(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	if best.Score < 0 {
		return Candidate{}, false
	}
	return best, true
}
