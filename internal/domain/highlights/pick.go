package highlights

import (
	"sort"
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

// MinGap keeps discovered clips apart from each other.
const MinGap = 2 * time.Second

// Shortlist returns up to limit distinct candidates, best first by score and
// then topped up in timeline order, finally sorted by start.
func Shortlist(cands []types.Candidate, limit int) []types.Candidate {
	if len(cands) == 0 || limit <= 0 {
		return nil
	}
	out := make([]types.Candidate, 0, limit)
	add := func(list []types.Candidate) {
		for _, c := range list {
			if len(out) >= limit {
				return
			}
			if overlapsCandidate(out, c.Start, c.End) {
				continue
			}
			out = append(out, c)
		}
	}
	add(ranked(cands))
	add(cands)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Fallback deterministically picks up to n clips from the best scoring
// candidates when the ranking model returns nothing usable.
func Fallback(words []types.Word, cands []types.Candidate, n int, b Bounds) []types.ClipSpec {
	if n <= 0 {
		return nil
	}
	out := make([]types.ClipSpec, 0, n)
	for _, c := range ranked(cands) {
		if len(out) >= n {
			break
		}
		st, en, ok := Normalize(words, c.Start, c.End, b)
		if !ok || !Distinct(out, st, en) {
			continue
		}
		summary := strings.TrimSpace(c.Text)
		if summary == "" {
			summary = "Highlight"
		}
		out = append(out, types.ClipSpec{
			Start:         st,
			End:           en,
			Title:         "Highlight",
			Summary:       summary,
			ViralityScore: int(clamp(c.InfoScore+c.HookScore, 0, 10)),
			Reason:        "fallback",
		})
	}
	return out
}

// Distinct reports whether [st, en) keeps MinGap from every existing clip.
func Distinct(existing []types.ClipSpec, st, en time.Duration) bool {
	for _, e := range existing {
		if st < e.End+MinGap && en > e.Start-MinGap {
			return false
		}
	}
	return true
}

func overlapsCandidate(existing []types.Candidate, st, en time.Duration) bool {
	for _, e := range existing {
		if st < e.End+MinGap && en > e.Start-MinGap {
			return true
		}
	}
	return false
}

func ranked(cands []types.Candidate) []types.Candidate {
	out := append([]types.Candidate(nil), cands...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].InfoScore+out[i].HookScore, out[j].InfoScore+out[j].HookScore
		if a == b {
			return out[i].Start < out[j].Start
		}
		return a > b
	})
	return out
}
