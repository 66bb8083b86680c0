package highlights

import (
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

const (
	endExtension   = 2 * time.Second
	pauseThreshold = 350 * time.Millisecond
	pauseLookback  = 8 * time.Second
)

// Normalize clamps [start, end) to b and moves the end to the most natural
// stopping point nearby: a complete sentence, else a pause, else a word end.
func Normalize(words []types.Word, start, end time.Duration, b Bounds) (time.Duration, time.Duration, bool) {
	if start < 0 {
		start = 0
	}
	if end <= start || !b.Valid() {
		return 0, 0, false
	}
	minEnd := start + b.Min
	maxEnd := start + b.Max
	end = min(end, maxEnd)
	if end < minEnd {
		return 0, 0, false
	}
	snapped := snapEnd(timeline(words), start, end, minEnd, maxEnd)
	if snapped < minEnd {
		return 0, 0, false
	}
	return start, min(snapped, maxEnd), true
}

func snapEnd(ws []timedWord, start, requested, minEnd, maxEnd time.Duration) time.Duration {
	searchEnd := min(requested+endExtension, maxEnd)

	if end, ok := bestSentenceEnd(ws, start, requested, minEnd, searchEnd); ok {
		return end
	}

	pauseFrom := max(searchEnd-pauseLookback, minEnd)
	var bestPause, pauseEnd time.Duration
	for i := 0; i+1 < len(ws); i++ {
		cur, next := ws[i], ws[i+1]
		if cur.End < pauseFrom || cur.End > searchEnd {
			continue
		}
		if gap := next.Start - cur.End; gap >= pauseThreshold && gap > bestPause {
			bestPause = gap
			pauseEnd = cur.End
		}
	}
	if pauseEnd >= minEnd {
		return pauseEnd
	}

	var wordEnd time.Duration
	for _, w := range ws {
		if w.End >= minEnd && w.End <= searchEnd && w.End > wordEnd {
			wordEnd = w.End
		}
	}
	if wordEnd >= minEnd {
		return wordEnd
	}
	return requested
}

type sentenceEnd struct {
	end        time.Duration
	words      int
	lastWord   string
	nextWord   string
	question   bool
	pauseAfter time.Duration
}

func bestSentenceEnd(ws []timedWord, clipStart, requested, minEnd, searchEnd time.Duration) (time.Duration, bool) {
	var (
		best      time.Duration
		bestScore = -1e9
		found     bool
	)
	for _, c := range sentenceEnds(ws, clipStart, minEnd, searchEnd) {
		s := c.score(requested)
		if !found || s > bestScore || (s == bestScore && c.end > best) {
			best, bestScore, found = c.end, s, true
		}
	}
	return best, found
}

func sentenceEnds(ws []timedWord, clipStart, minEnd, searchEnd time.Duration) []sentenceEnd {
	var out []sentenceEnd
	for i, w := range ws {
		if w.End < minEnd || w.End > searchEnd || !terminal(w.Text) {
			continue
		}
		c := sentenceEnd{end: w.End, lastWord: token(w.Text), question: strings.HasSuffix(strings.TrimSpace(w.Text), "?")}
		for j := i; j >= 0 && ws[j].End > clipStart; j-- {
			if j < i && terminal(ws[j].Text) {
				break
			}
			c.words++
		}
		if i+1 < len(ws) {
			c.nextWord = token(ws[i+1].Text)
			c.pauseAfter = max(ws[i+1].Start-w.End, 0)
		} else {
			c.pauseAfter = time.Second
		}
		out = append(out, c)
	}
	return out
}

// score prefers long, closed sentences followed by a pause and close to the
// requested end.
func (c sentenceEnd) score(requested time.Duration) float64 {
	dist := c.end - requested
	if dist < 0 {
		dist = -dist
	}
	s := -0.3 * dist.Seconds()

	switch {
	case c.words >= 8:
		s += 1.1
	case c.words >= 5:
		s += 0.5
	case c.words < 4:
		s -= 0.8
	}
	switch {
	case c.pauseAfter >= 450*time.Millisecond:
		s += 1.0
	case c.pauseAfter >= 250*time.Millisecond:
		s += 0.4
	case c.pauseAfter < 120*time.Millisecond:
		s -= 0.35
	}
	if danglingTail[c.lastWord] {
		s -= 2.0
	}
	if c.question && c.pauseAfter < 450*time.Millisecond {
		// A question answered right away is not an ending.
		s -= 2.4
	}
	if continuation[c.nextWord] && c.pauseAfter < 350*time.Millisecond {
		s -= 0.8
	}
	return s
}

var danglingTail = setOf("and", "but", "or", "so", "because", "if", "when", "then",
	"to", "of", "for", "with", "from", "into", "the", "a", "an", "this", "that",
	"my", "your", "our", "their", "his", "her", "its")

var continuation = setOf("and", "but", "or", "so", "because", "then", "if", "when", "while", "that")

func setOf(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func token(s string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(s)), "\"'`[](){}.,!?;:।")
}
