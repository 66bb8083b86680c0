// Package textchunk splits text into provider-sized pieces.
package textchunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	TranslateLimit = 1000
	SpeechLimit    = 250
)

// Sentence ends on . ! ? or the Devanagari danda, or a blank line.
var sentenceBreak = regexp.MustCompile(`([.!?।])\s+|\n\s*\n`)

// Split breaks text into chunks of at most limit runes. It prefers sentence
// boundaries, then word boundaries, and hard-splits single words that are
// still too long. Joining the chunks with single spaces reproduces the input
// up to whitespace normalisation.
func Split(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 || runeLen(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    string
	)
	push := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			chunks = append(chunks, s)
		}
	}
	for _, sentence := range sentences(text) {
		if cur == "" {
			if runeLen(sentence) <= limit {
				cur = sentence
				continue
			}
		} else if runeLen(cur)+1+runeLen(sentence) <= limit {
			cur += " " + sentence
			continue
		} else {
			push(cur)
			cur = ""
			if runeLen(sentence) <= limit {
				cur = sentence
				continue
			}
		}
		// sentence alone exceeds the limit
		words := splitWords(sentence, limit)
		for _, w := range words[:len(words)-1] {
			push(w)
		}
		cur = words[len(words)-1]
	}
	push(cur)
	return chunks
}

func sentences(text string) []string {
	var out []string
	last := 0
	for _, m := range sentenceBreak.FindAllStringSubmatchIndex(text, -1) {
		end := m[0]
		if m[2] >= 0 {
			end = m[3] // keep the terminal punctuation
		}
		if s := strings.TrimSpace(text[last:end]); s != "" {
			out = append(out, normalizeSpace(s))
		}
		last = m[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, normalizeSpace(s))
	}
	return out
}

func splitWords(sentence string, limit int) []string {
	var (
		out []string
		cur string
	)
	for _, w := range strings.Fields(sentence) {
		if runeLen(w) > limit {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			pieces := hardSplit(w, limit)
			out = append(out, pieces[:len(pieces)-1]...)
			cur = pieces[len(pieces)-1]
			continue
		}
		switch {
		case cur == "":
			cur = w
		case runeLen(cur)+1+runeLen(w) <= limit:
			cur += " " + w
		default:
			out = append(out, cur)
			cur = w
		}
	}
	if cur != "" || len(out) == 0 {
		out = append(out, cur)
	}
	return out
}

func hardSplit(s string, limit int) []string {
	r := []rune(s)
	out := make([]string, 0, len(r)/limit+1)
	for i := 0; i < len(r); i += limit {
		j := min(i+limit, len(r))
		out = append(out, string(r[i:j]))
	}
	return out
}

func normalizeSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func runeLen(s string) int { return utf8.RuneCountInString(s) }
