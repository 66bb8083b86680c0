package dub

import (
	"strings"

	"github.com/forPelevin/clipforge/internal/langcode"
)

// Catalog maps a language code to its voice pool. The first voice of a pool
// is the language's default. The "default" entry serves languages with no
// pool of their own.
type Catalog map[string][]string

const fallbackPool = "default"

// DefaultCatalog uses the OpenAI speech voices, which are multilingual.
var DefaultCatalog = Catalog{
	fallbackPool: {"alloy", "onyx", "nova", "echo", "fable", "shimmer"},
}

// Pool returns the voices for lang, trying the exact code, then its base
// language, then the default pool.
func (c Catalog) Pool(lang string) []string {
	lang = strings.TrimSpace(lang)
	for _, key := range []string{lang, strings.ToLower(lang), langcode.Base(lang), fallbackPool} {
		if pool := c[key]; len(pool) > 0 {
			return pool
		}
	}
	return DefaultCatalog[fallbackPool]
}

// AssignVoices maps each distinct speaker to a voice and returns the
// language default for unlabelled text. With zero or one speakers everyone
// gets the default; otherwise speakers cycle through the pool in first-seen
// order.
func AssignVoices(speakers []string, lang string, catalog Catalog) (map[string]string, string) {
	if catalog == nil {
		catalog = DefaultCatalog
	}
	pool := catalog.Pool(lang)
	out := make(map[string]string, len(speakers))
	for _, s := range speakers {
		if _, seen := out[s]; seen || s == "" {
			continue
		}
		out[s] = pool[len(out)%len(pool)]
	}
	return out, pool[0]
}
