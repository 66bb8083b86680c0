package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/domain/highlights"
	"github.com/forPelevin/clipforge/internal/langcode"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

const promptCandidates = 80

type promptCandidate struct {
	Idx      int     `json:"idx"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
	Info     float64 `json:"info"`
	Hook     float64 `json:"hook"`
}

type modelClip struct {
	Idx           *int     `json:"idx"`
	Start         float64  `json:"start"`
	End           float64  `json:"end"`
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	ViralityScore float64  `json:"virality_score"`
	Topics        []string `json:"related_topics"`
	Reason        string   `json:"reason"`
}

// Refine asks the model to pick clips among the scored candidates. Unusable
// model output degrades to a deterministic pick; transport errors are
// returned.
func (a *Adapter) Refine(ctx context.Context, req ports.RefineRequest) ([]types.ClipSpec, error) {
	b := highlights.Bounds{Min: req.MinClip, Max: req.MaxClip}
	if req.ClipsN <= 0 || len(req.Candidates) == 0 || !b.Valid() {
		return nil, nil
	}
	top := highlights.Shortlist(req.Candidates, promptCandidates)
	words := req.Transcript.Words

	prompt, err := buildPrompt(req, top)
	if err != nil {
		return nil, err
	}
	content, err := a.complete(ctx, prompt, true)
	if err != nil {
		return nil, err
	}
	clips, err := parseClips(content)
	if err != nil {
		return highlights.Fallback(words, top, req.ClipsN, b), nil
	}

	res := make([]types.ClipSpec, 0, req.ClipsN)
	for _, c := range clips {
		st, en, ok := clipRange(words, c, top, b)
		if !ok || !highlights.Distinct(res, st, en) {
			continue
		}
		title := strings.TrimSpace(c.Title)
		if title == "" {
			title = "Highlight"
		}
		summary := strings.TrimSpace(c.Summary)
		if summary == "" {
			summary = title
		}
		res = append(res, types.ClipSpec{
			Start:         st,
			End:           en,
			Title:         title,
			Summary:       summary,
			Topics:        c.Topics,
			ViralityScore: int(min(max(c.ViralityScore, 0), 10)),
			Reason:        strings.TrimSpace(c.Reason),
		})
		if len(res) >= req.ClipsN {
			break
		}
	}
	if len(res) == 0 {
		return highlights.Fallback(words, top, req.ClipsN, b), nil
	}
	return res, nil
}

func parseClips(content string) ([]modelClip, error) {
	clean, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(clean, "[") {
		var arr []modelClip
		if err := json.Unmarshal([]byte(clean), &arr); err != nil {
			return nil, err
		}
		return arr, nil
	}
	var obj struct {
		Clips []modelClip `json:"clips"`
	}
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return nil, err
	}
	return obj.Clips, nil
}

// clipRange normalizes the model's timestamps and falls back to the
// referenced candidate when they do not fit the bounds.
func clipRange(words []types.Word, c modelClip, cands []types.Candidate, b highlights.Bounds) (time.Duration, time.Duration, bool) {
	st := time.Duration(c.Start * float64(time.Second))
	en := time.Duration(c.End * float64(time.Second))
	if st, en, ok := highlights.Normalize(words, st, en, b); ok {
		return st, en, true
	}
	if c.Idx == nil || *c.Idx < 0 || *c.Idx >= len(cands) {
		return 0, 0, false
	}
	return highlights.Normalize(words, cands[*c.Idx].Start, cands[*c.Idx].End, b)
}

func buildPrompt(req ports.RefineRequest, top []types.Candidate) (string, error) {
	arr := make([]promptCandidate, 0, len(top))
	for i, c := range top {
		arr = append(arr, promptCandidate{
			Idx:      i,
			StartSec: c.Start.Seconds(),
			EndSec:   c.End.Seconds(),
			Text:     c.Text,
			Info:     c.InfoScore,
			Hook:     c.HookScore,
		})
	}
	cb, err := json.Marshal(arr)
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}

	lang := langcode.Name(req.Transcript.Language)
	if lang == "" {
		lang = "an unknown language"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "This is a video transcript in %s, split into scored candidate windows. ", lang)
	fmt.Fprintf(&sb, "Select up to %d clips between %.0f and %.0f seconds long with the highest potential to go viral: "+
		"compelling stories, insightful questions and answers, or highly engaging moments.\n",
		req.ClipsN, req.MinClip.Seconds(), req.MaxClip.Seconds())
	if p := strings.TrimSpace(req.Prompt); p != "" {
		fmt.Fprintf(&sb, "Specific focus for clip selection: %s\n", p)
	}
	sb.WriteString(`
Rules:
- Clips must not overlap.
- Start and end on sentence boundaries using the candidate timestamps; capture complete thoughts.
- Avoid greetings, thanks, goodbyes and low-energy moments.
- virality_score is an integer from 0 to 10: one point each for emotional hook, relatability, controversy, educational value, storytelling, surprise, trendiness, sharability, inspiration and humor.
- Identify at least one clip, even if its score is low.

Return only a JSON object, no markdown:
{"clips":[{"idx":0,"start":0.0,"end":0.0,"title":"...","summary":"...","virality_score":0,"related_topics":["..."],"reason":"..."}]}

Candidates JSON:
`)
	sb.Write(cb)
	return sb.String(), nil
}
