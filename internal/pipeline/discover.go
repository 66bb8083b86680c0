package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/clipforge/internal/domain/highlights"
	"github.com/forPelevin/clipforge/internal/faults"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

type DiscoverRequest struct {
	SourceKey string
	// Language is an ASR hint.
	Language string
	Clips    int
	MinClip  time.Duration
	MaxClip  time.Duration
	// Prompt narrows what the ranking model looks for.
	Prompt string
}

func (r DiscoverRequest) Validate() error {
	if strings.TrimSpace(r.SourceKey) == "" {
		return faults.Wrap(faults.ErrValidation, "discover", "", "source key is empty", nil)
	}
	if r.Clips <= 0 {
		return faults.Wrap(faults.ErrValidation, "discover", "", "clips must be > 0", nil)
	}
	if !(highlights.Bounds{Min: r.MinClip, Max: r.MaxClip}).Valid() {
		return faults.Wrap(faults.ErrValidation, "discover", "", fmt.Sprintf("invalid clip bounds %v-%v", r.MinClip, r.MaxClip), nil)
	}
	return nil
}

// Discover transcribes the source in fast mode and proposes clip ranges.
// The ranking model picks from scored transcript windows; when it is
// unavailable or returns nothing usable the best scoring windows are used.
func (p *Pipeline) Discover(ctx context.Context, req DiscoverRequest) (types.Discovery, error) {
	if err := req.Validate(); err != nil {
		return types.Discovery{}, err
	}
	unlock, err := p.lock()
	if err != nil {
		return types.Discovery{}, err
	}
	defer unlock()

	dir, err := p.runDir(req.SourceKey, uuid.NewString())
	if err != nil {
		return types.Discovery{}, err
	}
	defer os.RemoveAll(dir)

	p.opts.Logf("fetching %s", req.SourceKey)
	src, _, err := p.fetch(ctx, req.SourceKey, dir)
	if err != nil {
		return types.Discovery{}, err
	}
	audio := filepath.Join(dir, "source.wav")
	if err := p.d.Media.ExtractAudio(ctx, src, audio); err != nil {
		return types.Discovery{}, faults.Wrap(faults.ErrTranscription, "discover", "extract audio", "", err)
	}
	p.opts.Logf("transcribing (fast)")
	tr, err := p.d.ASR.Transcribe(ctx, audio, ports.TranscribeOptions{Language: req.Language, Fast: true, WorkDir: dir})
	if err != nil {
		return types.Discovery{}, faults.Wrap(faults.ErrTranscription, "discover", "asr", "", err)
	}

	out := types.Discovery{SourceKey: req.SourceKey, Language: tr.Language}
	if d, err := p.d.Media.ProbeDuration(ctx, src); err == nil {
		out.Duration = d.Seconds()
	} else if n := len(tr.Words); n > 0 {
		p.d.Log.Warn("probe duration failed, using transcript end", "error", err)
		out.Duration = tr.Words[n-1].End
	}

	bounds := highlights.Bounds{Min: req.MinClip, Max: req.MaxClip}
	cands := highlights.BuildCandidates(tr.Words, bounds)
	p.d.Log.Info("candidates scored", "words", len(tr.Words), "candidates", len(cands))
	if len(cands) == 0 {
		return out, nil
	}

	var specs []types.ClipSpec
	if p.d.Ranker != nil {
		p.opts.Logf("ranking %d candidates", len(cands))
		specs, err = p.d.Ranker.Refine(ctx, ports.RefineRequest{
			Transcript: tr,
			Candidates: cands,
			ClipsN:     req.Clips,
			MinClip:    req.MinClip,
			MaxClip:    req.MaxClip,
			Prompt:     req.Prompt,
		})
		if err != nil {
			p.d.Log.Warn("ranking failed, using heuristic selection", "error", err)
			specs = nil
		}
	}
	if len(specs) == 0 {
		specs = highlights.Fallback(tr.Words, cands, req.Clips, bounds)
	}
	if len(specs) > req.Clips {
		specs = specs[:req.Clips]
	}
	sort.SliceStable(specs, func(i, j int) bool { return specs[i].Start < specs[j].Start })

	for _, s := range specs {
		out.Clips = append(out.Clips, types.DiscoveredClip{
			Start:         s.Start.Seconds(),
			End:           s.End.Seconds(),
			Title:         s.Title,
			Summary:       s.Summary,
			ViralityScore: s.ViralityScore,
			Topics:        s.Topics,
		})
	}
	return out, nil
}
