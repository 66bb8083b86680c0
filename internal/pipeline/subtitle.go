package pipeline

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/forPelevin/clipforge/internal/domain/reframe"
	"github.com/forPelevin/clipforge/internal/domain/subtitles"
	"github.com/forPelevin/clipforge/internal/faults"
	"github.com/forPelevin/clipforge/internal/ledger"
	"github.com/forPelevin/clipforge/internal/types"
	"github.com/forPelevin/clipforge/internal/usecase"
)

// SubtitleRequest adds subtitles to a finished video.
type SubtitleRequest struct {
	SourceKey string
	// OutputKey overrides <source>_subtitled.<ext>.
	OutputKey      string
	SourceLanguage string
	// TargetLanguage dubs the video with one voice before subtitling.
	TargetLanguage string
	// Aspect only drives subtitle sizing; the video is not reframed.
	Aspect reframe.Aspect
	Style  subtitles.Customization
}

func (r SubtitleRequest) Validate() error {
	if strings.TrimSpace(r.SourceKey) == "" {
		return faults.Wrap(faults.ErrValidation, "subtitle", "", "source key is empty", nil)
	}
	if r.output() == strings.TrimSpace(r.SourceKey) {
		return faults.Wrap(faults.ErrValidation, "subtitle", "", "output key must differ from the source key", nil)
	}
	return nil
}

func (r SubtitleRequest) output() string {
	if k := strings.TrimSpace(r.OutputKey); k != "" {
		return k
	}
	return SubtitledKey(r.SourceKey)
}

// SubtitledKey appends "_subtitled" before the extension of key, or adds
// "_subtitled.mp4" when key has none.
func SubtitledKey(key string) string {
	key = strings.TrimSpace(key)
	ext := path.Ext(key)
	if ext == "" {
		return key + "_subtitled.mp4"
	}
	return strings.TrimSuffix(key, ext) + "_subtitled" + ext
}

// Subtitle transcribes the source, optionally dubs it, burns subtitles and
// publishes the result. Like Render, a failure after transcription is
// reported in the manifest rather than as an error.
func (p *Pipeline) Subtitle(ctx context.Context, req SubtitleRequest) (types.Manifest, error) {
	if err := req.Validate(); err != nil {
		return types.Manifest{}, err
	}
	if req.Aspect.Width <= 0 || req.Aspect.Height <= 0 {
		req.Aspect = reframe.Vertical
	}
	unlock, err := p.lock()
	if err != nil {
		return types.Manifest{}, err
	}
	defer unlock()

	runID := uuid.NewString()
	m := types.Manifest{RunID: runID, SourceKey: req.SourceKey, Target: req.TargetLanguage, Aspect: req.Aspect.Name}
	dir, err := p.runDir(req.SourceKey, runID)
	if err != nil {
		return m, err
	}
	defer os.RemoveAll(dir)

	p.opts.Logf("fetching %s", req.SourceKey)
	src, hash, fetchErr := p.fetch(ctx, req.SourceKey, dir)
	p.begin(ctx, ledger.Run{
		ID:             runID,
		SourceKey:      req.SourceKey,
		SourceHash:     hash,
		Language:       req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Aspect:         req.Aspect.Name,
		ClipsTotal:     1,
	})
	if fetchErr != nil {
		p.finish(ctx, runID, ledger.StatusFailed, fetchErr)
		return m, fetchErr
	}

	p.opts.Logf("transcribing")
	tr, _, err := p.transcribe(ctx, src, dir, req.SourceLanguage, false)
	if err != nil {
		p.finish(ctx, runID, ledger.StatusFailed, err)
		return m, err
	}
	lang := req.SourceLanguage
	if lang == "" {
		lang = tr.Language
	}
	m.Language = lang

	duration, err := p.d.Media.ProbeDuration(ctx, src)
	if err != nil {
		p.d.Log.Warn("probe duration failed, using transcript end", "error", err)
		if n := len(tr.Words); n > 0 {
			duration = seconds(tr.Words[n-1].End)
		}
	}

	job := usecase.Job{
		Source:         src,
		OutputKey:      req.output(),
		End:            duration,
		Transcript:     tr,
		SourceLanguage: lang,
		TargetLanguage: req.TargetLanguage,
		Aspect:         req.Aspect,
		Style:          req.Style,
	}
	p.opts.Logf("subtitling")
	res := p.renderer.Subtitle(ctx, job)
	mc := res.Manifest(job)
	m.Clips = append(m.Clips, mc)
	p.record(ctx, runID, mc)

	status := ledger.StatusCompleted
	if res.Err != nil {
		status = ledger.StatusFailed
		p.opts.Logf("subtitle failed: %v", res.Err)
	} else {
		p.opts.Logf("subtitled -> %s", res.OutputKey)
	}
	p.finish(ctx, runID, status, res.Err)

	key := path.Join(path.Dir(job.OutputKey), "manifest_"+runID+".json")
	if key, err := p.publishManifest(ctx, m, dir, key); err != nil {
		p.d.Log.Warn("manifest not published", "error", err)
	} else {
		p.opts.Logf("manifest -> %s", key)
	}
	return m, nil
}
