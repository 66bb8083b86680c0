package usecase

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/forPelevin/clipforge/internal/domain/reframe"
	"github.com/forPelevin/clipforge/internal/domain/speakers"
	"github.com/forPelevin/clipforge/internal/faults"
	"github.com/forPelevin/clipforge/internal/types"
)

// Subtitle burns styled subtitles into a finished video. With a target
// language the whole transcript is first dubbed with a single voice and the
// subtitles follow the dub. Job.Source is the local video, Job.End its
// duration; Start is ignored.
func (r Renderer) Subtitle(ctx context.Context, job Job) ClipResult {
	res := ClipResult{Index: job.Index, OutputKey: job.OutputKey}
	if err := r.subtitleVideo(ctx, job, &res); err != nil {
		res.Err = settle(ctx, err)
		res.Dubbed = false
	}
	return res
}

func (r Renderer) subtitleVideo(ctx context.Context, job Job, res *ClipResult) error {
	job.Start = 0
	if job.End <= 0 {
		return faults.Wrap(faults.ErrValidation, "subtitle", "duration", "video duration is unknown", nil)
	}
	if job.Aspect.Width <= 0 || job.Aspect.Height <= 0 {
		job.Aspect = reframe.Vertical
	}
	dir := filepath.Join(r.opts.WorkRoot, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return faults.Wrap(faults.ErrMedia, "subtitle", "work dir", "", err)
	}
	defer os.RemoveAll(dir)

	c := &clip{
		job:   job,
		dir:   dir,
		res:   res,
		log:   r.d.Log.With("video", job.OutputKey),
		words: job.Transcript.WordsInRange(0, job.End.Seconds()),
	}

	current := job.Source
	if job.TargetLanguage != "" && r.d.Dub != nil {
		turns := speakers.BuildTurns(unlabelled(c.words))
		if dubbed := r.synthesize(ctx, c, turns, nil); dubbed != nil {
			current = r.replaceAudio(ctx, c, current, dubbed)
		}
	}

	current, err := r.subtitle(ctx, c, current)
	if err != nil {
		return err
	}
	if err := r.d.Store.Upload(ctx, current, job.OutputKey); err != nil {
		return faults.Wrap(faults.ErrPublish, StagePublished, "upload", job.OutputKey, err)
	}
	c.visit(StagePublished)
	return nil
}

// unlabelled drops speaker labels so the dub is voiced as one block.
func unlabelled(words []types.Word) []types.Word {
	out := make([]types.Word, len(words))
	for i, w := range words {
		w.Speaker = ""
		out[i] = w
	}
	return out
}
