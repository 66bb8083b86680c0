package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/clipforge/internal/domain/reframe"
	"github.com/forPelevin/clipforge/internal/domain/speakers"
	"github.com/forPelevin/clipforge/internal/domain/subtitles"
	"github.com/forPelevin/clipforge/internal/dub"
	"github.com/forPelevin/clipforge/internal/faults"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

// Stage names recorded in ClipResult.Stages. Optional stages that were
// disabled or fell back carry a ":skipped" or ":fallback" suffix.
const (
	StageCut             = "cut"
	StageAudioExtracted  = "audio_extracted"
	StageDubAttempted    = "dub_attempted"
	StageFramesExtracted = "frames_extracted"
	StageFacesDetected   = "faces_detected"
	StageReframed        = "reframed"
	StageAudioReplaced   = "audio_replaced"
	StageSubtitled       = "subtitled"
	StageWatermarked     = "watermarked"
	StageMusicMixed      = "music_mixed"
	StagePublished       = "published"

	skipped  = ":skipped"
	fallback = ":fallback"
)

// Dubber produces a dubbed track for one clip.
type Dubber interface {
	Synthesize(ctx context.Context, req dub.Request) (dub.Result, error)
}

type Deps struct {
	Media    ports.Media
	Detector ports.SpeakerDetector
	Store    ports.ObjectStore
	Dub      Dubber
	Log      *slog.Logger
}

type Options struct {
	WorkRoot   string
	FPS        int
	Compositor reframe.Compositor
	Speakers   speakers.Options
}

type Renderer struct {
	d    Deps
	opts Options
}

func New(d Deps, opts Options) Renderer {
	if d.Log == nil {
		d.Log = slog.New(slog.DiscardHandler)
	}
	if opts.FPS <= 0 {
		opts.FPS = 25
	}
	if opts.WorkRoot == "" {
		opts.WorkRoot = os.TempDir()
	}
	return Renderer{d: d, opts: opts}
}

// Job describes one clip. Transcript and Intervals cover the whole source;
// Source is the local copy of the source video.
type Job struct {
	Index     int
	Source    string
	OutputKey string
	Start     time.Duration
	End       time.Duration

	Transcript     types.Transcript
	Intervals      []types.SpeakerInterval
	SourceLanguage string
	TargetLanguage string

	Aspect      reframe.Aspect
	Style       subtitles.Customization
	Watermark   string
	Music       string
	MusicVolume float64
}

func (j Job) Duration() time.Duration { return j.End - j.Start }

type ClipResult struct {
	Index     int
	OutputKey string
	Dubbed    bool
	Stages    []string
	// Err is set when the clip was aborted; nothing was published.
	Err error
}

func (r ClipResult) Manifest(j Job) types.ManifestClip {
	m := types.ManifestClip{
		Index:    r.Index,
		StartSec: j.Start.Seconds(),
		EndSec:   j.End.Seconds(),
		Dubbed:   r.Dubbed,
		Stages:   r.Stages,
	}
	if r.Err != nil {
		m.Error = r.Err.Error()
		m.ErrorKind = faults.Kind(r.Err)
	} else {
		m.OutputKey = r.OutputKey
	}
	return m
}

// clip carries the state of one RenderClip call.
type clip struct {
	job    Job
	dir    string
	res    *ClipResult
	log    *slog.Logger
	words  []types.Word
	offset float64
}

func (c *clip) path(name string) string { return filepath.Join(c.dir, name) }

func (c *clip) visit(stage string) { c.res.Stages = append(c.res.Stages, stage) }

// RenderClip runs one clip through the state machine. Required stages abort
// the clip; dub, audio replacement, watermark and music degrade instead.
func (r Renderer) RenderClip(ctx context.Context, job Job) ClipResult {
	res := ClipResult{Index: job.Index, OutputKey: job.OutputKey}
	if err := r.render(ctx, job, &res); err != nil {
		res.Err = settle(ctx, err)
		res.Dubbed = false
	}
	return res
}

// settle surfaces cancellation over the stage error it caused.
func settle(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
		return fmt.Errorf("%w: %w", cerr, err)
	}
	return err
}

func (r Renderer) render(ctx context.Context, job Job, res *ClipResult) error {
	if job.End <= job.Start {
		return faults.Wrap(faults.ErrValidation, "clip", "range", fmt.Sprintf("end %v is not after start %v", job.End, job.Start), nil)
	}
	if job.Aspect.Width <= 0 || job.Aspect.Height <= 0 {
		job.Aspect = reframe.Vertical
	}
	dir := filepath.Join(r.opts.WorkRoot, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return faults.Wrap(faults.ErrMedia, "clip", "work dir", "", err)
	}
	defer os.RemoveAll(dir)

	c := &clip{
		job:    job,
		dir:    dir,
		res:    res,
		log:    r.d.Log.With("clip", job.Index),
		words:  job.Transcript.WordsInRange(job.Start.Seconds(), job.End.Seconds()),
		offset: job.Start.Seconds(),
	}
	duration := job.Duration()

	cut := c.path("clip.mp4")
	if err := r.d.Media.Cut(ctx, job.Source, job.Start, job.End, cut); err != nil {
		return faults.Wrap(faults.ErrMedia, StageCut, "ffmpeg", "", err)
	}
	c.visit(StageCut)

	audio := c.path("audio.wav")
	if err := r.d.Media.ExtractAudio(ctx, cut, audio); err != nil {
		return faults.Wrap(faults.ErrMedia, StageAudioExtracted, "ffmpeg", "", err)
	}
	c.visit(StageAudioExtracted)

	dubbed := r.dub(ctx, c)

	framesDir := c.path("frames")
	frames, err := r.d.Media.ExtractFrames(ctx, cut, framesDir, r.opts.FPS)
	if err != nil {
		return faults.Wrap(faults.ErrDetection, StageFramesExtracted, "ffmpeg", "", err)
	}
	if len(frames) == 0 {
		return faults.Wrap(faults.ErrDetection, StageFramesExtracted, "ffmpeg", "no frames decoded", nil)
	}
	c.visit(StageFramesExtracted)

	if r.d.Detector == nil {
		return faults.Wrap(faults.ErrDetection, StageFacesDetected, "detect", "no speaker detector configured", nil)
	}
	det, err := r.d.Detector.Detect(ctx, ports.DetectRequest{Video: cut, FramesDir: framesDir, WorkDir: dir, FPS: r.opts.FPS})
	if err != nil {
		return faults.Wrap(faults.ErrDetection, StageFacesDetected, "detect", "", err)
	}
	if det.Rejected > 0 {
		c.log.Warn("face tracks rejected", "rejected", det.Rejected, "kept", len(det.Tracks))
	}
	c.visit(StageFacesDetected)

	outFrames := c.path("reframed")
	stats, err := r.opts.Compositor.Render(ctx, frames, reframe.BuildCandidates(det.Tracks, len(frames)), job.Aspect, outFrames)
	if err != nil {
		return faults.Wrap(faults.ErrMedia, StageReframed, "compose", "", err)
	}
	if stats.Frames == 0 {
		return faults.Wrap(faults.ErrMedia, StageReframed, "compose", "no frame could be composed", nil)
	}
	c.log.Debug("frames composed", "frames", stats.Frames, "cropped", stats.Cropped, "resized", stats.Resized, "skipped", stats.Skipped)
	silent := c.path("reframed.mp4")
	if err := r.d.Media.EncodeFrames(ctx, outFrames, r.opts.FPS, silent); err != nil {
		return faults.Wrap(faults.ErrMedia, StageReframed, "encode", "", err)
	}
	current := c.path("reframed_audio.mp4")
	if err := r.d.Media.MuxAudio(ctx, silent, audio, duration, current); err != nil {
		return faults.Wrap(faults.ErrMedia, StageReframed, "mux", "", err)
	}
	c.visit(StageReframed)

	if dubbed != nil {
		current = r.replaceAudio(ctx, c, current, dubbed)
	}

	current, err = r.subtitle(ctx, c, current)
	if err != nil {
		return err
	}
	current = r.watermark(ctx, c, current)
	current = r.music(ctx, c, current)

	if err := r.d.Store.Upload(ctx, current, job.OutputKey); err != nil {
		return faults.Wrap(faults.ErrPublish, StagePublished, "upload", job.OutputKey, err)
	}
	c.visit(StagePublished)
	return nil
}

// dub returns nil when no target language is set or dubbing fell back.
func (r Renderer) dub(ctx context.Context, c *clip) *dub.Result {
	if c.job.TargetLanguage == "" || r.d.Dub == nil {
		return nil
	}
	tl := speakers.Build(c.words, c.job.Intervals, r.opts.Speakers)
	if tl.Degraded {
		c.log.Warn("speaker labels incomplete",
			"backfilled", tl.Backfilled,
			"error", faults.Wrap(faults.ErrDiarizationDegraded, StageDubAttempted, "speakers", "native coverage below threshold", nil))
	}
	return r.synthesize(ctx, c, tl.Turns, tl.Speakers)
}

func (r Renderer) synthesize(ctx context.Context, c *clip, turns []types.SpeakerTurn, labels []string) *dub.Result {
	res, err := r.d.Dub.Synthesize(ctx, dub.Request{
		Turns:          turns,
		Speakers:       labels,
		ClipStart:      c.offset,
		SourceLanguage: c.job.SourceLanguage,
		TargetLanguage: c.job.TargetLanguage,
		WorkDir:        c.dir,
	})
	if err != nil || res.Skipped {
		c.log.Warn("dub skipped, keeping original audio", "error", err)
		c.visit(StageDubAttempted + fallback)
		return nil
	}
	c.log.Info("dub synthesized", "speakers", len(labels), "voiced", res.Voiced, "silenced", res.Silenced, "duration", res.Duration)
	c.visit(StageDubAttempted)
	return &res
}

// replaceAudio swaps in the dub track. On success later stages subtitle the
// dub's own words, which already sit on the clip timeline.
func (r Renderer) replaceAudio(ctx context.Context, c *clip, in string, dubbed *dub.Result) string {
	out := c.path("dubbed.mp4")
	if err := r.d.Media.ReplaceAudio(ctx, in, dubbed.Path, c.job.Duration(), out); err != nil {
		c.log.Warn("audio replacement failed, keeping original audio",
			"error", faults.Wrap(faults.ErrDub, StageAudioReplaced, "ffmpeg", "", err))
		c.visit(StageAudioReplaced + fallback)
		return in
	}
	c.words, c.offset = dubbed.Words, 0
	c.res.Dubbed = true
	c.visit(StageAudioReplaced)
	return out
}

func (r Renderer) subtitle(ctx context.Context, c *clip, in string) (string, error) {
	lang := c.job.TargetLanguage
	if lang == "" {
		lang = c.job.SourceLanguage
	}
	style := subtitles.Resolve(c.job.Style, c.job.Aspect.Name, lang)
	if !style.Enabled {
		c.visit(StageSubtitled + skipped)
		return in, nil
	}
	lines := subtitles.GroupLines(subtitles.ClipWords(c.words, c.offset, c.job.Duration().Seconds()), style.MaxWords)
	if len(lines) == 0 {
		c.visit(StageSubtitled + skipped)
		return in, nil
	}
	ass := c.path("subs.ass")
	if err := os.WriteFile(ass, []byte(subtitles.Build(lines, style)), 0o644); err != nil {
		return "", faults.Wrap(faults.ErrMedia, StageSubtitled, "write", "", err)
	}
	out := c.path("subtitled.mp4")
	if err := r.d.Media.BurnSubtitles(ctx, in, ass, out); err != nil {
		return "", faults.Wrap(faults.ErrMedia, StageSubtitled, "ffmpeg", "", err)
	}
	c.visit(StageSubtitled)
	return out, nil
}

func (r Renderer) watermark(ctx context.Context, c *clip, in string) string {
	if c.job.Watermark == "" {
		return in
	}
	out := c.path("watermarked.mp4")
	err := func() error {
		mark := c.path("watermark" + filepath.Ext(c.job.Watermark))
		if err := r.d.Store.Download(ctx, c.job.Watermark, mark); err != nil {
			return err
		}
		return r.d.Media.Overlay(ctx, in, mark, out)
	}()
	return r.passThrough(c, StageWatermarked, in, out, err)
}

func (r Renderer) music(ctx context.Context, c *clip, in string) string {
	if c.job.Music == "" {
		return in
	}
	out := c.path("music.mp4")
	err := func() error {
		track := c.path("music" + filepath.Ext(c.job.Music))
		if err := r.d.Store.Download(ctx, c.job.Music, track); err != nil {
			return err
		}
		return r.d.Media.MixMusic(ctx, in, track, min(max(c.job.MusicVolume, 0), 1), out)
	}()
	return r.passThrough(c, StageMusicMixed, in, out, err)
}

// passThrough settles an optional post-process stage. On failure the input
// is copied to out unchanged so later stages see a fresh file either way.
func (r Renderer) passThrough(c *clip, stage, in, out string, err error) string {
	if err == nil {
		c.visit(stage)
		return out
	}
	c.log.Warn(stage+" failed, passing clip through", "error", faults.Wrap(faults.ErrPostProcess, stage, "", "", err))
	c.visit(stage + fallback)
	if cerr := copyFile(in, out); cerr != nil {
		c.log.Warn("pass-through copy failed", "stage", stage, "error", cerr)
		return in
	}
	return out
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
