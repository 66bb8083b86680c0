// Package pipeline turns one source object into published clips: it fetches
// the source, transcribes and diarizes it once, renders every requested range
// through the clip renderer and records the outcome in the run ledger.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/forPelevin/clipforge/internal/domain/reframe"
	"github.com/forPelevin/clipforge/internal/domain/speakers"
	"github.com/forPelevin/clipforge/internal/domain/subtitles"
	"github.com/forPelevin/clipforge/internal/faults"
	"github.com/forPelevin/clipforge/internal/ledger"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
	"github.com/forPelevin/clipforge/internal/usecase"
)

const lockName = ".clipforge.lock"

// ErrBusy is returned when another batch holds the work root lock.
var ErrBusy = errors.New("work root is locked by another clipforge batch")

type Deps struct {
	Media    ports.Media
	ASR      ports.ASR
	Diarizer ports.Diarizer
	Detector ports.SpeakerDetector
	Store    ports.ObjectStore
	Dub      usecase.Dubber
	Ranker   ports.Ranker
	// Ledger is optional.
	Ledger *ledger.Ledger
	Log    *slog.Logger
}

type Options struct {
	WorkRoot   string
	FPS        int
	Compositor reframe.Compositor
	Speakers   speakers.Options
	// Logf receives short progress lines for interactive use.
	Logf func(format string, args ...any)
}

type Pipeline struct {
	d        Deps
	opts     Options
	renderer usecase.Renderer
}

func New(d Deps, opts Options) *Pipeline {
	if d.Log == nil {
		d.Log = slog.New(slog.DiscardHandler)
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}
	if opts.WorkRoot == "" {
		opts.WorkRoot = filepath.Join(os.TempDir(), "clipforge")
	}
	r := usecase.New(usecase.Deps{
		Media:    d.Media,
		Detector: d.Detector,
		Store:    d.Store,
		Dub:      d.Dub,
		Log:      d.Log,
	}, usecase.Options{
		WorkRoot:   opts.WorkRoot,
		FPS:        opts.FPS,
		Compositor: opts.Compositor,
		Speakers:   opts.Speakers,
	})
	return &Pipeline{d: d, opts: opts, renderer: r}
}

// Request is one batch: several ranges of the same source rendered with the
// same options.
type Request struct {
	SourceKey string
	Clips     []types.ClipRange
	// SourceLanguage is an ASR hint; empty lets the model detect it.
	SourceLanguage string
	// TargetLanguage enables dubbing and diarization.
	TargetLanguage string
	Aspect         reframe.Aspect
	Style          subtitles.Customization
	Watermark      string
	Music          string
	MusicVolume    float64
	// OutputPrefix overrides the directory of published clips.
	OutputPrefix string
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.SourceKey) == "" {
		return faults.Wrap(faults.ErrValidation, "request", "", "source key is empty", nil)
	}
	if len(r.Clips) == 0 {
		return faults.Wrap(faults.ErrValidation, "request", "", "no clip ranges", nil)
	}
	for i, c := range r.Clips {
		if math.IsNaN(c.Start) || math.IsNaN(c.End) || math.IsInf(c.End, 0) || c.Start < 0 || c.End <= c.Start {
			return faults.Wrap(faults.ErrValidation, "request", "", fmt.Sprintf("clip %d has invalid range %.3f-%.3f", i, c.Start, c.End), nil)
		}
	}
	if math.IsNaN(r.MusicVolume) || r.MusicVolume < 0 {
		return faults.Wrap(faults.ErrValidation, "request", "", "music volume must be >= 0", nil)
	}
	return nil
}

// Dubbable reports whether the request asks for a dub.
func (r Request) Dubbable() bool { return strings.TrimSpace(r.TargetLanguage) != "" }

// Render runs a batch. Request level failures (validation, acquisition,
// transcription) return an error before any clip starts; clip failures are
// reported per clip in the manifest.
func (p *Pipeline) Render(ctx context.Context, req Request) (types.Manifest, error) {
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
		ClipsTotal:     len(req.Clips),
	})
	if fetchErr != nil {
		p.finish(ctx, runID, ledger.StatusFailed, fetchErr)
		return m, fetchErr
	}

	p.opts.Logf("transcribing")
	tr, intervals, err := p.transcribe(ctx, src, dir, req.SourceLanguage, req.Dubbable())
	if err != nil {
		p.finish(ctx, runID, ledger.StatusFailed, err)
		return m, err
	}
	lang := req.SourceLanguage
	if lang == "" {
		lang = tr.Language
	}
	m.Language = lang

	jobs := make([]usecase.Job, 0, len(req.Clips))
	for i, c := range req.Clips {
		jobs = append(jobs, usecase.Job{
			Index:          i,
			Source:         src,
			OutputKey:      usecase.OutputKey(req.SourceKey, req.OutputPrefix, i),
			Start:          seconds(c.Start),
			End:            seconds(c.End),
			Transcript:     tr,
			Intervals:      intervals,
			SourceLanguage: lang,
			TargetLanguage: req.TargetLanguage,
			Aspect:         req.Aspect,
			Style:          req.Style,
			Watermark:      req.Watermark,
			Music:          req.Music,
			MusicVolume:    req.MusicVolume,
		})
	}

	p.opts.Logf("rendering %d clips", len(jobs))
	results := p.renderer.RenderBatch(ctx, jobs)
	ok := 0
	for i, res := range results {
		mc := res.Manifest(jobs[i])
		m.Clips = append(m.Clips, mc)
		p.record(ctx, runID, mc)
		if res.Err == nil {
			ok++
			p.opts.Logf("clip %d -> %s", res.Index, res.OutputKey)
		} else {
			p.opts.Logf("clip %d failed: %v", res.Index, res.Err)
		}
	}

	status := ledger.StatusCompleted
	var batchErr error
	switch {
	case ok == 0:
		status = ledger.StatusFailed
		batchErr = fmt.Errorf("no clip was published (%d failed)", len(results))
	case ok < len(results):
		status = ledger.StatusPartial
	}
	if err := ctx.Err(); err != nil && batchErr == nil {
		batchErr = err
	}
	p.finish(ctx, runID, status, batchErr)

	if key, err := p.publishManifest(ctx, m, dir, ManifestKey(req.SourceKey, req.OutputPrefix, runID)); err != nil {
		p.d.Log.Warn("manifest not published", "error", err)
	} else {
		p.opts.Logf("manifest -> %s", key)
	}
	return m, nil
}

func (p *Pipeline) lock() (func(), error) {
	if err := os.MkdirAll(p.opts.WorkRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create work root: %w", err)
	}
	fl := flock.New(filepath.Join(p.opts.WorkRoot, lockName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock work root: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrBusy, p.opts.WorkRoot)
	}
	return func() { _ = fl.Unlock() }, nil
}

func (p *Pipeline) runDir(sourceKey, runID string) (string, error) {
	dir := buildRunDir(p.opts.WorkRoot, sourceKey, runID, time.Now().UTC())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}
	return dir, nil
}

// fetch downloads the source next to the run's scratch files and
// fingerprints it. The hash is best effort.
func (p *Pipeline) fetch(ctx context.Context, key, dir string) (string, string, error) {
	ext := path.Ext(key)
	if ext == "" {
		ext = ".mp4"
	}
	dst := filepath.Join(dir, "source"+ext)
	if err := p.d.Store.Download(ctx, key, dst); err != nil {
		return "", "", faults.Wrap(faults.ErrAcquisition, "fetch", "download", key, err)
	}
	hash, err := ledger.Fingerprint(dst)
	if err != nil {
		p.d.Log.Warn("source fingerprint failed", "error", err)
	}
	return dst, hash, nil
}

// transcribe runs ASR over the whole source. Diarization is only requested
// when the clips will be dubbed per speaker.
func (p *Pipeline) transcribe(ctx context.Context, src, dir, lang string, diarize bool) (types.Transcript, []types.SpeakerInterval, error) {
	audio := filepath.Join(dir, "source.wav")
	if err := p.d.Media.ExtractAudio(ctx, src, audio); err != nil {
		return types.Transcript{}, nil, faults.Wrap(faults.ErrTranscription, "transcribe", "extract audio", "", err)
	}
	tr, err := p.d.ASR.Transcribe(ctx, audio, ports.TranscribeOptions{
		Language: lang,
		Diarize:  diarize,
		WorkDir:  dir,
	})
	if err != nil {
		return types.Transcript{}, nil, faults.Wrap(faults.ErrTranscription, "transcribe", "asr", "", err)
	}
	p.d.Log.Info("source transcribed", "words", len(tr.Words), "language", tr.Language)
	if len(tr.Words) == 0 {
		p.d.Log.Warn("transcript is empty, clips will have no subtitles")
	}

	if !diarize || p.d.Diarizer == nil {
		return tr, nil, nil
	}
	intervals, err := p.d.Diarizer.Diarize(ctx, audio)
	if err != nil {
		p.d.Log.Warn("diarization unavailable, relying on transcript labels",
			"error", faults.Wrap(faults.ErrDiarizationDegraded, "transcribe", "diarize", "", err))
		return tr, nil, nil
	}
	p.d.Log.Info("source diarized", "intervals", len(intervals))
	return tr, intervals, nil
}

func (p *Pipeline) publishManifest(ctx context.Context, m types.Manifest, dir, key string) (string, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	local := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(local, b, 0o644); err != nil {
		return "", err
	}
	if err := p.d.Store.Upload(ctx, local, key); err != nil {
		return "", err
	}
	return key, nil
}

// ManifestKey places the run manifest next to the clips it describes.
func ManifestKey(sourceKey, prefix, runID string) string {
	return path.Join(path.Dir(usecase.OutputKey(sourceKey, prefix, 0)), "manifest_"+runID+".json")
}

func (p *Pipeline) begin(ctx context.Context, r ledger.Run) {
	if p.d.Ledger == nil {
		return
	}
	if err := p.d.Ledger.BeginRun(ctx, r); err != nil {
		p.d.Log.Warn("ledger: begin run", "error", err)
	}
}

func (p *Pipeline) record(ctx context.Context, runID string, c types.ManifestClip) {
	if p.d.Ledger == nil {
		return
	}
	if err := p.d.Ledger.RecordClip(context.WithoutCancel(ctx), runID, c); err != nil {
		p.d.Log.Warn("ledger: record clip", "clip", c.Index, "error", err)
	}
}

func (p *Pipeline) finish(ctx context.Context, runID, status string, err error) {
	if p.d.Ledger == nil {
		return
	}
	if lerr := p.d.Ledger.FinishRun(context.WithoutCancel(ctx), runID, status, err); lerr != nil {
		p.d.Log.Warn("ledger: finish run", "error", lerr)
	}
}

// buildRunDir names the scratch directory of one batch after its source so
// leftovers are recognisable.
func buildRunDir(root, sourceKey, runID string, now time.Time) string {
	name := strings.TrimSuffix(path.Base(sourceKey), path.Ext(sourceKey))
	name = normalizePathSegment(name)
	if name == "" {
		name = "source"
	}
	suffix := strings.ReplaceAll(runID, "-", "")
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return filepath.Join(root, fmt.Sprintf("%s-%s-%s", name, now.UTC().Format("20060102-150405Z"), suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }
