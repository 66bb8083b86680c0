package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/forPelevin/clipforge/internal/dub"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

// stubMedia copies its input forward so every stage produces a real file.
type stubMedia struct {
	failCutAt time.Duration
	duration  time.Duration
}

func (m *stubMedia) touch(out string) error { return os.WriteFile(out, []byte("media"), 0o644) }

func (m *stubMedia) Cut(_ context.Context, _ string, start, _ time.Duration, dst string) error {
	if m.failCutAt > 0 && start == m.failCutAt {
		return fmt.Errorf("ffmpeg cut: exit status 1")
	}
	return m.touch(dst)
}

func (m *stubMedia) ExtractAudio(_ context.Context, _, out string) error { return m.touch(out) }

func (m *stubMedia) ExtractFrames(_ context.Context, _, outDir string, _ int) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, 32, 18))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	img.Set(0, 0, color.Black)
	p := filepath.Join(outDir, "000001.jpg")
	f, err := os.Create(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		return nil, err
	}
	return []string{p}, nil
}

func (m *stubMedia) EncodeFrames(_ context.Context, _ string, _ int, out string) error {
	return m.touch(out)
}

func (m *stubMedia) MuxAudio(_ context.Context, _, _ string, _ time.Duration, out string) error {
	return m.touch(out)
}

func (m *stubMedia) ReplaceAudio(_ context.Context, _, _ string, _ time.Duration, out string) error {
	return m.touch(out)
}

func (m *stubMedia) BurnSubtitles(_ context.Context, _, _, out string) error { return m.touch(out) }

func (m *stubMedia) Overlay(_ context.Context, _, _, out string) error { return m.touch(out) }

func (m *stubMedia) MixMusic(_ context.Context, _, _ string, _ float64, out string) error {
	return m.touch(out)
}

func (m *stubMedia) NormalizeSpeech(_ context.Context, _, out string) error { return m.touch(out) }

func (m *stubMedia) ProbeDuration(context.Context, string) (time.Duration, error) {
	if m.duration == 0 {
		return 0, fmt.Errorf("ffprobe duration: no stream")
	}
	return m.duration, nil
}

func (m *stubMedia) ProbeResolution(context.Context, string) (int, int, error) { return 32, 18, nil }

type stubASR struct {
	tr    types.Transcript
	err   error
	calls []ports.TranscribeOptions
}

func (a *stubASR) Transcribe(_ context.Context, _ string, opts ports.TranscribeOptions) (types.Transcript, error) {
	a.calls = append(a.calls, opts)
	return a.tr, a.err
}

type stubDiarizer struct {
	intervals []types.SpeakerInterval
	err       error
	calls     int
}

func (d *stubDiarizer) Diarize(context.Context, string) ([]types.SpeakerInterval, error) {
	d.calls++
	return d.intervals, d.err
}

type stubDubber struct {
	reqs []dub.Request
}

func (d *stubDubber) Synthesize(_ context.Context, req dub.Request) (dub.Result, error) {
	d.reqs = append(d.reqs, req)
	p := filepath.Join(req.WorkDir, "dub.wav")
	if err := os.WriteFile(p, []byte("dub"), 0o644); err != nil {
		return dub.Result{Skipped: true}, err
	}
	return dub.Result{Path: p, Words: []types.Word{{Text: "hola", Start: 0, End: 0.5}}, Voiced: 1}, nil
}

type stubRanker struct {
	specs []types.ClipSpec
	err   error
	req   ports.RefineRequest
}

func (r *stubRanker) Refine(_ context.Context, req ports.RefineRequest) ([]types.ClipSpec, error) {
	r.req = req
	return r.specs, r.err
}

type stubDetector struct {
	calls int
}

func (d *stubDetector) Detect(context.Context, ports.DetectRequest) (ports.Detection, error) {
	d.calls++
	return ports.Detection{}, nil
}
