package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/dub"
	"github.com/forPelevin/clipforge/internal/ports"
)

// fakeMedia writes small marker files so each stage can be traced in the
// published artifact.
type fakeMedia struct {
	fail   map[string]error
	frames int
	calls  []string
	ass    string
	volume float64
}

func (f *fakeMedia) step(op, in, out string) error {
	f.calls = append(f.calls, op)
	if err := f.fail[op]; err != nil {
		return err
	}
	var prev []byte
	if in != "" {
		b, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		prev = b
	}
	return os.WriteFile(out, append(prev, []byte("|"+op)...), 0o644)
}

func (f *fakeMedia) Cut(_ context.Context, _ string, _, _ time.Duration, dst string) error {
	return f.step("cut", "", dst)
}

func (f *fakeMedia) ExtractAudio(_ context.Context, _, out string) error {
	return f.step("extract_audio", "", out)
}

func (f *fakeMedia) ExtractFrames(_ context.Context, _, outDir string, _ int) ([]string, error) {
	f.calls = append(f.calls, "extract_frames")
	if err := f.fail["extract_frames"]; err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	n := f.frames
	if n == 0 {
		n = 3
	}
	var out []string
	for i := 0; i < n; i++ {
		p := filepath.Join(outDir, fmt.Sprintf("%06d.jpg", i+1))
		if err := writeJPEG(p, 64, 36); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeMedia) EncodeFrames(_ context.Context, framesDir string, _ int, out string) error {
	entries, err := os.ReadDir(framesDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return errors.New("no frames")
	}
	return f.step("encode", "", out)
}

func (f *fakeMedia) MuxAudio(_ context.Context, video, _ string, _ time.Duration, out string) error {
	return f.step("mux", video, out)
}

func (f *fakeMedia) ReplaceAudio(_ context.Context, video, _ string, _ time.Duration, out string) error {
	return f.step("replace_audio", video, out)
}

func (f *fakeMedia) BurnSubtitles(_ context.Context, in, assPath, out string) error {
	b, err := os.ReadFile(assPath)
	if err != nil {
		return err
	}
	f.ass = string(b)
	return f.step("subs", in, out)
}

func (f *fakeMedia) Overlay(_ context.Context, in, _, out string) error {
	return f.step("watermark", in, out)
}

func (f *fakeMedia) MixMusic(_ context.Context, in, _ string, volume float64, out string) error {
	f.volume = volume
	return f.step("music", in, out)
}

func (f *fakeMedia) NormalizeSpeech(context.Context, string, string) error { return nil }

func (f *fakeMedia) ProbeDuration(context.Context, string) (time.Duration, error) { return 0, nil }

func (f *fakeMedia) ProbeResolution(context.Context, string) (int, int, error) { return 64, 36, nil }

func writeJPEG(path string, w, h int) error {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 7), B: 90, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, img, nil)
}

type fakeStore struct {
	assets   map[string]string
	uploaded map[string]string
	err      error
}

func (s *fakeStore) Download(_ context.Context, key, dst string) error {
	v, ok := s.assets[key]
	if !ok {
		return fmt.Errorf("no such key %q", key)
	}
	return os.WriteFile(dst, []byte(v), 0o644)
}

func (s *fakeStore) Upload(_ context.Context, src, key string) error {
	if s.err != nil {
		return s.err
	}
	b, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if s.uploaded == nil {
		s.uploaded = map[string]string{}
	}
	s.uploaded[key] = string(b)
	return nil
}

type fakeDetector struct {
	det ports.Detection
	err error
}

func (d fakeDetector) Detect(context.Context, ports.DetectRequest) (ports.Detection, error) {
	return d.det, d.err
}

type fakeDubber struct {
	res dub.Result
	err error
	req dub.Request
}

func (d *fakeDubber) Synthesize(_ context.Context, req dub.Request) (dub.Result, error) {
	d.req = req
	if d.err != nil {
		return dub.Result{Skipped: true}, d.err
	}
	res := d.res
	res.Path = filepath.Join(req.WorkDir, "dub.wav")
	return res, os.WriteFile(res.Path, []byte("dub"), 0o644)
}

func hasStage(stages []string, want string) bool {
	for _, s := range stages {
		if s == want {
			return true
		}
	}
	return false
}

func joined(stages []string) string { return strings.Join(stages, ",") }
