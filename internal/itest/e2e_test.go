//go:build integration

package itest

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/forPelevin/clipforge/internal/config"
	"github.com/forPelevin/clipforge/internal/domain/reframe"
	"github.com/forPelevin/clipforge/internal/pipeline"
	"github.com/forPelevin/clipforge/internal/types"
)

// TestE2E renders one vertical clip from a synthetic talking video with the
// whisper.cpp backend. Dubbing is left out so no provider keys are needed.
func TestE2E(t *testing.T) {
	repoRoot := mustRepoRoot(t)
	whisperBin := filepath.Join(repoRoot, ".cache", "bin", "whisper.cpp")
	whisperModel := filepath.Join(repoRoot, ".cache", "models", "ggml-base.bin")
	for _, p := range []string{whisperBin, whisperModel} {
		if _, err := os.Stat(p); err != nil {
			t.Skipf("whisper.cpp not provisioned: %v", err)
		}
	}

	tmp := t.TempDir()
	bucket := filepath.Join(tmp, "bucket")
	in := filepath.Join(bucket, "shows", "input.mp4")
	if err := os.MkdirAll(filepath.Dir(in), 0o755); err != nil {
		t.Fatal(err)
	}

	// Generate speech audio via espeak-ng.
	wav := filepath.Join(tmp, "speech.wav")
	text := "Here is the key idea. Step one: do this. Step two: measure results. This is important."
	cmd := exec.Command("espeak-ng", "-w", wav, text)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("espeak-ng failed: %v\n%s", err, string(b))
	}

	// Build a simple mp4 with audio.
	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "testsrc=s=1280x720:d=15",
		"-i", wav,
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		in,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}

	cfg := config.Default()
	cfg.Paths.WorkRoot = filepath.Join(tmp, "work")
	cfg.Paths.LedgerPath = filepath.Join(tmp, "ledger.db")
	cfg.Storage.Root = bucket
	cfg.ASR.Backend = config.BackendWhisperCpp
	cfg.ASR.WhisperCppBin = whisperBin
	cfg.ASR.WhisperCppModel = whisperModel
	cfg.Media.Preset = "ultrafast"
	cfg.Detector.Command = noFaceDetector(t, tmp)

	p, closeFn, err := pipeline.FromConfig(&cfg, nil, t.Logf)
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	m, err := p.Render(ctx, pipeline.Request{
		SourceKey: "shows/input.mp4",
		Clips:     []types.ClipRange{{Start: 1, End: 5}},
		Aspect:    reframe.Vertical,
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(m.Clips) != 1 || m.Clips[0].Error != "" {
		t.Fatalf("clip failed: %+v", m.Clips)
	}

	out := filepath.Join(bucket, "shows", "clip_0.mp4")
	d, err := probeDurationSeconds(out)
	if err != nil {
		t.Fatalf("probe clip: %v", err)
	}
	if d < 3.5 || d > 4.5 {
		t.Fatalf("clip duration = %.2fs, want about 4s", d)
	}
	w, h, err := probeResolution(out)
	if err != nil {
		t.Fatalf("probe clip resolution: %v", err)
	}
	if w != reframe.Vertical.Width || h != reframe.Vertical.Height {
		t.Fatalf("clip is %dx%d, want %dx%d", w, h, reframe.Vertical.Width, reframe.Vertical.Height)
	}
	if _, err := os.Stat(filepath.Join(bucket, "shows", "manifest_"+m.RunID+".json")); err != nil {
		t.Fatalf("missing manifest: %v", err)
	}
}

// noFaceDetector writes a detector script that reports no face tracks, so
// every frame of the synthetic source is letterboxed.
func noFaceDetector(t *testing.T, dir string) string {
	t.Helper()
	script := filepath.Join(dir, "detect.sh")
	body := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output" ]; then out="$2"; fi
  shift
done
mkdir -p "$out"
echo '[]' > "$out/tracks.json"
echo '[]' > "$out/scores.json"
`
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return script
}
