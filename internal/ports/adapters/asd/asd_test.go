package asd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/clipforge/internal/ports"
)

const tracksJSON = `[
  {"id": 0, "frames": [{"frame": 0, "x": 100, "y": 50, "s": 40}, {"frame": 1, "x": 102, "y": 51, "s": 40}]},
  {"id": 1, "frames": [{"frame": 0, "x": 300, "y": 60, "s": 35}]},
  {"id": 2, "frames": [{"frame": 5, "x": 10, "y": 10, "s": 5}]}
]`

const scoresJSON = `[[0.5, 1.5], [-0.2, 0.3]]`

func TestDetect(t *testing.T) {
	work := t.TempDir()
	var gotArgs string
	a := New("python3", "-m", "talknet").WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != "python3" {
			t.Fatalf("unexpected command %q", name)
		}
		gotArgs = strings.Join(args, " ")
		out := filepath.Join(work, "asd")
		if err := os.WriteFile(filepath.Join(out, "tracks.json"), []byte(tracksJSON), 0o644); err != nil {
			return nil, err
		}
		return nil, os.WriteFile(filepath.Join(out, "scores.json"), []byte(scoresJSON), 0o644)
	})

	det, err := a.Detect(context.Background(), ports.DetectRequest{Video: "clip.mp4", FramesDir: "frames", WorkDir: work})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(gotArgs, "-m talknet --video clip.mp4 --frames frames --fps 25 --output ") {
		t.Fatalf("unexpected args %q", gotArgs)
	}
	// Track 1 has two scores for one frame, track 2 has none.
	if len(det.Tracks) != 1 || det.Rejected != 2 {
		t.Fatalf("unexpected detection %+v", det)
	}
	if det.Tracks[0].Scores[1] != 1.5 || det.Tracks[0].Frames[1].X != 102 {
		t.Fatalf("unexpected track %+v", det.Tracks[0])
	}
}

func TestDetect_Errors(t *testing.T) {
	if _, err := New("").Detect(context.Background(), ports.DetectRequest{WorkDir: t.TempDir()}); err == nil {
		t.Fatal("expected error for missing command")
	}

	a := New("asd").WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte("CUDA out of memory"), errors.New("exit status 1")
	})
	_, err := a.Detect(context.Background(), ports.DetectRequest{WorkDir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Fatalf("unexpected error %v", err)
	}

	a = New("asd").WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) { return nil, nil })
	if _, err := a.Detect(context.Background(), ports.DetectRequest{WorkDir: t.TempDir()}); err == nil {
		t.Fatal("expected error for missing output")
	}
}
