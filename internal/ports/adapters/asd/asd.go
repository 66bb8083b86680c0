// Package asd runs an external active-speaker detector (TalkNet style) over
// extracted frames and loads the face tracks and per-frame activity scores it
// writes.
//
// The detector is invoked as
//
//	<command> <args...> --video V --frames F --fps N --output W
//
// and must produce W/tracks.json (an array of tracks, each with "id" and
// "frames" of {frame,x,y,s}) and W/scores.json (an array of score arrays in
// track order).
package asd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

type Adapter struct {
	command string
	args    []string
	run     Runner
}

func New(command string, args ...string) *Adapter {
	return &Adapter{
		command: command,
		args:    args,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// WithCommandRunner replaces process execution (for testing).
func (a *Adapter) WithCommandRunner(r Runner) *Adapter {
	if r != nil {
		a.run = r
	}
	return a
}

func (a *Adapter) Detect(ctx context.Context, req ports.DetectRequest) (ports.Detection, error) {
	if strings.TrimSpace(a.command) == "" {
		return ports.Detection{}, fmt.Errorf("asd: detector command not configured")
	}
	out := filepath.Join(req.WorkDir, "asd")
	if err := os.MkdirAll(out, 0o755); err != nil {
		return ports.Detection{}, fmt.Errorf("asd: ensure output dir: %w", err)
	}
	fps := req.FPS
	if fps <= 0 {
		fps = 25
	}
	args := append(append([]string(nil), a.args...),
		"--video", req.Video,
		"--frames", req.FramesDir,
		"--fps", strconv.Itoa(fps),
		"--output", out,
	)
	if b, err := a.run(ctx, a.command, args...); err != nil {
		return ports.Detection{}, fmt.Errorf("asd: %w\n%s", err, strings.TrimSpace(string(b)))
	}
	return Load(out)
}

// Load reads tracks.json and scores.json from dir. Tracks whose score count
// differs from their frame count are rejected.
func Load(dir string) (ports.Detection, error) {
	var tracks []types.FaceTrack
	if err := readJSON(filepath.Join(dir, "tracks.json"), &tracks); err != nil {
		return ports.Detection{}, err
	}
	var scores [][]float64
	if err := readJSON(filepath.Join(dir, "scores.json"), &scores); err != nil {
		return ports.Detection{}, err
	}

	var det ports.Detection
	for i, tr := range tracks {
		if i >= len(scores) || len(scores[i]) != len(tr.Frames) || len(tr.Frames) == 0 {
			det.Rejected++
			continue
		}
		tr.Scores = scores[i]
		det.Tracks = append(det.Tracks, tr)
	}
	return det, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("asd: read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("asd: decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
