//go:build integration

package itest

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

func probeDurationSeconds(mp4Path string) (float64, error) {
	b, err := ffprobe(mp4Path, "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1")
	if err != nil {
		return 0, err
	}
	sec, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", b, err)
	}
	return sec, nil
}

func probeResolution(mp4Path string) (int, int, error) {
	b, err := ffprobe(mp4Path, "-select_streams", "v:0", "-show_entries", "stream=width,height", "-of", "csv=s=x:p=0")
	if err != nil {
		return 0, 0, err
	}
	ws, hs, ok := strings.Cut(b, "x")
	if !ok {
		return 0, 0, fmt.Errorf("parse resolution %q", b)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("parse width %q: %w", ws, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("parse height %q: %w", hs, err)
	}
	return w, h, nil
}

func ffprobe(path string, args ...string) (string, error) {
	full := append([]string{"-v", "error"}, args...)
	full = append(full, path)
	b, err := exec.Command("ffprobe", full...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}
	return strings.TrimSpace(string(b)), nil
}
