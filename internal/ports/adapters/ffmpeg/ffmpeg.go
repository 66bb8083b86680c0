package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type Adapter struct {
	ffmpeg  string
	ffprobe string
	run     Runner

	// Encoder settings for stages that re-encode video.
	preset string
	crf    int
}

type Option func(*Adapter)

// WithRunner replaces process execution, mainly for tests.
func WithRunner(r Runner) Option {
	return func(a *Adapter) {
		if r != nil {
			a.run = r
		}
	}
}

// WithEncoder overrides the libx264 preset and CRF.
func WithEncoder(preset string, crf int) Option {
	return func(a *Adapter) {
		if strings.TrimSpace(preset) != "" {
			a.preset = preset
		}
		if crf > 0 {
			a.crf = crf
		}
	}
}

func New(ffmpegPath, ffprobePath string, opts ...Option) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	a := &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath, run: execRunner, preset: "fast", crf: 23}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Cut(ctx context.Context, src string, start, end time.Duration, dst string) error {
	args := []string{
		"-y",
		"-ss", fmtSeconds(start),
		"-to", fmtSeconds(end),
		"-i", src,
	}
	args = append(args, a.videoCodec()...)
	args = append(args, "-c:a", "aac", "-b:a", "192k", dst)
	return a.ffmpegRun(ctx, "cut", args)
}

func (a *Adapter) ExtractAudio(ctx context.Context, in, outWav string) error {
	return a.ffmpegRun(ctx, "extract audio", []string{
		"-y",
		"-i", in,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	})
}

// NormalizeSpeech converts any TTS payload to 16 kHz mono PCM.
func (a *Adapter) NormalizeSpeech(ctx context.Context, in, outWav string) error {
	return a.ffmpegRun(ctx, "normalize speech", []string{
		"-y",
		"-i", in,
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		outWav,
	})
}

// ExtractFrames writes numbered JPEG frames at fps and returns them in order.
func (a *Adapter) ExtractFrames(ctx context.Context, in, outDir string, fps int) ([]string, error) {
	if fps <= 0 {
		fps = 25
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	if err := a.ffmpegRun(ctx, "extract frames", []string{
		"-y",
		"-i", in,
		"-vf", "fps=" + strconv.Itoa(fps),
		"-qscale:v", "2",
		filepath.Join(outDir, "%06d.jpg"),
	}); err != nil {
		return nil, err
	}
	frames, err := filepath.Glob(filepath.Join(outDir, "*.jpg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(frames)
	return frames, nil
}

// EncodeFrames encodes framesDir/%06d.jpg into a silent H.264 video.
func (a *Adapter) EncodeFrames(ctx context.Context, framesDir string, fps int, out string) error {
	if fps <= 0 {
		fps = 25
	}
	args := []string{
		"-y",
		"-framerate", strconv.Itoa(fps),
		"-i", filepath.Join(framesDir, "%06d.jpg"),
	}
	args = append(args, a.videoCodec()...)
	args = append(args, "-pix_fmt", "yuv420p", "-an", out)
	return a.ffmpegRun(ctx, "encode frames", args)
}

func (a *Adapter) MuxAudio(ctx context.Context, video, audio string, duration time.Duration, out string) error {
	return a.ffmpegRun(ctx, "mux audio", []string{
		"-y",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-af", fadeOut(duration),
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "128k",
		out,
	})
}

func (a *Adapter) ReplaceAudio(ctx context.Context, video, audio string, duration time.Duration, out string) error {
	return a.ffmpegRun(ctx, "replace audio", []string{
		"-y",
		"-i", video,
		"-i", audio,
		"-af", fadeOut(duration),
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "128k",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest",
		out,
	})
}

func (a *Adapter) BurnSubtitles(ctx context.Context, in, assPath, out string) error {
	args := []string{
		"-y",
		"-i", in,
		"-vf", "ass=" + escapeFilterPath(assPath),
	}
	args = append(args, a.videoCodec()...)
	args = append(args, "-c:a", "copy", out)
	return a.ffmpegRun(ctx, "burn subtitles", args)
}

// Overlay scales the watermark to a tenth of the video width and places it
// in the top-left corner.
func (a *Adapter) Overlay(ctx context.Context, in, watermark, out string) error {
	args := []string{
		"-y",
		"-i", in,
		"-i", watermark,
		"-filter_complex", "[1:v][0:v]scale2ref=w=main_w/10:h=-1[wm][base];[base][wm]overlay=40:40",
	}
	args = append(args, a.videoCodec()...)
	args = append(args, "-c:a", "copy", out)
	return a.ffmpegRun(ctx, "overlay watermark", args)
}

// MixMusic mixes a background track under the clip audio. Volume is clamped
// to [0, 1].
func (a *Adapter) MixMusic(ctx context.Context, in, music string, volume float64, out string) error {
	volume = min(max(volume, 0), 1)
	return a.ffmpegRun(ctx, "mix music", []string{
		"-y",
		"-i", in,
		"-i", music,
		"-filter_complex", fmt.Sprintf("[1:a]volume=%s[bg];[0:a][bg]amix=inputs=2:duration=shortest:dropout_transition=2[mixed]", strconv.FormatFloat(volume, 'f', -1, 64)),
		"-map", "0:v",
		"-map", "[mixed]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "128k",
		"-shortest",
		out,
	})
}

func (a *Adapter) ProbeDuration(ctx context.Context, in string) (time.Duration, error) {
	b, err := a.run(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		in,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func (a *Adapter) ProbeResolution(ctx context.Context, in string) (int, int, error) {
	b, err := a.run(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		in,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe resolution: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("parse resolution %q", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(ws))
	if err != nil {
		return 0, 0, fmt.Errorf("parse width %q: %w", ws, err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(hs))
	if err != nil {
		return 0, 0, fmt.Errorf("parse height %q: %w", hs, err)
	}
	return w, h, nil
}

func (a *Adapter) ffmpegRun(ctx context.Context, op string, args []string) error {
	b, err := a.run(ctx, a.ffmpeg, args...)
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w\n%s", op, err, string(b))
	}
	return nil
}

func (a *Adapter) videoCodec() []string {
	return []string{"-c:v", "libx264", "-preset", a.preset, "-crf", strconv.Itoa(a.crf)}
}

// fadeOut fades the final min(1s, d) of audio.
func fadeOut(d time.Duration) string {
	total := max(d.Seconds(), 0)
	fade := min(1, total)
	start := max(0, total-fade)
	return fmt.Sprintf("afade=t=out:st=%s:d=%s",
		strconv.FormatFloat(start, 'f', 3, 64),
		strconv.FormatFloat(fade, 'f', 3, 64))
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}
