package ports

import (
	"context"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

// Media wraps the video toolkit. Audio outputs are 16 kHz mono PCM WAV.
type Media interface {
	Cut(ctx context.Context, src string, start, end time.Duration, dst string) error
	ExtractAudio(ctx context.Context, in, outWav string) error
	ExtractFrames(ctx context.Context, in, outDir string, fps int) ([]string, error)
	EncodeFrames(ctx context.Context, framesDir string, fps int, out string) error
	// MuxAudio joins a silent video with audio and fades the audio out over
	// the last second of duration.
	MuxAudio(ctx context.Context, video, audio string, duration time.Duration, out string) error
	ReplaceAudio(ctx context.Context, video, audio string, duration time.Duration, out string) error
	BurnSubtitles(ctx context.Context, in, assPath, out string) error
	Overlay(ctx context.Context, in, watermark, out string) error
	MixMusic(ctx context.Context, in, music string, volume float64, out string) error
	NormalizeSpeech(ctx context.Context, in, outWav string) error
	ProbeDuration(ctx context.Context, in string) (time.Duration, error)
	ProbeResolution(ctx context.Context, in string) (width, height int, err error)
}

type TranscribeOptions struct {
	// Language is a hint; empty lets the model detect it.
	Language string
	Diarize  bool
	// Fast skips alignment and diarization.
	Fast    bool
	WorkDir string
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath string, opts TranscribeOptions) (types.Transcript, error)
}

type Diarizer interface {
	Diarize(ctx context.Context, wavPath string) ([]types.SpeakerInterval, error)
}

type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type SpeechRequest struct {
	Text     string
	Voice    string
	Language string
}

// Speech is one text-to-speech strategy. Synthesize returns an encoded audio
// payload in any container the media toolkit can decode.
type Speech interface {
	Name() string
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
}

type DetectRequest struct {
	Video     string
	FramesDir string
	WorkDir   string
	FPS       int
}

type Detection struct {
	Tracks []types.FaceTrack
	// Rejected counts tracks dropped for inconsistent score data.
	Rejected int
}

type SpeakerDetector interface {
	Detect(ctx context.Context, req DetectRequest) (Detection, error)
}

type ObjectStore interface {
	Download(ctx context.Context, key, dst string) error
	Upload(ctx context.Context, src, key string) error
}

type RefineRequest struct {
	Transcript types.Transcript
	Candidates []types.Candidate
	ClipsN     int
	MinClip    time.Duration
	MaxClip    time.Duration
	// Prompt narrows the selection focus.
	Prompt string
}

type Ranker interface {
	Refine(ctx context.Context, req RefineRequest) ([]types.ClipSpec, error)
}
