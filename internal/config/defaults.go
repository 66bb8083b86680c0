package config

import (
	"github.com/forPelevin/clipforge/internal/domain/reframe"
	"github.com/forPelevin/clipforge/internal/domain/speakers"
	"github.com/forPelevin/clipforge/internal/domain/textchunk"
	"github.com/forPelevin/clipforge/internal/ports/adapters/openai"
	"github.com/forPelevin/clipforge/internal/ports/adapters/openrouter"
	"github.com/forPelevin/clipforge/internal/ports/adapters/whisperx"
)

const (
	BackendWhisperX   = "whisperx"
	BackendWhisperCpp = "whispercpp"
	BackendOpenAI     = "openai"

	defaultWorkRoot   = "~/.cache/clipforge/work"
	defaultLedgerPath = "~/.local/share/clipforge/ledger.db"
	defaultStorage    = "."
	defaultOpenRouter = "https://openrouter.ai"
)

// Default returns a configuration with every field set to its default.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkRoot:   defaultWorkRoot,
			LedgerPath: defaultLedgerPath,
		},
		Logging: Logging{
			Level:       "info",
			Format:      "auto",
			OutputPaths: []string{"stderr"},
		},
		Media: Media{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			Preset:  "fast",
			CRF:     23,
			FPS:     25,
		},
		ASR: ASR{
			Backend:       BackendWhisperX,
			WhisperXModel: whisperx.DefaultModel,
			WhisperCppBin: "whisper-cli",
		},
		Translation: Translation{
			BaseURL:           defaultOpenRouter,
			Model:             openrouter.DefaultModel,
			SiteName:          "clipforge",
			RequestsPerMinute: 60,
		},
		Speech: Speech{
			Models:            []string{openai.ModelHD, openai.ModelStandard},
			RequestsPerMinute: 50,
		},
		Dub: Dub{
			TranslateLimit:   textchunk.TranslateLimit,
			SpeechLimit:      textchunk.SpeechLimit,
			ChunkGapMillis:   200,
			GapEpsilonMillis: 10,
		},
		Speakers: Speakers{
			MinCoverage: speakers.DefaultMinCoverage,
			MinOverlap:  speakers.DefaultMinOverlap,
		},
		Reframe: Reframe{
			BlurSigma:   reframe.DefaultBlurSigma,
			JPEGQuality: reframe.DefaultJPEGQuality,
		},
		Storage: Storage{
			Root: defaultStorage,
		},
		Discovery: Discovery{
			Clips:          8,
			MinClipSeconds: 15,
			MaxClipSeconds: 60,
		},
	}
}
