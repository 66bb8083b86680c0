package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/forPelevin/clipforge/internal/config"
	"github.com/forPelevin/clipforge/internal/domain/reframe"
	"github.com/forPelevin/clipforge/internal/domain/speakers"
	"github.com/forPelevin/clipforge/internal/dub"
	"github.com/forPelevin/clipforge/internal/ledger"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/ports/adapters/asd"
	"github.com/forPelevin/clipforge/internal/ports/adapters/diarize"
	"github.com/forPelevin/clipforge/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/clipforge/internal/ports/adapters/localstore"
	"github.com/forPelevin/clipforge/internal/ports/adapters/openai"
	"github.com/forPelevin/clipforge/internal/ports/adapters/openrouter"
	"github.com/forPelevin/clipforge/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/clipforge/internal/ports/adapters/whisperx"
	"github.com/forPelevin/clipforge/internal/usecase"
)

// FromConfig builds a pipeline with the adapters selected by cfg. The
// returned closer releases the ledger.
func FromConfig(cfg *config.Config, log *slog.Logger, logf func(string, ...any)) (*Pipeline, func() error, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	media := ffmpeg.New(cfg.Media.FFmpeg, cfg.Media.FFprobe, ffmpeg.WithEncoder(cfg.Media.Preset, cfg.Media.CRF))

	asr, err := newASR(cfg)
	if err != nil {
		return nil, nil, err
	}

	llm := openrouter.New(openrouter.Config{
		APIKey:            cfg.Translation.APIKey,
		BaseURL:           cfg.Translation.BaseURL,
		Model:             cfg.Translation.Model,
		Referrer:          cfg.Translation.Referrer,
		SiteName:          cfg.Translation.SiteName,
		RequestsPerMinute: cfg.Translation.RequestsPerMinute,
	})

	speechCfg := openai.Config{
		APIKey:            cfg.Speech.APIKey,
		BaseURL:           cfg.Speech.BaseURL,
		RequestsPerMinute: cfg.Speech.RequestsPerMinute,
	}
	chain := make(dub.Chain, 0, len(cfg.Speech.Models))
	for _, model := range cfg.Speech.Models {
		chain = append(chain, openai.NewSpeech(speechCfg, model))
	}

	dubber := dub.New(dub.Deps{
		Translator: llm,
		Speech:     chain,
		Media:      media,
		ASR:        asr,
		Log:        log.With("component", "dub"),
	}, dub.Options{
		Voices:         dub.Catalog(cfg.Dub.Voices),
		TranslateLimit: cfg.Dub.TranslateLimit,
		SpeechLimit:    cfg.Dub.SpeechLimit,
		ChunkGap:       millis(cfg.Dub.ChunkGapMillis),
		GapEpsilon:     millis(cfg.Dub.GapEpsilonMillis),
	})

	d := Deps{
		Media:  media,
		ASR:    asr,
		Store:  localstore.New(cfg.Storage.Root),
		Dub:    dubber,
		Ranker: llm,
		Log:    log,
	}
	if cfg.Diarization.URL != "" {
		d.Diarizer = diarize.New(cfg.Diarization.URL, diarize.WithToken(cfg.Diarization.Token))
	}
	if cfg.Detector.Command != "" {
		d.Detector = asd.New(cfg.Detector.Command, cfg.Detector.Args...)
	}

	closer := func() error { return nil }
	if cfg.Paths.LedgerPath != "" {
		l, err := ledger.Open(cfg.Paths.LedgerPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open ledger: %w", err)
		}
		d.Ledger = l
		closer = l.Close
	}

	p := New(d, Options{
		WorkRoot: cfg.Paths.WorkRoot,
		FPS:      cfg.Media.FPS,
		Compositor: reframe.Compositor{
			BlurSigma:   cfg.Reframe.BlurSigma,
			JPEGQuality: cfg.Reframe.JPEGQuality,
		},
		Speakers: speakers.Options{
			MinCoverage: cfg.Speakers.MinCoverage,
			MinOverlap:  cfg.Speakers.MinOverlap,
		},
		Logf: logf,
	})
	return p, closer, nil
}

func newASR(cfg *config.Config) (ports.ASR, error) {
	switch cfg.ASR.Backend {
	case config.BackendWhisperX:
		return whisperx.New(whisperx.Config{
			Model:       cfg.ASR.WhisperXModel,
			CUDAEnabled: cfg.ASR.CUDAEnabled,
			HFToken:     cfg.ASR.HFToken,
			MinSpeakers: cfg.ASR.MinSpeakers,
			MaxSpeakers: cfg.ASR.MaxSpeakers,
		}), nil
	case config.BackendWhisperCpp:
		return whispercpp.New(cfg.ASR.WhisperCppBin, cfg.ASR.WhisperCppModel), nil
	case config.BackendOpenAI:
		return openai.NewWhisper(openai.Config{
			APIKey:            cfg.Speech.APIKey,
			BaseURL:           cfg.Speech.BaseURL,
			RequestsPerMinute: cfg.Speech.RequestsPerMinute,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported asr backend %q", cfg.ASR.Backend)
	}
}

func millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

var (
	_ ports.Media           = (*ffmpeg.Adapter)(nil)
	_ ports.ASR             = (*whisperx.Adapter)(nil)
	_ ports.ASR             = (*whispercpp.Adapter)(nil)
	_ ports.ASR             = (*openai.Whisper)(nil)
	_ ports.Diarizer        = (*diarize.Client)(nil)
	_ ports.Translator      = (*openrouter.Adapter)(nil)
	_ ports.Ranker          = (*openrouter.Adapter)(nil)
	_ ports.Speech          = (*openai.Speech)(nil)
	_ ports.SpeakerDetector = (*asd.Adapter)(nil)
	_ ports.ObjectStore     = (*localstore.Store)(nil)
	_ usecase.Dubber        = (*dub.Synthesizer)(nil)
)
