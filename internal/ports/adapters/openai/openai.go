// Package openai adapts the OpenAI audio endpoints: text-to-speech strategies
// for dubbing and Whisper transcription with word timestamps.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/forPelevin/clipforge/internal/langcode"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

const (
	DefaultVoice = "alloy"
	// ModelHD and ModelStandard are the preferred and fallback speech models.
	ModelHD       = string(goopenai.TTSModel1HD)
	ModelStandard = string(goopenai.TTSModel1)
)

type Config struct {
	APIKey  string
	BaseURL string
	// RequestsPerMinute paces calls; zero disables pacing.
	RequestsPerMinute int
	HTTPClient        *http.Client
}

type client struct {
	api     *goopenai.Client
	limiter *rate.Limiter
}

func newClient(cfg Config) client {
	oc := goopenai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		oc.BaseURL = base
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	} else {
		oc.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}
	c := client{api: goopenai.NewClientWithConfig(oc)}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	return c
}

func (c client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// Speech is one speech model used as a dub strategy.
type Speech struct {
	client
	model string
}

func NewSpeech(cfg Config, model string) *Speech {
	if strings.TrimSpace(model) == "" {
		model = ModelHD
	}
	return &Speech{client: newClient(cfg), model: model}
}

func (s *Speech) Name() string { return "openai/" + s.model }

// Synthesize returns a WAV payload.
func (s *Speech) Synthesize(ctx context.Context, req ports.SpeechRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("speech: empty text")
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = DefaultVoice
	}
	resp, err := s.api.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model:          goopenai.SpeechModel(s.model),
		Input:          req.Text,
		Voice:          goopenai.SpeechVoice(voice),
		ResponseFormat: goopenai.SpeechResponseFormatWav,
	})
	if err != nil {
		return nil, fmt.Errorf("create speech (%s): %w", s.model, err)
	}
	defer resp.Close()

	b, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("create speech (%s): empty payload", s.model)
	}
	return b, nil
}

// MaxUploadBytes is the API limit on transcription uploads, about 13 minutes
// of 16 kHz mono PCM.
const MaxUploadBytes = 25 << 20

// ErrUploadTooLarge is returned before any request when the audio exceeds
// MaxUploadBytes.
var ErrUploadTooLarge = errors.New("audio exceeds the transcription upload limit")

// Whisper transcribes through the hosted whisper-1 model.
type Whisper struct {
	client
}

func NewWhisper(cfg Config) *Whisper {
	return &Whisper{client: newClient(cfg)}
}

// Transcribe ignores Diarize and Fast; the hosted model has no alignment or
// speaker stage.
func (w *Whisper) Transcribe(ctx context.Context, wavPath string, opts ports.TranscribeOptions) (types.Transcript, error) {
	info, err := os.Stat(wavPath)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("transcription: %w", err)
	}
	if info.Size() > MaxUploadBytes {
		return types.Transcript{}, fmt.Errorf("transcription: %w (%d MB > %d MB); use the whisperx or whispercpp backend",
			ErrUploadTooLarge, info.Size()>>20, MaxUploadBytes>>20)
	}
	if err := w.wait(ctx); err != nil {
		return types.Transcript{}, err
	}
	lang := langcode.Base(opts.Language)
	resp, err := w.api.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:                  goopenai.Whisper1,
		FilePath:               wavPath,
		Language:               lang,
		Format:                 goopenai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []goopenai.TranscriptionTimestampGranularity{goopenai.TranscriptionTimestampGranularityWord},
	})
	if err != nil {
		return types.Transcript{}, fmt.Errorf("transcription: %w", err)
	}

	tr := types.Transcript{Language: lang}
	if tr.Language == "" {
		tr.Language = strings.ToLower(resp.Language)
	}
	for _, word := range resp.Words {
		text := strings.TrimSpace(word.Word)
		if text == "" || word.End < word.Start {
			continue
		}
		tr.Words = append(tr.Words, types.Word{Text: text, Start: word.Start, End: word.End})
	}
	return tr, nil
}
