package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/clipforge/internal/ports/adapters/openrouter"
)

// Validate ensures the configuration is usable. Provider credentials and the
// detector are checked separately by the Require methods since only some
// commands need them.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateASR(); err != nil {
		return err
	}
	if err := openrouter.ValidateBaseURL(c.Translation.BaseURL, c.Translation.AllowedHosts); err != nil {
		return fmt.Errorf("translation.base_url: %w", err)
	}
	if err := c.validateDub(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if c.Reframe.BlurSigma < 0 {
		return errors.New("reframe.blur_sigma must be >= 0")
	}
	if c.Reframe.JPEGQuality < 1 || c.Reframe.JPEGQuality > 100 {
		return errors.New("reframe.jpeg_quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateMedia() error {
	if strings.TrimSpace(c.Media.FFmpeg) == "" || strings.TrimSpace(c.Media.FFprobe) == "" {
		return errors.New("media.ffmpeg and media.ffprobe must be set")
	}
	if c.Media.CRF < 0 || c.Media.CRF > 51 {
		return errors.New("media.crf must be between 0 and 51")
	}
	if c.Media.FPS <= 0 {
		return errors.New("media.fps must be positive")
	}
	return nil
}

func (c *Config) validateASR() error {
	switch c.ASR.Backend {
	case BackendWhisperX:
		if c.ASR.MinSpeakers < 0 || c.ASR.MaxSpeakers < 0 {
			return errors.New("asr speaker bounds must be >= 0")
		}
		if c.ASR.MaxSpeakers > 0 && c.ASR.MinSpeakers > c.ASR.MaxSpeakers {
			return errors.New("asr.min_speakers must be <= asr.max_speakers")
		}
	case BackendWhisperCpp:
		if c.ASR.WhisperCppModel == "" {
			return errors.New("asr.whispercpp_model is required for the whispercpp backend")
		}
	case BackendOpenAI:
		if c.Speech.APIKey == "" {
			return errors.New("speech.api_key is required for the openai asr backend (or set OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("asr.backend: unsupported value %q", c.ASR.Backend)
	}
	return nil
}

func (c *Config) validateDub() error {
	if c.Dub.TranslateLimit <= 0 || c.Dub.SpeechLimit <= 0 {
		return errors.New("dub limits must be positive")
	}
	if c.Dub.ChunkGapMillis < 0 || c.Dub.GapEpsilonMillis < 0 {
		return errors.New("dub gaps must be >= 0")
	}
	if c.Speakers.MinCoverage <= 0 || c.Speakers.MinCoverage > 1 {
		return errors.New("speakers.min_coverage must be in (0, 1]")
	}
	if c.Speakers.MinOverlap <= 0 || c.Speakers.MinOverlap > 1 {
		return errors.New("speakers.min_overlap must be in (0, 1]")
	}
	for lang, voices := range c.Dub.Voices {
		if len(voices) == 0 {
			return fmt.Errorf("dub.voices.%s is empty", lang)
		}
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	d := c.Discovery
	if d.Clips <= 0 {
		return errors.New("discovery.clips must be positive")
	}
	if d.MinClipSeconds <= 0 || d.MaxClipSeconds <= 0 {
		return errors.New("discovery clip bounds must be positive")
	}
	if d.MinClipSeconds > d.MaxClipSeconds {
		return errors.New("discovery.min_clip_seconds must be <= discovery.max_clip_seconds")
	}
	return nil
}

// RequireTranslation reports a missing OpenRouter key.
func (c *Config) RequireTranslation() error {
	if c.Translation.APIKey == "" {
		return errors.New("translation.api_key is required. Set OPENROUTER_API_KEY or edit the config (create one with 'clipforge config init')")
	}
	return nil
}

// RequireSpeech reports a missing text-to-speech setup.
func (c *Config) RequireSpeech() error {
	if c.Speech.APIKey == "" {
		return errors.New("speech.api_key is required for dubbing. Set OPENAI_API_KEY or edit the config")
	}
	if len(c.Speech.Models) == 0 {
		return errors.New("speech.models must list at least one model")
	}
	return nil
}

// RequireDetector reports a missing active speaker detector. Rendering
// cannot reframe without one.
func (c *Config) RequireDetector() error {
	if strings.TrimSpace(c.Detector.Command) == "" {
		return errors.New("detector.command is required for rendering. Point it at an active speaker detector in the config")
	}
	return nil
}
