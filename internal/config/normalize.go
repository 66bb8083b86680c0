package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeASR()
	c.normalizeProviders()
	c.normalizeDetector()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkRoot) == "" {
		c.Paths.WorkRoot = defaultWorkRoot
	}
	if c.Paths.WorkRoot, err = expandPath(c.Paths.WorkRoot); err != nil {
		return fmt.Errorf("paths.work_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LedgerPath) == "" {
		c.Paths.LedgerPath = defaultLedgerPath
	}
	if c.Paths.LedgerPath, err = expandPath(c.Paths.LedgerPath); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	if strings.TrimSpace(c.Storage.Root) == "" {
		c.Storage.Root = defaultStorage
	}
	if c.Storage.Root, err = expandPath(c.Storage.Root); err != nil {
		return fmt.Errorf("storage.root: %w", err)
	}
	c.Storage.OutputPrefix = strings.Trim(strings.TrimSpace(c.Storage.OutputPrefix), "/")
	if c.ASR.WhisperCppModel != "" {
		if c.ASR.WhisperCppModel, err = expandPath(c.ASR.WhisperCppModel); err != nil {
			return fmt.Errorf("asr.whispercpp_model: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}
}

func (c *Config) normalizeASR() {
	c.ASR.Backend = strings.ToLower(strings.TrimSpace(c.ASR.Backend))
	if c.ASR.Backend == "" {
		c.ASR.Backend = BackendWhisperX
	}
	if c.ASR.HFToken == "" {
		c.ASR.HFToken = lookupEnv("HF_TOKEN", "HUGGING_FACE_HUB_TOKEN")
	}
}

func (c *Config) normalizeProviders() {
	if c.Translation.APIKey == "" {
		c.Translation.APIKey = lookupEnv("OPENROUTER_API_KEY")
	}
	if v := lookupEnv("OPENROUTER_BASE_URL"); v != "" && c.Translation.BaseURL == defaultOpenRouter {
		c.Translation.BaseURL = v
	}
	if v := lookupEnv("OPENROUTER_MODEL"); v != "" {
		c.Translation.Model = v
	}
	c.Translation.BaseURL = strings.TrimRight(strings.TrimSpace(c.Translation.BaseURL), "/")
	if c.Speech.APIKey == "" {
		c.Speech.APIKey = lookupEnv("OPENAI_API_KEY")
	}
	models := c.Speech.Models[:0]
	for _, m := range c.Speech.Models {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	c.Speech.Models = models
	if c.Diarization.Token == "" {
		c.Diarization.Token = lookupEnv("DIARIZATION_TOKEN")
	}
	c.Diarization.URL = strings.TrimRight(strings.TrimSpace(c.Diarization.URL), "/")
}

func (c *Config) normalizeDetector() {
	c.Detector.Command = strings.TrimSpace(c.Detector.Command)
}

func lookupEnv(keys ...string) string {
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
