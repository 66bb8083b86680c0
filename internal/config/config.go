package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths holds local directories. WorkRoot hosts per-clip scratch dirs and
// the batch lock.
type Paths struct {
	WorkRoot   string `toml:"work_root"`
	LedgerPath string `toml:"ledger_path"`
}

type Logging struct {
	Level       string   `toml:"level"`
	Format      string   `toml:"format"`
	OutputPaths []string `toml:"output_paths"`
}

type Media struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	Preset  string `toml:"preset"`
	CRF     int    `toml:"crf"`
	FPS     int    `toml:"fps"`
}

// ASR selects the speech recognition backend: "whisperx", "whispercpp" or
// "openai".
type ASR struct {
	Backend string `toml:"backend"`

	WhisperXModel string `toml:"whisperx_model"`
	CUDAEnabled   bool   `toml:"cuda_enabled"`
	HFToken       string `toml:"hf_token"`
	MinSpeakers   int    `toml:"min_speakers"`
	MaxSpeakers   int    `toml:"max_speakers"`

	WhisperCppBin   string `toml:"whispercpp_bin"`
	WhisperCppModel string `toml:"whispercpp_model"`
}

// Diarization points at an HTTP diarization service. An empty URL leaves
// speaker labels to the ASR backend.
type Diarization struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// Translation configures the OpenRouter chat model used for translation and
// clip ranking.
type Translation struct {
	APIKey            string   `toml:"api_key"`
	BaseURL           string   `toml:"base_url"`
	AllowedHosts      []string `toml:"allowed_hosts"`
	Model             string   `toml:"model"`
	Referrer          string   `toml:"referrer"`
	SiteName          string   `toml:"site_name"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
}

// Speech lists text-to-speech models in fallback order.
type Speech struct {
	APIKey            string   `toml:"api_key"`
	BaseURL           string   `toml:"base_url"`
	Models            []string `toml:"models"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
}

type Dub struct {
	TranslateLimit   int                 `toml:"translate_limit"`
	SpeechLimit      int                 `toml:"speech_limit"`
	ChunkGapMillis   int                 `toml:"chunk_gap_ms"`
	GapEpsilonMillis int                 `toml:"gap_epsilon_ms"`
	Voices           map[string][]string `toml:"voices"`
}

type Speakers struct {
	MinCoverage float64 `toml:"min_coverage"`
	MinOverlap  float64 `toml:"min_overlap"`
}

// Detector runs the external active speaker detector. Render refuses to
// start without a command.
type Detector struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

type Reframe struct {
	BlurSigma   float64 `toml:"blur_sigma"`
	JPEGQuality int     `toml:"jpeg_quality"`
}

// Storage roots the object store. Keys are slash separated paths below Root.
type Storage struct {
	Root         string `toml:"root"`
	OutputPrefix string `toml:"output_prefix"`
}

type Discovery struct {
	Clips          int    `toml:"clips"`
	MinClipSeconds int    `toml:"min_clip_seconds"`
	MaxClipSeconds int    `toml:"max_clip_seconds"`
	Prompt         string `toml:"prompt"`
}

// Config is the full clipforge configuration.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Logging     Logging     `toml:"logging"`
	Media       Media       `toml:"media"`
	ASR         ASR         `toml:"asr"`
	Diarization Diarization `toml:"diarization"`
	Translation Translation `toml:"translation"`
	Speech      Speech      `toml:"speech"`
	Dub         Dub         `toml:"dub"`
	Speakers    Speakers    `toml:"speakers"`
	Detector    Detector    `toml:"detector"`
	Reframe     Reframe     `toml:"reframe"`
	Storage     Storage     `toml:"storage"`
	Discovery   Discovery   `toml:"discovery"`
}

const projectConfigName = "clipforge.toml"

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipforge/config.toml")
}

// Load resolves the configuration file (explicit path, then ./clipforge.toml,
// then the per-user file), decodes it over the defaults, fills environment
// fallbacks and validates the result. A missing file is not an error.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		f, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file %s does not exist", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// Marshal renders cfg as TOML with secrets masked.
func (c Config) Marshal() ([]byte, error) {
	masked := c
	masked.ASR.HFToken = mask(c.ASR.HFToken)
	masked.Diarization.Token = mask(c.Diarization.Token)
	masked.Translation.APIKey = mask(c.Translation.APIKey)
	masked.Speech.APIKey = mask(c.Speech.APIKey)
	return toml.Marshal(masked)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath resolves "~" and makes the path absolute.
func ExpandPath(p string) (string, error) { return expandPath(p) }

func expandPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if p == "~" {
			p = home
		} else if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
			p = filepath.Join(home, p[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}
