// Package whisperx runs the WhisperX CLI through uvx and decodes its word
// level JSON output.
package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/forPelevin/clipforge/internal/langcode"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

const (
	DefaultModel   = "large-v2"
	PypiIndexURL   = "https://pypi.org/simple"
	CUDAIndexURL   = "https://download.pytorch.org/whl/cu128"
	BatchSize      = "16"
	CPUComputeType = "float32"
	UVXCommand     = "uvx"
)

type Config struct {
	Model       string
	CUDAEnabled bool
	// HFToken enables pyannote diarization inside WhisperX.
	HFToken     string
	MinSpeakers int
	MaxSpeakers int
}

type Adapter struct {
	cfg Config
	run func(ctx context.Context, name string, args ...string) error
}

func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg, run: runCommand}
}

// WithCommandRunner replaces process execution (for testing).
func (a *Adapter) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	if runner != nil {
		a.run = runner
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath string, opts ports.TranscribeOptions) (types.Transcript, error) {
	if wavPath == "" {
		return types.Transcript{}, fmt.Errorf("whisperx: source path required")
	}
	outDir := opts.WorkDir
	if outDir == "" {
		outDir = filepath.Dir(wavPath)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return types.Transcript{}, fmt.Errorf("whisperx: ensure output dir: %w", err)
	}
	if err := a.run(ctx, UVXCommand, a.buildArgs(wavPath, outDir, opts)...); err != nil {
		return types.Transcript{}, fmt.Errorf("whisperx: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	return LoadTranscript(filepath.Join(outDir, base+".json"))
}

func (a *Adapter) buildArgs(source, outDir string, opts ports.TranscribeOptions) []string {
	args := make([]string, 0, 32)
	if a.cfg.CUDAEnabled {
		args = append(args, "--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}
	model := a.cfg.Model
	if model == "" {
		model = DefaultModel
	}
	args = append(args,
		"whisperx",
		source,
		"--model", model,
		"--batch_size", BatchSize,
		"--output_dir", outDir,
		"--output_format", "json",
	)
	if lang := langcode.Base(opts.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	if opts.Fast {
		args = append(args, "--no_align")
	} else if opts.Diarize && a.cfg.HFToken != "" {
		args = append(args, "--diarize", "--hf_token", a.cfg.HFToken)
		if a.cfg.MinSpeakers > 0 {
			args = append(args, "--min_speakers", fmt.Sprint(a.cfg.MinSpeakers))
		}
		if a.cfg.MaxSpeakers > 0 {
			args = append(args, "--max_speakers", fmt.Sprint(a.cfg.MaxSpeakers))
		}
	}
	if a.cfg.CUDAEnabled {
		args = append(args, "--device", "cuda")
	} else {
		args = append(args, "--device", "cpu", "--compute_type", CPUComputeType)
	}
	return args
}

type payload struct {
	Language string    `json:"language"`
	Segments []segment `json:"segments"`
}

type segment struct {
	Text    string          `json:"text"`
	Start   decimal.Decimal `json:"start"`
	End     decimal.Decimal `json:"end"`
	Speaker string          `json:"speaker"`
	Words   []word          `json:"words"`
}

type word struct {
	Text    string           `json:"word"`
	Start   *decimal.Decimal `json:"start"`
	End     *decimal.Decimal `json:"end"`
	Speaker string           `json:"speaker"`
}

// LoadTranscript decodes a WhisperX JSON file. Words the aligner could not
// time are dropped; segments without word entries become a single word.
func LoadTranscript(path string) (types.Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("open whisperx result: %w", err)
	}
	defer f.Close()

	var p payload
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisperx result: %w", err)
	}
	tr := types.Transcript{Language: p.Language}
	for _, s := range p.Segments {
		if len(s.Words) == 0 {
			if text := strings.TrimSpace(s.Text); text != "" {
				tr.Words = append(tr.Words, types.Word{Text: text, Start: s.Start.InexactFloat64(), End: s.End.InexactFloat64(), Speaker: s.Speaker})
			}
			continue
		}
		for _, w := range s.Words {
			text := strings.TrimSpace(w.Text)
			if text == "" || w.Start == nil || w.End == nil {
				continue
			}
			tr.Words = append(tr.Words, types.Word{
				Text:    text,
				Start:   w.Start.InexactFloat64(),
				End:     w.End.InexactFloat64(),
				Speaker: w.Speaker,
			})
		}
	}
	return tr, nil
}
