// Package whispercpp transcribes with a local whisper.cpp build. It emits one
// segment per word, so word timings come straight from segment offsets.
package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/clipforge/internal/langcode"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

type Adapter struct {
	bin   string
	model string
	run   func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func New(binPath, modelPath string) *Adapter {
	if binPath == "" {
		binPath = "whisper-cli"
	}
	return &Adapter{bin: binPath, model: modelPath, run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).CombinedOutput()
	}}
}

// WithCommandRunner replaces process execution (for testing).
func (a *Adapter) WithCommandRunner(run func(ctx context.Context, name string, args ...string) ([]byte, error)) *Adapter {
	if run != nil {
		a.run = run
	}
	return a
}

// Transcribe ignores opts.Diarize; speakers come from the diarizer.
func (a *Adapter) Transcribe(ctx context.Context, wavPath string, opts ports.TranscribeOptions) (types.Transcript, error) {
	dir := opts.WorkDir
	if dir == "" {
		dir = filepath.Dir(wavPath)
	}
	outPrefix := filepath.Join(dir, "whisper")
	lang := langcode.Base(opts.Language)
	if lang == "" {
		lang = "auto"
	}
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-l", lang,
		"-ml", "1",
		"-sow",
		"-oj",
		"-of", outPrefix,
	}
	b, err := a.run(ctx, a.bin, args...)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return decode(jb)
}

type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Text    string `json:"text"`
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
	} `json:"transcription"`
}

func decode(b []byte) (types.Transcript, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisper.cpp json: %w", err)
	}
	tr := types.Transcript{Language: out.Result.Language}
	for _, seg := range out.Transcription {
		text := strings.TrimSpace(seg.Text)
		// Special tokens like [BLANK_AUDIO] are not speech.
		if text == "" || (strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]")) {
			continue
		}
		tr.Words = append(tr.Words, types.Word{
			Text:  text,
			Start: float64(seg.Offsets.From) / 1000,
			End:   float64(seg.Offsets.To) / 1000,
		})
	}
	return tr, nil
}
