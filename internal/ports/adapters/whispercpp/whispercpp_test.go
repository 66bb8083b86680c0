package whispercpp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/clipforge/internal/ports"
)

const sample = `{
  "result": {"language": "en"},
  "transcription": [
    {"text": " Hello", "offsets": {"from": 0, "to": 500}},
    {"text": " [BLANK_AUDIO]", "offsets": {"from": 500, "to": 1000}},
    {"text": " world.", "offsets": {"from": 1000, "to": 1250}},
    {"text": " ", "offsets": {"from": 1250, "to": 1300}}
  ]
}`

func TestTranscribe(t *testing.T) {
	dir := t.TempDir()
	var args string
	a := New("", "ggml-base.bin").WithCommandRunner(func(_ context.Context, name string, argv ...string) ([]byte, error) {
		if name != "whisper-cli" {
			t.Fatalf("unexpected binary %q", name)
		}
		args = strings.Join(argv, " ")
		return nil, os.WriteFile(filepath.Join(dir, "whisper.json"), []byte(sample), 0o644)
	})
	tr, err := a.Transcribe(context.Background(), filepath.Join(dir, "a.wav"), ports.TranscribeOptions{Language: "en-US", WorkDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(args, "-l en -ml 1 -sow -oj") {
		t.Fatalf("unexpected args %q", args)
	}
	if tr.Language != "en" || len(tr.Words) != 2 {
		t.Fatalf("unexpected transcript %+v", tr)
	}
	if tr.Words[1].Text != "world." || tr.Words[1].Start != 1 || tr.Words[1].End != 1.25 {
		t.Fatalf("unexpected word %+v", tr.Words[1])
	}
}

func TestTranscribe_AutoLanguage(t *testing.T) {
	dir := t.TempDir()
	var args string
	a := New("wc", "m").WithCommandRunner(func(_ context.Context, _ string, argv ...string) ([]byte, error) {
		args = strings.Join(argv, " ")
		return nil, os.WriteFile(filepath.Join(dir, "whisper.json"), []byte(sample), 0o644)
	})
	if _, err := a.Transcribe(context.Background(), "a.wav", ports.TranscribeOptions{WorkDir: dir}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(args, "-l auto") {
		t.Fatalf("expected auto language, got %q", args)
	}
}
