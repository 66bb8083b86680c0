package ledger_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forPelevin/clipforge/internal/ledger"
	"github.com/forPelevin/clipforge/internal/types"
)

func mustOpen(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "state", "ledger.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRunLifecycle(t *testing.T) {
	l := mustOpen(t)
	ctx := context.Background()

	if err := l.BeginRun(ctx, ledger.Run{ID: "run-1", SourceKey: "shows/ep1.mp4", SourceHash: "abc", TargetLanguage: "es", Aspect: "9:16", ClipsTotal: 2}); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	clips := []types.ManifestClip{
		{Index: 1, StartSec: 30, EndSec: 60, Error: "cut failed", ErrorKind: "media", Stages: []string{"cut"}},
		{Index: 0, StartSec: 0, EndSec: 30, OutputKey: "shows/clip_0.mp4", Dubbed: true, Stages: []string{"cut", "audio_extracted", "published"}},
	}
	for _, c := range clips {
		if err := l.RecordClip(ctx, "run-1", c); err != nil {
			t.Fatalf("RecordClip failed: %v", err)
		}
	}
	if err := l.FinishRun(ctx, "run-1", ledger.StatusPartial, errors.New("1 clip failed")); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	runs, err := l.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	r := runs[0]
	if r.Status != ledger.StatusPartial || r.ClipsTotal != 2 || r.ClipsOK != 1 || r.Error != "1 clip failed" || r.FinishedAt == nil {
		t.Fatalf("unexpected run %#v", r)
	}
	if r.Language != "" || r.TargetLanguage != "es" {
		t.Fatalf("unexpected languages %#v", r)
	}

	got, err := l.Clips(ctx, "run-1")
	if err != nil {
		t.Fatalf("Clips failed: %v", err)
	}
	if len(got) != 2 || got[0].Index != 0 || !got[0].Dubbed || len(got[0].Stages) != 3 {
		t.Fatalf("unexpected clips %#v", got)
	}
	if got[1].ErrorKind != "media" || got[1].OutputKey != "" {
		t.Fatalf("unexpected failed clip %#v", got[1])
	}
}

func TestRunsNewestFirst(t *testing.T) {
	l := mustOpen(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := l.BeginRun(ctx, ledger.Run{ID: id, SourceKey: "k", StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := l.Runs(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" || runs[0].Status != ledger.StatusRunning {
		t.Fatalf("unexpected order %#v", runs)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := ledger.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.BeginRun(context.Background(), ledger.Run{ID: "x", SourceKey: "k"}); err != nil {
		t.Fatal(err)
	}
	_ = l.Close()

	l, err = ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer l.Close()
	runs, err := l.Runs(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("got %v, %v", runs, err)
	}
}

func TestValidation(t *testing.T) {
	l := mustOpen(t)
	if err := l.BeginRun(context.Background(), ledger.Run{SourceKey: "k"}); err == nil {
		t.Fatal("expected error for missing id")
	}
	if err := l.FinishRun(context.Background(), "missing", ledger.StatusFailed, nil); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestFingerprint(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ledger.Fingerprint(p)
	if err != nil {
		t.Fatal(err)
	}
	// BLAKE3 of the empty input.
	const want = "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"
	if got != want {
		t.Fatalf("fingerprint = %s", got)
	}
	if _, err := ledger.Fingerprint(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error")
	}
}
