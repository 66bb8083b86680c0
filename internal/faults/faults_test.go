package faults_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/forPelevin/clipforge/internal/faults"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := faults.Wrap(faults.ErrDetection, "detect", "load tracks", "missing", base)
	if !errors.Is(err, faults.ErrDetection) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected cause to be retained, got %v", err)
	}
	for _, fragment := range []string{"detect", "load tracks", "missing"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %q", fragment, err.Error())
		}
	}
}

func TestClipFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
		kind  string
	}{
		{name: "nil", err: nil, fatal: false, kind: ""},
		{name: "detection", err: faults.Wrap(faults.ErrDetection, "detect", "", "", nil), fatal: true, kind: "detection"},
		{name: "transcription", err: faults.Wrap(faults.ErrTranscription, "asr", "", "", nil), fatal: true, kind: "transcription"},
		{name: "dub", err: faults.Wrap(faults.ErrDub, "dub", "tts", "", nil), fatal: false, kind: "dub"},
		{name: "post process", err: faults.Wrap(faults.ErrPostProcess, "music", "", "", nil), fatal: false, kind: "post_process"},
		{name: "degraded", err: faults.Wrap(faults.ErrDiarizationDegraded, "speakers", "", "", nil), fatal: false, kind: "diarization_degraded"},
		{name: "unmarked", err: errors.New("x"), fatal: true, kind: "unknown"},
		{name: "cancelled", err: fmt.Errorf("clip not started: %w", context.Canceled), fatal: true, kind: "cancelled"},
		{name: "cancelled during media", err: fmt.Errorf("%w: %w", context.DeadlineExceeded, faults.Wrap(faults.ErrMedia, "cut", "", "", nil)), fatal: true, kind: "cancelled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := faults.ClipFatal(tt.err); got != tt.fatal {
				t.Fatalf("ClipFatal = %v, want %v", got, tt.fatal)
			}
			if got := faults.Kind(tt.err); got != tt.kind {
				t.Fatalf("Kind = %q, want %q", got, tt.kind)
			}
		})
	}
}

func TestRequestFatal(t *testing.T) {
	if !faults.RequestFatal(faults.Wrap(faults.ErrAcquisition, "fetch", "", "", nil)) {
		t.Fatal("acquisition must abort the request")
	}
	if faults.RequestFatal(faults.Wrap(faults.ErrDetection, "detect", "", "", nil)) {
		t.Fatal("detection only aborts a clip")
	}
}
