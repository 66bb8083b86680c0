// Package faults classifies clip pipeline failures.
//
// Every error leaving a stage is wrapped with one of the sentinel markers so
// the renderer can decide whether the clip is aborted or degrades gracefully,
// and so the ledger can persist a stable kind string.
package faults

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrAcquisition         = errors.New("acquisition error")
	ErrDetection           = errors.New("detection error")
	ErrTranscription       = errors.New("transcription error")
	ErrDiarizationDegraded = errors.New("diarization degraded")
	ErrDub                 = errors.New("dub error")
	ErrPostProcess         = errors.New("post-process error")
	ErrMedia               = errors.New("media error")
	ErrPublish             = errors.New("publish error")
)

// Wrap tags err with marker and prefixes stage, operation and message.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrMedia
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ClipFatal reports whether err must abort the current clip. Dub,
// post-process and degraded-diarization errors never do.
func ClipFatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrDub), errors.Is(err, ErrPostProcess), errors.Is(err, ErrDiarizationDegraded):
		return false
	default:
		return true
	}
}

// RequestFatal reports whether err aborts the whole batch before any clip runs.
func RequestFatal(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrAcquisition) || errors.Is(err, ErrTranscription)
}

// Kind returns a short stable name for the marker carried by err.
// Cancellation wins over any marker.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAcquisition):
		return "acquisition"
	case errors.Is(err, ErrDetection):
		return "detection"
	case errors.Is(err, ErrTranscription):
		return "transcription"
	case errors.Is(err, ErrDiarizationDegraded):
		return "diarization_degraded"
	case errors.Is(err, ErrDub):
		return "dub"
	case errors.Is(err, ErrPostProcess):
		return "post_process"
	case errors.Is(err, ErrPublish):
		return "publish"
	case errors.Is(err, ErrMedia):
		return "media"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "clip failure"
	}
	return strings.Join(parts, ": ")
}
