package types

import (
	"strings"
	"time"
)

type Transcript struct {
	Language string `json:"language,omitempty"`
	Words    []Word `json:"words"`
}

// Word is one recognised token on a shared timeline. Speaker is empty when
// diarization did not label it.
type Word struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

func (w Word) Duration() float64 { return w.End - w.Start }

// WordsInRange returns copies of the words overlapping [start, end), in order.
func (t Transcript) WordsInRange(start, end float64) []Word {
	var out []Word
	for _, w := range t.Words {
		if w.End <= start || w.Start >= end {
			continue
		}
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}

type SpeakerInterval struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

type SpeakerTurn struct {
	Speaker string
	Text    string
	Start   float64
	End     float64
}

type FacePos struct {
	Frame int     `json:"frame"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	S     float64 `json:"s"`
}

// FaceTrack is one detected face over a contiguous frame span. Scores holds
// one activity value per entry of Frames.
type FaceTrack struct {
	ID     int       `json:"id"`
	Frames []FacePos `json:"frames"`
	Scores []float64 `json:"scores"`
}

type ClipRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (r ClipRange) Duration() float64 { return r.End - r.Start }

// Candidate is a scored transcript window considered during clip discovery.
type Candidate struct {
	Start time.Duration
	End   time.Duration
	Text  string

	InfoScore float64
	HookScore float64
}

type ClipSpec struct {
	Start         time.Duration
	End           time.Duration
	Title         string
	Summary       string
	Topics        []string
	ViralityScore int
	Reason        string
}

type Manifest struct {
	RunID     string         `json:"run_id"`
	SourceKey string         `json:"source_key"`
	Language  string         `json:"language,omitempty"`
	Target    string         `json:"target_language,omitempty"`
	Aspect    string         `json:"aspect_ratio"`
	Clips     []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	Index     int      `json:"index"`
	StartSec  float64  `json:"start_sec"`
	EndSec    float64  `json:"end_sec"`
	OutputKey string   `json:"output_key,omitempty"`
	Dubbed    bool     `json:"dubbed"`
	Stages    []string `json:"stages"`
	Error     string   `json:"error,omitempty"`
	ErrorKind string   `json:"error_kind,omitempty"`
}

type DiscoveredClip struct {
	Start         float64  `json:"start"`
	End           float64  `json:"end"`
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	ViralityScore int      `json:"virality_score"`
	Topics        []string `json:"related_topics,omitempty"`
}

type Discovery struct {
	SourceKey string           `json:"source_key"`
	Language  string           `json:"detected_language"`
	Duration  float64          `json:"video_duration"`
	Clips     []DiscoveredClip `json:"identified_clips"`
}
