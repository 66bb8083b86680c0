// Package dub re-voices a clip in another language. Each speaker turn is
// translated, split into speech-sized chunks, synthesized with the speaker's
// voice and laid out on a track that mirrors the source timeline.
package dub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/domain/textchunk"
	"github.com/forPelevin/clipforge/internal/faults"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

const (
	DefaultChunkGap    = 200 * time.Millisecond
	DefaultGapEpsilon  = 10 * time.Millisecond
	failedChunkSilence = time.Second
)

type Deps struct {
	Translator ports.Translator
	Speech     Chain
	Media      ports.Media
	ASR        ports.ASR
	Log        *slog.Logger
}

type Options struct {
	Voices         Catalog
	TranslateLimit int
	SpeechLimit    int
	// ChunkGap separates chunks within one unit.
	ChunkGap time.Duration
	// GapEpsilon drops leading silences this short or shorter.
	GapEpsilon time.Duration
}

func (o Options) withDefaults() Options {
	if o.Voices == nil {
		o.Voices = DefaultCatalog
	}
	if o.TranslateLimit <= 0 {
		o.TranslateLimit = textchunk.TranslateLimit
	}
	if o.SpeechLimit <= 0 {
		o.SpeechLimit = textchunk.SpeechLimit
	}
	if o.ChunkGap < 0 {
		o.ChunkGap = 0
	} else if o.ChunkGap == 0 {
		o.ChunkGap = DefaultChunkGap
	}
	if o.GapEpsilon <= 0 {
		o.GapEpsilon = DefaultGapEpsilon
	}
	return o
}

type Request struct {
	// Turns come from the speaker timeline builder. Times are on the source
	// timeline, as is ClipStart.
	Turns          []types.SpeakerTurn
	Speakers       []string
	ClipStart      float64
	SourceLanguage string
	TargetLanguage string
	WorkDir        string
}

type Result struct {
	// Path is the dub WAV; empty when Skipped.
	Path string
	// Words are the dub's own words, 0-based on the clip timeline.
	Words    []types.Word
	Skipped  bool
	Voiced   int
	Silenced int
	Duration time.Duration
	Voices   map[string]string
}

type Synthesizer struct {
	d    Deps
	opts Options
}

func New(d Deps, opts Options) *Synthesizer {
	if d.Log == nil {
		d.Log = slog.New(slog.DiscardHandler)
	}
	return &Synthesizer{d: d, opts: opts.withDefaults()}
}

// Synthesize builds the dub track. A skipped result comes with an error
// marked faults.ErrDub; the caller keeps the original audio.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (Result, error) {
	units := dubUnits(req.Turns)
	if len(units) == 0 {
		return Result{Skipped: true}, faults.Wrap(faults.ErrDub, "dub", "plan", "no speech to dub", nil)
	}
	voices, unlabelled := AssignVoices(req.Speakers, req.TargetLanguage, s.opts.Voices)
	res := Result{Voices: voices}

	var track Track
	prevEnd := req.ClipStart
	for ui, u := range units {
		if err := ctx.Err(); err != nil {
			return Result{Skipped: true}, err
		}
		if u.Speaker != "" {
			if gap := secondsToDuration(u.Start - prevEnd); gap > s.opts.GapEpsilon {
				track.AppendSilence(gap)
			}
			prevEnd = u.End
		}

		voice, ok := voices[u.Speaker]
		if !ok {
			voice = unlabelled
		}
		text := s.translate(ctx, u.Text, req.SourceLanguage, req.TargetLanguage)
		chunks := textchunk.Split(text, s.opts.SpeechLimit)
		for ci, chunk := range chunks {
			if ci > 0 {
				track.AppendSilence(s.opts.ChunkGap)
			}
			base := filepath.Join(req.WorkDir, fmt.Sprintf("tts_%03d_%03d", ui, ci))
			if err := s.speak(ctx, &track, chunk, voice, req.TargetLanguage, base); err != nil {
				if ctx.Err() != nil {
					return Result{Skipped: true}, ctx.Err()
				}
				s.d.Log.Warn("speech chunk failed, inserting silence",
					"unit", ui, "chunk", ci, "speaker", u.Speaker,
					"error", faults.Wrap(faults.ErrDub, "dub", "synthesize", "", err))
				track.AppendSilence(failedChunkSilence)
				res.Silenced++
				continue
			}
			res.Voiced++
		}
	}

	if res.Voiced == 0 {
		return Result{Skipped: true, Silenced: res.Silenced}, faults.Wrap(faults.ErrDub, "dub", "synthesize", "no chunk was voiced", nil)
	}

	out := filepath.Join(req.WorkDir, "dub.wav")
	if err := track.WriteWav(out); err != nil {
		return Result{Skipped: true}, faults.Wrap(faults.ErrDub, "dub", "write track", "", err)
	}
	tr, err := s.d.ASR.Transcribe(ctx, out, ports.TranscribeOptions{Language: req.TargetLanguage, WorkDir: req.WorkDir})
	if err != nil {
		return Result{Skipped: true}, faults.Wrap(faults.ErrDub, "dub", "transcribe", "", err)
	}
	res.Path = out
	res.Words = tr.Words
	res.Duration = track.Duration()
	return res, nil
}

// dubUnits keeps the labelled turns, or the single unlabelled block when no
// turn is labelled.
func dubUnits(turns []types.SpeakerTurn) []types.SpeakerTurn {
	var labelled []types.SpeakerTurn
	for _, t := range turns {
		if t.Speaker != "" && strings.TrimSpace(t.Text) != "" {
			labelled = append(labelled, t)
		}
	}
	if len(labelled) > 0 {
		return labelled
	}
	for _, t := range turns {
		if strings.TrimSpace(t.Text) != "" {
			return []types.SpeakerTurn{{Text: t.Text, Start: t.Start, End: t.End}}
		}
	}
	return nil
}

// translate keeps the source text of any chunk that fails to translate.
func (s *Synthesizer) translate(ctx context.Context, text, source, target string) string {
	if s.d.Translator == nil || strings.TrimSpace(target) == "" {
		return text
	}
	chunks := textchunk.Split(text, s.opts.TranslateLimit)
	out := make([]string, 0, len(chunks))
	for i, c := range chunks {
		t, err := s.d.Translator.Translate(ctx, c, source, target)
		if err != nil || strings.TrimSpace(t) == "" {
			if err == nil {
				err = errors.New("empty translation")
			}
			s.d.Log.Warn("translation chunk failed, keeping source text",
				"chunk", i, "error", faults.Wrap(faults.ErrDub, "dub", "translate", "", err))
			out = append(out, c)
			continue
		}
		out = append(out, strings.TrimSpace(t))
	}
	return strings.Join(out, " ")
}

func (s *Synthesizer) speak(ctx context.Context, track *Track, text, voice, lang, base string) error {
	payload, strategy, err := s.d.Speech.Synthesize(ctx, ports.SpeechRequest{Text: text, Voice: voice, Language: lang})
	if err != nil {
		return err
	}
	raw := base + ".audio"
	if err := os.WriteFile(raw, payload, 0o644); err != nil {
		return err
	}
	wavPath := base + ".wav"
	if err := s.d.Media.NormalizeSpeech(ctx, raw, wavPath); err != nil {
		return err
	}
	d, err := track.AppendWav(wavPath)
	if err != nil {
		return err
	}
	s.d.Log.Debug("speech chunk voiced", "strategy", strategy, "voice", voice, "duration", d)
	return nil
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
