package dub

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SampleRate of the assembled dub track; every speech payload is normalised
// to 16 kHz mono PCM before it is appended.
const SampleRate = 16000

// Track is a mono 16-bit PCM track assembled in memory.
type Track struct {
	samples []int
}

func (t *Track) Duration() time.Duration {
	return time.Duration(len(t.samples)) * time.Second / SampleRate
}

func (t *Track) AppendSilence(d time.Duration) {
	if d <= 0 {
		return
	}
	n := int(d.Seconds() * SampleRate)
	t.samples = append(t.samples, make([]int, n)...)
}

// AppendWav decodes a 16 kHz mono WAV file and appends its samples.
func (t *Track) AppendWav(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("decode %s: not a wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.SampleRate != SampleRate || buf.Format.NumChannels != 1 {
		return 0, fmt.Errorf("decode %s: expected %d Hz mono", path, SampleRate)
	}
	t.samples = append(t.samples, buf.Data...)
	return time.Duration(len(buf.Data)) * time.Second / SampleRate, nil
}

func (t *Track) WriteWav(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(f, SampleRate, 16, 1, 1)
	if err := enc.Write(&audio.IntBuffer{
		Data:           t.samples,
		Format:         &audio.Format{SampleRate: SampleRate, NumChannels: 1},
		SourceBitDepth: 16,
	}); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("close %s: %w", path, err)
	}
	return f.Close()
}
