package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/forPelevin/clipforge/internal/types"
)

// ParseRange parses "start-end" where each side is seconds ("12.5") or a
// clock value ("1:02.5", "1:00:03").
func ParseRange(s string) (types.ClipRange, error) {
	a, b, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return types.ClipRange{}, fmt.Errorf("clip range %q: want start-end", s)
	}
	start, err := parseClock(a)
	if err != nil {
		return types.ClipRange{}, fmt.Errorf("clip range %q: %w", s, err)
	}
	end, err := parseClock(b)
	if err != nil {
		return types.ClipRange{}, fmt.Errorf("clip range %q: %w", s, err)
	}
	if end <= start {
		return types.ClipRange{}, fmt.Errorf("clip range %q: end must be after start", s)
	}
	return types.ClipRange{Start: start, End: end}, nil
}

func parseClock(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time")
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	var total float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("bad time %q", s)
		}
		if i < len(parts)-1 && v != float64(int(v)) {
			return 0, fmt.Errorf("bad time %q", s)
		}
		total = total*60 + v
	}
	return total, nil
}

// ReadClips decodes a clips file. It accepts the document written by
// discover, an object with a "clips" list, or a bare list of
// {"start","end"} objects.
func ReadClips(r io.Reader) ([]types.ClipRange, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("clips file is empty")
	}

	var ranges []types.ClipRange
	if b[0] == '[' {
		if err := json.Unmarshal(b, &ranges); err != nil {
			return nil, fmt.Errorf("decode clips: %w", err)
		}
	} else {
		var doc struct {
			Identified []types.ClipRange `json:"identified_clips"`
			Clips      []types.ClipRange `json:"clips"`
		}
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("decode clips: %w", err)
		}
		ranges = append(doc.Identified, doc.Clips...)
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("clips file lists no clips")
	}
	for i, c := range ranges {
		if c.Start < 0 || c.End <= c.Start {
			return nil, fmt.Errorf("clip %d: invalid range %.3f-%.3f", i, c.Start, c.End)
		}
	}
	return ranges, nil
}
