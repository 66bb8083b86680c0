package dub

import (
	"context"
	"errors"
	"fmt"

	"github.com/forPelevin/clipforge/internal/ports"
)

// Chain tries speech strategies in order; the first success wins.
type Chain []ports.Speech

// Synthesize returns the payload and the name of the strategy that produced
// it. When every strategy fails the joined error lists each failure.
func (c Chain) Synthesize(ctx context.Context, req ports.SpeechRequest) ([]byte, string, error) {
	if len(c) == 0 {
		return nil, "", errors.New("no speech strategy configured")
	}
	var errs []error
	for _, s := range c {
		b, err := s.Synthesize(ctx, req)
		if err == nil {
			return b, s.Name(), nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	return nil, "", errors.Join(errs...)
}
