package directory

import (
	"context"
	"math/rand"
	"time"
)

// Pacer spaces out consecutive references.
type Pacer struct {
	Base   time.Duration
	Jitter time.Duration
}

var DefaultPacer = Pacer{
	Base:   800 * time.Millisecond,
	Jitter: 400 * time.Millisecond,
}

func (p Pacer) Delay() time.Duration {
	if p.Jitter <= 0 {
		return p.Base
	}
	return p.Base + time.Duration(rand.Int63n(int64(p.Jitter)))
}

// Wait blocks before the reference at index, the first reference is never
// delayed.
func (p Pacer) Wait(ctx context.Context, index int) error {
	if index == 0 {
		return ctx.Err()
	}
	delay := p.Delay()
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
