package spi

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/digitalled/model"
)

const DFLT_FPS = 30

// FrameFunc mutates the strip for the frame due at elapsed since the loop
// started.
type FrameFunc func(s *model.Strip, elapsed time.Duration)

// Looper refreshes the strip at a fixed rate. The frame callback and the
// transfer run on the same goroutine, so the strip is never touched
// concurrently as long as nobody else holds it.
type Looper struct {
	drv   *Driver
	frame FrameFunc
	clock clockwork.Clock
	fps   int

	ticks atomic.Uint64
	errs  atomic.Uint64
}

func NewLooper(d *Driver, fps int, f FrameFunc, clock clockwork.Clock) *Looper {
	if fps <= 0 {
		fps = DFLT_FPS
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Looper{
		drv:   d,
		frame: f,
		clock: clock,
		fps:   fps,
	}
}

// Ticks is the number of frames processed.
func (l *Looper) Ticks() uint64 { return l.ticks.Load() }

// Errors is the number of frames whose transfer failed.
func (l *Looper) Errors() uint64 { return l.errs.Load() }

// Run blocks until ctx is done. Transfer errors are counted and logged by the
// driver; they do not stop the loop.
func (l *Looper) Run(ctx context.Context) {
	delta := time.Second / time.Duration(l.fps)
	ticker := l.clock.NewTicker(delta)
	defer ticker.Stop()

	start := l.clock.Now()
	log.Info().Int("fps", l.fps).Msg("refresh loop started")

	for {
		select {
		case <-ticker.Chan():
			if l.frame != nil {
				l.frame(l.drv.Strip(), l.clock.Since(start))
			}
			if err := l.drv.Update(false); err != nil {
				l.errs.Add(1)
			}
			l.ticks.Add(1)

		case <-ctx.Done():
			log.Info().Uint64("frames", l.ticks.Load()).Uint64("errors", l.errs.Load()).Msg("refresh loop stopped")
			return
		}
	}
}
