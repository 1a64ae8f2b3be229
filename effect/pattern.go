package effect

import (
	"context"
	"time"
)

// Pattern is a wiring check.
type Pattern string

const (
	// IndexSweep lights one led at a time in chain order.
	IndexSweep Pattern = "index_sweep"
	// RGBChannels shows full red, then green, then blue on every led.
	RGBChannels Pattern = "rgb_channels"
)

type PatternRunner struct {
	kind Pattern
	step int
}

func NewPatternRunner(kind Pattern) *PatternRunner { return &PatternRunner{kind: kind} }

// Step paints the next frame on t; returns false when complete.
func (r *PatternRunner) Step(t Target) bool {
	switch r.kind {
	case IndexSweep:
		if r.step >= t.Len() {
			return false
		}
		t.SetAllRGB(0)
		t.SetRGB(r.step, 0xFFFFFF)
	case RGBChannels:
		if r.step >= 3 {
			return false
		}
		t.SetAllRGB(0xFF0000 >> (8 * r.step))
	default:
		return false
	}
	r.step++
	return true
}

// RunPattern pushes every frame of the pattern, delay apart.
func (e *Effects) RunPattern(ctx context.Context, kind Pattern, delay time.Duration) error {
	r := NewPatternRunner(kind)
	for r.Step(e.t) {
		if err := e.show(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}
