package effect

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/coreman2200/digitalled/model"
)

// Effects runs blocking light sequences on a Target. Every frame is pushed
// with Update(false) and followed by the step delay. A failed update aborts
// the sequence and is returned; so is a cancelled context.
type Effects struct {
	t     Target
	clock clockwork.Clock
	ease  Ease

	// last color set through SetColor or FadeToColor
	cur [3]uint8
}

func New(t Target, clock clockwork.Clock) *Effects {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Effects{t: t, clock: clock, ease: Linear}
}

// SetEase selects the fade curve. Unknown values fall back to Linear.
func (e *Effects) SetEase(ease Ease) {
	if !ease.valid() || ease == "" {
		ease = Linear
	}
	e.ease = ease
}

// Current is the remembered color FadeToColor starts from.
func (e *Effects) Current() (r, g, b uint8) {
	return e.cur[0], e.cur[1], e.cur[2]
}

func (e *Effects) show(ctx context.Context, delay time.Duration) error {
	if err := e.t.Update(false); err != nil {
		return err
	}
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.clock.After(delay):
		return nil
	}
}

func normSteps(steps int) int {
	if steps < 1 {
		return 1
	}
	return steps
}

// FadeIn goes from dark to the color in steps+1 frames.
func (e *Effects) FadeIn(ctx context.Context, r, g, b uint8, steps int, delay time.Duration) error {
	n := normSteps(steps)
	for k := 0; k <= n; k++ {
		e.t.SetAllColor(e.ease.lerp(0, r, k, n), e.ease.lerp(0, g, k, n), e.ease.lerp(0, b, k, n))
		if err := e.show(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

// FadeOut goes from the color to dark in steps+1 frames.
func (e *Effects) FadeOut(ctx context.Context, r, g, b uint8, steps int, delay time.Duration) error {
	n := normSteps(steps)
	for k := 0; k <= n; k++ {
		e.t.SetAllColor(e.ease.lerp(r, 0, k, n), e.ease.lerp(g, 0, k, n), e.ease.lerp(b, 0, k, n))
		if err := e.show(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

func (e *Effects) FadeInFadeOut(ctx context.Context, r, g, b uint8, steps int, delay time.Duration) error {
	if err := e.FadeIn(ctx, r, g, b, steps, delay); err != nil {
		return err
	}
	return e.FadeOut(ctx, r, g, b, steps, delay)
}

// SetColor paints the whole strip, pushes it and remembers the color.
func (e *Effects) SetColor(r, g, b uint8) error {
	e.t.SetAllColor(r, g, b)
	e.cur = [3]uint8{r, g, b}
	return e.t.Update(false)
}

// FadeToColor fades from the remembered color to r, g, b. The target color
// is remembered even when the fade is interrupted.
func (e *Effects) FadeToColor(ctx context.Context, r, g, b uint8, steps int, delay time.Duration) error {
	from := e.cur
	e.cur = [3]uint8{r, g, b}
	n := normSteps(steps)
	for k := 0; k <= n; k++ {
		e.t.SetAllColor(e.ease.lerp(from[0], r, k, n), e.ease.lerp(from[1], g, k, n), e.ease.lerp(from[2], b, k, n))
		if err := e.show(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

// ring positions lit by each rotation frame on a 16 led 4x4 ring
var rotation = [6][4]int{
	{1, 5, 10, 14},
	{2, 6, 9, 13},
	{3, 6, 9, 12},
	{7, 6, 9, 8},
	{11, 10, 5, 4},
	{15, 10, 5, 0},
}

var (
	rightOrder = []int{0, 1, 2, 3, 4, 5}
	leftOrder  = []int{0, 5, 4, 3, 2, 1}
)

func (e *Effects) rotate(ctx context.Context, order []int, fg, bg uint32, delay time.Duration) error {
	for _, f := range order {
		e.t.SetAllRGB(bg)
		for _, led := range rotation[f] {
			e.t.SetRGB(led, fg)
		}
		if err := e.show(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

// rotateFade starts from the background and keeps every lit position, so
// the foreground fills the ring.
func (e *Effects) rotateFade(ctx context.Context, order []int, fg, bg uint32, delay time.Duration) error {
	e.t.SetAllRGB(bg)
	if err := e.show(ctx, delay); err != nil {
		return err
	}
	for _, f := range order {
		for _, led := range rotation[f] {
			e.t.SetRGB(led, fg)
		}
		if err := e.show(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

func (e *Effects) RotatingRight(ctx context.Context, fg, bg uint32, delay time.Duration) error {
	return e.rotate(ctx, rightOrder, fg, bg, delay)
}

func (e *Effects) RotatingLeft(ctx context.Context, fg, bg uint32, delay time.Duration) error {
	return e.rotate(ctx, leftOrder, fg, bg, delay)
}

func (e *Effects) RotatingFadeRight(ctx context.Context, fg, bg uint32, delay time.Duration) error {
	return e.rotateFade(ctx, rightOrder, fg, bg, delay)
}

func (e *Effects) RotatingFadeLeft(ctx context.Context, fg, bg uint32, delay time.Duration) error {
	return e.rotateFade(ctx, leftOrder, fg, bg, delay)
}

// unpack is a small helper for steps given as packed rgb.
func unpack(rgb uint32) (r, g, b uint8) {
	return model.UnpackRed(rgb), model.UnpackGreen(rgb), model.UnpackBlue(rgb)
}
