package effect

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type runner func(p *Player, ctx context.Context, s Step) error

var effects = map[string]runner{
	"set": func(p *Player, ctx context.Context, s Step) error {
		r, g, b, err := p.color(s.Color)
		if err != nil {
			return err
		}
		if err := p.fx.SetColor(r, g, b); err != nil {
			return err
		}
		return p.hold(ctx, s)
	},
	"fade-in": func(p *Player, ctx context.Context, s Step) error {
		r, g, b, err := p.color(s.Color)
		if err != nil {
			return err
		}
		return p.fx.FadeIn(ctx, r, g, b, p.steps(s), p.delay(s))
	},
	"fade-out": func(p *Player, ctx context.Context, s Step) error {
		r, g, b, err := p.color(s.Color)
		if err != nil {
			return err
		}
		return p.fx.FadeOut(ctx, r, g, b, p.steps(s), p.delay(s))
	},
	"fade-in-out": func(p *Player, ctx context.Context, s Step) error {
		r, g, b, err := p.color(s.Color)
		if err != nil {
			return err
		}
		return p.fx.FadeInFadeOut(ctx, r, g, b, p.steps(s), p.delay(s))
	},
	"fade-to": func(p *Player, ctx context.Context, s Step) error {
		r, g, b, err := p.color(s.Color)
		if err != nil {
			return err
		}
		return p.fx.FadeToColor(ctx, r, g, b, p.steps(s), p.delay(s))
	},
	"rotate-right":      rotator((*Effects).RotatingRight),
	"rotate-left":       rotator((*Effects).RotatingLeft),
	"rotate-fade-right": rotator((*Effects).RotatingFadeRight),
	"rotate-fade-left":  rotator((*Effects).RotatingFadeLeft),
	"sweep": func(p *Player, ctx context.Context, s Step) error {
		return p.fx.RunPattern(ctx, IndexSweep, p.delay(s))
	},
	"rgb-test": func(p *Player, ctx context.Context, s Step) error {
		return p.fx.RunPattern(ctx, RGBChannels, p.delay(s))
	},
}

func rotator(f func(*Effects, context.Context, uint32, uint32, time.Duration) error) runner {
	return func(p *Player, ctx context.Context, s Step) error {
		fg, err := s.Color.resolve(p.rng, 0xFFFFFF)
		if err != nil {
			return err
		}
		bg, err := s.Background.resolve(p.rng, 0)
		if err != nil {
			return err
		}
		return f(p.fx, ctx, fg, bg, p.delay(s))
	}
}

// Validate checks effect names, colors and eases before anything is drawn.
func (prog Program) Validate() error {
	if len(prog.Steps) == 0 {
		return errors.New("program has no steps")
	}
	var errs []error
	rng := rand.New(rand.NewSource(1))
	for i, s := range prog.Steps {
		if _, ok := effects[s.Effect]; !ok {
			errs = append(errs, fmt.Errorf("step %d: unknown effect %q", i, s.Effect))
		}
		if !s.Ease.valid() {
			errs = append(errs, fmt.Errorf("step %d: unknown ease %q", i, s.Ease))
		}
		for _, c := range []Color{s.Color, s.Background} {
			if _, err := c.resolve(rng, 0); err != nil {
				errs = append(errs, fmt.Errorf("step %d: %w", i, err))
			}
		}
		if s.Steps < 0 || s.DelayMs < 0 || s.Repeat < 0 {
			errs = append(errs, fmt.Errorf("step %d: negative steps, delay or repeat", i))
		}
	}
	return errors.Join(errs...)
}

// LoadProgram reads a YAML (or JSON) program file.
func LoadProgram(path string) (Program, error) {
	var prog Program
	b, err := os.ReadFile(path)
	if err != nil {
		return prog, err
	}
	if err := yaml.Unmarshal(b, &prog); err != nil {
		return prog, fmt.Errorf("program %s: %w", path, err)
	}
	if err := prog.Validate(); err != nil {
		return prog, fmt.Errorf("program %s: %w", path, err)
	}
	return prog, nil
}

// Player runs Programs on an Effects. Steps without their own steps or delay
// use the player defaults.
type Player struct {
	fx    *Effects
	rng   *rand.Rand
	state atomic.Value

	Steps int
	Delay time.Duration
}

func NewPlayer(fx *Effects) *Player {
	p := &Player{fx: fx, Steps: 32, Delay: 20 * time.Millisecond}
	p.state.Store(Idle)
	return p
}

func (p *Player) State() PlayerState { return p.state.Load().(PlayerState) }

// Run plays prog until it ends, a step fails or ctx is done. A looping
// program only ends with ctx or an error.
func (p *Player) Run(ctx context.Context, prog Program) error {
	if err := prog.Validate(); err != nil {
		return err
	}
	seed := prog.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	p.rng = rand.New(rand.NewSource(seed))

	p.state.Store(Running)
	defer p.state.Store(Idle)
	log.Info().Str("program", prog.Name).Int("steps", len(prog.Steps)).Bool("loop", prog.Loop).Msg("effect: program started")

	for pass := 0; ; pass++ {
		for i, s := range prog.Steps {
			p.fx.SetEase(s.Ease)
			for rep := 0; rep <= s.Repeat; rep++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				log.Debug().Int("pass", pass).Int("step", i).Str("effect", s.Effect).Msg("effect: step")
				if err := effects[s.Effect](p, ctx, s); err != nil {
					return fmt.Errorf("step %d (%s): %w", i, s.Effect, err)
				}
			}
		}
		if !prog.Loop {
			log.Info().Str("program", prog.Name).Msg("effect: program done")
			return nil
		}
	}
}

func (p *Player) color(c Color) (r, g, b uint8, err error) {
	rgb, err := c.resolve(p.rng, 0xFFFFFF)
	if err != nil {
		return 0, 0, 0, err
	}
	r, g, b = unpack(rgb)
	return r, g, b, nil
}

func (p *Player) steps(s Step) int {
	if s.Steps > 0 {
		return s.Steps
	}
	return p.Steps
}

func (p *Player) delay(s Step) time.Duration {
	if s.DelayMs > 0 {
		return s.delay()
	}
	return p.Delay
}

// hold keeps a set color on for the step delay.
func (p *Player) hold(ctx context.Context, s Step) error {
	d := p.delay(s)
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.fx.clock.After(d):
		return nil
	}
}
