// Package effect sequences simple light shows (fades, rotations, random
// colors) on top of a strip and its transmitter.
package effect

import (
	"time"

	"github.com/coreman2200/digitalled/model"
)

// Target is what an effect draws on: the strip setters plus a way to push
// the strip out to the leds.
type Target interface {
	Len() int
	SetAllColor(red, green, blue uint8)
	SetRGB(led int, rgb uint32)
	SetAllRGB(rgb uint32)
	Update(force bool) error
}

type stripTarget struct {
	*model.Strip
	update func(force bool) error
}

func (t stripTarget) Update(force bool) error { return t.update(force) }

// StripTarget binds a strip to the function transmitting it, usually
// (*spi.Driver).Update.
func StripTarget(s *model.Strip, update func(force bool) error) Target {
	return stripTarget{Strip: s, update: update}
}

// Ease shapes fade curves.
type Ease string

const (
	Linear Ease = "linear"
	Smooth Ease = "smooth"
	Cubic  Ease = "cubic"
)

// Color is a step color: "#rrggbb", "random" (true color) or "mixed".
type Color string

// Step is one effect invocation in a Program.
type Step struct {
	Effect     string `yaml:"effect" json:"effect"`
	Color      Color  `yaml:"color,omitempty" json:"color,omitempty"`
	Background Color  `yaml:"background,omitempty" json:"background,omitempty"`
	Steps      int    `yaml:"steps,omitempty" json:"steps,omitempty"`
	DelayMs    int    `yaml:"delay_ms,omitempty" json:"delay_ms,omitempty"`
	Ease       Ease   `yaml:"ease,omitempty" json:"ease,omitempty"`
	Repeat     int    `yaml:"repeat,omitempty" json:"repeat,omitempty"`
}

func (s Step) delay() time.Duration {
	return time.Duration(s.DelayMs) * time.Millisecond
}

// Program is an ordered list of steps.
type Program struct {
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Loop  bool   `yaml:"loop,omitempty" json:"loop,omitempty"`
	Seed  int64  `yaml:"seed,omitempty" json:"seed,omitempty"`
	Steps []Step `yaml:"steps" json:"steps"`
}

// PlayerState enumerates player states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
)
