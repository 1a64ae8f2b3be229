package effect_test

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/coreman2200/digitalled/effect"
	"github.com/coreman2200/digitalled/model"
)

// recorder keeps the rgb of every led at each update.
type recorder struct {
	*model.Strip
	frames [][]uint32
	failAt int
	onShow func(n int)
}

func newRecorder(n int) *recorder {
	return &recorder{Strip: model.NewStrip(n), failAt: -1}
}

func (r *recorder) Update(force bool) error {
	if len(r.frames) == r.failAt {
		return errors.New("bus down")
	}
	f := make([]uint32, r.Len())
	for i := range f {
		l, _ := r.Led(i)
		f[i] = model.PackRGB(l.Red(), l.Green(), l.Blue())
	}
	r.frames = append(r.frames, f)
	r.ClearDirty()
	if r.onShow != nil {
		r.onShow(len(r.frames))
	}
	return nil
}

// reds is the red channel of led 0 across frames.
func (r *recorder) reds() []uint8 {
	var out []uint8
	for _, f := range r.frames {
		out = append(out, model.UnpackRed(f[0]))
	}
	return out
}

func TestFades(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(fx *Effects) error
		reds []uint8
	}{
		{"fade in", func(fx *Effects) error { return fx.FadeIn(ctx, 200, 0, 0, 4, 0) }, []uint8{0, 50, 100, 150, 200}},
		{"fade out", func(fx *Effects) error { return fx.FadeOut(ctx, 255, 0, 0, 3, 0) }, []uint8{255, 170, 85, 0}},
		{"zero steps", func(fx *Effects) error { return fx.FadeIn(ctx, 90, 0, 0, 0, 0) }, []uint8{0, 90}},
		{"in and out", func(fx *Effects) error { return fx.FadeInFadeOut(ctx, 10, 0, 0, 1, 0) }, []uint8{0, 10, 10, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder(4)
			require.NoError(t, tt.run(New(rec, nil)))
			assert.Equal(t, tt.reds, rec.reds())
			// whole strip follows led 0
			for _, f := range rec.frames {
				assert.Equal(t, f[0], f[3])
			}
		})
	}
}

func TestFadeEase(t *testing.T) {
	rec := newRecorder(1)
	fx := New(rec, nil)
	fx.SetEase(Smooth)
	require.NoError(t, fx.FadeIn(context.Background(), 255, 0, 0, 4, 0))
	// smoothstep(0.25) = 0.15625, smoothstep(0.5) = 0.5
	assert.Equal(t, []uint8{0, 40, 128, 215, 255}, rec.reds())
}

func TestFadeToColor(t *testing.T) {
	rec := newRecorder(2)
	fx := New(rec, nil)
	require.NoError(t, fx.SetColor(100, 0, 0))
	require.NoError(t, fx.FadeToColor(context.Background(), 0, 100, 0, 2, 0))

	assert.Equal(t, [][]uint32{
		{0x640000, 0x640000},
		{0x640000, 0x640000},
		{0x323200, 0x323200},
		{0x006400, 0x006400},
	}, rec.frames)
	r, g, b := fx.Current()
	assert.Equal(t, [3]uint8{0, 100, 0}, [3]uint8{r, g, b})
}

func TestRotating(t *testing.T) {
	const fg, bg = 0xFF0000, 0x000010
	lit := func(f []uint32) []int {
		var on []int
		for i, c := range f {
			if c == fg {
				on = append(on, i)
			} else {
				assert.Equal(t, uint32(bg), c)
			}
		}
		return on
	}
	ctx := context.Background()

	rec := newRecorder(16)
	require.NoError(t, New(rec, nil).RotatingRight(ctx, fg, bg, 0))
	require.Len(t, rec.frames, 6)
	assert.Equal(t, []int{1, 5, 10, 14}, lit(rec.frames[0]))
	assert.Equal(t, []int{2, 6, 9, 13}, lit(rec.frames[1]))
	assert.Equal(t, []int{6, 7, 8, 9}, lit(rec.frames[3]))
	assert.Equal(t, []int{0, 5, 10, 15}, lit(rec.frames[5]))

	rec = newRecorder(16)
	require.NoError(t, New(rec, nil).RotatingLeft(ctx, fg, bg, 0))
	require.Len(t, rec.frames, 6)
	assert.Equal(t, []int{1, 5, 10, 14}, lit(rec.frames[0]))
	assert.Equal(t, []int{0, 5, 10, 15}, lit(rec.frames[1]))
	assert.Equal(t, []int{2, 6, 9, 13}, lit(rec.frames[5]))

	rec = newRecorder(16)
	require.NoError(t, New(rec, nil).RotatingFadeLeft(ctx, fg, bg, 0))
	require.Len(t, rec.frames, 7)
	assert.Empty(t, lit(rec.frames[0]))
	assert.Equal(t, []int{1, 5, 10, 14}, lit(rec.frames[1]))
	assert.Equal(t, []int{0, 1, 5, 10, 14, 15}, lit(rec.frames[2]))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, lit(rec.frames[6]))

	// shorter strips drop what does not fit
	rec = newRecorder(8)
	require.NoError(t, New(rec, nil).RotatingFadeRight(ctx, fg, bg, 0))
	assert.Equal(t, []int{1, 5}, lit(rec.frames[1]))
}

func TestUpdateErrorAborts(t *testing.T) {
	rec := newRecorder(1)
	rec.failAt = 2
	err := New(rec, nil).FadeIn(context.Background(), 255, 0, 0, 8, 0)
	assert.EqualError(t, err, "bus down")
	assert.Len(t, rec.frames, 2)
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := newRecorder(1)
	err := New(rec, nil).FadeOut(ctx, 255, 0, 0, 8, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rec.frames, 1)
}

func TestDelay(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := newRecorder(1)
	done := make(chan error, 1)
	go func() {
		done <- New(rec, fc).FadeIn(context.Background(), 255, 0, 0, 1, 10*time.Millisecond)
	}()

	for i := 0; i < 2; i++ {
		fc.BlockUntil(1)
		select {
		case <-done:
			t.Fatal("fade returned before its delays elapsed")
		default:
		}
		fc.Advance(10 * time.Millisecond)
	}
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("fade did not finish")
	}
	assert.Equal(t, []uint8{0, 255}, rec.reds())
}

func TestRandomColors(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		c := RandomTrueColor(rng)
		sum := int(c.GetR()) + int(c.GetG()) + int(c.GetB())
		assert.Equal(t, 255, sum)
		assert.True(t, c.GetR() == 0 || c.GetG() == 0 || c.GetB() == 0)
		assert.Equal(t, uint8(0xFF), c.GetA())

		m := RandomMixedColor(rng)
		assert.Less(t, m.GetR(), uint8(255))
		assert.Less(t, m.GetG(), uint8(255))
		assert.Less(t, m.GetB(), uint8(255))
	}
}

func TestRainbow(t *testing.T) {
	assert.Equal(t, uint32(0xFF0000), Wheel(0).RGB())
	assert.Equal(t, uint8(255), Wheel(0.5).GetG())
	assert.Equal(t, uint8(0xFF), Wheel(0.5).GetA())
	assert.Equal(t, uint32(0x00FFFF), Wheel(0.5).RGB())

	s := model.NewStrip(6)
	s.ClearDirty()
	Rainbow(time.Second)(s, 0)
	assert.True(t, s.Dirty())
	l0, _ := s.Led(0)
	l3, _ := s.Led(3)
	assert.Equal(t, uint8(255), l0.Red())
	assert.Equal(t, uint8(255), l3.Blue())
	assert.Equal(t, uint8(0), l3.Red())
}

func TestPlayer(t *testing.T) {
	rec := newRecorder(2)
	p := NewPlayer(New(rec, nil))
	p.Delay = 0
	prog := Program{Steps: []Step{
		{Effect: "set", Color: "#ff0000"},
		{Effect: "fade-to", Color: "#0000FF", Steps: 2},
		{Effect: "rotate-left", Repeat: 1},
	}}
	require.NoError(t, p.Run(context.Background(), prog))
	assert.Equal(t, Idle, p.State())

	require.Len(t, rec.frames, 1+3+12)
	assert.Equal(t, uint32(0xFF0000), rec.frames[0][0])
	assert.Equal(t, uint32(0x7F007F), rec.frames[2][0])
	assert.Equal(t, uint32(0x0000FF), rec.frames[3][0])
	// rotate defaults to white on black
	assert.Equal(t, []uint32{0, 0xFFFFFF}, rec.frames[4])
}

func TestPlayer_LoopUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := newRecorder(1)
	rec.onShow = func(n int) {
		if n == 50 {
			cancel()
		}
	}
	p := NewPlayer(New(rec, nil))
	p.Delay = 0
	err := p.Run(ctx, Program{Loop: true, Seed: 3, Steps: []Step{{Effect: "fade-in-out", Color: "random", Steps: 4}}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rec.frames, 50)
}

func TestPlayer_StepError(t *testing.T) {
	rec := newRecorder(1)
	rec.failAt = 0
	p := NewPlayer(New(rec, nil))
	err := p.Run(context.Background(), Program{Steps: []Step{{Effect: "set"}}})
	assert.ErrorContains(t, err, "step 0 (set): bus down")
}

func TestLoadProgram(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "show.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
name: demo
loop: true
steps:
  - effect: fade-in
    color: "#00ff00"
    steps: 16
    delay_ms: 5
    ease: cubic
  - effect: rotate-fade-right
    color: mixed
    background: "#000000"
    repeat: 3
`), 0644))
	prog, err := LoadProgram(good)
	require.NoError(t, err)
	assert.Equal(t, "demo", prog.Name)
	assert.True(t, prog.Loop)
	require.Len(t, prog.Steps, 2)
	assert.Equal(t, Cubic, prog.Steps[0].Ease)
	assert.Equal(t, 3, prog.Steps[1].Repeat)

	js := filepath.Join(dir, "show.json")
	require.NoError(t, os.WriteFile(js, []byte(`{"steps":[{"effect":"set","color":"#123456"}]}`), 0644))
	prog, err = LoadProgram(js)
	require.NoError(t, err)
	assert.Equal(t, Color("#123456"), prog.Steps[0].Color)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("steps:\n  - effect: explode\n    color: teal\n    ease: bouncy\n"), 0644))
	_, err = LoadProgram(bad)
	assert.ErrorContains(t, err, `unknown effect "explode"`)
	assert.ErrorContains(t, err, `bad color "teal"`)
	assert.ErrorContains(t, err, `unknown ease "bouncy"`)

	_, err = LoadProgram(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Error(t, Program{}.Validate())
}
