package effect_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/coreman2200/digitalled/effect"
)

func TestPatterns(t *testing.T) {
	rec := newRecorder(3)
	fx := New(rec, nil)
	require.NoError(t, fx.RunPattern(context.Background(), IndexSweep, 0))
	assert.Equal(t, [][]uint32{
		{0xFFFFFF, 0, 0},
		{0, 0xFFFFFF, 0},
		{0, 0, 0xFFFFFF},
	}, rec.frames)

	rec = newRecorder(2)
	require.NoError(t, New(rec, nil).RunPattern(context.Background(), RGBChannels, 0))
	assert.Equal(t, [][]uint32{
		{0xFF0000, 0xFF0000},
		{0x00FF00, 0x00FF00},
		{0x0000FF, 0x0000FF},
	}, rec.frames)

	r := NewPatternRunner("plane_z")
	assert.False(t, r.Step(newRecorder(1)))
}

func TestPlayer_Patterns(t *testing.T) {
	rec := newRecorder(4)
	p := NewPlayer(New(rec, nil))
	p.Delay = 0
	require.NoError(t, p.Run(context.Background(), Program{Steps: []Step{{Effect: "sweep"}, {Effect: "rgb-test"}}}))
	assert.Len(t, rec.frames, 4+3)
}
