package effect

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/coreman2200/digitalled/model"
)

// RandomTrueColor picks a fully saturated color on the blue, red, green
// wheel. White never comes up.
func RandomTrueColor(rng *rand.Rand) model.ColorVal {
	n := rng.Intn(3 * 255)
	k := uint8(n % 255)
	switch n / 255 {
	case 0:
		return model.NewRGB(k, 0, 255-k)
	case 1:
		return model.NewRGB(255-k, k, 0)
	default:
		return model.NewRGB(0, 255-k, k)
	}
}

// RandomMixedColor picks each channel independently in 0..254.
func RandomMixedColor(rng *rand.Rand) model.ColorVal {
	return model.NewRGB(uint8(rng.Intn(255)), uint8(rng.Intn(255)), uint8(rng.Intn(255)))
}

// Wheel maps h in [0,1) to a fully saturated hue.
func Wheel(h float64) model.ColorVal {
	c := model.NewRGB(0, 0, 0)
	h *= 6
	switch {
	case h < 1.:
		c.SetR(255)
		c.SetG(byte(255 * h))
	case h < 2.:
		c.SetR(byte(255 * (2 - h)))
		c.SetG(255)
	case h < 3.:
		c.SetG(255)
		c.SetB(byte(255 * (h - 2)))
	case h < 4.:
		c.SetG(byte(255 * (4 - h)))
		c.SetB(255)
	case h < 5.:
		c.SetR(byte(255 * (h - 4)))
		c.SetB(255)
	default:
		c.SetR(255)
		c.SetB(byte(255 * (6 - h)))
	}
	return c
}

// Rainbow returns a frame function that spreads the wheel over the strip and
// turns it once per period. It fits spi.FrameFunc.
func Rainbow(period time.Duration) func(s *model.Strip, elapsed time.Duration) {
	if period <= 0 {
		period = 5 * time.Second
	}
	return func(s *model.Strip, elapsed time.Duration) {
		n := s.Len()
		base := float64(elapsed%period) / float64(period)
		for i := 0; i < n; i++ {
			_, h := math.Modf(base + float64(i)/float64(n))
			s.SetRGB(i, Wheel(h).RGB())
		}
	}
}

// resolve turns a step color into an rgb value. An empty color resolves to
// def.
func (c Color) resolve(rng *rand.Rand, def uint32) (uint32, error) {
	switch s := strings.ToLower(strings.TrimSpace(string(c))); s {
	case "":
		return def, nil
	case "random":
		return RandomTrueColor(rng).RGB(), nil
	case "mixed":
		return RandomMixedColor(rng).RGB(), nil
	default:
		v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
		if err != nil || v > 0xFFFFFF {
			return 0, fmt.Errorf("bad color %q", string(c))
		}
		return uint32(v), nil
	}
}
