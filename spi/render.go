package spi

import (
	"image"
	"image/color"

	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/digitalled/model"
)

func (d *Driver) String() string {
	return "digitalled{" + d.bus.String() + "}"
}

// Halt switches every led off and pushes the frame immediately.
func (d *Driver) Halt() error {
	d.strip.SetAllIllumination(0)
	return d.Update(true)
}

// ColorModel implements display.Drawer.
func (d *Driver) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer. The strip is a single row.
func (d *Driver) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.strip.Len(), 1)
}

// Draw implements display.Drawer. Pixel x of the first row lands on led x;
// alpha is mapped onto the 5 bit brightness.
func (d *Driver) Draw(dstRect image.Rectangle, src image.Image, sp image.Point) error {
	r := dstRect.Intersect(d.Bounds())
	for x := r.Min.X; x < r.Max.X; x++ {
		p := image.Pt(sp.X+x-dstRect.Min.X, sp.Y+r.Min.Y-dstRect.Min.Y)
		if !p.In(src.Bounds()) {
			continue
		}
		c := color.NRGBAModel.Convert(src.At(p.X, p.Y)).(color.NRGBA)
		d.strip.SetColor(x, c.R, c.G, c.B)
		d.strip.SetLedIllumination(x, c.A>>3)
	}
	return d.Update(false)
}

// Render sets led i to colors[i] at full brightness and flushes. Extra colors
// are dropped by the strip's bounds check.
func (d *Driver) Render(colors []model.ColorVal) error {
	for i, c := range colors {
		d.strip.SetRGB(i, c.RGB())
	}
	return d.Update(false)
}

var _ display.Drawer = &Driver{}
