package model

// Channel offsets within a packed 0xAARRGGBB value.
const (
	ALPHA_OFFSET uint8 = 0x18
	RED_OFFSET   uint8 = 0x10
	GREEN_OFFSET uint8 = 0x08
	BLUE_OFFSET  uint8 = 0x0
)

const (
	MASK_ALPHA uint32 = 0xFF << ALPHA_OFFSET
	MASK_RED   uint32 = 0xFF << RED_OFFSET
	MASK_GREEN uint32 = 0xFF << GREEN_OFFSET
	MASK_BLUE  uint32 = 0xFF << BLUE_OFFSET
)

// PackRGB packs the three channels as 0x00RRGGBB.
func PackRGB(r, g, b uint8) uint32 {
	return uint32(r)<<RED_OFFSET | uint32(g)<<GREEN_OFFSET | uint32(b)<<BLUE_OFFSET
}

// PackARGB packs the four channels as 0xAARRGGBB.
func PackARGB(a, r, g, b uint8) uint32 {
	return uint32(a)<<ALPHA_OFFSET | PackRGB(r, g, b)
}

func UnpackAlpha(c uint32) uint8 { return getcolor(c, ALPHA_OFFSET) }
func UnpackRed(c uint32) uint8   { return getcolor(c, RED_OFFSET) }
func UnpackGreen(c uint32) uint8 { return getcolor(c, GREEN_OFFSET) }
func UnpackBlue(c uint32) uint8  { return getcolor(c, BLUE_OFFSET) }

func setcolor(c uint32, n uint8, off uint8) uint32 {
	var val uint32 = uint32(n) << off
	var mask uint32 = 0xFF << off
	return (c & (^mask)) | val
}

func getcolor(c uint32, off uint8) uint8 {
	var mask uint32 = 0xFF << off
	return uint8((c & (mask)) >> off)
}

// ColorVal is a mutable packed ARGB color, handy for the effect layer.
type ColorVal struct {
	val uint32
}

func NewColor(c uint32) ColorVal {
	return ColorVal{val: c}
}

func NewRGB(r, g, b uint8) ColorVal {
	return ColorVal{val: PackARGB(0xFF, r, g, b)}
}

func (c ColorVal) Color() uint32 {
	return c.val
}

// RGB returns the color without its alpha byte, as taken by Strip.SetRGB.
func (c ColorVal) RGB() uint32 {
	return c.val &^ MASK_ALPHA
}

func (c *ColorVal) SetR(r uint8) {
	c.val = setcolor(c.val, r, RED_OFFSET)
}
func (c *ColorVal) SetG(g uint8) {
	c.val = setcolor(c.val, g, GREEN_OFFSET)
}
func (c *ColorVal) SetB(b uint8) {
	c.val = setcolor(c.val, b, BLUE_OFFSET)
}

func (c ColorVal) GetR() uint8 {
	return getcolor(c.val, RED_OFFSET)
}
func (c ColorVal) GetG() uint8 {
	return getcolor(c.val, GREEN_OFFSET)
}
func (c ColorVal) GetB() uint8 {
	return getcolor(c.val, BLUE_OFFSET)
}
func (c ColorVal) GetA() uint8 {
	return getcolor(c.val, ALPHA_OFFSET)
}
