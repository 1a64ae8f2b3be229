package model

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

const (
	DefaultFrameSize = 16

	LED_START_FRAME_SIZE = 4 // 0x00, 0x00, 0x00, 0x00
	LED_END_FRAME_SIZE   = 4 // 0xFF, 0xFF, 0xFF, 0xFF
	LED_PACKET_SIZE      = 4 // CMD, blue, green, red

	// LED_INIT marks the start of a led packet in the top three bits of CMD.
	LED_INIT       uint8 = 0x07
	MAX_BRIGHTNESS uint8 = 0x1F
)

var (
	ErrFrameLength = errors.New("model: invalid frame length")
	ErrFrameMarker = errors.New("model: invalid frame marker")
)

// FrameLen is the wire size of a frame carrying n leds.
func FrameLen(n int) int {
	return LED_START_FRAME_SIZE + LED_PACKET_SIZE*n + LED_END_FRAME_SIZE
}

// Led is one entry of the strip as the chip sees it.
type Led struct {
	init   uint8
	global uint8
	blue   uint8
	green  uint8
	red    uint8
}

func newLed() Led {
	return Led{init: LED_INIT}
}

// CMD is the first byte of the led packet: 0b111 followed by the brightness.
func (l Led) CMD() uint8 {
	return l.init<<5 | l.global&MAX_BRIGHTNESS
}

func (l Led) Brightness() uint8 { return l.global }
func (l Led) Red() uint8        { return l.red }
func (l Led) Green() uint8      { return l.green }
func (l Led) Blue() uint8       { return l.blue }

// Packed returns the packet as read out: CMD in the top byte, then blue,
// green and red.
func (l Led) Packed() uint32 {
	return uint32(l.CMD())<<24 | uint32(l.blue)<<16 | uint32(l.green)<<8 | uint32(l.red)
}

// NRGBA scales the channels by the 5 bit brightness.
func (l Led) NRGBA() color.NRGBA {
	scale := func(c uint8) uint8 {
		return uint8(uint16(c) * uint16(l.global) / uint16(MAX_BRIGHTNESS))
	}
	return color.NRGBA{R: scale(l.red), G: scale(l.green), B: scale(l.blue), A: 255}
}

func (l *Led) serialize(dst []byte) {
	dst[0] = l.CMD()
	dst[1] = l.blue
	dst[2] = l.green
	dst[3] = l.red
}

// Strip is the frame buffer of a fixed number of leds. It is not safe for
// concurrent use.
type Strip struct {
	leds  []Led
	dirty bool
}

// NewStrip allocates n leds, all off, and marks the frame dirty so the first
// update reaches the hardware.
func NewStrip(n int) *Strip {
	if n < 0 {
		n = 0
	}
	s := &Strip{
		leds:  make([]Led, n),
		dirty: true,
	}
	for i := range s.leds {
		s.leds[i] = newLed()
	}
	return s
}

func (s *Strip) Len() int {
	return len(s.leds)
}

func (s *Strip) inRange(led int) bool {
	return led >= 0 && led < len(s.leds)
}

// Led returns a copy of the entry at index led.
func (s *Strip) Led(led int) (Led, bool) {
	if !s.inRange(led) {
		return Led{}, false
	}
	return s.leds[led], true
}

func (s *Strip) Dirty() bool { return s.dirty }
func (s *Strip) MarkDirty()  { s.dirty = true }
func (s *Strip) ClearDirty() { s.dirty = false }

// SetColor switches led on at full brightness with the given color. An out of
// range index leaves the strip untouched but still marks it dirty.
func (s *Strip) SetColor(led int, red, green, blue uint8) {
	if s.inRange(led) {
		l := &s.leds[led]
		l.init = LED_INIT
		l.global = MAX_BRIGHTNESS
		l.blue = blue
		l.green = green
		l.red = red
	}
	s.dirty = true
}

func (s *Strip) SetAllColor(red, green, blue uint8) {
	for led := range s.leds {
		s.SetColor(led, red, green, blue)
	}
	s.dirty = true
}

// SetRGB is SetColor with the channels taken from 0x00RRGGBB. It applies the
// same bounds policy.
func (s *Strip) SetRGB(led int, rgb uint32) {
	s.SetColor(led, UnpackRed(rgb), UnpackGreen(rgb), UnpackBlue(rgb))
}

func (s *Strip) SetAllRGB(rgb uint32) {
	s.SetAllColor(UnpackRed(rgb), UnpackGreen(rgb), UnpackBlue(rgb))
}

// SetLedIllumination sets the brightness (0-31) of a single led; the color is
// kept.
func (s *Strip) SetLedIllumination(led int, illumination uint8) {
	if s.inRange(led) {
		s.leds[led].global = illumination & MAX_BRIGHTNESS
	}
	s.dirty = true
}

func (s *Strip) SetAllIllumination(illumination uint8) {
	for led := range s.leds {
		s.leds[led].global = illumination & MAX_BRIGHTNESS
	}
	s.dirty = true
}

func (s *Strip) SetLedOff(led int) {
	s.SetLedIllumination(led, 0)
}

func (s *Strip) SetLedOn(led int) {
	s.SetLedIllumination(led, MAX_BRIGHTNESS)
}

// Serialize returns the complete wire frame. It does not touch the dirty
// flag.
func (s *Strip) Serialize() []byte {
	return s.AppendFrame(make([]byte, 0, FrameLen(len(s.leds))))
}

// AppendFrame appends the wire frame to buf, letting callers reuse a buffer.
func (s *Strip) AppendFrame(buf []byte) []byte {
	buf = append(buf, 0x00, 0x00, 0x00, 0x00)
	for i := range s.leds {
		var p [LED_PACKET_SIZE]byte
		s.leds[i].serialize(p[:])
		buf = append(buf, p[:]...)
	}
	return append(buf, 0xFF, 0xFF, 0xFF, 0xFF)
}

// Image renders decoded leds as a single row, brightness applied.
func Image(leds []Led) *image.NRGBA {
	im := image.NewNRGBA(image.Rect(0, 0, len(leds), 1))
	for x := range leds {
		im.SetNRGBA(x, 0, leds[x].NRGBA())
	}
	return im
}

// DecodeFrame parses a wire frame back into led entries.
func DecodeFrame(frame []byte) ([]Led, error) {
	body := len(frame) - LED_START_FRAME_SIZE - LED_END_FRAME_SIZE
	if body < 0 || body%LED_PACKET_SIZE != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameLength, len(frame))
	}
	for _, b := range frame[:LED_START_FRAME_SIZE] {
		if b != 0x00 {
			return nil, fmt.Errorf("%w: start frame % x", ErrFrameMarker, frame[:LED_START_FRAME_SIZE])
		}
	}
	for _, b := range frame[len(frame)-LED_END_FRAME_SIZE:] {
		if b != 0xFF {
			return nil, fmt.Errorf("%w: end frame % x", ErrFrameMarker, frame[len(frame)-LED_END_FRAME_SIZE:])
		}
	}

	leds := make([]Led, body/LED_PACKET_SIZE)
	for i := range leds {
		p := frame[LED_START_FRAME_SIZE+i*LED_PACKET_SIZE:]
		if p[0]>>5 != LED_INIT {
			return nil, fmt.Errorf("%w: led %d cmd %#02x", ErrFrameMarker, i, p[0])
		}
		leds[i] = Led{
			init:   LED_INIT,
			global: p[0] & MAX_BRIGHTNESS,
			blue:   p[1],
			green:  p[2],
			red:    p[3],
		}
	}
	return leds, nil
}
