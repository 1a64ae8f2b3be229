// Package spi pushes a model.Strip onto an APA102 chain over a SPI
// connection.
//
// The Driver owns the bus. Every Update serializes the strip into one frame
// and sends it in a single blocking transfer, skipping the transfer when
// nothing changed since the previous one.
package spi

import (
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3"

	"github.com/coreman2200/digitalled/model"
)

// DFLT_TIMEOUT bounds a single frame transfer.
const DFLT_TIMEOUT = 10 * time.Millisecond

// ErrTimeout is returned when a transfer did not complete within
// Opts.Timeout.
var ErrTimeout = errors.New("spi: transfer timed out")

// ErrBusy is returned while a transfer abandoned on timeout still holds the
// bus. The strip stays dirty so a later Update sends it.
var ErrBusy = errors.New("spi: previous transfer still running")

// TxError reports a failed frame transfer.
type TxError struct {
	Op    string
	Bytes int
	Err   error
}

func (e *TxError) Error() string {
	return "spi: " + e.Op + ": " + e.Err.Error()
}

func (e *TxError) Unwrap() error { return e.Err }

// Hooks observe the driver. Both are optional and called synchronously from
// Update.
type Hooks struct {
	// Frame receives every frame the bus accepted. It must not retain or
	// modify the slice after returning.
	Frame func(frame []byte)
	// Error receives failed transfers.
	Error func(err error)
}

type Opts struct {
	// Timeout bounds each transfer. 0 selects DFLT_TIMEOUT, a negative value
	// disables the bound.
	Timeout time.Duration
	// RetryOnError keeps the strip dirty after a failed transfer so the next
	// Update(false) sends the frame again. By default the dirty flag is
	// cleared after every attempt.
	RetryOnError bool
	// Clock drives the transfer timeout. Defaults to the real clock.
	Clock clockwork.Clock
	Hooks Hooks
}

// Driver transmits a strip. It is not safe for concurrent use; the strip
// shares the same constraint.
type Driver struct {
	bus   conn.Conn
	strip *model.Strip
	opts  Opts

	frames uint64
	fails  uint64

	// result of a transfer abandoned on timeout, nil when the bus is idle
	inflight chan error
}

// New wires the strip to the bus and sends the initial frame so the chain
// starts in a known state. The returned driver is usable even when that first
// transfer failed; the error is returned alongside it.
func New(bus conn.Conn, s *model.Strip, opts *Opts) (*Driver, error) {
	d := &Driver{
		bus:   bus,
		strip: s,
	}
	if opts != nil {
		d.opts = *opts
	}
	if d.opts.Timeout == 0 {
		d.opts.Timeout = DFLT_TIMEOUT
	}
	if d.opts.Clock == nil {
		d.opts.Clock = clockwork.NewRealClock()
	}

	log.Info().Str("bus", bus.String()).Int("leds", s.Len()).Dur("timeout", d.opts.Timeout).Msg("strip attached")

	s.MarkDirty()
	return d, d.Update(false)
}

func (d *Driver) Strip() *model.Strip {
	return d.strip
}

// Frames is the number of transfers attempted so far. Updates refused with
// ErrBusy are not counted.
func (d *Driver) Frames() uint64 { return d.frames }

// Failures is the number of transfers that returned an error.
func (d *Driver) Failures() uint64 { return d.fails }

// Update sends the strip when it changed since the last transfer, or
// unconditionally when force is set. Otherwise the bus is left alone.
func (d *Driver) Update(force bool) error {
	if !d.strip.Dirty() && !force {
		return nil
	}

	frame := d.strip.Serialize()
	if d.busy() {
		d.strip.MarkDirty()
		log.Debug().Int("bytes", len(frame)).Msg("bus busy, frame deferred")
		return &TxError{Op: "write", Bytes: len(frame), Err: ErrBusy}
	}

	err := d.tx(frame)
	d.frames++

	if err != nil && d.opts.RetryOnError {
		d.strip.MarkDirty()
	} else {
		d.strip.ClearDirty()
	}

	if err != nil {
		d.fails++
		log.Warn().Err(err).Int("bytes", len(frame)).Uint64("frame", d.frames).Msg("frame transfer failed")
		if d.opts.Hooks.Error != nil {
			d.opts.Hooks.Error(err)
		}
		return err
	}

	if d.opts.Hooks.Frame != nil {
		d.opts.Hooks.Frame(frame)
	}
	log.Debug().Int("bytes", len(frame)).Uint64("frame", d.frames).Bool("forced", force).Msg("frame sent")
	return nil
}

// busy reports whether an abandoned transfer is still on the bus, collecting
// its result once it finished.
func (d *Driver) busy() bool {
	if d.inflight == nil {
		return false
	}
	select {
	case err := <-d.inflight:
		d.inflight = nil
		if err != nil {
			log.Debug().Err(err).Msg("abandoned transfer failed")
		}
		return false
	default:
		return true
	}
}

func (d *Driver) tx(frame []byte) error {
	if d.opts.Timeout < 0 {
		if err := d.bus.Tx(frame, nil); err != nil {
			return &TxError{Op: "write", Bytes: len(frame), Err: err}
		}
		return nil
	}

	// The bus has no timeout of its own; a transfer that overruns is
	// abandoned, not cancelled, and the bus is busy until it returns.
	timeout := d.opts.Clock.After(d.opts.Timeout)
	done := make(chan error, 1)
	go func() {
		done <- d.bus.Tx(frame, nil)
	}()

	select {
	case err := <-done:
		if err != nil {
			return &TxError{Op: "write", Bytes: len(frame), Err: err}
		}
		return nil
	case <-timeout:
		d.inflight = done
		return &TxError{Op: "write", Bytes: len(frame), Err: ErrTimeout}
	}
}
