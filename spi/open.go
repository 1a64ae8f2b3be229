package spi

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
	periphspi "periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// DFLT_SPEED is a safe clock for long APA102 chains.
const DFLT_SPEED = 4 * physic.MegaHertz

// Port is an opened SPI port with its connection.
type Port struct {
	periphspi.Conn
	closer periphspi.PortCloser
}

func (p *Port) Close() error {
	return p.closer.Close()
}

// Open initializes the host drivers and connects to the named SPI port. An
// empty name selects the first port available.
func Open(name string, speed physic.Frequency, mode int) (*Port, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", name, err)
	}
	c, err := Connect(p, speed, mode)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	log.Info().Str("port", p.String()).Str("speed", speed.String()).Int("mode", mode).Msg("spi port opened")
	return &Port{Conn: c, closer: p}, nil
}

// Connect configures an already opened port for an APA102 chain: write only,
// 8 bit words, no chip select.
func Connect(p periphspi.PortCloser, speed physic.Frequency, mode int) (periphspi.Conn, error) {
	if mode < 0 || mode > 3 {
		return nil, fmt.Errorf("invalid spi mode %d", mode)
	}
	if speed <= 0 {
		speed = DFLT_SPEED
	}
	if err := p.LimitSpeed(speed); err != nil {
		return nil, fmt.Errorf("limit spi speed to %s: %w", speed, err)
	}
	c, err := p.Connect(speed, periphspi.Mode(mode)|periphspi.NoCS, 8)
	if err != nil {
		return nil, fmt.Errorf("connect spi: %w", err)
	}
	return c, nil
}
