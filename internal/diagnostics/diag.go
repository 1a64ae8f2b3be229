package diagnostics

import (
	"errors"

	"github.com/coreman2200/digitalled/spi"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

const (
	CodeStripInit  = "STRIP.INIT"
	CodeBusWrite   = "BUS.WRITE"
	CodeBusTimeout = "BUS.TIMEOUT"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// StripInit reports a freshly attached strip.
func StripInit(leds int, bus string) Diagnostic {
	return Diagnostic{
		Severity: Info,
		Code:     CodeStripInit,
		Summary:  "Strip attached",
		Evidence: map[string]any{"leds": leds, "bus": bus},
	}
}

// FromTxError turns a failed transfer into a diagnostic. The strip state and
// the leds may disagree until the next successful frame.
func FromTxError(err error) Diagnostic {
	d := Diagnostic{
		Severity: Err,
		Code:     CodeBusWrite,
		Summary:  "Frame transfer failed",
		Detail:   err.Error(),
		LikelyCauses: []string{
			"SPI port not wired to the strip",
			"clock too fast for the cable length",
		},
		SuggestedFixes: []string{
			"check the clock and data lines",
			"lower spi.speed_hz",
		},
	}
	var txErr *spi.TxError
	if errors.As(err, &txErr) {
		d.Evidence = map[string]any{"op": txErr.Op, "bytes": txErr.Bytes}
	}
	if errors.Is(err, spi.ErrTimeout) {
		d.Severity = Warn
		d.Code = CodeBusTimeout
		d.Summary = "Frame transfer timed out"
		d.LikelyCauses = []string{"bus busy or clock too slow for the frame size"}
		d.SuggestedFixes = []string{"raise spi.timeout_ms", "raise spi.speed_hz"}
	}
	return d
}
