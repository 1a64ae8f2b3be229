package diagnostics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/digitalled/spi"
)

func TestFromTxError(t *testing.T) {
	d := FromTxError(&spi.TxError{Op: "write", Bytes: 72, Err: errors.New("EIO")})
	assert.Equal(t, Err, d.Severity)
	assert.Equal(t, CodeBusWrite, d.Code)
	assert.Equal(t, "spi: write: EIO", d.Detail)
	assert.Equal(t, map[string]any{"op": "write", "bytes": 72}, d.Evidence)
}

func TestFromTxError_Timeout(t *testing.T) {
	err := fmt.Errorf("update: %w", &spi.TxError{Op: "write", Bytes: 8, Err: spi.ErrTimeout})
	d := FromTxError(err)
	assert.Equal(t, Warn, d.Severity)
	assert.Equal(t, CodeBusTimeout, d.Code)
	assert.NotEmpty(t, d.SuggestedFixes)
}

func TestFromTxError_Plain(t *testing.T) {
	d := FromTxError(errors.New("boom"))
	assert.Equal(t, CodeBusWrite, d.Code)
	assert.Nil(t, d.Evidence)
}
