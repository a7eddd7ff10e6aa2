package logmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlushAdvancesWatermark(t *testing.T) {
	m := New()
	assert.Equal(t, int64(-1), m.FlushedLSN())

	m.Flush(5)
	assert.Equal(t, int64(5), m.FlushedLSN())

	m.Flush(3) // stale: must not regress
	assert.Equal(t, int64(5), m.FlushedLSN())

	m.Flush(9)
	assert.Equal(t, int64(9), m.FlushedLSN())
}
