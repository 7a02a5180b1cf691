package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecord(t *testing.T) {
	assert := assert.New(t)
	var op Op
	op.Record(time.Now().Add(-time.Millisecond))
	op.Record(time.Now().Add(-time.Millisecond))
	assert.Equal(uint32(2), op.Count())
	assert.Greater(op.MicrosPerOp(), float64(0))
}

func TestReset(t *testing.T) {
	assert := assert.New(t)
	var op Op
	op.Record(time.Now())
	op.Reset()
	assert.Equal(uint32(0), op.Count())
	assert.Equal(float64(0), op.MicrosPerOp())
}

func TestFormatTable(t *testing.T) {
	assert := assert.New(t)
	ops := make([]Op, 2)
	ops[0].Record(time.Now())
	s := FormatTable([]string{"read", "write"}, ops)
	assert.Contains(s, "read")
	assert.Contains(s, "write")
	assert.Contains(s, "total")
}

func TestMismatchedNamesPanics(t *testing.T) {
	assert.Panics(t, func() {
		FormatTable([]string{"read"}, make([]Op, 2))
	})
}
