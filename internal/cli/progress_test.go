package cli

import (
	"bytes"
	"testing"

	"github.com/Veraticus/the-bills-must-flow/internal/engine"
	"github.com/stretchr/testify/assert"
)

func TestProgressReporter(t *testing.T) {
	var out bytes.Buffer
	r := NewProgressReporter(&out, 12)

	r.Update(engine.Progress{Completed: 5, Total: 12, Batch: 1, Batches: 3})
	r.Update(engine.Progress{Completed: 10, Total: 12, Batch: 2, Batches: 3})

	assert.Equal(t, 10, r.Last().Completed)
	assert.Equal(t, 2, r.Last().Batch)
	assert.NotEmpty(t, out.String())

	r.Abort()
}
