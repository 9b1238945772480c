package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendPeekConsume(t *testing.T) {
	b := New(4)
	b.Append([]byte{1, 2, 3})
	assert.Equal(t, 3, b.Available())

	view, ok := b.Peek(2)
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2}, view)
	assert.Equal(t, 3, b.Available(), "peek must not advance the cursor")

	assert.True(t, b.Consume(2))
	assert.Equal(t, 1, b.Available())
}

func TestPeekConsumeShortOfAvailableFail(t *testing.T) {
	b := New(4)
	b.Append([]byte{1, 2})
	_, ok := b.Peek(3)
	assert.False(t, ok)
	assert.False(t, b.Consume(3))
	assert.Equal(t, 2, b.Available(), "failed peek/consume must not change state")
}

func TestConsumeToExhaustionResetsCursors(t *testing.T) {
	b := New(4)
	b.Append([]byte{1, 2, 3})
	assert.True(t, b.Consume(3))
	assert.Equal(t, 0, b.Available())

	b.Append([]byte{9})
	view, ok := b.Peek(1)
	assert.True(t, ok)
	assert.Equal(t, byte(9), view[0])
}

func TestAppendCompactsBeforeGrowing(t *testing.T) {
	b := New(4)
	b.Append([]byte{1, 2, 3, 4})
	assert.True(t, b.Consume(3))
	// one byte left unconsumed; appending more than the free tail space
	// should compact first rather than growing unnecessarily.
	b.Append([]byte{5, 6, 7})
	assert.Equal(t, 4, b.Available())
	view, ok := b.Peek(4)
	assert.True(t, ok)
	assert.Equal(t, []byte{4, 5, 6, 7}, view)
}

func TestAppendGrowsCapacityForOversizedMessage(t *testing.T) {
	b := New(2)
	big := make([]byte, 1000)
	for i := range big {
		big[i] = byte(i)
	}
	b.Append(big)
	assert.Equal(t, 1000, b.Available())
	view, ok := b.Peek(1000)
	assert.True(t, ok)
	assert.Equal(t, big, view)
}

func TestFramingSoundnessAcrossManyAppends(t *testing.T) {
	b := New(8)
	var all []byte
	for i := 0; i < 50; i++ {
		chunk := []byte{byte(i), byte(i + 1)}
		all = append(all, chunk...)
		b.Append(chunk)
	}
	var out []byte
	for b.Available() >= 3 {
		view, ok := b.Peek(3)
		if !ok {
			break
		}
		out = append(out, view...)
		b.Consume(3)
	}
	remaining, _ := b.Peek(b.Available())
	out = append(out, remaining...)
	assert.Equal(t, all, out)
}
