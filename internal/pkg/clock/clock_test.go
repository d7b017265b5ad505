package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClockLocation(t *testing.T) {
	assert.Equal(t, time.UTC, SystemClock{}.Now().Location())

	nairobi := time.FixedZone("EAT", 3*60*60)
	assert.Equal(t, nairobi, SystemClock{Location: nairobi}.Now().Location())
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	c := NewFixed(start)
	assert.Equal(t, start, c.Now())

	c.Advance(36 * time.Hour)
	assert.Equal(t, start.Add(36*time.Hour), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}
