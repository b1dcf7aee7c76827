package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/config"
)

func TestClockSubloop(t *testing.T) {
	c := New(config.ControlStep{Start: 10, Total: 2, Interval: 1, Subloop: 4})
	assert.Equal(t, .25, c.DT)
	assert.Equal(t, int32(40), c.InternalStep)
	assert.Equal(t, 10., c.T)
	assert.Equal(t, int32(10), c.ExternalStep())
	assert.True(t, c.AtBoundary())

	steps, boundaries := 0, 0
	for !c.Done() {
		c.Step()
		steps++
		if c.AtBoundary() {
			boundaries++
		}
	}
	assert.Equal(t, 2, boundaries)
	assert.Equal(t, 8, steps)
	assert.Equal(t, 12., c.T)
	assert.Equal(t, int32(12), c.ExternalStep())
}

func TestClockFormat(t *testing.T) {
	c := New(config.ControlStep{Start: 3723, Total: 1, Interval: 1})
	assert.Equal(t, int32(1), c.Subloop)
	assert.Equal(t, "01:02:03", c.String())
	h, m, s := c.GetHourMinuteSecond()
	assert.Equal(t, 1, h)
	assert.Equal(t, 2, m)
	assert.Equal(t, 3., s)
}
