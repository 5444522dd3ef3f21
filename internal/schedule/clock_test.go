package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualClock_FiresDueTimersInOrder(t *testing.T) {
	c := NewManualClock(epoch)
	var fired []string

	c.AfterFunc(30*time.Millisecond, func() { fired = append(fired, "c") })
	c.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "a") })
	c.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "b") })
	assert.Equal(t, 3, c.Pending())

	c.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, epoch.Add(20*time.Millisecond), c.Now())
	assert.Equal(t, 1, c.Pending())

	c.Advance(10 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestManualClock_Stop(t *testing.T) {
	c := NewManualClock(epoch)
	fired := false

	timer := c.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestManualClock_StopAfterFire(t *testing.T) {
	c := NewManualClock(epoch)
	timer := c.AfterFunc(time.Millisecond, func() {})
	c.Advance(time.Millisecond)
	assert.False(t, timer.Stop())
}

func TestManualClock_NowDuringCallback(t *testing.T) {
	c := NewManualClock(epoch)
	var at time.Time

	c.AfterFunc(5*time.Millisecond, func() { at = c.Now() })
	c.Advance(time.Second)
	assert.Equal(t, epoch.Add(5*time.Millisecond), at)
}

func TestManualClock_ChainedTimers(t *testing.T) {
	c := NewManualClock(epoch)
	count := 0

	var schedule func()
	schedule = func() {
		c.AfterFunc(10*time.Millisecond, func() {
			count++
			schedule()
		})
	}
	schedule()

	c.Advance(35 * time.Millisecond)
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, c.Pending())
}

func TestSystemClock(t *testing.T) {
	var c Clock = SystemClock{}
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)

	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timer did not fire")
	}
}
