package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClock_AfterAdvancesAndRecords(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Fake(start)

	got := <-c.After(2 * time.Second)
	assert.Equal(t, start.Add(2*time.Second), got)

	c.Advance(time.Minute)
	<-c.After(3 * time.Second)

	assert.Equal(t, start.Add(time.Minute+5*time.Second), c.Now())
	assert.Equal(t, []time.Duration{2 * time.Second, 3 * time.Second}, c.Waits())
}

func TestSleep_UsesClock(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	require.NoError(t, Sleep(context.Background(), c, 2*time.Second))
	assert.Equal(t, []time.Duration{2 * time.Second}, c.Waits())
}

func TestSleep_ZeroDurationDoesNotWait(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	require.NoError(t, Sleep(context.Background(), c, 0))
	assert.Empty(t, c.Waits())
}

func TestSleep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, Real(), time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}
