package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	start := time.Unix(100, 0)
	p := Policy{Max: 3, Window: time.Minute}

	dec := Decide(p, 3, start)
	require.True(t, dec.Allowed)
	require.Equal(t, 0, dec.Remaining)
	require.Equal(t, start.Add(time.Minute), dec.Reset)

	dec = Decide(p, 4, start)
	require.False(t, dec.Allowed)
	require.Equal(t, 0, dec.Remaining)
	require.Equal(t, 3, dec.Limit)
}

func TestDecision_RetryAfterRoundsUp(t *testing.T) {
	now := time.Unix(100, 0)

	dec := Decision{Reset: now.Add(1500 * time.Millisecond)}
	require.Equal(t, 2*time.Second, dec.RetryAfter(now))

	dec = Decision{Reset: now.Add(3 * time.Second)}
	require.Equal(t, 3*time.Second, dec.RetryAfter(now))

	dec = Decision{Reset: now.Add(-time.Second)}
	require.Zero(t, dec.RetryAfter(now))

	require.Zero(t, Decision{}.RetryAfter(now))
}

func TestPolicy_Disabled(t *testing.T) {
	require.True(t, Policy{}.Disabled())
	require.True(t, Policy{Max: 1}.Disabled())
	require.False(t, Policy{Max: 1, Window: time.Second}.Disabled())
}
