package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRemainingTimeUnlimited(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	left := RemainingTime(now, now.Add(-time.Hour), nil, nil)
	require.True(t, left.Unlimited)
	require.False(t, left.Expired())
	require.Nil(t, left.SecondsPtr())
}

func TestRemainingTimeDurationBound(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	startedAt := now.Add(-30 * time.Minute)

	left := RemainingTime(now, startedAt, intPtr(90), nil)
	require.False(t, left.Unlimited)
	require.Equal(t, int64(60*60), left.Seconds)
	require.False(t, left.Expired())
	require.Equal(t, int64(3600), *left.SecondsPtr())
}

func TestRemainingTimeEndBound(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	end := now.Add(10 * time.Minute)

	left := RemainingTime(now, now.Add(-time.Hour), nil, &end)
	require.Equal(t, int64(600), left.Seconds)
}

func TestRemainingTimeTighterBoundWins(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	startedAt := now.Add(-50 * time.Minute)

	// Duration leaves 10 minutes, window end leaves 5: end wins.
	end := now.Add(5 * time.Minute)
	left := RemainingTime(now, startedAt, intPtr(60), &end)
	require.Equal(t, int64(300), left.Seconds)

	// Window end leaves 30 minutes, duration leaves 10: duration wins.
	farEnd := now.Add(30 * time.Minute)
	left = RemainingTime(now, startedAt, intPtr(60), &farEnd)
	require.Equal(t, int64(600), left.Seconds)
}

func TestRemainingTimeExpired(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	left := RemainingTime(now, now.Add(-2*time.Hour), intPtr(60), nil)
	require.True(t, left.Expired())
	require.Equal(t, int64(0), left.Seconds)

	end := now.Add(-time.Minute)
	left = RemainingTime(now, now.Add(-time.Hour), nil, &end)
	require.True(t, left.Expired())
	require.Equal(t, int64(0), left.Seconds)
}

func TestRemainingTimeFloorsPartialSeconds(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 500_000_000, time.UTC)
	startedAt := now.Add(-59*time.Minute - 59*time.Second - 500*time.Millisecond)

	left := RemainingTime(now, startedAt, intPtr(60), nil)
	require.Equal(t, int64(0), left.Seconds)
	require.True(t, left.Expired())
}

func TestRemainingTimeExactBoundary(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	startedAt := now.Add(-60 * time.Minute)

	left := RemainingTime(now, startedAt, intPtr(60), nil)
	require.True(t, left.Expired())
}
