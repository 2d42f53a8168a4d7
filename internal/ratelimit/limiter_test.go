package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateFromHeaders_TripsEmergencyStopBelowThreshold(t *testing.T) {
	l := New(300, 300, 50, nil)

	err := l.UpdateFromHeaders(map[string]string{
		"x-ratelimit-requests-remaining": "49",
		"x-ratelimit-remaining":          "100",
	})
	require.ErrorIs(t, err, ErrEmergencyStop)

	q := l.Quota()
	require.NotNil(t, q.DailyRemaining)
	require.Equal(t, 49, *q.DailyRemaining)
}

func TestUpdateFromHeaders_NoTripAboveThreshold(t *testing.T) {
	l := New(300, 300, 50, nil)

	err := l.UpdateFromHeaders(map[string]string{
		"x-ratelimit-requests-remaining": "7000",
		"x-ratelimit-remaining":          "280",
	})
	require.NoError(t, err)
}

func TestWait_ReturnsEmergencyStopWithoutBlocking(t *testing.T) {
	l := New(300, 300, 50, nil)
	require.ErrorIs(t, l.UpdateFromHeaders(map[string]string{"x-ratelimit-requests-remaining": "10"}), ErrEmergencyStop)

	err := l.Wait(context.Background())
	require.ErrorIs(t, err, ErrEmergencyStop)
}

func TestQuota_MissingHeadersLeaveFieldsNil(t *testing.T) {
	l := New(300, 300, 50, nil)
	q := l.Quota()
	require.Nil(t, q.DailyRemaining)
	require.Nil(t, q.MinuteRemaining)
}
