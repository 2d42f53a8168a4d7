package apifootball

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIs_MatchesWrappedKind(t *testing.T) {
	err := fmt.Errorf("calling fixtures: %w", newError(ErrRateLimited, "/fixtures", 429, errors.New("too many requests")))
	require.True(t, Is(err, ErrRateLimited))
	require.False(t, Is(err, ErrAuth))
}

func TestIs_FalseForPlainError(t *testing.T) {
	require.False(t, Is(errors.New("boom"), ErrServer))
}

func TestIs_FalseForNil(t *testing.T) {
	require.False(t, Is(nil, ErrAuth))
}

func TestError_MessageIncludesEndpointAndStatus(t *testing.T) {
	err := newError(ErrUnexpectedStatus, "/leagues", 503, errors.New("service unavailable"))
	require.Contains(t, err.Error(), "/leagues")
	require.Contains(t, err.Error(), "503")
}

func TestError_UnwrapReturnsUnderlyingError(t *testing.T) {
	underlying := errors.New("dial tcp: timeout")
	err := newError(ErrTimeout, "/injuries", 0, underlying)
	require.ErrorIs(t, err, underlying)
}
