package conflict

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/motorshop-backend/pkg/errors"
)

var fast = Policy{Attempts: 3, BaseDelay: time.Millisecond}

func TestRetryRecoversFromConflict(t *testing.T) {
	calls := 0
	got, err := Value(context.Background(), fast, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", pkgerrors.ConcurrentModification("work order")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 3, calls)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fast, func(context.Context) error {
		calls++
		return pkgerrors.New(pkgerrors.CodeValidation, "bad quantity")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRetryReturnsConflictWhenExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fast, func(context.Context) error {
		calls++
		return pkgerrors.ConcurrentModification("part")
	})
	require.True(t, errors.Is(err, pkgerrors.ErrConcurrentModification))
	require.Equal(t, 4, calls)
}

func TestRetryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, Policy{Attempts: 5, BaseDelay: time.Second}, func(context.Context) error {
		return pkgerrors.ConcurrentModification("part")
	})
	require.Error(t, err)
}
