package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// script returns an Attempt that replays outcomes in order and records how often it ran.
func script(calls *int, outcomes ...Outcome) Attempt {
	return func(_ context.Context, attempt int) (Outcome, error) {
		*calls++
		o := outcomes[attempt-1]
		if o == Success {
			return Success, nil
		}
		return o, errBoom
	}
}

func TestDo(t *testing.T) {
	tests := []struct {
		name      string
		outcomes  []Outcome
		wantCalls int
		wantErr   bool
		exhausted bool
	}{
		{"success first try", []Outcome{Success}, 1, false, false},
		{"success after one retry", []Outcome{Retry, Success}, 2, false, false},
		{"success on last attempt", []Outcome{Retry, Retry, Success}, 3, false, false},
		{"fail stops immediately", []Outcome{Fail}, 1, true, false},
		{"fail after retry", []Outcome{Retry, Fail}, 2, true, false},
		{"budget exhausted", []Outcome{Retry, Retry, Retry, Success}, 3, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), Policy{Attempts: 3}, script(&calls, tt.outcomes...))
			assert.Equal(t, tt.wantCalls, calls)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, errBoom)

			var ex *ExhaustedError
			assert.Equal(t, tt.exhausted, errors.As(err, &ex))
			if tt.exhausted {
				assert.Equal(t, 3, ex.Attempts)
			}
		})
	}
}

func TestDo_DefaultBudget(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{}, script(&calls, Retry, Retry, Retry, Retry))
	require.Error(t, err)
	assert.Equal(t, DefaultAttempts, calls)
}

func TestDo_SingleAttempt(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	calls := 0
	err := Do(ctx, Policy{Attempts: 1}, script(&calls, Retry, Retry, Retry))
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 1, ex.Attempts)
	assert.ErrorIs(t, err, errBoom)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, Policy{Attempts: 3}, script(&calls, Success))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "retry", Retry.String())
	assert.Equal(t, "fail", Fail.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
