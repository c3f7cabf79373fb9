package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andygrunwald/fuel-price-ingester/internal/pipeline"
)

type fakeRunner struct {
	mu      sync.Mutex
	logical []time.Time
	err     error
	onRun   func()
}

func (f *fakeRunner) Run(ctx context.Context, logical time.Time) (*pipeline.Result, error) {
	f.mu.Lock()
	f.logical = append(f.logical, logical)
	f.mu.Unlock()
	if f.onRun != nil {
		f.onRun()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{LogicalTime: logical}, nil
}

func TestNewInvalidSchedule(t *testing.T) {
	_, err := New(&fakeRunner{}, "every hour please", false, zerolog.Nop())
	assert.Error(t, err)
}

func TestPreviousRunTime(t *testing.T) {
	s, err := New(&fakeRunner{}, "@hourly", false, zerolog.Nop())
	require.NoError(t, err)

	now := time.Date(2025, 12, 7, 10, 42, 13, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 12, 7, 10, 0, 0, 0, time.UTC), s.PreviousRunTime(now))

	onTheHour := time.Date(2025, 12, 7, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, onTheHour, s.PreviousRunTime(onTheHour))
}

func TestPreviousRunTimeCustomSchedule(t *testing.T) {
	s, err := New(&fakeRunner{}, "15 */6 * * *", false, zerolog.Nop())
	require.NoError(t, err)

	now := time.Date(2025, 12, 7, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 12, 7, 12, 15, 0, 0, time.UTC), s.PreviousRunTime(now))
}

func TestStartRunOnStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &fakeRunner{err: errors.New("upstream down"), onRun: cancel}
	s, err := New(runner, "@hourly", true, zerolog.Nop())
	require.NoError(t, err)

	err = s.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	now := time.Now()
	require.Len(t, runner.logical, 1)
	logical := runner.logical[0]
	assert.Equal(t, 0, logical.Minute())
	assert.Equal(t, 0, logical.Second())
	assert.False(t, logical.After(now))
	assert.Less(t, now.Sub(logical), time.Hour)

	assert.True(t, s.NextRunAt().After(logical))
	require.NotNil(t, s.LastRunAt())
	assert.False(t, s.IsRunning())
}

func TestStartStopsOnCancel(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New(runner, "@hourly", false, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, s.IsRunning, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.Empty(t, runner.logical)
}
