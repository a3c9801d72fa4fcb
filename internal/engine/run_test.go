package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yiblet/clipd/internal/clipboard/mockboard"
)

func TestRun_CapturesUntilSourceCloses(t *testing.T) {
	f := newFixture(t)
	src := mockboard.NewSource(4)
	src.Push(mockboard.Text("one"))
	src.Push(mockboard.Text("one"))
	src.Push(mockboard.Text("two"))
	src.Close()

	require.NoError(t, f.engine.Run(context.Background(), src))
	assert.Equal(t, []int64{2, 1}, ids(f.engine.Items()), "duplicates do not consume ids")
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	src := mockboard.NewSource(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.engine.Run(ctx, src) }()

	src.Push(mockboard.Text("before cancel"))
	require.Eventually(t, func() bool { return len(f.engine.Items()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_WatchError(t *testing.T) {
	f := newFixture(t)
	src := mockboard.NewSource(0)
	src.WatchErr = errors.New("no display")

	assert.ErrorContains(t, f.engine.Run(context.Background(), src), "no display")
}

func TestSweeper_Collect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.Equal(t, OutcomeAccepted, f.engine.HandleChange(ctx, mockboard.Text("ephemeral")))

	s := NewSweeper(f.engine, 0)
	assert.Equal(t, DefaultSweepInterval, s.interval)
	assert.Zero(t, s.Collect(ctx))

	f.clock.Advance(25 * time.Hour)
	assert.Equal(t, 1, s.Collect(ctx))
	assert.Empty(t, f.engine.Items())
}

func TestSweeper_StartStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.Equal(t, OutcomeAccepted, f.engine.HandleChange(ctx, mockboard.Text("short lived")))
	f.clock.Advance(48 * time.Hour)

	s := NewSweeper(f.engine, 10*time.Millisecond)
	s.Start(ctx)
	assert.Empty(t, f.engine.Items(), "Start sweeps right away")

	require.Equal(t, OutcomeAccepted, f.engine.HandleChange(ctx, mockboard.Text("also short lived")))
	f.clock.Advance(48 * time.Hour)
	require.Eventually(t, func() bool { return len(f.engine.Items()) == 0 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestPreviewGate(t *testing.T) {
	g := NewPreviewGate()

	require.True(t, g.TryAcquire())
	assert.False(t, g.TryAcquire(), "second preview is refused")

	g.Release()
	assert.True(t, g.TryAcquire())
	g.Release()
	g.Release()
}

func TestPreviewGate_Concurrent(t *testing.T) {
	g := NewPreviewGate()
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire() {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, acquired)
}
