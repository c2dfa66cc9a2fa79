package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceCallsHooks(t *testing.T) {
	e := NewEngine()
	e.ReportInterval = 4

	var ticks, reports []uint64
	e.OnTick = func(tick uint64) error {
		ticks = append(ticks, tick)
		return nil
	}
	e.OnReport = func(tick uint64) { reports = append(reports, tick) }

	require.NoError(t, e.Advance(10))
	assert.Len(t, ticks, 10)
	assert.Equal(t, uint64(10), e.Tick)
	// Every fourth tick plus a final report on stop.
	assert.Equal(t, []uint64{4, 8, 10}, reports)
}

func TestAdvanceStopsOnTickError(t *testing.T) {
	e := NewEngine()
	boom := errors.New("boom")
	calls := 0
	e.OnTick = func(tick uint64) error {
		calls++
		if tick == 3 {
			return boom
		}
		return nil
	}

	err := e.Advance(10)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
	assert.Equal(t, uint64(3), e.Tick)
}

func TestRunUntilCancelled(t *testing.T) {
	e := NewEngine()
	e.Interval = time.Millisecond
	ticked := make(chan struct{}, 1)
	e.OnTick = func(uint64) error {
		select {
		case ticked <- struct{}{}:
		default:
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("engine never ticked")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.False(t, e.Running())
}

func TestRunStopsOnTickError(t *testing.T) {
	e := NewEngine()
	e.Interval = time.Millisecond
	boom := errors.New("boom")
	e.OnTick = func(uint64) error { return boom }

	err := e.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(1), e.Tick)
}

func TestStopEndsRun(t *testing.T) {
	e := NewEngine()
	e.Interval = time.Millisecond
	started := make(chan struct{})
	var once bool
	e.OnTick = func(uint64) error {
		if !once {
			once = true
			close(started)
		}
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	<-started
	e.Stop()
	e.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
}
