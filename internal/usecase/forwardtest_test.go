package usecase

import (
	"context"
	"testing"
	"time"

	"MarketOverlay/internal/domain/models"
	applogger "MarketOverlay/pkg/logger"
	"MarketOverlay/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardTestStartStoresRunID(t *testing.T) {
	kv := newMemKV()
	api := &fakeForward{nextID: 6}
	svc := NewForwardTestService(api, kv, metrics.Nop{}, applogger.Nop(), time.Second)
	ctx := context.Background()

	_, err := svc.RunID(ctx)
	assert.ErrorIs(t, err, ErrNoForwardTestRun)

	run, err := svc.Start(ctx, "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, int64(7), run.ID)

	id, err := svc.RunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Run.IsActive)
}

func TestForwardTestGarbageRunIDIsIgnored(t *testing.T) {
	kv := newMemKV()
	kv.data[ForwardTestRunKey] = "abc"
	svc := NewForwardTestService(&fakeForward{}, kv, metrics.Nop{}, applogger.Nop(), time.Second)

	_, err := svc.RunID(context.Background())
	assert.ErrorIs(t, err, ErrNoForwardTestRun)
	assert.Nil(t, svc.Markers(context.Background()))
}

func TestForwardTestCheckClearsFinishedRun(t *testing.T) {
	kv := newMemKV()
	api := &fakeForward{}
	svc := NewForwardTestService(api, kv, metrics.Nop{}, applogger.Nop(), time.Second)
	ctx := context.Background()

	_, err := svc.Start(ctx, "ETH/USDT")
	require.NoError(t, err)

	svc.CheckOnce(ctx)
	_, ok := kv.value(ForwardTestRunKey)
	assert.True(t, ok, "active run is kept")

	api.mu.Lock()
	api.active = false
	api.mu.Unlock()

	svc.CheckOnce(ctx)
	_, ok = kv.value(ForwardTestRunKey)
	assert.False(t, ok, "finished run is cleared")

	// nothing stored: a no-op
	svc.CheckOnce(ctx)
}

func TestForwardTestMarkersFromStoredRun(t *testing.T) {
	api := &fakeForward{trades: []models.ForwardTestTrade{{Direction: "long", CandleTime: "120"}}}
	svc := newTestForward(t, api, true)

	got := svc.Markers(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, "FT long", got[0].Text)
	assert.Equal(t, int64(120), got[0].Time)
}

func TestForwardTestWatcherLifecycle(t *testing.T) {
	svc := newTestForward(t, &fakeForward{}, false)
	svc.StartWatcher()
	svc.StartWatcher()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.StopWatcher(ctx)
	svc.StopWatcher(ctx)
}
