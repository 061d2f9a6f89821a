package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"MarketOverlay/internal/domain/models"
	applogger "MarketOverlay/pkg/logger"
	"MarketOverlay/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(kv *memKV) *SettingsStore {
	return NewSettingsStore(kv, metrics.Nop{}, applogger.Nop())
}

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(newMemKV())
	assert.Equal(t, models.DefaultChartSettings(), s.Read(context.Background()))
}

func TestSettingsLoadMergesOverDefaults(t *testing.T) {
	kv := newMemKV()
	kv.data[SettingsKey] = `{"bos":false,"climax":false,"legacy_toggle":true}`

	got := newTestStore(kv).Read(context.Background())
	assert.Equal(t, models.ChartSettings{Emas: true, Bos: false, Ignition: true, Climax: false, Signals: true}, got)
}

func TestSettingsUnreadableBlobFallsBack(t *testing.T) {
	for _, blob := range []string{`not json`, `{"emas":"yes"}`, `null`} {
		kv := newMemKV()
		kv.data[SettingsKey] = blob
		assert.Equal(t, models.DefaultChartSettings(), newTestStore(kv).Read(context.Background()), blob)
	}
}

func TestSettingsUpdatePersistsAndNotifies(t *testing.T) {
	kv := newMemKV()
	s := newTestStore(kv)

	var seen []models.ChartSettings
	unsub := s.Subscribe(func(v models.ChartSettings) { seen = append(seen, v) })

	got := s.Update(context.Background(), models.ChartSettingsPatch{Emas: boolp(false)})
	assert.False(t, got.Emas)
	assert.True(t, got.Bos)
	require.Len(t, seen, 1)
	assert.Equal(t, got, seen[0])

	raw, ok := kv.value(SettingsKey)
	require.True(t, ok)
	var stored models.ChartSettings
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, got, stored)

	unsub()
	unsub()
	s.Update(context.Background(), models.ChartSettingsPatch{Emas: boolp(true)})
	assert.Len(t, seen, 1)
}

func TestSettingsSharedAcrossConsumers(t *testing.T) {
	s := newTestStore(newMemKV())
	var a, b models.ChartSettings
	s.Subscribe(func(v models.ChartSettings) { a = v })
	s.Subscribe(func(v models.ChartSettings) { b = v })

	s.Update(context.Background(), models.ChartSettingsPatch{Signals: boolp(false)})
	assert.False(t, a.Signals)
	assert.False(t, b.Signals)
	assert.False(t, s.Read(context.Background()).Signals)
}

func TestSettingsConcurrentTogglesAreNotLost(t *testing.T) {
	kv := newMemKV()
	s := newTestStore(kv)
	ctx := context.Background()

	patches := []models.ChartSettingsPatch{
		{Emas: boolp(false)},
		{Bos: boolp(false)},
		{Ignition: boolp(false)},
		{Climax: boolp(false)},
		{Signals: boolp(false)},
	}
	var wg sync.WaitGroup
	for _, p := range patches {
		wg.Add(1)
		go func(p models.ChartSettingsPatch) {
			defer wg.Done()
			s.Update(ctx, p)
		}(p)
	}
	wg.Wait()

	assert.Equal(t, models.ChartSettings{}, s.Read(ctx))

	raw, _ := kv.value(SettingsKey)
	var stored models.ChartSettings
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, models.ChartSettings{}, stored)
}

func TestSettingsPersistFailureStillAdvances(t *testing.T) {
	kv := newMemKV()
	kv.setErr = errBoom
	s := newTestStore(kv)

	got := s.Update(context.Background(), models.ChartSettingsPatch{Climax: boolp(false)})
	assert.False(t, got.Climax)
	assert.False(t, s.Read(context.Background()).Climax)
	assert.Equal(t, 1, kv.sets)
}
