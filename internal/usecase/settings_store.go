package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"MarketOverlay/internal/domain/models"
	drepo "MarketOverlay/internal/domain/repository"
	applogger "MarketOverlay/pkg/logger"
)

// SettingsKey is the KV key of the persisted chart settings blob.
const SettingsKey = "chart_settings"

// SettingsStore is the process-wide observable ChartSettings value.
// Reads never observe a partially merged value; updates are serialized so
// concurrent toggles cannot lose each other.
type SettingsStore struct {
	kv      drepo.KVStore
	metrics drepo.Metrics
	log     *applogger.Logger

	loadOnce sync.Once
	writeMu  sync.Mutex

	mu      sync.RWMutex
	current models.ChartSettings
	subs    map[int]func(models.ChartSettings)
	nextSub int
}

func NewSettingsStore(kv drepo.KVStore, metrics drepo.Metrics, log *applogger.Logger) *SettingsStore {
	return &SettingsStore{
		kv:      kv,
		metrics: metrics,
		log:     log,
		current: models.DefaultChartSettings(),
		subs:    make(map[int]func(models.ChartSettings)),
	}
}

// Read returns the current settings, loading the persisted blob on first use.
func (s *SettingsStore) Read(ctx context.Context) models.ChartSettings {
	s.ensureLoaded(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update merges patch into the current value, persists it and notifies
// every subscriber. A persistence failure is logged; the new value still
// takes effect in memory.
func (s *SettingsStore) Update(ctx context.Context, patch models.ChartSettingsPatch) models.ChartSettings {
	s.ensureLoaded(ctx)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next := s.current.Merge(patch)
	s.current = next
	subs := make([]func(models.ChartSettings), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	persisted := s.persist(ctx, next)
	s.metrics.RecordSettingsUpdate(persisted)

	for _, fn := range subs {
		fn(next)
	}
	return next
}

// Subscribe registers fn to be called with every new value. Callbacks run
// on the updating goroutine and must not call Update.
func (s *SettingsStore) Subscribe(fn func(models.ChartSettings)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *SettingsStore) ensureLoaded(ctx context.Context) {
	s.loadOnce.Do(func() {
		loaded := s.load(ctx)
		s.mu.Lock()
		s.current = loaded
		s.mu.Unlock()
	})
}

// load merges the persisted blob over defaults. Unknown fields are ignored,
// missing fields keep their default, unreadable blobs yield defaults.
func (s *SettingsStore) load(ctx context.Context) models.ChartSettings {
	def := models.DefaultChartSettings()
	raw, err := s.kv.Get(ctx, SettingsKey)
	if err != nil {
		if !errors.Is(err, drepo.ErrNotFound) {
			s.log.Warn("chart settings load failed", applogger.Error(err))
		}
		return def
	}
	var patch models.ChartSettingsPatch
	if err := json.Unmarshal([]byte(raw), &patch); err != nil {
		s.log.Warn("chart settings blob unreadable, using defaults", applogger.Error(err))
		return def
	}
	return def.Merge(patch)
}

func (s *SettingsStore) persist(ctx context.Context, v models.ChartSettings) bool {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("chart settings encode failed", applogger.Error(err))
		return false
	}
	if err := s.kv.Set(ctx, SettingsKey, string(b)); err != nil {
		s.log.Warn("chart settings persist failed", applogger.Error(err))
		return false
	}
	return true
}
