package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"MarketOverlay/internal/domain/models"
	drepo "MarketOverlay/internal/domain/repository"
	mid "MarketOverlay/internal/middleware"
	applogger "MarketOverlay/pkg/logger"
)

// ErrHubClosed is returned by Mount after DisposeAll.
var ErrHubClosed = errors.New("chart hub closed")

// ChartHub mounts chart instances and keeps track of the live ones.
type ChartHub struct {
	data    drepo.MarketData
	store   *SettingsStore
	forward *ForwardTestService
	pipe    *mid.FramePipeline
	cfg     ChartConfig
	metrics drepo.Metrics
	log     *applogger.Logger

	seq       atomic.Uint64
	mu        sync.RWMutex
	closed    bool
	instances map[string]*ChartInstance
}

func NewChartHub(data drepo.MarketData, store *SettingsStore, forward *ForwardTestService, pipe *mid.FramePipeline,
	cfg ChartConfig, metrics drepo.Metrics, log *applogger.Logger) *ChartHub {
	return &ChartHub{
		data:      data,
		store:     store,
		forward:   forward,
		pipe:      pipe,
		cfg:       cfg,
		metrics:   metrics,
		log:       log,
		instances: make(map[string]*ChartInstance),
	}
}

// Mount creates and activates a chart instance rendering to surface.
func (h *ChartHub) Mount(ctx context.Context, symbol, tf string, width int, surface drepo.Surface) (*ChartInstance, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if !drepo.IsValidTimeframe(drepo.Timeframe(tf)) {
		return nil, fmt.Errorf("unsupported timeframe %q", tf)
	}
	if width <= 0 {
		width = h.cfg.DefaultWidth
	}

	id := fmt.Sprintf("chart-%d", h.seq.Add(1))
	var inst *ChartInstance
	if h.pipe != nil {
		surface = h.pipe.Wrap(id, func() string { return inst.Symbol() }, tf, surface)
	}
	log := h.log.With(
		applogger.String("instance", id),
		applogger.String("symbol", symbol),
		applogger.String("tf", tf),
	)
	inst = newChartInstance(id, symbol, tf, width, surface, h.data, h.store, h.forward, h.cfg, h.metrics, log)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.instances[id] = inst
	n := len(h.instances)
	h.mu.Unlock()
	h.metrics.SetActiveInstances(n)

	inst.Mount(ctx)
	return inst, nil
}

// Unmount disposes the instance with the given id, if it is still mounted.
func (h *ChartHub) Unmount(id string) {
	h.mu.Lock()
	inst, ok := h.instances[id]
	delete(h.instances, id)
	n := len(h.instances)
	h.mu.Unlock()
	if !ok {
		return
	}
	inst.Dispose()
	h.metrics.SetActiveInstances(n)
}

// Get returns a mounted instance.
func (h *ChartHub) Get(id string) (*ChartInstance, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	inst, ok := h.instances[id]
	return inst, ok
}

// List describes all mounted instances in mount order.
func (h *ChartHub) List() []models.InstanceInfo {
	h.mu.RLock()
	out := make([]models.InstanceInfo, 0, len(h.instances))
	for _, inst := range h.instances {
		out = append(out, inst.Info())
	}
	h.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MountedAt.Equal(out[j].MountedAt) {
			return out[i].MountedAt.Before(out[j].MountedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DisposeAll disposes every instance and refuses further mounts.
func (h *ChartHub) DisposeAll() {
	h.mu.Lock()
	h.closed = true
	all := h.instances
	h.instances = make(map[string]*ChartInstance)
	h.mu.Unlock()

	for _, inst := range all {
		inst.Dispose()
	}
	h.metrics.SetActiveInstances(0)
	if len(all) > 0 {
		h.log.Info("chart instances disposed", applogger.Int("count", len(all)))
	}
}
