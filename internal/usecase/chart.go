package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"MarketOverlay/internal/domain/models"
	drepo "MarketOverlay/internal/domain/repository"
	"MarketOverlay/internal/services/indicators"
	applogger "MarketOverlay/pkg/logger"
)

// InstanceState is the lifecycle state of a chart instance.
type InstanceState int32

const (
	StateInitializing InstanceState = iota
	StateActive
	StateDisposed
)

func (s InstanceState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// ChartConfig holds per-instance polling parameters.
type ChartConfig struct {
	Poller       PollerConfig
	DefaultWidth int
}

// ChartInstance binds one (symbol, timeframe) chart to a rendering surface.
// Everything pushed to the surface happens under mu after a state check, so
// a disposed instance never touches its surface again.
type ChartInstance struct {
	id        string
	timeframe string
	mountedAt time.Time

	surface   drepo.Surface
	store     *SettingsStore
	forward   *ForwardTestService
	poller    *Poller
	metrics   drepo.Metrics
	log       *applogger.Logger
	ftTimeout time.Duration

	state  atomic.Int32
	cycles atomic.Int64

	lifeCtx    context.Context
	lifeCancel context.CancelFunc
	unsub      func()

	mu          sync.Mutex
	snapshot    *models.PollSnapshot
	settings    models.ChartSettings
	baseMarkers []models.Marker
	width       int
	gen         uint64
	ftCancel    context.CancelFunc
}

func newChartInstance(id, symbol, tf string, width int, surface drepo.Surface, data drepo.MarketData,
	store *SettingsStore, forward *ForwardTestService, cfg ChartConfig, metrics drepo.Metrics, log *applogger.Logger) *ChartInstance {
	lifeCtx, lifeCancel := context.WithCancel(context.Background())
	c := &ChartInstance{
		id:         id,
		timeframe:  tf,
		mountedAt:  time.Now().UTC(),
		surface:    surface,
		store:      store,
		forward:    forward,
		metrics:    metrics,
		log:        log,
		ftTimeout:  cfg.Poller.Timeout,
		lifeCtx:    lifeCtx,
		lifeCancel: lifeCancel,
		width:      width,
	}
	c.poller = NewPoller(data, symbol, cfg.Poller, c, metrics, log)
	return c
}

func (c *ChartInstance) ID() string           { return c.id }
func (c *ChartInstance) Timeframe() string    { return c.timeframe }
func (c *ChartInstance) Symbol() string       { return c.poller.Symbol() }
func (c *ChartInstance) State() InstanceState { return InstanceState(c.state.Load()) }
func (c *ChartInstance) Disposed() bool       { return c.State() == StateDisposed }

// Mount activates the instance and starts polling. The first cycle starts
// immediately.
func (c *ChartInstance) Mount(ctx context.Context) {
	if !c.activate(ctx) {
		return
	}
	c.poller.Start()
	c.log.Info("chart mounted")
}

// activate subscribes to settings changes and then takes the current value,
// both under mu. An update racing with activation is either already in the
// value read here or delivered to onSettings once mu is released.
func (c *ChartInstance) activate(ctx context.Context) bool {
	// Load the persisted blob outside mu.
	c.store.Read(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.CompareAndSwap(int32(StateInitializing), int32(StateActive)) {
		return false
	}
	c.unsub = c.store.Subscribe(c.onSettings)
	c.settings = c.store.Read(ctx)
	if c.width > 0 {
		c.surface.Resize(c.width)
	}
	return true
}

// Dispose stops polling, cancels forward-test fetches and releases the
// surface. It is idempotent.
func (c *ChartInstance) Dispose() {
	c.mu.Lock()
	prev := InstanceState(c.state.Swap(int32(StateDisposed)))
	if prev == StateDisposed {
		c.mu.Unlock()
		return
	}
	if c.ftCancel != nil {
		c.ftCancel()
		c.ftCancel = nil
	}
	c.surface.Release()
	unsub := c.unsub
	c.mu.Unlock()

	c.poller.Stop()
	c.lifeCancel()
	if unsub != nil {
		unsub()
	}
	c.log.Info("chart disposed", applogger.Int64("cycles", c.cycles.Load()))
}

// ApplyCycle replaces the snapshot with the cycle result, pushes candles and
// recomputes overlays as one unit. It reports false if the instance is no
// longer active.
func (c *ChartInstance) ApplyCycle(symbol string, res models.CycleResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != StateActive {
		return false
	}
	snap := res.Snapshot(symbol, c.timeframe, time.Now().UTC())
	c.snapshot = snap
	c.surface.SetCandles(snap.Candles)
	c.recomputeLocked()
	c.cycles.Add(1)
	return true
}

// Resize tracks the consumer's container width.
func (c *ChartInstance) Resize(width int) {
	if width <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != StateActive {
		return
	}
	c.width = width
	c.surface.Resize(width)
}

// Snapshot returns the last applied snapshot, if any.
func (c *ChartInstance) Snapshot() *models.PollSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Info describes the instance for listings.
func (c *ChartInstance) Info() models.InstanceInfo {
	c.mu.Lock()
	width := c.width
	c.mu.Unlock()
	return models.InstanceInfo{
		ID:        c.id,
		Symbol:    c.Symbol(),
		Timeframe: c.timeframe,
		State:     c.State().String(),
		Width:     width,
		Cycles:    c.cycles.Load(),
		MountedAt: c.mountedAt,
	}
}

// onSettings recomputes overlays from the cached snapshot; it never fetches.
func (c *ChartInstance) onSettings(s models.ChartSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != StateActive {
		return
	}
	c.settings = s
	if c.snapshot != nil {
		c.recomputeLocked()
	}
}

func (c *ChartInstance) recomputeLocked() {
	snap := c.snapshot

	if c.settings.Emas {
		for i, line := range indicators.Overlays(snap.Candles) {
			c.surface.SetLine(i, line)
		}
	} else {
		for i, p := range indicators.OverlayPeriods {
			c.surface.SetLine(i, models.IndicatorSeries{Period: p, Points: []models.IndicatorPoint{}})
		}
	}

	base := Fuse(snap, c.settings, c.timeframe)
	c.baseMarkers = base
	c.surface.SetMarkers(base)
	c.metrics.RecordMarkers(c.timeframe, len(base))

	c.gen++
	if c.ftCancel != nil {
		c.ftCancel()
		c.ftCancel = nil
	}
	if c.forward == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.lifeCtx, c.ftTimeout)
	c.ftCancel = cancel
	go c.overlayForwardTest(ctx, cancel, c.gen)
}

// overlayForwardTest appends forward-test markers to the render pass of
// generation gen. A newer recompute or disposal cancels ctx.
func (c *ChartInstance) overlayForwardTest(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer cancel()
	ft := c.forward.Markers(ctx)
	if len(ft) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != StateActive || gen != c.gen || ctx.Err() != nil {
		return
	}
	merged := models.MergeMarkers(c.baseMarkers, ft)
	c.surface.SetMarkers(merged)
	c.metrics.RecordMarkers(c.timeframe, len(merged))
}
