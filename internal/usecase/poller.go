package usecase

import (
	"context"
	"sync"
	"time"

	"MarketOverlay/internal/domain/models"
	drepo "MarketOverlay/internal/domain/repository"
	applogger "MarketOverlay/pkg/logger"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// FetchLimits are the per-endpoint limit query parameters of one cycle.
type FetchLimits struct {
	OHLCV  int
	Trend  int
	Volume int
	Signal int
}

type PollerConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	Limits   FetchLimits
}

// CycleTarget receives the result of a poll cycle.
type CycleTarget interface {
	Disposed() bool
	ApplyCycle(symbol string, res models.CycleResult) bool
}

// FetchAll issues the four cycle fetches concurrently. The signal fetch may
// fail on its own, leaving Signal nil; any other failure fails the cycle.
func FetchAll(ctx context.Context, data drepo.MarketData, symbol string, lim FetchLimits, metrics drepo.Metrics, log *applogger.Logger) (models.CycleResult, error) {
	var res models.CycleResult
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r, err := data.FetchOHLCV(gctx, symbol, lim.OHLCV)
		if err != nil {
			metrics.RecordFetchError("ohlcv")
			return err
		}
		res.OHLCV = r
		return nil
	})
	g.Go(func() error {
		r, err := data.FetchTrend(gctx, symbol, lim.Trend)
		if err != nil {
			metrics.RecordFetchError("trend")
			return err
		}
		res.Trend = r
		return nil
	})
	g.Go(func() error {
		r, err := data.FetchVolume(gctx, symbol, lim.Volume)
		if err != nil {
			metrics.RecordFetchError("volume")
			return err
		}
		res.Volume = r
		return nil
	})
	g.Go(func() error {
		r, err := data.FetchSignal(gctx, symbol, lim.Signal)
		if err != nil {
			if gctx.Err() == nil {
				metrics.RecordFetchError("signal")
				log.Debug("signal fetch failed, continuing without signal", applogger.String("symbol", symbol), applogger.Error(err))
			}
			return nil
		}
		res.Signal = r
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.CycleResult{}, err
	}
	return res, nil
}

// Poller drives the fetch cadence of one chart instance. At most one cycle
// is in flight; a cycle that completes after its target is disposed is
// dropped without touching the target.
type Poller struct {
	data    drepo.MarketData
	cfg     PollerConfig
	target  CycleTarget
	metrics drepo.Metrics
	log     *applogger.Logger
	job     cron.Job

	mu     sync.Mutex
	symbol string
	cron   *cron.Cron
}

func NewPoller(data drepo.MarketData, symbol string, cfg PollerConfig, target CycleTarget, metrics drepo.Metrics, log *applogger.Logger) *Poller {
	p := &Poller{
		data:    data,
		cfg:     cfg,
		target:  target,
		metrics: metrics,
		log:     log,
		symbol:  symbol,
	}
	cl := cron.PrintfLogger(log)
	p.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(p.cycle))
	return p
}

// Symbol is the symbol the next cycle fetches with.
func (p *Poller) Symbol() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.symbol
}

// Rebind switches future fetches to the backend's canonical symbol. It is a
// no-op for an empty or unchanged symbol and reports whether it switched.
func (p *Poller) Rebind(normalized string) bool {
	if normalized == "" {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if normalized == p.symbol || p.target.Disposed() {
		return false
	}
	p.symbol = normalized
	return true
}

// Start runs the first cycle immediately and then one per interval.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.cron != nil || p.target.Disposed() {
		p.mu.Unlock()
		return
	}
	p.cron = cron.New(cron.WithLogger(cron.PrintfLogger(p.log)))
	p.cron.Schedule(cron.Every(p.cfg.Interval), p.job)
	p.cron.Start()
	p.mu.Unlock()

	go p.job.Run()
}

// Stop cancels the interval. A cycle already in flight completes on its own
// and is discarded by the target's disposal check.
func (p *Poller) Stop() {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

// RunCycle runs one cycle on the calling goroutine, subject to the same
// overlap guard as scheduled cycles.
func (p *Poller) RunCycle() {
	p.job.Run()
}

func (p *Poller) cycle() {
	start := time.Now()
	symbol := p.Symbol()

	// not tied to disposal; the target is checked after the await
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	res, err := FetchAll(ctx, p.data, symbol, p.cfg.Limits, p.metrics, p.log)
	cancel()
	p.metrics.RecordLatency("poll_cycle", time.Since(start))

	if p.target.Disposed() {
		p.metrics.RecordCycle("discarded")
		return
	}
	if err != nil {
		p.metrics.RecordCycle("error")
		p.log.Debug("poll cycle failed", applogger.String("symbol", symbol), applogger.Error(err))
		return
	}

	if p.Rebind(res.OHLCV.NormalizedSymbol) {
		p.metrics.RecordRebind()
		p.log.Info("symbol rebound to canonical form",
			applogger.String("from", symbol),
			applogger.String("to", res.OHLCV.NormalizedSymbol))
	}

	if !p.target.ApplyCycle(symbol, res) {
		p.metrics.RecordCycle("discarded")
		return
	}
	p.metrics.RecordCycle("applied")
}
