package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"MarketOverlay/internal/domain/models"
	drepo "MarketOverlay/internal/domain/repository"
	applogger "MarketOverlay/pkg/logger"

	"github.com/robfig/cron/v3"
)

// ForwardTestRunKey is the KV key of the stored forward-test run id.
const ForwardTestRunKey = "forward_test_run_id"

// ErrNoForwardTestRun is returned when no run id is stored.
var ErrNoForwardTestRun = errors.New("no forward-test run")

// ForwardTestService keeps the id of the externally started forward-test
// run and watches its status until it finishes.
type ForwardTestService struct {
	api      drepo.ForwardTests
	kv       drepo.KVStore
	metrics  drepo.Metrics
	log      *applogger.Logger
	interval time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

func NewForwardTestService(api drepo.ForwardTests, kv drepo.KVStore, metrics drepo.Metrics, log *applogger.Logger, interval time.Duration) *ForwardTestService {
	return &ForwardTestService{
		api:      api,
		kv:       kv,
		metrics:  metrics,
		log:      log.With(applogger.String("component", "forward_test")),
		interval: interval,
	}
}

// RunID returns the stored run id, or ErrNoForwardTestRun.
func (s *ForwardTestService) RunID(ctx context.Context) (int64, error) {
	raw, err := s.kv.Get(ctx, ForwardTestRunKey)
	if err != nil {
		if errors.Is(err, drepo.ErrNotFound) {
			return 0, ErrNoForwardTestRun
		}
		return 0, fmt.Errorf("read run id: %w", err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrNoForwardTestRun
	}
	return id, nil
}

// Start asks the backend to start a run for symbol and stores its id.
func (s *ForwardTestService) Start(ctx context.Context, symbol string) (*models.ForwardTestRun, error) {
	run, err := s.api.StartForwardTest(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, ForwardTestRunKey, strconv.FormatInt(run.ID, 10)); err != nil {
		return nil, fmt.Errorf("store run id: %w", err)
	}
	s.log.Info("forward test started", applogger.Int64("run_id", run.ID), applogger.String("symbol", symbol))
	return run, nil
}

// Status returns the status of the stored run.
func (s *ForwardTestService) Status(ctx context.Context) (*models.ForwardTestStatus, error) {
	id, err := s.RunID(ctx)
	if err != nil {
		return nil, err
	}
	return s.api.ForwardTestStatus(ctx, id)
}

// Clear forgets the stored run id.
func (s *ForwardTestService) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, ForwardTestRunKey); err != nil && !errors.Is(err, drepo.ErrNotFound) {
		return fmt.Errorf("clear run id: %w", err)
	}
	return nil
}

// Trades fetches the trades of the stored run. The caller's context is the
// only cancellation: abandoning the fetch aborts the request.
func (s *ForwardTestService) Trades(ctx context.Context) ([]models.ForwardTestTrade, error) {
	id, err := s.RunID(ctx)
	if err != nil {
		return nil, err
	}
	return s.api.ForwardTestTrades(ctx, id)
}

// Markers returns forward-test markers for the stored run. Any failure,
// including no stored run, degrades to no markers.
func (s *ForwardTestService) Markers(ctx context.Context) []models.Marker {
	trades, err := s.Trades(ctx)
	switch {
	case errors.Is(err, ErrNoForwardTestRun):
		s.metrics.RecordForwardTest("no_run")
		return nil
	case err != nil:
		if ctx.Err() != nil {
			s.metrics.RecordForwardTest("cancelled")
		} else {
			s.metrics.RecordForwardTest("error")
			s.log.Debug("forward test trades unavailable", applogger.Error(err))
		}
		return nil
	}
	s.metrics.RecordForwardTest("ok")
	return ForwardTestMarkers(trades)
}

// CheckOnce polls the stored run and clears the id once the run is no longer active.
func (s *ForwardTestService) CheckOnce(ctx context.Context) {
	st, err := s.Status(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoForwardTestRun) {
			s.log.Debug("forward test status unavailable", applogger.Error(err))
		}
		return
	}
	if st.Run.IsActive {
		return
	}
	if err := s.Clear(ctx); err != nil {
		s.log.Warn("forward test clear failed", applogger.Error(err))
		return
	}
	s.log.Info("forward test finished, run id cleared", applogger.Int64("run_id", st.Run.ID))
}

// StartWatcher runs CheckOnce on the configured interval until StopWatcher.
func (s *ForwardTestService) StartWatcher() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}
	cl := cron.PrintfLogger(s.log)
	s.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		defer cancel()
		s.CheckOnce(ctx)
	}))
	s.cron.Start()
}

// StopWatcher stops the status watcher and waits for a running check.
func (s *ForwardTestService) StopWatcher(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}
