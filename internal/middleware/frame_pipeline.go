package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"MarketOverlay/internal/domain/models"
	domrepo "MarketOverlay/internal/domain/repository"
	applogger "MarketOverlay/pkg/logger"
)

// NamedSink is an export destination for overlay frames.
type NamedSink struct {
	Name string
	Sink domrepo.FrameSink
}

// FramePipeline sits between chart surfaces and the export sinks. It
// validates and throttles frames, buffers them, and publishes in batches
// from a background worker. Enqueue never blocks a chart.
type FramePipeline struct {
	sinks    []NamedSink
	metrics  domrepo.Metrics
	log      *applogger.Logger
	maxRPS   int
	bufSize  int
	batch    int
	flushInt time.Duration

	bufCh  chan *models.OverlayFrame
	stopCh chan struct{}
	doneCh chan struct{}

	mu       sync.Mutex
	started  bool
	lastSeen map[string]time.Time // per instance/kind last accepted time
}

type PipelineOption func(*FramePipeline)

// WithMaxRPS sets the max frames per second per instance and frame kind.
func WithMaxRPS(n int) PipelineOption {
	return func(p *FramePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the frame buffer size.
func WithBufferSize(n int) PipelineOption {
	return func(p *FramePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBatch sets the publish batch size and the max wait before a partial batch is flushed.
func WithBatch(size int, flush time.Duration) PipelineOption {
	return func(p *FramePipeline) {
		if size > 0 {
			p.batch = size
		}
		if flush > 0 {
			p.flushInt = flush
		}
	}
}

// NewFramePipeline creates a new pipeline publishing to sinks.
func NewFramePipeline(sinks []NamedSink, metrics domrepo.Metrics, log *applogger.Logger, opts ...PipelineOption) *FramePipeline {
	p := &FramePipeline{
		sinks:    sinks,
		metrics:  metrics,
		log:      log.With(applogger.String("component", "frame_pipeline")),
		maxRPS:   10,
		bufSize:  1000,
		batch:    100,
		flushInt: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.OverlayFrame, p.bufSize)
	return p
}

// Enabled reports whether any sink is configured.
func (p *FramePipeline) Enabled() bool { return p != nil && len(p.sinks) > 0 }

// Start launches the background publisher.
func (p *FramePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop stops the publisher after flushing what is buffered, then closes the sinks.
func (p *FramePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		p.closeSinks()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
	p.closeSinks()
}

// Enqueue validates and throttles a frame and buffers it for export.
// Frames are dropped when the buffer is full.
func (p *FramePipeline) Enqueue(f *models.OverlayFrame) error {
	if err := validateFrame(f); err != nil {
		p.metrics.RecordExport("pipeline", false, 1)
		return err
	}
	if !p.allow(f, time.Now()) {
		return nil
	}
	select {
	case p.bufCh <- f:
		return nil
	default:
		p.metrics.RecordExport("buffer_full", false, 1)
		return fmt.Errorf("frame buffer full")
	}
}

func (p *FramePipeline) run(ctx context.Context) {
	defer close(p.doneCh)
	ticker := time.NewTicker(p.flushInt)
	defer ticker.Stop()

	pending := make([]*models.OverlayFrame, 0, p.batch)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		p.publish(ctx, pending)
		pending = make([]*models.OverlayFrame, 0, p.batch)
	}

	for {
		select {
		case <-p.stopCh:
			for {
				select {
				case f := <-p.bufCh:
					pending = append(pending, f)
				default:
					flush()
					return
				}
			}
		case <-ctx.Done():
			flush()
			return
		case f := <-p.bufCh:
			pending = append(pending, f)
			if len(pending) >= p.batch {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (p *FramePipeline) publish(ctx context.Context, frames []*models.OverlayFrame) {
	for _, s := range p.sinks {
		start := time.Now()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		err := s.Sink.Publish(pctx, frames)
		cancel()
		p.metrics.RecordLatency("export_"+s.Name, time.Since(start))
		p.metrics.RecordExport(s.Name, err == nil, len(frames))
		if err != nil {
			p.log.Warn("frame export failed",
				applogger.String("sink", s.Name),
				applogger.Int("frames", len(frames)),
				applogger.Error(err))
		}
	}
}

func (p *FramePipeline) closeSinks() {
	for _, s := range p.sinks {
		if err := s.Sink.Close(); err != nil {
			p.log.Warn("frame sink close failed", applogger.String("sink", s.Name), applogger.Error(err))
		}
	}
}

func validateFrame(f *models.OverlayFrame) error {
	if f == nil {
		return fmt.Errorf("frame nil")
	}
	if f.InstanceID == "" {
		return fmt.Errorf("instance id empty")
	}
	if f.Kind == "" {
		return fmt.Errorf("frame kind empty")
	}
	return nil
}

// allow throttles candle and line frames; markers, resize and release
// frames always pass.
func (p *FramePipeline) allow(f *models.OverlayFrame, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	if f.Kind != models.FrameCandles && f.Kind != models.FrameLine {
		return true
	}
	key := f.InstanceID + "/" + string(f.Kind) + "/" + strconv.Itoa(f.LineIndex)

	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[key]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[key] = now
	return true
}

// Forget drops throttle state of a released instance.
func (p *FramePipeline) Forget(instanceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prefix := instanceID + "/"
	for k := range p.lastSeen {
		if strings.HasPrefix(k, prefix) {
			delete(p.lastSeen, k)
		}
	}
}
