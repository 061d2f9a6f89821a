package ws

import (
	"strconv"
	"sync"
	"time"

	"MarketOverlay/internal/domain/models"
)

// Surface renders a chart instance onto one WebSocket connection. Calls never
// block: pending frames are coalesced per key (candles, each line, markers,
// resize) and the connection's writer sends the latest state of each.
type Surface struct {
	mu       sync.Mutex
	id       string
	symbol   func() string
	tf       string
	pending  map[string]*models.OverlayFrame
	order    []string
	released bool

	notify chan struct{}
}

func newSurface(symbol, tf string) *Surface {
	return &Surface{
		symbol:  func() string { return symbol },
		tf:      tf,
		pending: make(map[string]*models.OverlayFrame),
		notify:  make(chan struct{}, 1),
	}
}

// bind stamps outgoing frames with the instance id and its current symbol.
func (s *Surface) bind(id string, symbol func() string) {
	s.mu.Lock()
	s.id = id
	s.symbol = symbol
	s.mu.Unlock()
}

func (s *Surface) SetCandles(c []models.Candle) {
	s.put("candles", &models.OverlayFrame{Kind: models.FrameCandles, Candles: c})
}

func (s *Surface) SetLine(index int, line models.IndicatorSeries) {
	s.put("line:"+strconv.Itoa(index), &models.OverlayFrame{Kind: models.FrameLine, LineIndex: index, Line: &line})
}

func (s *Surface) SetMarkers(m []models.Marker) {
	s.put("markers", &models.OverlayFrame{Kind: models.FrameMarkers, Markers: m})
}

func (s *Surface) Resize(width int) {
	s.put("resize", &models.OverlayFrame{Kind: models.FrameResize, Width: width})
}

func (s *Surface) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
	s.wake()
}

func (s *Surface) put(key string, f *models.OverlayFrame) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	f.At = time.Now().UTC()
	if _, ok := s.pending[key]; !ok {
		s.order = append(s.order, key)
	}
	s.pending[key] = f
	s.mu.Unlock()
	s.wake()
}

func (s *Surface) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// drain returns pending frames in first-queued order. After release it
// returns a single release frame and released == true.
func (s *Surface) drain() (frames []*models.OverlayFrame, released bool) {
	s.mu.Lock()
	symbolFn := s.symbol
	s.mu.Unlock()
	symbol := symbolFn()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return []*models.OverlayFrame{{
			Kind:       models.FrameRelease,
			InstanceID: s.id,
			Symbol:     symbol,
			Timeframe:  s.tf,
			At:         time.Now().UTC(),
		}}, true
	}

	frames = make([]*models.OverlayFrame, 0, len(s.order))
	for _, key := range s.order {
		f := s.pending[key]
		f.InstanceID = s.id
		f.Symbol = symbol
		f.Timeframe = s.tf
		frames = append(frames, f)
	}
	s.pending = make(map[string]*models.OverlayFrame, len(s.order))
	s.order = s.order[:0]
	return frames, false
}
