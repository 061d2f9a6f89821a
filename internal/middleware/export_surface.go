package middleware

import (
	"time"

	"MarketOverlay/internal/domain/models"
	domrepo "MarketOverlay/internal/domain/repository"
)

// ExportSurface forwards every surface call to the wrapped surface and
// mirrors it as an overlay frame into the pipeline.
type ExportSurface struct {
	next       domrepo.Surface
	pipe       *FramePipeline
	instanceID string
	symbol     func() string
	timeframe  string
}

var _ domrepo.Surface = (*ExportSurface)(nil)

// Wrap returns s unchanged when the pipeline has no sinks. symbol is read on
// every frame so exports follow a symbol rebind.
func (p *FramePipeline) Wrap(instanceID string, symbol func() string, tf string, s domrepo.Surface) domrepo.Surface {
	if !p.Enabled() {
		return s
	}
	return &ExportSurface{next: s, pipe: p, instanceID: instanceID, symbol: symbol, timeframe: tf}
}

func (e *ExportSurface) frame(kind models.FrameKind) *models.OverlayFrame {
	return &models.OverlayFrame{
		Kind:       kind,
		InstanceID: e.instanceID,
		Symbol:     e.symbol(),
		Timeframe:  e.timeframe,
		At:         time.Now().UTC(),
	}
}

func (e *ExportSurface) SetCandles(candles []models.Candle) {
	e.next.SetCandles(candles)
	f := e.frame(models.FrameCandles)
	f.Candles = candles
	_ = e.pipe.Enqueue(f)
}

func (e *ExportSurface) SetLine(index int, series models.IndicatorSeries) {
	e.next.SetLine(index, series)
	f := e.frame(models.FrameLine)
	f.LineIndex = index
	f.Line = &series
	_ = e.pipe.Enqueue(f)
}

func (e *ExportSurface) SetMarkers(markers []models.Marker) {
	e.next.SetMarkers(markers)
	f := e.frame(models.FrameMarkers)
	f.Markers = markers
	_ = e.pipe.Enqueue(f)
}

func (e *ExportSurface) Resize(width int) {
	e.next.Resize(width)
	f := e.frame(models.FrameResize)
	f.Width = width
	_ = e.pipe.Enqueue(f)
}

func (e *ExportSurface) Release() {
	e.next.Release()
	_ = e.pipe.Enqueue(e.frame(models.FrameRelease))
	e.pipe.Forget(e.instanceID)
}
