package usecase

import (
	"fmt"

	"MarketOverlay/internal/domain/models"
	"MarketOverlay/pkg/util"
)

// Fuse derives the marker set of one render pass from a snapshot and the
// current settings. It is deterministic in its inputs; markers come out
// stably sorted by time.
func Fuse(snap *models.PollSnapshot, settings models.ChartSettings, tf string) []models.Marker {
	if snap == nil {
		return []models.Marker{}
	}
	markers := make([]models.Marker, 0, 16)
	markers = append(markers, volumeMarkers(snap.Volume, settings, tf)...)
	markers = append(markers, trendMarkers(snap.Trend, settings, tf)...)
	if m, ok := signalMarker(snap.Signal, snap.Candles, settings); ok {
		markers = append(markers, m)
	}
	models.SortMarkers(markers)
	return markers
}

func volumeMarkers(vol *models.VolumeResponse, settings models.ChartSettings, tf string) []models.Marker {
	if vol == nil {
		return nil
	}
	var out []models.Marker
	for _, s := range vol.Signals {
		if s.Timeframe != tf {
			continue
		}
		switch {
		case s.Type == models.VolumeIgnition && settings.Ignition:
			out = append(out, models.Marker{
				Time:     models.MillisToSeconds(s.Ts),
				Position: models.PositionAboveBar,
				Shape:    models.ShapeArrowUp,
				Color:    models.ColorGreen,
				Text:     models.VolumeIgnition,
				Source:   models.SourceVolume,
			})
		case s.Type == models.VolumeClimax && settings.Climax:
			out = append(out, models.Marker{
				Time:     models.MillisToSeconds(s.Ts),
				Position: models.PositionBelowBar,
				Shape:    models.ShapeArrowDown,
				Color:    models.ColorAmber,
				Text:     models.VolumeClimax,
				Source:   models.SourceVolume,
			})
		}
	}
	return out
}

// trendMarkers places every break-of-structure signal at the summary's most
// recent timestamp (5m preferred) rather than at a per-signal time.
func trendMarkers(trend *models.TrendResponse, settings models.ChartSettings, tf string) []models.Marker {
	if trend == nil || !settings.Bos {
		return nil
	}
	at := trend.Summary.BosTime()
	var out []models.Marker
	for _, s := range trend.Signals {
		if s.Timeframe != tf || !s.IsBos() {
			continue
		}
		out = append(out, models.Marker{
			Time:     at,
			Position: models.PositionInBar,
			Shape:    models.ShapeCircle,
			Color:    models.ColorPurple,
			Text:     s.Type,
			Source:   models.SourceTrend,
		})
	}
	return out
}

func signalMarker(sig *models.SignalResponse, candles []models.Candle, settings models.ChartSettings) (models.Marker, bool) {
	if sig == nil || !settings.Signals {
		return models.Marker{}, false
	}
	// any other action is drawn the way sell is
	if sig.Action == "" || sig.Action == models.ActionHold {
		return models.Marker{}, false
	}
	last, ok := models.LastTime(candles)
	if !ok {
		return models.Marker{}, false
	}
	m := models.Marker{
		Time:   last,
		Text:   fmt.Sprintf("%s (%s)", sig.Action, sig.FusionGrade),
		Source: models.SourceSignal,
	}
	if sig.Action == models.ActionBuy {
		m.Position, m.Shape, m.Color = models.PositionBelowBar, models.ShapeArrowUp, models.ColorGreen
	} else {
		m.Position, m.Shape, m.Color = models.PositionAboveBar, models.ShapeArrowDown, models.ColorRed
	}
	return m, true
}

// ForwardTestMarkers renders forward-test trades: one entry marker per trade
// and one exit marker per closed trade. Trades whose candle time cannot be
// read are skipped. A missing profit counts as non-negative.
func ForwardTestMarkers(trades []models.ForwardTestTrade) []models.Marker {
	out := make([]models.Marker, 0, len(trades)*2)
	for _, t := range trades {
		at, ok := util.UnixSeconds(t.CandleTime)
		if !ok {
			continue
		}

		entry := models.Marker{
			Time:   at,
			Text:   "FT " + t.Direction,
			Source: models.SourceForwardTestEntry,
		}
		if t.Direction == models.DirectionShort {
			entry.Position, entry.Shape, entry.Color = models.PositionAboveBar, models.ShapeArrowDown, models.ColorRed
		} else {
			entry.Position, entry.Shape, entry.Color = models.PositionBelowBar, models.ShapeArrowUp, models.ColorGreen
		}
		out = append(out, entry)

		if t.ExitPrice == nil {
			continue
		}
		exit := models.Marker{
			Time:   at,
			Shape:  models.ShapeCircle,
			Text:   "exit",
			Source: models.SourceForwardTestExit,
		}
		if t.ExitReason != nil && *t.ExitReason != "" {
			exit.Text = *t.ExitReason
		}
		if t.ProfitLoss == nil || *t.ProfitLoss >= 0 {
			exit.Position, exit.Color = models.PositionAboveBar, models.ColorGreen
		} else {
			exit.Position, exit.Color = models.PositionBelowBar, models.ColorRed
		}
		out = append(out, exit)
	}
	models.SortMarkers(out)
	return out
}
