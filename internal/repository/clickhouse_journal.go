package repository

import (
	"context"
	"database/sql"
	"fmt"

	"MarketOverlay/internal/domain/models"
	pkgch "MarketOverlay/pkg/clickhouse"
)

const journalTable = "marker_journal"

// JournalSchema returns the DDL for the marker journal in database.
func JournalSchema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			at          DateTime64(3),
			instance_id String,
			symbol      LowCardinality(String),
			timeframe   LowCardinality(String),
			kind        LowCardinality(String),
			marker_time Int64,
			position    LowCardinality(String),
			shape       LowCardinality(String),
			color       LowCardinality(String),
			text        String,
			source      LowCardinality(String)
		) ENGINE = MergeTree
		ORDER BY (symbol, timeframe, at)`, database, journalTable),
	}
}

// MarkerJournal records every rendered marker set, one row per marker, and
// chart releases as a single row. Candle and line frames are not journaled.
type MarkerJournal struct {
	db    *sql.DB
	table string
}

func NewMarkerJournal(ch *pkgch.Client) *MarkerJournal {
	return newMarkerJournal(ch.DB(), ch.Database())
}

func newMarkerJournal(db *sql.DB, database string) *MarkerJournal {
	return &MarkerJournal{db: db, table: database + "." + journalTable}
}

type journalRow struct {
	frame  *models.OverlayFrame
	marker models.Marker
}

func journalRows(frames []*models.OverlayFrame) []journalRow {
	var rows []journalRow
	for _, f := range frames {
		if f == nil {
			continue
		}
		switch f.Kind {
		case models.FrameMarkers:
			for _, m := range f.Markers {
				rows = append(rows, journalRow{frame: f, marker: m})
			}
		case models.FrameRelease:
			rows = append(rows, journalRow{frame: f})
		}
	}
	return rows
}

func (j *MarkerJournal) Publish(ctx context.Context, frames []*models.OverlayFrame) error {
	rows := journalRows(frames)
	if len(rows) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (at, instance_id, symbol, timeframe, kind, marker_time, position, shape, color, text, source)`, j.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("journal prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		m := r.marker
		if _, err := stmt.ExecContext(ctx,
			r.frame.At, r.frame.InstanceID, r.frame.Symbol, r.frame.Timeframe, string(r.frame.Kind),
			m.Time, string(m.Position), string(m.Shape), m.Color, m.Text, string(m.Source),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("journal append: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal commit: %w", err)
	}
	return nil
}

// Close is a no-op; the ClickHouse pool is owned by the caller.
func (j *MarkerJournal) Close() error {
	return nil
}
