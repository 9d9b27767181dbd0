package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PulseFeed/internal/domain/models"
	pkgch "PulseFeed/pkg/clickhouse"
	applogger "PulseFeed/pkg/logger"
)

// CHSampleStore implements SampleStore backed by ClickHouse. The samples are
// ingested by an external collector; this side only reads time ranges.
type CHSampleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHSampleStore(ch *pkgch.Client, table string) *CHSampleStore {
	return &CHSampleStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHSampleStore) SetLogger(l *applogger.Logger) { s.l = l }

// SamplesBetween returns readings with at in [start, end), oldest first.
func (s *CHSampleStore) SamplesBetween(ctx context.Context, start, end time.Time) ([]models.HeartRateSample, error) {
	const qtpl = `
        SELECT at, bpm
        FROM %s
        WHERE at >= ? AND at < ?
        ORDER BY at ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, start, end)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse samples query error",
				applogger.String("table", s.table),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	out := make([]models.HeartRateSample, 0, 16)
	for rows.Next() {
		var hs models.HeartRateSample
		if err := rows.Scan(&hs.At, &hs.BPM); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, hs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
