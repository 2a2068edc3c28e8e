package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	pkgerrors "lookout/pkg/errors"
	"lookout/pkg/models"
)

type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Exists(ctx context.Context, eventID string) (bool, error) {
	query := `SELECT 1 FROM processed_events WHERE event_id = $1`

	var one int
	err := l.db.QueryRowContext(ctx, query, eventID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "exists")
	}
	return true, nil
}

func (l *PostgresLedger) Append(ctx context.Context, record *models.ProcessedRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}

	query := `
		INSERT INTO processed_events (id, event_id, notified, verdict_reason, source_name, category, subject_title, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := l.db.ExecContext(ctx, query,
		record.ID, record.EventID, record.Notified, record.VerdictReason,
		record.SourceName, record.Category, record.SubjectTitle, record.RecordedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return pkgerrors.ErrConflict.WithCause(err).WithDetail("event_id", record.EventID)
			}
		}
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("event_id", record.EventID)
		}
		return pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "append")
	}

	return nil
}

func (l *PostgresLedger) RecentRecords(ctx context.Context, limit int) ([]models.ProcessedRecord, error) {
	query := `
		SELECT id, event_id, notified, verdict_reason, source_name, category, subject_title, recorded_at
		FROM processed_events
		ORDER BY recorded_at DESC
		LIMIT $1
	`

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "recent_records")
	}
	defer rows.Close()

	var records []models.ProcessedRecord
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		var rec models.ProcessedRecord
		if err := rows.Scan(
			&rec.ID, &rec.EventID, &rec.Notified, &rec.VerdictReason,
			&rec.SourceName, &rec.Category, &rec.SubjectTitle, &rec.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "recent_records")
	}

	return records, nil
}

func (l *PostgresLedger) Stats(ctx context.Context) (Stats, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE notified)
		FROM processed_events
	`

	var stats Stats
	err := l.db.QueryRowContext(ctx, query).Scan(&stats.TotalRecords, &stats.NotifiedRecords)
	if err != nil {
		return Stats{}, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "stats")
	}
	return stats, nil
}
