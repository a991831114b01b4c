package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores records in the sales_records table.
type PostgresRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository wraps an open pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool, now: time.Now}
}

const upsertQuery = `
	INSERT INTO sales_records (
		subject_id, period_key, target_quantity, target_revenue,
		actual_quantity, actual_revenue, daily_average, required_daily_rate,
		completion_percent, narrative_text, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (subject_id, period_key)
	DO UPDATE SET
		target_quantity = EXCLUDED.target_quantity,
		target_revenue = EXCLUDED.target_revenue,
		actual_quantity = EXCLUDED.actual_quantity,
		actual_revenue = EXCLUDED.actual_revenue,
		daily_average = EXCLUDED.daily_average,
		required_daily_rate = EXCLUDED.required_daily_rate,
		completion_percent = EXCLUDED.completion_percent,
		narrative_text = EXCLUDED.narrative_text,
		updated_at = EXCLUDED.updated_at;
`

// Upsert inserts or replaces the record for (subject_id, period_key).
func (r *PostgresRepository) Upsert(ctx context.Context, rec Record) error {
	if err := validKey(rec.SubjectID, rec.PeriodKey); err != nil {
		return &PersistenceError{Op: "upsert", SubjectID: rec.SubjectID, PeriodKey: rec.PeriodKey, Err: err}
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = r.now()
	}
	_, err := r.pool.Exec(ctx, upsertQuery,
		rec.SubjectID, rec.PeriodKey, rec.TargetQuantity, rec.TargetRevenue,
		rec.ActualQuantity, rec.ActualRevenue, rec.DailyAverage, rec.RequiredDailyRate,
		rec.CompletionPercent, rec.NarrativeText, rec.UpdatedAt)
	if err != nil {
		return &PersistenceError{Op: "upsert", SubjectID: rec.SubjectID, PeriodKey: rec.PeriodKey, Err: err}
	}
	return nil
}

// Get loads one record.
func (r *PostgresRepository) Get(ctx context.Context, subjectID, periodKey string) (*Record, error) {
	query := `
		SELECT subject_id, period_key, target_quantity, target_revenue,
			actual_quantity, actual_revenue, daily_average, required_daily_rate,
			completion_percent, narrative_text, updated_at
		FROM sales_records WHERE subject_id = $1 AND period_key = $2`

	var rec Record
	err := r.pool.QueryRow(ctx, query, subjectID, periodKey).Scan(
		&rec.SubjectID, &rec.PeriodKey, &rec.TargetQuantity, &rec.TargetRevenue,
		&rec.ActualQuantity, &rec.ActualRevenue, &rec.DailyAverage, &rec.RequiredDailyRate,
		&rec.CompletionPercent, &rec.NarrativeText, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &PersistenceError{Op: "get", SubjectID: subjectID, PeriodKey: periodKey, Err: ErrNotFound}
		}
		return nil, &PersistenceError{Op: "get", SubjectID: subjectID, PeriodKey: periodKey, Err: err}
	}
	return &rec, nil
}

// Subjects lists every subject with at least one record.
func (r *PostgresRepository) Subjects(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT subject_id FROM sales_records ORDER BY subject_id`)
	if err != nil {
		return nil, &PersistenceError{Op: "subjects", Err: err}
	}
	subjects, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, &PersistenceError{Op: "subjects", Err: fmt.Errorf("scan: %w", err)}
	}
	return subjects, nil
}
