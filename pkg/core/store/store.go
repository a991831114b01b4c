// Package store persists one record per subject and period. Writes are
// upserts keyed by (subject_id, period_key), so repeating a run replaces
// the earlier record instead of duplicating it.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Record is the per-period row written after a sales run.
type Record struct {
	SubjectID         string    `json:"subject_id"`
	PeriodKey         string    `json:"period_key"`
	TargetQuantity    *int      `json:"target_quantity"`
	TargetRevenue     *float64  `json:"target_revenue"`
	ActualQuantity    int       `json:"actual_quantity"`
	ActualRevenue     float64   `json:"actual_revenue"`
	DailyAverage      float64   `json:"daily_average"`
	RequiredDailyRate float64   `json:"required_daily_rate"`
	CompletionPercent float64   `json:"completion_percent"`
	NarrativeText     string    `json:"narrative_text"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Repository is the persistence sink.
type Repository interface {
	Upsert(ctx context.Context, r Record) error
	Get(ctx context.Context, subjectID, periodKey string) (*Record, error)
	Subjects(ctx context.Context) ([]string, error)
}

// ErrNotFound is returned by Get when no record exists.
var ErrNotFound = errors.New("record not found")

// PersistenceError wraps a failed repository operation.
type PersistenceError struct {
	Op        string
	SubjectID string
	PeriodKey string
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.PeriodKey == "" {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.SubjectID, e.Err)
	}
	return fmt.Sprintf("store %s %s/%s: %v", e.Op, e.SubjectID, e.PeriodKey, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func validKey(subjectID, periodKey string) error {
	if subjectID == "" || periodKey == "" {
		return fmt.Errorf("subject_id and period_key are required")
	}
	return nil
}
