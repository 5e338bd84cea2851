// Package sleep stores dated sleep entries and renders them for the advice prompt.
package sleep

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidRecord = errors.New("invalid sleep record")
)

// Record is one night of sleep.
type Record struct {
	ID         int64     `json:"id"`
	Date       string    `json:"date"`
	SleepStart string    `json:"sleepStart"`
	SleepEnd   string    `json:"sleepEnd"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewRecord carries the user-editable fields for create and update.
type NewRecord struct {
	Date       string `json:"date"`
	SleepStart string `json:"sleepStart"`
	SleepEnd   string `json:"sleepEnd"`
	Note       string `json:"note"`
}

// Validate checks required fields and their formats.
func (r NewRecord) Validate() error {
	if r.Date == "" || r.SleepStart == "" || r.SleepEnd == "" {
		return fmt.Errorf("%w: required: date, sleepStart, sleepEnd", ErrInvalidRecord)
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidRecord, r.Date)
	}
	for _, clock := range []string{r.SleepStart, r.SleepEnd} {
		// time.Parse accepts a one-digit hour for "15"
		if _, err := time.Parse(ClockLayout, clock); err != nil || len(clock) != len(ClockLayout) {
			return fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidRecord, clock)
		}
	}
	return nil
}

func (r NewRecord) normalized() NewRecord {
	r.Date = strings.TrimSpace(r.Date)
	r.SleepStart = strings.TrimSpace(r.SleepStart)
	r.SleepEnd = strings.TrimSpace(r.SleepEnd)
	r.Note = strings.TrimSpace(r.Note)
	return r
}

// Store persists sleep records. List and Recent return records ordered by
// date ascending.
type Store interface {
	List(ctx context.Context) ([]Record, error)
	Recent(ctx context.Context, days int) ([]Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	Create(ctx context.Context, rec NewRecord) (Record, error)
	Update(ctx context.Context, id int64, rec NewRecord) (Record, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}
