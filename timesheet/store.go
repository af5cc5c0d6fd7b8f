/*
store.go - Week record persistence with activity tracking

PURPOSE:
  WeekStore owns every mutation of a month document. A save reads the
  month, diffs the incoming week against the stored one, appends at most
  one activity entry, and merges the new week record back, all inside
  one document transaction.

SAVE ALGORITHM (one transaction on (employee, year, month)):
  1. Read the month document (absent => empty)
  2. Decode the stored record for weekStartDate, if any
  3. Diff stored timesheet vs incoming timesheet
  4. Non-empty diff => push an activity entry ("New timesheet submitted"
     or "Timesheet updated"); the ring buffer evicts past 10 entries
  5. Recompute totalHours from the incoming days
  6. WriteMerge only the weekStartDate key; sibling weeks untouched
  7. Return the change list

  Submissions are validated before SaveWeek is called. The persisted total
  is recomputed anyway and never copied from the caller.

READ PATH:
  GetWeek reads outside any transaction and returns the record as stored.
  No validation, no diff.

ERRORS:
  - ErrWeekNotFound: GetWeek on a missing document or week
  - ErrPersistence:  any store failure (wraps the cause)

SEE ALSO:
  - generic/store.go: DocumentStore contract
  - diff.go: Change detection
  - activity.go: Ring buffer
*/
package timesheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/timesheet-engine/generic"
)

// SaveRequest is a validated week submission.
type SaveRequest struct {
	Key       WeekKey
	Timesheet Timesheet
	UpdatedBy string
	IsAdmin   bool
}

// WeekStore reads and writes week records through a DocumentStore.
type WeekStore struct {
	docs   generic.DocumentStore
	clock  func() time.Time
	logger logrus.FieldLogger
}

// Option configures a WeekStore.
type Option func(*WeekStore)

// WithClock overrides the activity timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(s *WeekStore) { s.clock = clock }
}

// WithLogger sets the logger used for diff fallbacks and store failures.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *WeekStore) { s.logger = logger }
}

func NewWeekStore(docs generic.DocumentStore, opts ...Option) *WeekStore {
	s := &WeekStore{
		docs:   docs,
		clock:  func() time.Time { return time.Now().UTC() },
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// SAVE
// =============================================================================

// SaveWeek merges req into its month document and returns the computed
// changes. Either the whole record (and at most one activity entry) is
// written or nothing is.
func (s *WeekStore) SaveWeek(ctx context.Context, req SaveRequest) ([]string, error) {
	path := req.Key.Path()
	week := req.Key.WeekStartDate
	var changes []string

	err := s.docs.WithTx(ctx, path, func(tx generic.DocumentTx) error {
		doc, err := tx.Read(ctx)
		if err != nil {
			return err
		}

		existing, err := decodeWeek(doc, week)
		if err != nil {
			return err
		}

		var previous *Timesheet
		log := NewActivityLog(ActivityLogCapacity)
		if existing != nil {
			previous = &existing.Timesheet
			if existing.ActivityLog != nil {
				log = existing.ActivityLog
			}
		}

		changes = Diff(previous, req.Timesheet)
		if len(changes) == 1 && changes[0] == ChangeDiffUnavailable {
			s.logger.WithFields(logrus.Fields{
				"path": path.String(),
				"week": week,
			}).Warn("diff failed, recording fallback change")
		}

		if len(changes) > 0 {
			action := ActionUpdated
			if existing == nil {
				action = ActionSubmitted
			}
			log.Push(ActivityLogEntry{
				UpdatedAt:        s.clock(),
				UpdatedBy:        req.UpdatedBy,
				IsUpdatedByAdmin: req.IsAdmin,
				Action:           action,
				Changes:          changes,
			})
		}

		ts := req.Timesheet
		ts.TotalHours = ts.WorkedHours()
		record := WeekRecord{
			Timesheet:   ts,
			TotalHours:  ts.TotalHours,
			Format:      ts.Format,
			ActivityLog: log,
		}
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode week %s: %w", week, err)
		}
		return tx.WriteMerge(ctx, generic.Document{week: raw})
	})
	if err != nil {
		s.logger.WithError(err).WithField("path", path.String()).Error("save week failed")
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return changes, nil
}

// =============================================================================
// READ
// =============================================================================

// GetWeek returns the stored record for key verbatim.
func (s *WeekStore) GetWeek(ctx context.Context, key WeekKey) (*WeekRecord, error) {
	doc, err := s.docs.Read(ctx, key.Path())
	if err != nil {
		if generic.IsNotFound(err) {
			return nil, ErrWeekNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	record, err := decodeWeek(doc, key.WeekStartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if record == nil {
		return nil, ErrWeekNotFound
	}
	return record, nil
}

// ListMonth returns every week stored for the month. A month with no
// document yields an empty MonthDocument.
func (s *WeekStore) ListMonth(ctx context.Context, path generic.DocumentPath) (MonthDocument, error) {
	doc, err := s.docs.Read(ctx, path)
	if err != nil {
		if errors.Is(err, generic.ErrDocumentNotFound) {
			return MonthDocument{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	month := make(MonthDocument, len(doc))
	for week := range doc {
		record, err := decodeWeek(doc, week)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		if record == nil {
			continue
		}
		month[week] = *record
	}
	return month, nil
}

func decodeWeek(doc generic.Document, week string) (*WeekRecord, error) {
	raw, ok := doc[week]
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	var record WeekRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode week %s: %w", week, err)
	}
	if record.ActivityLog == nil {
		record.ActivityLog = NewActivityLog(ActivityLogCapacity)
	}
	return &record, nil
}
