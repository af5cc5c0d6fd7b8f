package sqlite_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/store/sqlite"
	"github.com/warp/timesheet-engine/timesheet"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var march = generic.DocumentPath{EmployeeID: "emp-1", Year: "2025", Month: "03"}

func TestStore_ReadMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Read(context.Background(), march)
	assert.ErrorIs(t, err, generic.ErrDocumentNotFound)
}

func TestStore_MergeKeepsSiblings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, week := range []string{"2025-03-03", "2025-03-10"} {
		week := week
		require.NoError(t, store.WithTx(ctx, march, func(tx generic.DocumentTx) error {
			return tx.WriteMerge(ctx, generic.Document{week: json.RawMessage(`{"totalHours":8}`)})
		}))
	}

	doc, err := store.Read(ctx, march)
	require.NoError(t, err)
	assert.Len(t, doc, 2)
	assert.JSONEq(t, `{"totalHours":8}`, string(doc["2025-03-10"]))
}

func TestStore_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that merges a week then fails
	// THEN: The document is never created
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, march, func(tx generic.DocumentTx) error {
		require.NoError(t, tx.WriteMerge(ctx, generic.Document{"2025-03-10": json.RawMessage(`{}`)}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Read(ctx, march)
	assert.ErrorIs(t, err, generic.ErrDocumentNotFound)
}

func TestStore_ListPaths(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	april := generic.DocumentPath{EmployeeID: "emp-1", Year: "2025", Month: "04"}

	for _, p := range []generic.DocumentPath{march, april} {
		require.NoError(t, store.WithTx(ctx, p, func(tx generic.DocumentTx) error {
			return tx.WriteMerge(ctx, generic.Document{"k": json.RawMessage(`1`)})
		}))
	}

	paths, err := store.ListPaths(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, []generic.DocumentPath{april, march}, paths)

	paths, err = store.ListPaths(ctx, "emp-2")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestStore_WeekStoreRoundTrip(t *testing.T) {
	// The week store works unchanged on top of SQLite
	store := newTestStore(t)
	weeks := timesheet.NewWeekStore(store)
	ctx := context.Background()
	key := timesheet.WeekKey{EmployeeID: "emp-1", Year: "2025", Month: "03", WeekStartDate: "2025-03-10"}

	ts, err := timesheet.Validate(json.RawMessage(
		`{"2025-03-10": {"hoursWorked": 4, "tasks": [{"taskCode": "A", "taskName": "Alpha", "hours": 4}]}, "totalHours": 4}`), key)
	require.NoError(t, err)
	changes, err := weeks.SaveWeek(ctx, timesheet.SaveRequest{Key: key, Timesheet: ts, UpdatedBy: "Jane"})
	require.NoError(t, err)
	assert.Equal(t, []string{timesheet.ChangeNewTimesheet}, changes)

	ts, err = timesheet.Validate(json.RawMessage(
		`{"2025-03-10": {"hoursWorked": 4, "tasks": [{"taskCode": "A", "taskName": "Alpha", "hours": 2}, {"taskCode": "B", "taskName": "Beta", "hours": 2}]}, "totalHours": 4}`), key)
	require.NoError(t, err)
	changes, err = weeks.SaveWeek(ctx, timesheet.SaveRequest{Key: key, Timesheet: ts, UpdatedBy: "Jane"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Task (Alpha) hours changed from 4 to 2 2025-03-10",
		"New task added (Beta) with 2 hours for 2025-03-10",
	}, changes)

	record, err := weeks.GetWeek(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, record.ActivityLog.Len())
	assert.Len(t, record.Timesheet.Days["2025-03-10"].Tasks, 2)
}
