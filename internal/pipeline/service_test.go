package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ssgtools/tpconsole/internal/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// fakeSubmitter records every submission and fails rows on demand.
type fakeSubmitter struct {
	mu       sync.Mutex
	calls    []mapping.Record
	failWhen func(rec mapping.Record) error
	maxSeen  int
	inFlight int
}

func (f *fakeSubmitter) Submit(ctx context.Context, kind string, rec mapping.Record) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.calls = append(f.calls, rec)
	fail := f.failWhen
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if fail != nil {
		return fail(rec)
	}
	return nil
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testKind() Kind {
	return Kind{
		Key:         "widgets",
		Label:       "Widgets",
		SheetName:   "Widgets",
		Submittable: true,
		Mappings: []mapping.ColumnMapping{
			{Column: "Name", Path: "name", Required: true},
			{Column: "Owner Email", Path: "owner.email", Required: false},
		},
		Validate: func(rec mapping.Record) mapping.Verdict {
			if mapping.GetString(rec, "name") == "invalid" {
				return mapping.Verdict{Errors: []mapping.Diagnostic{
					{Field: "name", Message: "Name is not allowed"},
				}}
			}
			return mapping.Verdict{Valid: true}
		},
	}
}

// workbookBytes builds an xlsx with a single Widgets sheet.
func workbookBytes(t *testing.T, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Widgets"))

	for r, cells := range rows {
		for c, cell := range cells {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Widgets", ref, cell))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func newTestService(t *testing.T, sub Submitter) *Service {
	t.Helper()
	Clear()
	t.Cleanup(Clear)
	Register(testKind())
	return NewService(sub, 3, time.Second)
}

// ----------------------------------------------------------------------------
// Session Lifecycle Tests
// ----------------------------------------------------------------------------

func TestBegin(t *testing.T) {
	svc := newTestService(t, &fakeSubmitter{})

	data := workbookBytes(t, [][]string{
		{"Name", "Owner Email"},
		{"alpha", "a@example.com"},
		{"beta", ""},
	})

	view, err := svc.Begin(context.Background(), "widgets", "widgets.xlsx", data)
	require.NoError(t, err)

	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "widgets", view.Kind)
	assert.Equal(t, "Widgets", view.Sheet)
	assert.Equal(t, StateSheetChosen, view.State)
	assert.Equal(t, 2, view.RowCount)
	assert.Empty(t, view.Diagnostics)
	assert.True(t, view.CanSubmit)
}

func TestBegin_UnknownKind(t *testing.T) {
	svc := newTestService(t, &fakeSubmitter{})

	_, err := svc.Begin(context.Background(), "nope", "f.xlsx", workbookBytes(t, [][]string{{"Name"}}))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestBegin_BadBytes(t *testing.T) {
	svc := newTestService(t, &fakeSubmitter{})

	_, err := svc.Begin(context.Background(), "widgets", "f.xlsx", []byte("junk"))
	require.Error(t, err)

	_, getErr := svc.Get("anything")
	assert.ErrorIs(t, getErr, ErrSessionNotFound)
}

func TestBegin_DiagnosticsBlockSubmission(t *testing.T) {
	svc := newTestService(t, &fakeSubmitter{})

	data := workbookBytes(t, [][]string{
		{"Name", "Owner Email"},
		{"", "orphan@example.com"},
		{"invalid", ""},
	})

	view, err := svc.Begin(context.Background(), "widgets", "f.xlsx", data)
	require.NoError(t, err)

	require.Len(t, view.Diagnostics, 2)
	assert.False(t, view.CanSubmit)

	// Missing required column on display row 2
	assert.Equal(t, 2, view.Diagnostics[0].Row)
	assert.Equal(t, "Name", view.Diagnostics[0].Field)

	// Validation failure on display row 3
	assert.Equal(t, 3, view.Diagnostics[1].Row)
	assert.Equal(t, "Name is not allowed", view.Diagnostics[1].Message)

	_, err = svc.Submit(context.Background(), view.ID)
	assert.ErrorIs(t, err, ErrDiagnosticsPresent)
}

func TestGetAndCancel(t *testing.T) {
	svc := newTestService(t, &fakeSubmitter{})

	view, err := svc.Begin(context.Background(), "widgets", "f.xlsx",
		workbookBytes(t, [][]string{{"Name"}, {"alpha"}}))
	require.NoError(t, err)

	got, err := svc.Get(view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, got.ID)

	svc.Cancel(view.ID)
	_, err = svc.Get(view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSelectSheet_Unknown(t *testing.T) {
	svc := newTestService(t, &fakeSubmitter{})

	view, err := svc.Begin(context.Background(), "widgets", "f.xlsx",
		workbookBytes(t, [][]string{{"Name"}, {"alpha"}}))
	require.NoError(t, err)

	_, err = svc.SelectSheet(view.ID, "Missing")
	assert.ErrorIs(t, err, ErrUnknownSheet)
}

// ----------------------------------------------------------------------------
// Submission Tests
// ----------------------------------------------------------------------------

func TestSubmit_AllSucceed(t *testing.T) {
	sub := &fakeSubmitter{}
	svc := newTestService(t, sub)

	view, err := svc.Begin(context.Background(), "widgets", "f.xlsx", workbookBytes(t, [][]string{
		{"Name"},
		{"alpha"},
		{"beta"},
		{"gamma"},
	}))
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), view.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Submitted)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 3, sub.callCount())

	// Outcomes are row-indexed in sheet order
	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, 2, result.Outcomes[0].Row)
	assert.Equal(t, 4, result.Outcomes[2].Row)

	// Session is discarded after submission
	_, err = svc.Get(view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmit_FailuresAreIndependent(t *testing.T) {
	sub := &fakeSubmitter{
		failWhen: func(rec mapping.Record) error {
			if mapping.GetString(rec, "name") == "beta" {
				return errors.New("rejected by API")
			}
			return nil
		},
	}
	svc := newTestService(t, sub)

	view, err := svc.Begin(context.Background(), "widgets", "f.xlsx", workbookBytes(t, [][]string{
		{"Name"},
		{"alpha"},
		{"beta"},
		{"gamma"},
	}))
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), view.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Submitted)
	assert.Equal(t, 1, result.Failed)

	assert.True(t, result.Outcomes[0].Success)
	assert.False(t, result.Outcomes[1].Success)
	assert.Equal(t, "rejected by API", result.Outcomes[1].Error)
	assert.True(t, result.Outcomes[2].Success)
}

func TestSubmit_BoundedConcurrency(t *testing.T) {
	sub := &fakeSubmitter{}
	svc := newTestService(t, sub) // limiter capacity 3

	rows := [][]string{{"Name"}}
	for i := 0; i < 20; i++ {
		rows = append(rows, []string{"widget"})
	}

	view, err := svc.Begin(context.Background(), "widgets", "f.xlsx", workbookBytes(t, rows))
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), view.ID)
	require.NoError(t, err)

	assert.Equal(t, 20, result.Submitted)
	assert.LessOrEqual(t, sub.maxSeen, 3)
}

func TestSubmit_EmptySheet(t *testing.T) {
	svc := newTestService(t, &fakeSubmitter{})

	view, err := svc.Begin(context.Background(), "widgets", "f.xlsx",
		workbookBytes(t, [][]string{{"Name"}}))
	require.NoError(t, err)
	assert.False(t, view.CanSubmit)

	_, err = svc.Submit(context.Background(), view.ID)
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestSubmit_NotSubmittableKind(t *testing.T) {
	Clear()
	t.Cleanup(Clear)

	preview := testKind()
	preview.Submittable = false
	Register(preview)
	svc := NewService(&fakeSubmitter{}, 3, time.Second)

	view, err := svc.Begin(context.Background(), "widgets", "f.xlsx",
		workbookBytes(t, [][]string{{"Name"}, {"alpha"}}))
	require.NoError(t, err)
	assert.False(t, view.CanSubmit)

	_, err = svc.Submit(context.Background(), view.ID)
	assert.ErrorIs(t, err, ErrNotSubmittable)
}

// ----------------------------------------------------------------------------
// Limiter Tests
// ----------------------------------------------------------------------------

func TestSubmitLimiter_CapacityAndRelease(t *testing.T) {
	l := NewSubmitLimiter(2, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 2, l.Active())

	// Third acquire times out while both slots are held
	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	l.Release()
	assert.Equal(t, 1, l.Active())
	require.NoError(t, l.Acquire(ctx))
}

func TestSubmitLimiter_CancelledContext(t *testing.T) {
	l := NewSubmitLimiter(1, time.Second)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubmitLimiter_Defaults(t *testing.T) {
	l := NewSubmitLimiter(0, 0)
	assert.Equal(t, DefaultMaxConcurrentSubmits, cap(l.semaphore))
	assert.Equal(t, DefaultSubmitWait, l.maxWait)
}
