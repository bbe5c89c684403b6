// Package pipeline drives the end-to-end bulk upload flow: decode a
// workbook, map the chosen sheet's rows into nested records, validate them,
// and — only when the sheet is clean — dispatch every record independently
// to the submission collaborator.
//
// Each upload session owns its workbook, records, and diagnostics
// exclusively; nothing is shared across sessions, so concurrent uploads
// need no coordination beyond the session map itself.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/ssgtools/tpconsole/internal/excel"
	"github.com/ssgtools/tpconsole/internal/mapping"
)

// State is the stage of an upload session.
type State string

const (
	// StateSheetChosen means a sheet is selected and its records are
	// mapped and validated, awaiting operator confirmation.
	StateSheetChosen State = "sheet_chosen"
	// StateSubmitting means records are being dispatched.
	StateSubmitting State = "submitting"
)

// sessionTTL is how long an unconfirmed session is retained before its
// data structures are discarded.
const sessionTTL = 30 * time.Minute

var (
	ErrUnknownKind        = errors.New("unknown record kind")
	ErrSessionNotFound    = errors.New("upload session not found")
	ErrUnknownSheet       = errors.New("workbook has no such sheet")
	ErrDiagnosticsPresent = errors.New("sheet has validation diagnostics, submission blocked")
	ErrNoRecords          = errors.New("sheet has no data rows")
	ErrSubmitInProgress   = errors.New("submission already in progress")
	ErrNotSubmittable     = errors.New("record kind has no submission operation")
)

// Submitter is the external submission collaborator: it delivers one
// mapped record of a given kind and reports success or failure. Retry,
// auth, and endpoint shape are its concern, not the pipeline's.
type Submitter interface {
	Submit(ctx context.Context, kind string, record mapping.Record) error
}

// session is one upload session. Owned by the Service; callers only ever
// see View snapshots.
type session struct {
	ID        string
	Kind      Kind
	FileName  string
	Checksum  uint64
	State     State
	CreatedAt time.Time

	book    *excel.Workbook
	Sheet   string
	Records []mapping.Record
	Diags   []mapping.Diagnostic
}

// View is an immutable snapshot of a session for the web layer.
type View struct {
	ID          string               `json:"id"`
	Kind        string               `json:"kind"`
	FileName    string               `json:"fileName"`
	State       State                `json:"state"`
	Sheets      []string             `json:"sheets"`
	Sheet       string               `json:"sheet"`
	RowCount    int                  `json:"rowCount"`
	Diagnostics []mapping.Diagnostic `json:"diagnostics"`
	CanSubmit   bool                 `json:"canSubmit"`
}

// SubmitOutcome is the result of dispatching one record.
type SubmitOutcome struct {
	Row     int    `json:"row"` // Display row the record was mapped from
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SubmitResult aggregates one bulk submission. The counts are
// informational; failed records are not retried and do not roll back
// their siblings.
type SubmitResult struct {
	SessionID string          `json:"sessionId"`
	Kind      string          `json:"kind"`
	FileName  string          `json:"fileName"`
	Sheet     string          `json:"sheet"`
	Checksum  uint64          `json:"-"`
	Total     int             `json:"total"`
	Submitted int             `json:"submitted"`
	Failed    int             `json:"failed"`
	Outcomes  []SubmitOutcome `json:"outcomes"`
	Duration  time.Duration   `json:"-"`
}

// Service orchestrates upload sessions.
type Service struct {
	submitter Submitter
	limiter   *SubmitLimiter

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewService creates a pipeline service dispatching through submitter,
// with at most maxConcurrent records in flight per the limiter.
func NewService(submitter Submitter, maxConcurrent int, maxWait time.Duration) *Service {
	return &Service{
		submitter: submitter,
		limiter:   NewSubmitLimiter(maxConcurrent, maxWait),
		sessions:  make(map[string]*session),
	}
}

// Begin decodes an uploaded workbook and starts a session for it.
// The kind's conventional sheet is selected when the workbook has one,
// otherwise the first sheet; the selection is mapped and validated
// immediately. A decode failure retains no state.
func (s *Service) Begin(ctx context.Context, kindKey, fileName string, data []byte) (View, error) {
	kind, ok := Get(kindKey)
	if !ok {
		return View{}, ErrUnknownKind
	}

	book, err := excel.Decode(data)
	if err != nil {
		return View{}, err
	}

	sess := &session{
		ID:        uuid.NewString(),
		Kind:      kind,
		FileName:  fileName,
		Checksum:  xxhash.Sum64(data),
		State:     StateSheetChosen,
		CreatedAt: time.Now(),
		book:      book,
	}

	sheet := book.First()
	if preferred, ok := book.Sheet(kind.SheetName); ok {
		sheet = preferred
	}
	remap(sess, sheet)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	// Drop abandoned sessions so workbooks don't accumulate.
	time.AfterFunc(sessionTTL, func() { s.Cancel(sess.ID) })

	slog.Info("upload session started",
		"session_id", sess.ID,
		"kind", kind.Key,
		"file", fileName,
		"sheet", sess.Sheet,
		"rows", len(sess.Records),
		"diagnostics", len(sess.Diags),
	)

	return sess.view(), nil
}

// SelectSheet changes the session's sheet and re-runs mapping and
// validation for it. A fresh run starts with an empty diagnostic list.
func (s *Service) SelectSheet(id, sheetName string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return View{}, ErrSessionNotFound
	}
	if sess.State == StateSubmitting {
		return View{}, ErrSubmitInProgress
	}

	sheet, ok := sess.book.Sheet(sheetName)
	if !ok {
		return View{}, ErrUnknownSheet
	}

	remap(sess, sheet)
	return sess.view(), nil
}

// Get returns a snapshot of a session.
func (s *Service) Get(id string) (View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return View{}, ErrSessionNotFound
	}
	return sess.view(), nil
}

// Cancel discards a session and everything it owns. Submissions already
// in flight are not interrupted; their outcomes are simply no longer
// reported anywhere.
func (s *Service) Cancel(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Submit dispatches every mapped record of the session's chosen sheet.
// Submission is refused while any diagnostic is present. Records are
// dispatched concurrently (bounded by the limiter) and independently:
// one record's failure neither blocks nor rolls back the others. The
// session is discarded once all outcomes are in.
func (s *Service) Submit(ctx context.Context, id string) (*SubmitResult, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	if sess.State == StateSubmitting {
		s.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	if !sess.Kind.Submittable {
		s.mu.Unlock()
		return nil, ErrNotSubmittable
	}
	if len(sess.Diags) > 0 {
		s.mu.Unlock()
		return nil, ErrDiagnosticsPresent
	}
	if len(sess.Records) == 0 {
		s.mu.Unlock()
		return nil, ErrNoRecords
	}
	sess.State = StateSubmitting
	records := sess.Records
	s.mu.Unlock()

	start := time.Now()
	outcomes := make([]SubmitOutcome, len(records))

	var wg sync.WaitGroup
	for i, rec := range records {
		wg.Add(1)
		go func(i int, rec mapping.Record) {
			defer wg.Done()
			outcomes[i] = s.submitOne(ctx, sess.Kind.Key, i, rec)
		}(i, rec)
	}
	wg.Wait()

	result := &SubmitResult{
		SessionID: sess.ID,
		Kind:      sess.Kind.Key,
		FileName:  sess.FileName,
		Sheet:     sess.Sheet,
		Checksum:  sess.Checksum,
		Total:     len(records),
		Outcomes:  outcomes,
		Duration:  time.Since(start),
	}
	for _, o := range outcomes {
		if o.Success {
			result.Submitted++
		} else {
			result.Failed++
		}
	}

	s.Cancel(id)

	slog.Info("upload session submitted",
		"session_id", sess.ID,
		"kind", sess.Kind.Key,
		"total", result.Total,
		"submitted", result.Submitted,
		"failed", result.Failed,
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result, nil
}

func (s *Service) submitOne(ctx context.Context, kind string, index int, rec mapping.Record) SubmitOutcome {
	out := SubmitOutcome{Row: index + 2}

	if err := s.limiter.Acquire(ctx); err != nil {
		out.Error = err.Error()
		return out
	}
	defer s.limiter.Release()

	if err := s.submitter.Submit(ctx, kind, rec); err != nil {
		out.Error = err.Error()
		return out
	}

	out.Success = true
	return out
}

// remap runs mapping and validation for a sheet, replacing the session's
// records and diagnostics wholesale.
func remap(sess *session, sheet excel.Sheet) {
	rows := make([]mapping.RawRow, len(sheet.Rows))
	for i, r := range sheet.Rows {
		rows[i] = mapping.RawRow(r)
	}

	records, diags := mapping.MapSheet(rows, sess.Kind.Mappings)

	if sess.Kind.Validate != nil {
		for i, rec := range records {
			verdict := sess.Kind.Validate(rec)
			for _, d := range verdict.Errors {
				d.Row = i + 2
				diags = append(diags, d)
			}
		}
	}

	sess.Sheet = sheet.Name
	sess.Records = records
	sess.Diags = diags
}

func (sess *session) view() View {
	diags := sess.Diags
	if diags == nil {
		diags = []mapping.Diagnostic{}
	}
	return View{
		ID:          sess.ID,
		Kind:        sess.Kind.Key,
		FileName:    sess.FileName,
		State:       sess.State,
		Sheets:      sess.book.SheetNames(),
		Sheet:       sess.Sheet,
		RowCount:    len(sess.Records),
		Diagnostics: diags,
		CanSubmit:   sess.Kind.Submittable && len(sess.Diags) == 0 && len(sess.Records) > 0,
	}
}
