package session

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/alterkit/alterkit/dialect"
)

type fakeResult struct {
	affected int64
	lastID   int64
}

func (r fakeResult) LastInsertId() (int64, error) { return r.lastID, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

// recordingHandle records executed SQL in entry order. After block(), every
// ExecContext announces itself on entered and then waits for one release().
type recordingHandle struct {
	mu       sync.Mutex
	executed []string
	entered  chan string
	gate     chan struct{}
	err      error
	result   fakeResult
}

func newRecordingHandle() *recordingHandle {
	return &recordingHandle{entered: make(chan string, 16)}
}

func (h *recordingHandle) block()   { h.gate = make(chan struct{}) }
func (h *recordingHandle) release() { h.gate <- struct{}{} }

func (h *recordingHandle) log() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.executed...)
}

func (h *recordingHandle) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	h.mu.Lock()
	h.executed = append(h.executed, query)
	err := h.err
	res := h.result
	h.mu.Unlock()

	h.entered <- query
	if h.gate != nil {
		<-h.gate
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (h *recordingHandle) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, errors.New("row-returning path not exercised by this fake")
}

func (h *recordingHandle) Close() error { return nil }

type fakePool struct{ h Handle }

func (p *fakePool) Acquire(ctx context.Context) (Handle, error) { return p.h, nil }

func newTestSession(t *testing.T, dialectName string, h Handle) *Session {
	t.Helper()
	d, err := dialect.Get(dialectName)
	if err != nil {
		t.Fatal(err)
	}
	return New(&fakePool{h: h}, d, nil)
}

func TestReleasedSessionRefusesEverything(t *testing.T) {
	h := newRecordingHandle()
	s := newTestSession(t, "mysql", h)
	ctx := context.Background()

	if err := s.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := s.Release(); !errors.Is(err, ErrReleased) {
		t.Errorf("second Release = %v, want ErrReleased", err)
	}
	if _, err := s.Query(ctx, "UPDATE t SET x = 1"); !errors.Is(err, ErrReleased) {
		t.Errorf("Query after release = %v, want ErrReleased", err)
	}
	if err := s.StartTransaction(ctx, ""); !errors.Is(err, ErrReleased) {
		t.Errorf("StartTransaction after release = %v, want ErrReleased", err)
	}
	if _, err := s.Connect(ctx); !errors.Is(err, ErrReleased) {
		t.Errorf("Connect after release = %v, want ErrReleased", err)
	}
}

func TestTransactionStateMachine(t *testing.T) {
	h := newRecordingHandle()
	s := newTestSession(t, "postgres", h)
	ctx := context.Background()

	if err := s.CommitTransaction(ctx); !errors.Is(err, ErrTxNotActive) {
		t.Errorf("commit while idle = %v, want ErrTxNotActive", err)
	}
	if err := s.RollbackTransaction(ctx); !errors.Is(err, ErrTxNotActive) {
		t.Errorf("rollback while idle = %v, want ErrTxNotActive", err)
	}

	if err := s.StartTransaction(ctx, ""); err != nil {
		t.Fatalf("StartTransaction: %v", err)
	}
	if !s.InTransaction() {
		t.Error("InTransaction should report true")
	}
	if err := s.StartTransaction(ctx, ""); !errors.Is(err, ErrTxActive) {
		t.Errorf("nested StartTransaction = %v, want ErrTxActive", err)
	}
	if err := s.CommitTransaction(ctx); err != nil {
		t.Fatalf("CommitTransaction: %v", err)
	}
	if s.InTransaction() {
		t.Error("InTransaction should report false after commit")
	}

	want := []string{"BEGIN", "COMMIT"}
	if diff := cmp.Diff(want, h.log()); diff != "" {
		t.Errorf("statement order mismatch (-want +got):\n%s", diff)
	}
}

func TestIsolationOrdering(t *testing.T) {
	tests := []struct {
		dialect string
		want    []string
	}{
		{
			dialect: "mysql",
			want: []string{
				"SET TRANSACTION ISOLATION LEVEL REPEATABLE READ",
				"START TRANSACTION",
			},
		},
		{
			dialect: "postgres",
			want: []string{
				"BEGIN",
				"SET TRANSACTION ISOLATION LEVEL REPEATABLE READ",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			h := newRecordingHandle()
			s := newTestSession(t, tt.dialect, h)
			if err := s.StartTransaction(context.Background(), "repeatable read"); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, h.log()); diff != "" {
				t.Errorf("isolation ordering mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSerializedAdmissionKeepsSubmissionOrder(t *testing.T) {
	h := newRecordingHandle()
	h.block()
	s := newTestSession(t, "mysql", h) // no pipelining: strict FIFO
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := s.Query(ctx, "UPDATE t SET n = 1"); err != nil {
			t.Errorf("first query: %v", err)
		}
	}()
	<-h.entered // first statement is on the wire

	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := s.Query(ctx, "UPDATE t SET n = 2"); err != nil {
			t.Errorf("second query: %v", err)
		}
	}()

	// The second statement must not reach the handle while the first is
	// still executing.
	select {
	case sql := <-h.entered:
		t.Fatalf("statement %q admitted while predecessor active", sql)
	case <-time.After(50 * time.Millisecond):
	}

	h.release() // finish first
	<-h.entered // second now admitted
	h.release()
	wg.Wait()

	want := []string{"UPDATE t SET n = 1", "UPDATE t SET n = 2"}
	if diff := cmp.Diff(want, h.log()); diff != "" {
		t.Errorf("execution order mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeliningAdmitsConcurrently(t *testing.T) {
	h := newRecordingHandle()
	h.block()
	s := newTestSession(t, "postgres", h)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Query(ctx, "UPDATE t SET n = n + 1"); err != nil {
				t.Errorf("query: %v", err)
			}
		}()
	}

	// Both statements should be on the wire at once.
	<-h.entered
	select {
	case <-h.entered:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("second statement never admitted alongside the first")
	}
	h.release()
	h.release()
	wg.Wait()
}

func TestBoundaryWaitsOutPipelinedStatements(t *testing.T) {
	h := newRecordingHandle()
	h.block()
	s := newTestSession(t, "postgres", h)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := s.Query(ctx, "UPDATE t SET n = 1"); err != nil {
			t.Errorf("query: %v", err)
		}
	}()
	<-h.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.StartTransaction(ctx, ""); err != nil {
			t.Errorf("StartTransaction: %v", err)
		}
	}()

	// BEGIN must not hit the wire while the pipelined statement is active.
	select {
	case sql := <-h.entered:
		t.Fatalf("%q admitted before the pipeline drained", sql)
	case <-time.After(50 * time.Millisecond):
	}

	h.release() // drain the pipelined statement
	<-h.entered // BEGIN
	h.release()
	wg.Wait()

	want := []string{"UPDATE t SET n = 1", "BEGIN"}
	if diff := cmp.Diff(want, h.log()); diff != "" {
		t.Errorf("statement order mismatch (-want +got):\n%s", diff)
	}
}

func TestBoundaryWithQueuedSiblingDoesNotDeadlock(t *testing.T) {
	h := newRecordingHandle()
	h.block()
	s := newTestSession(t, "mysql", h) // serialized admission
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := s.Query(ctx, "UPDATE t SET a = 1"); err != nil {
			t.Errorf("first query: %v", err)
		}
	}()
	<-h.entered // first statement is on the wire

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.StartTransaction(ctx, ""); err != nil {
			t.Errorf("StartTransaction: %v", err)
		}
	}()
	time.Sleep(50 * time.Millisecond) // boundary joins the queue

	// A sibling queued behind the boundary must not count as on the wire,
	// or the boundary's drain wait can never be satisfied.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := s.Query(ctx, "UPDATE t SET b = 2"); err != nil {
			t.Errorf("second query: %v", err)
		}
	}()
	time.Sleep(50 * time.Millisecond)

	h.release() // finish the first statement

	select {
	case <-h.entered: // START TRANSACTION
	case <-time.After(2 * time.Second):
		t.Fatal("boundary statement never admitted while a sibling query was queued behind it")
	}
	h.release()
	<-h.entered // sibling admitted after the boundary
	h.release()
	wg.Wait()

	want := []string{"UPDATE t SET a = 1", "START TRANSACTION", "UPDATE t SET b = 2"}
	if diff := cmp.Diff(want, h.log()); diff != "" {
		t.Errorf("statement order mismatch (-want +got):\n%s", diff)
	}
}

func TestHookOrderingAndAbort(t *testing.T) {
	h := newRecordingHandle()
	s := newTestSession(t, "postgres", h)
	ctx := context.Background()

	var calls []string
	s.OnBeforeBegin(func(context.Context) error { calls = append(calls, "before-begin"); return nil })
	s.OnAfterBegin(func(context.Context) error { calls = append(calls, "after-begin"); return nil })
	s.OnBeforeCommit(func(context.Context) error { calls = append(calls, "before-commit"); return nil })
	s.OnAfterCommit(func(context.Context) error { calls = append(calls, "after-commit"); return nil })

	if err := s.StartTransaction(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if err := s.CommitTransaction(ctx); err != nil {
		t.Fatal(err)
	}
	want := []string{"before-begin", "after-begin", "before-commit", "after-commit"}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("hook order mismatch (-want +got):\n%s", diff)
	}

	// A failing before-begin hook must abort before BEGIN is issued.
	h2 := newRecordingHandle()
	s2 := newTestSession(t, "postgres", h2)
	boom := errors.New("boom")
	s2.OnBeforeBegin(func(context.Context) error { return boom })
	if err := s2.StartTransaction(ctx, ""); !errors.Is(err, boom) {
		t.Fatalf("StartTransaction = %v, want hook error", err)
	}
	if len(h2.log()) != 0 {
		t.Errorf("statements issued despite hook abort: %v", h2.log())
	}
	// The failed begin must leave the session usable.
	if err := s2.StartTransaction(ctx, ""); err != nil {
		t.Errorf("retry after hook abort: %v", err)
	}
}

func TestQueryErrorWrapsCause(t *testing.T) {
	h := newRecordingHandle()
	cause := errors.New("duplicate key")
	h.err = cause
	s := newTestSession(t, "mysql", h)

	_, err := s.Query(context.Background(), "INSERT INTO t (n) VALUES (?)", 7)
	if err == nil {
		t.Fatal("expected error")
	}
	var qerr *QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("error type %T, want *QueryError", err)
	}
	if !errors.Is(err, cause) {
		t.Error("QueryError must unwrap to the driver error")
	}
	if qerr.SQL != "INSERT INTO t (n) VALUES (?)" {
		t.Errorf("QueryError.SQL = %q", qerr.SQL)
	}
	if len(qerr.Params) != 1 || qerr.Params[0] != 7 {
		t.Errorf("QueryError.Params = %v", qerr.Params)
	}
}

func TestExecResultNormalization(t *testing.T) {
	h := newRecordingHandle()
	h.result = fakeResult{affected: 3, lastID: 42}
	s := newTestSession(t, "mysql", h)

	res, err := s.Query(context.Background(), "UPDATE t SET n = 0")
	if err != nil {
		t.Fatal(err)
	}
	if res.Affected == nil || *res.Affected != 3 {
		t.Errorf("Affected = %v, want 3", res.Affected)
	}
	if res.LastInsertID == nil || *res.LastInsertID != 42 {
		t.Errorf("LastInsertID = %v, want 42", res.LastInsertID)
	}
	if res.Records != nil {
		t.Errorf("exec result must not carry records, got %v", res.Records)
	}
}

func TestSiblingFailureDoesNotPoisonQueue(t *testing.T) {
	h := newRecordingHandle()
	h.err = errors.New("syntax error")
	s := newTestSession(t, "mysql", h)
	ctx := context.Background()

	if _, err := s.Query(ctx, "UPDATE broken"); err == nil {
		t.Fatal("expected failure")
	}
	h.err = nil
	if _, err := s.Query(ctx, "UPDATE t SET n = 1"); err != nil {
		t.Fatalf("queue poisoned by earlier failure: %v", err)
	}
}
