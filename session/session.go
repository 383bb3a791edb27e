// Package session provides the per-connection query and transaction surface.
// A session binds to exactly one physical connection for its lifetime and
// serializes statement admission when the dialect's wire protocol requires
// it.
package session

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alterkit/alterkit/dialect"
	"github.com/alterkit/alterkit/internal/logger"
)

// Hook runs around transaction boundaries. Hooks run sequentially and to
// completion; a hook error aborts the boundary operation.
type Hook func(ctx context.Context) error

// Session is a per-connection execution surface with a {idle, active}
// transaction state machine and FIFO query admission.
type Session struct {
	id      string
	dialect *dialect.Dialect
	pool    Pool
	log     *slog.Logger

	// SlowThreshold is the duration above which a query is reported as
	// slow. Zero disables slow-query events. Observability only.
	SlowThreshold time.Duration

	mu         sync.Mutex
	handle     Handle
	connecting chan struct{}
	connectErr error
	released   bool
	txActive   bool
	txPending  bool          // a boundary statement is being issued
	tail       chan struct{} // last admission ticket in the FIFO chain

	pipeMu    sync.Mutex
	pipeCond  *sync.Cond
	pipeCount int

	cursorMu sync.Mutex
	cursors  map[*Cursor]struct{}

	beforeBegin, afterBegin       []Hook
	beforeCommit, afterCommit     []Hook
	beforeRollback, afterRollback []Hook
}

// New creates a session over the given pool. A nil logger falls back to the
// process-global logger.
func New(pool Pool, d *dialect.Dialect, log *slog.Logger) *Session {
	if log == nil {
		log = logger.Get()
	}
	s := &Session{
		id:      uuid.NewString(),
		dialect: d,
		pool:    pool,
		log:     log,
		cursors: make(map[*Cursor]struct{}),
	}
	s.pipeCond = sync.NewCond(&s.pipeMu)
	return s
}

// ID returns the session's identity, carried on every query log event.
func (s *Session) ID() string { return s.id }

// Dialect returns the dialect the session was created for.
func (s *Session) Dialect() *dialect.Dialect { return s.dialect }

// InTransaction reports whether a transaction is active.
func (s *Session) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txActive
}

// Connect acquires the underlying handle. It is idempotent: concurrent first
// callers share one in-flight acquisition, later callers get the memoized
// handle.
func (s *Session) Connect(ctx context.Context) (Handle, error) {
	for {
		s.mu.Lock()
		if s.released {
			s.mu.Unlock()
			return nil, ErrReleased
		}
		if s.handle != nil {
			h := s.handle
			s.mu.Unlock()
			return h, nil
		}
		if s.connecting != nil {
			ch := s.connecting
			s.mu.Unlock()
			select {
			case <-ch:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		ch := make(chan struct{})
		s.connecting = ch
		s.mu.Unlock()

		h, err := s.pool.Acquire(ctx)

		s.mu.Lock()
		s.connecting = nil
		if err != nil {
			s.connectErr = err
			s.mu.Unlock()
			close(ch)
			return nil, err
		}
		if s.released {
			// Released while connecting; hand the connection straight back.
			s.mu.Unlock()
			close(ch)
			_ = h.Close()
			return nil, ErrReleased
		}
		s.handle = h
		s.mu.Unlock()
		close(ch)
		return h, nil
	}
}

// Release marks the session dead and returns its handle to the pool. Open
// cursors are force-closed. Every subsequent call fails with ErrReleased.
func (s *Session) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return ErrReleased
	}
	s.released = true
	h := s.handle
	s.handle = nil
	s.txActive = false
	s.mu.Unlock()

	s.cursorMu.Lock()
	open := make([]*Cursor, 0, len(s.cursors))
	for c := range s.cursors {
		open = append(open, c)
	}
	s.cursorMu.Unlock()
	for _, c := range open {
		_ = c.closeWith(ErrReleased)
	}

	if h != nil {
		return h.Close()
	}
	return nil
}

// admit reserves the session's wire slot. Ordinary queries on pipelining
// dialects outside a transaction skip the FIFO chain but are still counted
// so boundary statements can wait them out. The returned func frees the
// slot.
func (s *Session) admit(boundary bool) func() {
	s.mu.Lock()
	serialize := boundary || s.txActive || s.txPending || !s.dialect.SupportsPipelining
	var prev, done chan struct{}
	if serialize {
		prev = s.tail
		done = make(chan struct{})
		s.tail = done
	}
	s.mu.Unlock()

	if prev != nil {
		<-prev
	}
	// Count wire presence only after the ticket is acquired: statements
	// still queued behind a ticket are not on the wire, and counting them
	// early would wedge a boundary waiting below against a sibling that is
	// itself waiting on the boundary's ticket.
	s.pipeEnter()
	if boundary {
		// Wait for any pipelined statements still on the wire. The pipe
		// counter includes ourselves, hence the 2.
		s.pipeWaitBelow(2)
	}

	return func() {
		s.pipeExit()
		if done != nil {
			close(done)
		}
	}
}

func (s *Session) pipeEnter() {
	s.pipeMu.Lock()
	s.pipeCount++
	s.pipeMu.Unlock()
}

func (s *Session) pipeExit() {
	s.pipeMu.Lock()
	s.pipeCount--
	s.pipeCond.Broadcast()
	s.pipeMu.Unlock()
}

// pipeWaitBelow blocks until fewer than n statements are outstanding.
func (s *Session) pipeWaitBelow(n int) {
	s.pipeMu.Lock()
	for s.pipeCount >= n {
		s.pipeCond.Wait()
	}
	s.pipeMu.Unlock()
}

// Query executes a statement with FIFO admission and returns the normalized
// result. Statement kind is classified by leading keyword; row-returning
// statements populate Records, exec statements populate Affected (and
// LastInsertID where the driver reports one).
func (s *Session) Query(ctx context.Context, sqlText string, params ...any) (*Result, error) {
	return s.run(ctx, sqlText, params, false)
}

// exec is the internal path for transaction-boundary statements.
func (s *Session) exec(ctx context.Context, sqlText string) error {
	_, err := s.run(ctx, sqlText, nil, true)
	return err
}

func (s *Session) run(ctx context.Context, sqlText string, params []any, boundary bool) (*Result, error) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil, ErrReleased
	}
	s.mu.Unlock()

	release := s.admit(boundary)
	defer release()

	h, err := s.Connect(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var res *Result
	if !boundary && returnsRows(sqlText) {
		res, err = s.queryRows(ctx, h, sqlText, params)
	} else {
		res, err = s.execStmt(ctx, h, sqlText, params)
	}
	dur := time.Since(start)

	if err != nil {
		qerr := &QueryError{SQL: sqlText, Params: params, Err: err}
		s.log.Error("query failed",
			"sql", sqlText, "params", params,
			"duration_ms", dur.Milliseconds(), "session", s.id,
			"error", err)
		return nil, qerr
	}

	if s.SlowThreshold > 0 && dur > s.SlowThreshold {
		s.log.Warn("slow query",
			"sql", sqlText, "params", params,
			"duration_ms", dur.Milliseconds(), "session", s.id)
	} else {
		s.log.Debug("query",
			"sql", sqlText, "params", params,
			"duration_ms", dur.Milliseconds(), "session", s.id)
	}
	return res, nil
}

func (s *Session) queryRows(ctx context.Context, h Handle, sqlText string, params []any) (*Result, error) {
	rows, err := h.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	return &Result{Raw: records, Records: records}, nil
}

func (s *Session) execStmt(ctx context.Context, h Handle, sqlText string, params []any) (*Result, error) {
	sqlRes, err := h.ExecContext(ctx, sqlText, params...)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	if sqlRes != nil {
		if n, aerr := sqlRes.RowsAffected(); aerr == nil {
			res.Affected = &n
			res.Raw = n
		}
		if id, ierr := sqlRes.LastInsertId(); ierr == nil && id != 0 {
			res.LastInsertID = &id
			res.Raw = id
		}
	}
	return res, nil
}

func scanRecords(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	records := make([]map[string]any, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(map[string]any, len(cols))
		for i, c := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			rec[c] = v
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// StartTransaction moves the session from idle to active. The isolation
// statement is ordered before or after BEGIN per dialect. Before-start hooks
// run to completion before any statement is issued.
func (s *Session) StartTransaction(ctx context.Context, isolation string) error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return ErrReleased
	}
	if s.txActive || s.txPending {
		s.mu.Unlock()
		return ErrTxActive
	}
	s.txPending = true
	s.mu.Unlock()

	fail := func(err error) error {
		s.mu.Lock()
		s.txPending = false
		s.mu.Unlock()
		return err
	}

	for _, h := range s.beforeBegin {
		if err := h(ctx); err != nil {
			return fail(err)
		}
	}

	iso := s.dialect.IsolationStmt(isolation)
	if iso != "" && s.dialect.IsolationBeforeBegin {
		if err := s.exec(ctx, iso); err != nil {
			return fail(err)
		}
	}
	if err := s.exec(ctx, s.dialect.BeginStmt); err != nil {
		return fail(err)
	}
	if iso != "" && !s.dialect.IsolationBeforeBegin {
		if err := s.exec(ctx, iso); err != nil {
			return fail(err)
		}
	}

	for _, h := range s.afterBegin {
		if err := h(ctx); err != nil {
			return fail(err)
		}
	}

	s.mu.Lock()
	s.txPending = false
	s.txActive = true
	s.mu.Unlock()
	return nil
}

// CommitTransaction commits the active transaction and resets to idle.
func (s *Session) CommitTransaction(ctx context.Context) error {
	return s.endTransaction(ctx, s.dialect.CommitStmt, s.beforeCommit, s.afterCommit)
}

// RollbackTransaction rolls back the active transaction and resets to idle.
func (s *Session) RollbackTransaction(ctx context.Context) error {
	return s.endTransaction(ctx, s.dialect.RollbackStmt, s.beforeRollback, s.afterRollback)
}

func (s *Session) endTransaction(ctx context.Context, stmt string, before, after []Hook) error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return ErrReleased
	}
	if !s.txActive {
		s.mu.Unlock()
		return ErrTxNotActive
	}
	s.mu.Unlock()

	for _, h := range before {
		if err := h(ctx); err != nil {
			return err
		}
	}
	if err := s.exec(ctx, stmt); err != nil {
		return err
	}

	s.mu.Lock()
	s.txActive = false
	s.mu.Unlock()

	for _, h := range after {
		if err := h(ctx); err != nil {
			return err
		}
	}
	return nil
}

// OnBeforeBegin registers a hook run before BEGIN is issued.
func (s *Session) OnBeforeBegin(h Hook) { s.beforeBegin = append(s.beforeBegin, h) }

// OnAfterBegin registers a hook run after the transaction opens.
func (s *Session) OnAfterBegin(h Hook) { s.afterBegin = append(s.afterBegin, h) }

// OnBeforeCommit registers a hook run before COMMIT.
func (s *Session) OnBeforeCommit(h Hook) { s.beforeCommit = append(s.beforeCommit, h) }

// OnAfterCommit registers a hook run after COMMIT.
func (s *Session) OnAfterCommit(h Hook) { s.afterCommit = append(s.afterCommit, h) }

// OnBeforeRollback registers a hook run before ROLLBACK.
func (s *Session) OnBeforeRollback(h Hook) { s.beforeRollback = append(s.beforeRollback, h) }

// OnAfterRollback registers a hook run after ROLLBACK.
func (s *Session) OnAfterRollback(h Hook) { s.afterRollback = append(s.afterRollback, h) }
