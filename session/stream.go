package session

import (
	"context"
	"database/sql"
	"sync"
)

// Cursor is a live row stream. Its lifetime is bound to the session: the
// admission slot stays occupied until the cursor closes, and releasing the
// session force-closes every open cursor.
type Cursor struct {
	// OnClose, when set, is invoked exactly once with the terminal error
	// (nil on clean completion).
	OnClose func(error)

	sess    *Session
	rows    *sql.Rows
	cols    []string
	release func()

	mu     sync.Mutex
	closed bool
	err    error
}

// Stream executes a row-returning statement under the same admission
// discipline as Query but hands back a cursor instead of buffered records.
func (s *Session) Stream(ctx context.Context, sqlText string, params ...any) (*Cursor, error) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil, ErrReleased
	}
	s.mu.Unlock()

	release := s.admit(false)

	h, err := s.Connect(ctx)
	if err != nil {
		release()
		return nil, err
	}

	rows, err := h.QueryContext(ctx, sqlText, params...)
	if err != nil {
		release()
		qerr := &QueryError{SQL: sqlText, Params: params, Err: err}
		s.log.Error("query failed", "sql", sqlText, "params", params, "session", s.id, "error", err)
		return nil, qerr
	}
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		release()
		return nil, &QueryError{SQL: sqlText, Params: params, Err: err}
	}

	c := &Cursor{sess: s, rows: rows, cols: cols, release: release}
	s.cursorMu.Lock()
	s.cursors[c] = struct{}{}
	s.cursorMu.Unlock()
	return c, nil
}

// Next advances to the next row. It returns false at the end of the stream
// or after an error; the cursor closes itself on exhaustion.
func (c *Cursor) Next() bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	if c.rows.Next() {
		return true
	}
	_ = c.closeWith(c.rows.Err())
	return false
}

// Record scans the current row into a column-keyed map.
func (c *Cursor) Record() (map[string]any, error) {
	vals := make([]any, len(c.cols))
	ptrs := make([]any, len(c.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	rec := make(map[string]any, len(c.cols))
	for i, col := range c.cols {
		v := vals[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		rec[col] = v
	}
	return rec, nil
}

// Err returns the terminal error, if any.
func (c *Cursor) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close releases the cursor's admission slot and detaches it from the
// session. Safe to call more than once.
func (c *Cursor) Close() error {
	return c.closeWith(nil)
}

func (c *Cursor) closeWith(cause error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.err = cause
	c.mu.Unlock()

	err := c.rows.Close()
	c.release()

	c.sess.cursorMu.Lock()
	delete(c.sess.cursors, c)
	c.sess.cursorMu.Unlock()

	if c.OnClose != nil {
		if cause != nil {
			c.OnClose(cause)
		} else {
			c.OnClose(err)
		}
	}
	return err
}
