package session

import (
	"context"
	"database/sql"
)

// Handle is the physical connection surface the session drives. *sql.Conn
// satisfies it; tests substitute a recording fake.
type Handle interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Close() error
}

// Pool hands out connection handles. The production implementation wraps
// *sql.DB; Close on the yielded handle returns the connection to the pool.
type Pool interface {
	Acquire(ctx context.Context) (Handle, error)
}

type dbPool struct {
	db *sql.DB
}

// NewPool adapts a *sql.DB into a Pool.
func NewPool(db *sql.DB) Pool {
	return &dbPool{db: db}
}

func (p *dbPool) Acquire(ctx context.Context) (Handle, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
