// Package migrate orchestrates synthesizer output into ordered, reversible
// statement sequences and applies them while keeping the schema cache and
// the database in lockstep.
package migrate

import (
	"context"
	"fmt"

	"github.com/alterkit/alterkit/ddl"
	"github.com/alterkit/alterkit/dialect"
	"github.com/alterkit/alterkit/naming"
	"github.com/alterkit/alterkit/schema"
	"github.com/alterkit/alterkit/session"
)

// Runner is the session surface the executor drives. *session.Session
// satisfies it.
type Runner interface {
	Query(ctx context.Context, sql string, params ...any) (*session.Result, error)
	StartTransaction(ctx context.Context, isolation string) error
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
}

// Executor plans and applies schema mutations for one dialect over one
// session.
type Executor struct {
	sess   Runner
	d      *dialect.Dialect
	syn    *ddl.Synthesizer
	naming *naming.Strategy
	cache  *Cache

	// CurrentDatabase anchors cross-database renames on dialects that
	// address objects through the active database context.
	CurrentDatabase string

	journal []Change
}

// New creates an executor. A nil strategy falls back to the default; a nil
// loader limits the executor to caller-supplied table models.
func New(sess Runner, d *dialect.Dialect, loader Loader, strategy *naming.Strategy) *Executor {
	if strategy == nil {
		strategy = naming.New(d.MaxIdentifierLength)
	}
	return &Executor{
		sess:   sess,
		d:      d,
		syn:    ddl.New(d, strategy),
		naming: strategy,
		cache:  NewCache(loader),
	}
}

// Cache exposes the executor's schema cache.
func (e *Executor) Cache() *Cache { return e.cache }

// Synthesizer exposes the underlying DDL synthesizer.
func (e *Executor) Synthesizer() *ddl.Synthesizer { return e.syn }

// Changes returns the journal of executed mutations in execution order.
// Replaying each entry's Down list in reverse journal order restores the
// schema that existed before the run.
func (e *Executor) Changes() []Change {
	out := make([]Change, len(e.journal))
	copy(out, e.journal)
	return out
}

// resolve normalizes the table-or-name entry boundary: a *schema.Table
// passes through, a string or TableName goes through the cache.
func (e *Executor) resolve(ctx context.Context, tableOrName any) (*schema.Table, error) {
	switch v := tableOrName.(type) {
	case *schema.Table:
		return v, nil
	case schema.TableName:
		return e.cache.Table(ctx, v)
	case string:
		return e.cache.Table(ctx, schema.ParseTableName(v))
	default:
		return nil, fmt.Errorf("unsupported table reference %T", tableOrName)
	}
}

// apply runs every up statement in submission order through the session's
// admission discipline. Failures propagate without rolling back earlier
// statements: several dialects auto-commit DDL, so a partial batch cannot
// be undone here. On success the change is journaled.
func (e *Executor) apply(ctx context.Context, ch Change) error {
	for _, stmt := range ch.Up {
		if _, err := e.sess.Query(ctx, stmt); err != nil {
			return err
		}
	}
	if !ch.empty() {
		e.journal = append(e.journal, ch)
	}
	return nil
}
