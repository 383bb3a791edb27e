// Package alterkit provides a programmatic API for reversible schema
// migration across postgres, mysql, mariadb, sqlserver and sqlite. It pairs
// a per-connection query session with a migration executor whose every
// operation records an exact structural inverse.
package alterkit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/alterkit/alterkit/dialect"
	"github.com/alterkit/alterkit/internal/logger"
	"github.com/alterkit/alterkit/introspect"
	"github.com/alterkit/alterkit/migrate"
	"github.com/alterkit/alterkit/naming"
	"github.com/alterkit/alterkit/schema"
	"github.com/alterkit/alterkit/session"
)

// Config holds connection details for one database.
type Config struct {
	Dialect  string // postgres, mysql, mariadb, sqlserver or sqlite
	DSN      string // driver connection string
	Database string // target database (default: the connection's database)
	Schema   string // target schema where the dialect has one

	Logger        *slog.Logger  // optional; falls back to the global logger
	Debug         bool          // enable debug logging on the fallback logger
	SlowThreshold time.Duration // statements slower than this log at warn
}

// Client owns a database handle plus the session and executor layered on it.
type Client struct {
	db   *sql.DB
	d    *dialect.Dialect
	sess *session.Session
	exec *migrate.Executor
}

// Open connects to the database described by cfg and wires up the full
// stack: pooled session, catalog introspector, migration executor.
func Open(cfg Config) (*Client, error) {
	d, err := dialect.Get(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.DriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Dialect, err)
	}

	log := cfg.Logger
	if log == nil {
		logger.SetGlobal(nil, cfg.Debug)
		log = logger.Get()
	}

	sess := session.New(session.NewPool(db), d, log)
	if cfg.SlowThreshold > 0 {
		sess.SlowThreshold = cfg.SlowThreshold
	}

	in, err := introspect.New(sess, d, introspect.Scope{Database: cfg.Database, Schema: cfg.Schema})
	if err != nil {
		db.Close()
		return nil, err
	}

	exec := migrate.New(sess, d, in, naming.New(d.MaxIdentifierLength))
	exec.CurrentDatabase = cfg.Database

	return &Client{db: db, d: d, sess: sess, exec: exec}, nil
}

// Session returns the query session bound to this client.
func (c *Client) Session() *session.Session { return c.sess }

// Executor returns the migration executor bound to this client.
func (c *Client) Executor() *migrate.Executor { return c.exec }

// Dialect returns the resolved dialect.
func (c *Client) Dialect() *dialect.Dialect { return c.d }

// DB exposes the underlying handle for callers that need raw access.
func (c *Client) DB() *sql.DB { return c.db }

// Query runs one statement through the session.
func (c *Client) Query(ctx context.Context, sqlText string, params ...any) (*session.Result, error) {
	return c.sess.Query(ctx, sqlText, params...)
}

// Close releases the session's connection and closes the pool.
func (c *Client) Close() error {
	c.sess.Release()
	return c.db.Close()
}

// Re-exported model types for external consumption.

// Table is the dialect-agnostic table model.
type Table = schema.Table

// Column is one column of a Table.
type Column = schema.Column

// Index is a secondary index.
type Index = schema.Index

// ForeignKey is a referential constraint.
type ForeignKey = schema.ForeignKey

// View is a named stored query.
type View = schema.View

// TableName is a parsed, possibly qualified relation name.
type TableName = schema.TableName

// CreateTable is a convenience wrapper building a client-free migration:
// open, create, close.
func CreateTable(ctx context.Context, cfg Config, t *schema.Table) error {
	c, err := Open(cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.exec.CreateTable(ctx, t)
}

// InspectTable loads one table's model from the live catalog.
func InspectTable(ctx context.Context, cfg Config, name string) (*schema.Table, error) {
	c, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.exec.Table(ctx, name)
}
