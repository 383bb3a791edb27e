// Package dialect describes per-database capabilities as plain data. One
// capability object parameterizes the synthesizer, the executor and the
// session instead of five parallel backend implementations.
package dialect

import (
	"fmt"
	"strings"
)

// Dialect is a value object describing one database flavor. All SQL-text
// differences between backends live here as flags and small templates.
type Dialect struct {
	Name       string // registry key: postgres, mysql, mariadb, sqlserver, sqlite
	DriverName string // database/sql driver name

	QuoteOpen  string
	QuoteClose string

	SupportsUniqueConstraints    bool // first-class ALTER TABLE ... ADD CONSTRAINT ... UNIQUE
	SupportsCheckConstraints     bool
	SupportsExclusionConstraints bool
	SupportsIdentityColumns      bool // increment generation exists at all
	IdentityRequiresPrimaryKey   bool // increment column must be covered by the primary key
	SupportsEnumTypes            bool // first-class CREATE TYPE ... AS ENUM
	SupportsInlineEnum           bool // enum('a','b') column types
	SupportsDeferrableFK         bool
	SupportsPartialIndexes       bool
	SupportsStoredGenerated      bool
	SupportsEngines              bool // per-table storage engine clause
	SupportsPipelining           bool // driver may interleave ordinary queries

	// Qualified-name shape.
	NameSegments                     int  // 1 (table), 2 (schema.table or db.table), 3 (db.schema.table)
	UsesDatabaseQualifier            bool // first segment addresses a database, not a schema
	RequiresDBSwitchForCrossDBRename bool

	MaxIdentifierLength int

	// Transaction statement templates.
	BeginStmt            string
	CommitStmt           string
	RollbackStmt         string
	IsolationBeforeBegin bool // SET ISOLATION must precede BEGIN
	SupportsIsolation    bool

	// Identity clause emitted inside a column definition, empty when the
	// dialect expresses increment some other way (sqlite folds it into the
	// primary-key clause).
	IdentityClause string

	// Default expression for uuid-generated columns.
	UUIDDefault string

	// Rename syntax variants.
	RenameColumnStmt    RenameColumnStyle
	SupportsRenameIndex bool // false: drop and recreate under the new name
}

// RenameColumnStyle selects the column-rename statement shape.
type RenameColumnStyle int

const (
	RenameColumnStandard RenameColumnStyle = iota // ALTER TABLE t RENAME COLUMN a TO b
	RenameColumnChange                            // ALTER TABLE t CHANGE a b <definition>
	RenameColumnSpRename                          // EXEC sp_rename 't.a', 'b', 'COLUMN'
)

// Quote quotes a single identifier.
func (d *Dialect) Quote(ident string) string {
	return d.QuoteOpen + ident + d.QuoteClose
}

// QuoteQualified quotes a dotted qualified name segment by segment.
func (d *Dialect) QuoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.Quote(p)
	}
	return strings.Join(parts, ".")
}

// IsolationStmt returns the statement setting the given isolation level, or
// an empty string when the dialect has no isolation statement.
func (d *Dialect) IsolationStmt(level string) string {
	if !d.SupportsIsolation || level == "" {
		return ""
	}
	return "SET TRANSACTION ISOLATION LEVEL " + strings.ToUpper(level)
}

// TruncateIdentifier shortens an identifier to the dialect's limit.
func (d *Dialect) TruncateIdentifier(ident string) string {
	if d.MaxIdentifierLength > 0 && len(ident) > d.MaxIdentifierLength {
		return ident[:d.MaxIdentifierLength]
	}
	return ident
}

var registry = map[string]func() *Dialect{
	"postgres":  Postgres,
	"mysql":     MySQL,
	"mariadb":   MariaDB,
	"sqlserver": SQLServer,
	"sqlite":    SQLite,
}

// Get returns a fresh Dialect for the given registry name.
func Get(name string) (*Dialect, error) {
	ctor, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
	return ctor(), nil
}

// Names returns the registered dialect names.
func Names() []string {
	return []string{"postgres", "mysql", "mariadb", "sqlserver", "sqlite"}
}
