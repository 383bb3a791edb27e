// Package schema holds the dialect-agnostic model of database objects.
// Tables are treated as immutable values: every mutation helper returns a
// deep copy so a previously handed-out reference never observes the edit.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a referenced column, index or constraint is
// absent from the table model. Callers wrap it with the object name.
var ErrNotFound = errors.New("object not found")

// GenerationKind describes how a column's value is produced by the database.
type GenerationKind string

const (
	GenerationNone      GenerationKind = ""
	GenerationIncrement GenerationKind = "increment"
	GenerationUUID      GenerationKind = "uuid"
)

// TableName is a qualified table name. The number of meaningful segments is
// dialect-dependent: sqlite uses Name only, postgres/mysql two segments,
// sqlserver up to three.
type TableName struct {
	Database string `json:"database,omitempty"`
	Schema   string `json:"schema,omitempty"`
	Name     string `json:"name"`
}

// ParseTableName splits a dotted name of 1-3 segments into its parts.
// Two segments are interpreted as schema.table; three as database.schema.table.
func ParseTableName(s string) TableName {
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 1:
		return TableName{Name: parts[0]}
	case 2:
		return TableName{Schema: parts[0], Name: parts[1]}
	default:
		return TableName{Database: parts[0], Schema: parts[1], Name: strings.Join(parts[2:], ".")}
	}
}

// String returns the dotted form, omitting empty segments.
func (n TableName) String() string {
	parts := make([]string, 0, 3)
	if n.Database != "" {
		parts = append(parts, n.Database)
	}
	if n.Schema != "" {
		parts = append(parts, n.Schema)
	}
	parts = append(parts, n.Name)
	return strings.Join(parts, ".")
}

// Table represents a database table.
type Table struct {
	TableName
	Columns     []*Column              `json:"columns"`
	Indexes     []*Index               `json:"indexes,omitempty"`
	Uniques     []*UniqueConstraint    `json:"uniques,omitempty"`
	Checks      []*CheckConstraint     `json:"checks,omitempty"`
	Exclusions  []*ExclusionConstraint `json:"exclusions,omitempty"`
	ForeignKeys []*ForeignKey          `json:"foreign_keys,omitempty"`
	Engine      string                 `json:"engine,omitempty"` // storage engine, mysql family
	Comment     string                 `json:"comment,omitempty"`
}

// Column represents a table column.
type Column struct {
	Name          string         `json:"name"`
	Type          string         `json:"type"` // canonical type name
	Length        string         `json:"length,omitempty"`
	Precision     *int           `json:"precision,omitempty"`
	Scale         *int           `json:"scale,omitempty"`
	Nullable      bool           `json:"nullable"`
	Default       *string        `json:"default,omitempty"` // raw SQL expression
	Generation    GenerationKind `json:"generation,omitempty"`
	IsPrimary     bool           `json:"is_primary,omitempty"`
	IsUnique      bool           `json:"is_unique,omitempty"`
	Enum          []string       `json:"enum,omitempty"`
	EnumName      string         `json:"enum_name,omitempty"` // explicit enum type name, postgres
	Collation     string         `json:"collation,omitempty"`
	Charset       string         `json:"charset,omitempty"`
	SpatialType   string         `json:"spatial_type,omitempty"` // geometry feature type
	SRID          *int           `json:"srid,omitempty"`
	GeneratedExpr string         `json:"generated_expr,omitempty"`
	Stored        bool           `json:"stored,omitempty"`
	Comment       string         `json:"comment,omitempty"`
}

// Index represents a table index.
type Index struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	Unique   bool     `json:"unique,omitempty"`
	Spatial  bool     `json:"spatial,omitempty"`
	Fulltext bool     `json:"fulltext,omitempty"`
	Where    string   `json:"where,omitempty"` // partial index predicate
}

// ForeignKey represents a foreign key constraint.
type ForeignKey struct {
	Name              string   `json:"name"`
	Columns           []string `json:"columns"`
	RefTable          string   `json:"ref_table"`
	RefColumns        []string `json:"ref_columns"`
	OnDelete          string   `json:"on_delete,omitempty"`
	OnUpdate          string   `json:"on_update,omitempty"`
	Deferrable        bool     `json:"deferrable,omitempty"`
	InitiallyDeferred bool     `json:"initially_deferred,omitempty"`
}

// UniqueConstraint represents a named unique constraint. On dialects without
// a first-class unique constraint object this records the logical constraint
// backing a unique index.
type UniqueConstraint struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// CheckConstraint represents a named check constraint.
type CheckConstraint struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns,omitempty"`
	Expression string   `json:"expression"`
}

// ExclusionConstraint represents a named exclusion constraint (postgres).
type ExclusionConstraint struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

// View represents a database view.
type View struct {
	TableName
	Definition   string `json:"definition"`
	Materialized bool   `json:"materialized,omitempty"`
}

// Column returns the named column or ErrNotFound.
func (t *Table) Column(name string) (*Column, error) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("column %q of table %q: %w", name, t.TableName, ErrNotFound)
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, err := t.Column(name)
	return err == nil
}

// Index returns the named index or ErrNotFound.
func (t *Table) Index(name string) (*Index, error) {
	for _, ix := range t.Indexes {
		if ix.Name == name {
			return ix, nil
		}
	}
	return nil, fmt.Errorf("index %q of table %q: %w", name, t.TableName, ErrNotFound)
}

// ForeignKey returns the named foreign key or ErrNotFound.
func (t *Table) ForeignKey(name string) (*ForeignKey, error) {
	for _, fk := range t.ForeignKeys {
		if fk.Name == name {
			return fk, nil
		}
	}
	return nil, fmt.Errorf("foreign key %q of table %q: %w", name, t.TableName, ErrNotFound)
}

// Unique returns the named unique constraint or ErrNotFound.
func (t *Table) Unique(name string) (*UniqueConstraint, error) {
	for _, u := range t.Uniques {
		if u.Name == name {
			return u, nil
		}
	}
	return nil, fmt.Errorf("unique constraint %q of table %q: %w", name, t.TableName, ErrNotFound)
}

// Check returns the named check constraint or ErrNotFound.
func (t *Table) Check(name string) (*CheckConstraint, error) {
	for _, c := range t.Checks {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("check constraint %q of table %q: %w", name, t.TableName, ErrNotFound)
}

// Exclusion returns the named exclusion constraint or ErrNotFound.
func (t *Table) Exclusion(name string) (*ExclusionConstraint, error) {
	for _, e := range t.Exclusions {
		if e.Name == name {
			return e, nil
		}
	}
	return nil, fmt.Errorf("exclusion constraint %q of table %q: %w", name, t.TableName, ErrNotFound)
}

// PrimaryColumns returns the primary key columns in declaration order.
func (t *Table) PrimaryColumns() []*Column {
	var cols []*Column
	for _, c := range t.Columns {
		if c.IsPrimary {
			cols = append(cols, c)
		}
	}
	return cols
}

// ColumnNames returns all column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// IndexesOn returns every index whose column list contains the named column.
func (t *Table) IndexesOn(column string) []*Index {
	var out []*Index
	for _, ix := range t.Indexes {
		for _, c := range ix.Columns {
			if c == column {
				out = append(out, ix)
				break
			}
		}
	}
	return out
}

// ForeignKeysOn returns every foreign key whose local column list contains
// the named column.
func (t *Table) ForeignKeysOn(column string) []*ForeignKey {
	var out []*ForeignKey
	for _, fk := range t.ForeignKeys {
		for _, c := range fk.Columns {
			if c == column {
				out = append(out, fk)
				break
			}
		}
	}
	return out
}

// UniquesOn returns every unique constraint covering the named column.
func (t *Table) UniquesOn(column string) []*UniqueConstraint {
	var out []*UniqueConstraint
	for _, u := range t.Uniques {
		for _, c := range u.Columns {
			if c == column {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

// ChecksOn returns every check constraint referencing the named column.
func (t *Table) ChecksOn(column string) []*CheckConstraint {
	var out []*CheckConstraint
	for _, ch := range t.Checks {
		for _, c := range ch.Columns {
			if c == column {
				out = append(out, ch)
				break
			}
		}
	}
	return out
}
