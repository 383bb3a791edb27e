// Package naming derives deterministic identifiers for constraints, indexes
// and supporting objects. Both halves of an up/down pair and both directions
// of a rename recompute these names independently, so the derivation must be
// a pure function of its inputs.
package naming

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// Strategy computes object identifiers from table and column names. The zero
// value is usable; MaxLength truncates emitted identifiers when positive.
type Strategy struct {
	MaxLength int
}

// New returns a Strategy honoring the given identifier length limit.
func New(maxLength int) *Strategy {
	return &Strategy{MaxLength: maxLength}
}

func (s *Strategy) derive(prefix, table string, parts ...string) string {
	key := table
	if len(parts) > 0 {
		key += "_" + strings.Join(parts, "_")
	}
	name := fmt.Sprintf("%s_%016x", prefix, xxh3.HashString(key))
	if s.MaxLength > 0 && len(name) > s.MaxLength {
		name = name[:s.MaxLength]
	}
	return name
}

// PrimaryKey names a primary key constraint.
func (s *Strategy) PrimaryKey(table string, columns []string) string {
	return s.derive("pk", table, columns...)
}

// Index names an index over the given columns; a non-empty predicate (for
// partial indexes) participates in the derivation.
func (s *Strategy) Index(table string, columns []string, predicate string) string {
	parts := append([]string(nil), columns...)
	if predicate != "" {
		parts = append(parts, predicate)
	}
	return s.derive("idx", table, parts...)
}

// Unique names a unique constraint (or its emulating unique index).
func (s *Strategy) Unique(table string, columns []string) string {
	return s.derive("uq", table, columns...)
}

// ForeignKey names a foreign key constraint.
func (s *Strategy) ForeignKey(table string, columns []string) string {
	return s.derive("fk", table, columns...)
}

// Check names a check constraint from its expression.
func (s *Strategy) Check(table string, expression string) string {
	return s.derive("chk", table, expression)
}

// Exclusion names an exclusion constraint from its expression.
func (s *Strategy) Exclusion(table string, expression string) string {
	return s.derive("xcl", table, expression)
}

// Default names a default-value constraint (sqlserver materializes these as
// standalone objects).
func (s *Strategy) Default(table string, column string) string {
	return s.derive("df", table, column)
}

// EnumType names the enum type backing a column on dialects with first-class
// enum types.
func (s *Strategy) EnumType(table string, column string) string {
	return s.derive("enum", table, column)
}
