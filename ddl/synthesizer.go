// Package ddl synthesizes dialect-specific DDL text. Every create builder
// has a drop counterpart that is its structural inverse given the same
// input object, which is what makes migration plans reversible.
package ddl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alterkit/alterkit/dialect"
	"github.com/alterkit/alterkit/naming"
	"github.com/alterkit/alterkit/schema"
)

// ErrUnsupported is returned when the active dialect has no native object
// for the requested constraint kind.
var ErrUnsupported = errors.New("operation not supported by dialect")

// Synthesizer builds DDL statements for one dialect. All methods are pure:
// same inputs, same SQL text.
type Synthesizer struct {
	Dialect *dialect.Dialect
	Naming  *naming.Strategy
}

// New creates a synthesizer for the given dialect, deriving names with the
// given strategy.
func New(d *dialect.Dialect, n *naming.Strategy) *Synthesizer {
	if n == nil {
		n = naming.New(d.MaxIdentifierLength)
	}
	return &Synthesizer{Dialect: d, Naming: n}
}

// TableRef returns the quoted qualified table reference, honoring the
// dialect's segment count.
func (s *Synthesizer) TableRef(n schema.TableName) string {
	d := s.Dialect
	parts := make([]string, 0, 3)
	if n.Database != "" && d.NameSegments >= 2 && d.UsesDatabaseQualifier {
		parts = append(parts, d.Quote(n.Database))
	}
	if n.Schema != "" && d.NameSegments >= 2 && !d.UsesDatabaseQualifier {
		parts = append(parts, d.Quote(n.Schema))
	}
	if n.Database != "" && n.Schema != "" && d.NameSegments >= 3 {
		// Three-segment dialects carry both qualifiers.
		parts = parts[:0]
		parts = append(parts, d.Quote(n.Database), d.Quote(n.Schema))
	}
	parts = append(parts, d.Quote(n.Name))
	return strings.Join(parts, ".")
}

// ColumnOptions selects which parts of a column definition to emit. Many
// call sites need only a fragment: a type-preserving rename wants type and
// nullability but neither name nor identity clauses.
type ColumnOptions struct {
	SkipIdentity bool
	SkipName     bool
	EmitDefault  bool
}

// ColumnDefinition builds the column-definition fragment used inside CREATE
// TABLE and ADD COLUMN.
func (s *Synthesizer) ColumnDefinition(t *schema.Table, c *schema.Column, opts ColumnOptions) string {
	d := s.Dialect
	var b strings.Builder

	if !opts.SkipName {
		b.WriteString(d.Quote(c.Name))
		b.WriteString(" ")
	}
	b.WriteString(s.TypeText(t, c))

	if c.Charset != "" && d.SupportsEngines {
		fmt.Fprintf(&b, " CHARACTER SET %s", c.Charset)
	}
	if c.Collation != "" {
		fmt.Fprintf(&b, " COLLATE %s", c.Collation)
	}

	if c.GeneratedExpr != "" && d.SupportsStoredGenerated {
		fmt.Fprintf(&b, " GENERATED ALWAYS AS (%s)", c.GeneratedExpr)
		if c.Stored {
			b.WriteString(" STORED")
		} else if d.Name == "mysql" || d.Name == "mariadb" {
			b.WriteString(" VIRTUAL")
		}
	}

	if !opts.SkipIdentity && c.Generation == schema.GenerationIncrement {
		if d.Name == "sqlite" {
			// sqlite folds increment into the primary-key clause.
			b.WriteString(" PRIMARY KEY AUTOINCREMENT")
		} else if d.IdentityClause != "" {
			b.WriteString(" ")
			b.WriteString(d.IdentityClause)
		}
	}

	if opts.EmitDefault {
		if def := s.defaultExpr(c); def != "" {
			fmt.Fprintf(&b, " DEFAULT %s", def)
		}
	}

	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}

	return b.String()
}

// defaultExpr resolves the default expression for a column, substituting the
// dialect's uuid generator for uuid-generated columns.
func (s *Synthesizer) defaultExpr(c *schema.Column) string {
	if c.Generation == schema.GenerationUUID {
		return s.Dialect.UUIDDefault
	}
	if c.Default != nil {
		return *c.Default
	}
	return ""
}

// TypeText renders the column's type, folding in length, precision/scale,
// enum and spatial attributes per dialect.
func (s *Synthesizer) TypeText(t *schema.Table, c *schema.Column) string {
	d := s.Dialect

	if len(c.Enum) > 0 {
		switch {
		case d.SupportsEnumTypes:
			return d.Quote(s.enumTypeName(t, c))
		case d.SupportsInlineEnum:
			quoted := make([]string, len(c.Enum))
			for i, v := range c.Enum {
				quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
			}
			return "enum(" + strings.Join(quoted, ",") + ")"
		default:
			// No enum support: widest sensible text type.
			return "varchar"
		}
	}

	if c.SpatialType != "" {
		if d.Name == "postgres" {
			if c.SRID != nil {
				return fmt.Sprintf("geometry(%s,%d)", c.SpatialType, *c.SRID)
			}
			return fmt.Sprintf("geometry(%s)", c.SpatialType)
		}
		return strings.ToLower(c.SpatialType)
	}

	typ := c.Type
	if c.Generation == schema.GenerationIncrement && d.Name == "sqlite" {
		// AUTOINCREMENT is only legal on INTEGER columns.
		return "INTEGER"
	}
	switch {
	case c.Length != "":
		return fmt.Sprintf("%s(%s)", typ, c.Length)
	case c.Precision != nil && c.Scale != nil:
		return fmt.Sprintf("%s(%d,%d)", typ, *c.Precision, *c.Scale)
	case c.Precision != nil:
		return fmt.Sprintf("%s(%d)", typ, *c.Precision)
	}
	return typ
}

// enumTypeName resolves the enum type name for a column: explicit name if
// given, derived otherwise.
func (s *Synthesizer) enumTypeName(t *schema.Table, c *schema.Column) string {
	if c.EnumName != "" {
		return c.EnumName
	}
	return s.Naming.EnumType(t.Name, c.Name)
}

func (s *Synthesizer) quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = s.Dialect.Quote(n)
	}
	return out
}
