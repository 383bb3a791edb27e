package ddl

import (
	"fmt"
	"strings"

	"github.com/alterkit/alterkit/schema"
)

// CreateEnumType builds CREATE TYPE ... AS ENUM for a column's value list.
// Only meaningful on dialects with first-class enum types; others carry the
// value list inline in the column type.
func (s *Synthesizer) CreateEnumType(t *schema.Table, c *schema.Column) (string, error) {
	if !s.Dialect.SupportsEnumTypes {
		return "", fmt.Errorf("enum types on %s: %w", s.Dialect.Name, ErrUnsupported)
	}
	vals := make([]string, len(c.Enum))
	for i, v := range c.Enum {
		vals[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)",
		s.Dialect.Quote(s.enumTypeName(t, c)), strings.Join(vals, ", ")), nil
}

// DropEnumType is the structural inverse of CreateEnumType.
func (s *Synthesizer) DropEnumType(t *schema.Table, c *schema.Column) (string, error) {
	if !s.Dialect.SupportsEnumTypes {
		return "", fmt.Errorf("enum types on %s: %w", s.Dialect.Name, ErrUnsupported)
	}
	return fmt.Sprintf("DROP TYPE %s", s.Dialect.Quote(s.enumTypeName(t, c))), nil
}

// CreateView builds the CREATE VIEW statement.
func (s *Synthesizer) CreateView(v *schema.View) string {
	kind := "VIEW"
	if v.Materialized && s.Dialect.Name == "postgres" {
		kind = "MATERIALIZED VIEW"
	}
	return fmt.Sprintf("CREATE %s %s AS %s", kind, s.TableRef(v.TableName), v.Definition)
}

// DropView is the structural inverse of CreateView.
func (s *Synthesizer) DropView(v *schema.View) string {
	kind := "VIEW"
	if v.Materialized && s.Dialect.Name == "postgres" {
		kind = "MATERIALIZED VIEW"
	}
	return fmt.Sprintf("DROP %s %s", kind, s.TableRef(v.TableName))
}
