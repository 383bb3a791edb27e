package ddl

import (
	"fmt"
	"strings"

	"github.com/alterkit/alterkit/schema"
)

// CreateIndex builds the CREATE INDEX statement for an index, including
// unique/spatial/fulltext flavors and partial predicates where supported.
func (s *Synthesizer) CreateIndex(t *schema.Table, ix *schema.Index) string {
	d := s.Dialect
	var b strings.Builder

	b.WriteString("CREATE ")
	switch {
	case ix.Unique:
		b.WriteString("UNIQUE ")
	case ix.Spatial && (d.Name == "mysql" || d.Name == "mariadb"):
		b.WriteString("SPATIAL ")
	case ix.Fulltext && (d.Name == "mysql" || d.Name == "mariadb"):
		b.WriteString("FULLTEXT ")
	}
	fmt.Fprintf(&b, "INDEX %s ON %s", d.Quote(ix.Name), s.TableRef(t.TableName))

	if ix.Spatial && d.Name == "postgres" {
		b.WriteString(" USING gist")
	}

	fmt.Fprintf(&b, " (%s)", strings.Join(s.quoteAll(ix.Columns), ", "))

	if ix.Where != "" && d.SupportsPartialIndexes {
		fmt.Fprintf(&b, " WHERE %s", ix.Where)
	}
	return b.String()
}

// DropIndex is the structural inverse of CreateIndex. The mysql family
// scopes index names to their table, everyone else to the schema.
func (s *Synthesizer) DropIndex(t *schema.Table, ix *schema.Index) string {
	d := s.Dialect
	switch d.Name {
	case "mysql", "mariadb":
		return fmt.Sprintf("DROP INDEX %s ON %s", d.Quote(ix.Name), s.TableRef(t.TableName))
	case "sqlserver":
		return fmt.Sprintf("DROP INDEX %s ON %s", d.Quote(ix.Name), s.TableRef(t.TableName))
	case "postgres":
		if t.Schema != "" {
			return fmt.Sprintf("DROP INDEX %s.%s", d.Quote(t.Schema), d.Quote(ix.Name))
		}
		return fmt.Sprintf("DROP INDEX %s", d.Quote(ix.Name))
	default:
		return fmt.Sprintf("DROP INDEX %s", d.Quote(ix.Name))
	}
}
