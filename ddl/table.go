package ddl

import (
	"fmt"
	"strings"

	"github.com/alterkit/alterkit/schema"
)

// CreateTable builds the full CREATE TABLE statement, including inline
// primary key, unique, check and foreign key clauses. Constraint kinds the
// dialect cannot express inline are silently expressed as their emulation
// (unique index) by the executor, never here; kinds with no expression at
// all fail with ErrUnsupported.
func (s *Synthesizer) CreateTable(t *schema.Table) (string, error) {
	d := s.Dialect
	if len(t.Exclusions) > 0 && !d.SupportsExclusionConstraints {
		return "", fmt.Errorf("exclusion constraints on %s: %w", d.Name, ErrUnsupported)
	}
	if len(t.Checks) > 0 && !d.SupportsCheckConstraints {
		return "", fmt.Errorf("check constraints on %s: %w", d.Name, ErrUnsupported)
	}

	var defs []string
	sqliteInlinePK := false
	for _, c := range t.Columns {
		def := s.ColumnDefinition(t, c, ColumnOptions{EmitDefault: true})
		defs = append(defs, "    "+def)
		if d.Name == "sqlite" && c.Generation == schema.GenerationIncrement {
			sqliteInlinePK = true
		}
	}

	// Primary key clause, unless sqlite already folded it into the
	// increment column definition.
	pk := t.PrimaryColumns()
	if len(pk) > 0 && !sqliteInlinePK {
		cols := make([]string, len(pk))
		for i, c := range pk {
			cols[i] = c.Name
		}
		name := s.Naming.PrimaryKey(t.Name, cols)
		defs = append(defs, fmt.Sprintf("    CONSTRAINT %s PRIMARY KEY (%s)",
			d.Quote(name), strings.Join(s.quoteAll(cols), ", ")))
	}

	// Native unique constraints inline; emulating dialects get unique
	// indexes via separate statements planned by the executor.
	if d.SupportsUniqueConstraints {
		for _, u := range t.Uniques {
			defs = append(defs, fmt.Sprintf("    CONSTRAINT %s UNIQUE (%s)",
				d.Quote(u.Name), strings.Join(s.quoteAll(u.Columns), ", ")))
		}
	}

	for _, c := range t.Checks {
		defs = append(defs, fmt.Sprintf("    CONSTRAINT %s CHECK (%s)",
			d.Quote(c.Name), c.Expression))
	}

	for _, e := range t.Exclusions {
		defs = append(defs, fmt.Sprintf("    CONSTRAINT %s EXCLUDE %s",
			d.Quote(e.Name), e.Expression))
	}

	for _, fk := range t.ForeignKeys {
		defs = append(defs, "    "+s.foreignKeyClause(fk))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n%s\n)", s.TableRef(t.TableName), strings.Join(defs, ",\n"))
	if t.Engine != "" && d.SupportsEngines {
		fmt.Fprintf(&b, " ENGINE=%s", t.Engine)
	}
	return b.String(), nil
}

// DropTable is the structural inverse of CreateTable.
func (s *Synthesizer) DropTable(t *schema.Table) string {
	return fmt.Sprintf("DROP TABLE %s", s.TableRef(t.TableName))
}

// AddColumn builds ALTER TABLE ... ADD with the full column definition.
func (s *Synthesizer) AddColumn(t *schema.Table, c *schema.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s",
		s.TableRef(t.TableName), s.ColumnDefinition(t, c, ColumnOptions{EmitDefault: true}))
}

// DropColumn is the structural inverse of AddColumn.
func (s *Synthesizer) DropColumn(t *schema.Table, c *schema.Column) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
		s.TableRef(t.TableName), s.Dialect.Quote(c.Name))
}

// AlterColumnType rebuilds a column's type in place. Only used for the
// narrow cases the executor considers non-destructive (enum value growth on
// postgres goes through the enum type instead).
func (s *Synthesizer) AlterColumnType(t *schema.Table, c *schema.Column) string {
	d := s.Dialect
	switch d.Name {
	case "postgres":
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s",
			s.TableRef(t.TableName), d.Quote(c.Name), s.TypeText(t, c))
	case "sqlserver":
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s",
			s.TableRef(t.TableName), s.ColumnDefinition(t, c, ColumnOptions{SkipIdentity: true}))
	default:
		return fmt.Sprintf("ALTER TABLE %s MODIFY %s",
			s.TableRef(t.TableName), s.ColumnDefinition(t, c, ColumnOptions{SkipIdentity: true, EmitDefault: true}))
	}
}

// SetDefault emits the statement installing a column default.
func (s *Synthesizer) SetDefault(t *schema.Table, c *schema.Column) string {
	d := s.Dialect
	def := s.defaultExpr(c)
	switch d.Name {
	case "sqlserver":
		name := s.Naming.Default(t.Name, c.Name)
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s DEFAULT %s FOR %s",
			s.TableRef(t.TableName), d.Quote(name), def, d.Quote(c.Name))
	case "mysql", "mariadb":
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s",
			s.TableRef(t.TableName), d.Quote(c.Name), def)
	default:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s",
			s.TableRef(t.TableName), d.Quote(c.Name), def)
	}
}

// DropDefault is the structural inverse of SetDefault.
func (s *Synthesizer) DropDefault(t *schema.Table, c *schema.Column) string {
	d := s.Dialect
	switch d.Name {
	case "sqlserver":
		name := s.Naming.Default(t.Name, c.Name)
		return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
			s.TableRef(t.TableName), d.Quote(name))
	case "mysql", "mariadb":
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT",
			s.TableRef(t.TableName), d.Quote(c.Name))
	default:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT",
			s.TableRef(t.TableName), d.Quote(c.Name))
	}
}

// SetNotNull forbids nulls on an existing column. Dialects without a
// dedicated statement rebuild the definition via AlterColumnType instead.
func (s *Synthesizer) SetNotNull(t *schema.Table, c *schema.Column) string {
	if s.Dialect.Name == "postgres" {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL",
			s.TableRef(t.TableName), s.Dialect.Quote(c.Name))
	}
	return s.AlterColumnType(t, c)
}

// DropNotNull is the structural inverse of SetNotNull.
func (s *Synthesizer) DropNotNull(t *schema.Table, c *schema.Column) string {
	if s.Dialect.Name == "postgres" {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL",
			s.TableRef(t.TableName), s.Dialect.Quote(c.Name))
	}
	return s.AlterColumnType(t, c)
}

// AlterColumnEnumType retypes a column to the named enum type through a
// text cast (postgres).
func (s *Synthesizer) AlterColumnEnumType(t *schema.Table, c *schema.Column, typeName string) string {
	d := s.Dialect
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::text::%s",
		s.TableRef(t.TableName), d.Quote(c.Name), d.Quote(typeName), d.Quote(c.Name), d.Quote(typeName))
}

// CommentOnColumn sets or clears a column comment (postgres).
func (s *Synthesizer) CommentOnColumn(t *schema.Table, c *schema.Column, comment string) string {
	text := "NULL"
	if comment != "" {
		text = "'" + strings.ReplaceAll(comment, "'", "''") + "'"
	}
	return fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s",
		s.TableRef(t.TableName), s.Dialect.Quote(c.Name), text)
}

// SetIdentity installs the increment attribute on an existing column.
func (s *Synthesizer) SetIdentity(t *schema.Table, c *schema.Column) string {
	d := s.Dialect
	switch d.Name {
	case "postgres":
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s ADD %s",
			s.TableRef(t.TableName), d.Quote(c.Name), d.IdentityClause)
	default:
		// mysql family expresses identity through the column definition.
		return fmt.Sprintf("ALTER TABLE %s MODIFY %s",
			s.TableRef(t.TableName), s.ColumnDefinition(t, c, ColumnOptions{EmitDefault: true}))
	}
}

// DropIdentity strips the increment attribute, leaving the column otherwise
// intact.
func (s *Synthesizer) DropIdentity(t *schema.Table, c *schema.Column) string {
	d := s.Dialect
	switch d.Name {
	case "postgres":
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP IDENTITY",
			s.TableRef(t.TableName), d.Quote(c.Name))
	default:
		return fmt.Sprintf("ALTER TABLE %s MODIFY %s",
			s.TableRef(t.TableName), s.ColumnDefinition(t, c, ColumnOptions{SkipIdentity: true, EmitDefault: true}))
	}
}
