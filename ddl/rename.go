package ddl

import (
	"fmt"

	"github.com/alterkit/alterkit/dialect"
	"github.com/alterkit/alterkit/schema"
)

// RenameTable renames a table within its current database. Cross-database
// moves on dialects that need a context switch are orchestrated by the
// executor around this statement.
func (s *Synthesizer) RenameTable(old, new schema.TableName) string {
	d := s.Dialect
	switch d.Name {
	case "sqlserver":
		return fmt.Sprintf("EXEC sp_rename '%s', '%s'", old.Name, new.Name)
	case "mysql", "mariadb":
		return fmt.Sprintf("RENAME TABLE %s TO %s", s.TableRef(old), s.TableRef(new))
	default:
		return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", s.TableRef(old), d.Quote(new.Name))
	}
}

// UseDatabase emits the context-switch statement for dialects addressing
// objects through the current database.
func (s *Synthesizer) UseDatabase(name string) string {
	return fmt.Sprintf("USE %s", s.Dialect.Quote(name))
}

// RenameColumn renames a column without touching its type. The mariadb
// CHANGE form needs the full definition text, which is why it takes the
// column object rather than bare names.
func (s *Synthesizer) RenameColumn(t *schema.Table, old string, c *schema.Column) string {
	d := s.Dialect
	switch d.RenameColumnStmt {
	case dialect.RenameColumnChange:
		return fmt.Sprintf("ALTER TABLE %s CHANGE %s %s",
			s.TableRef(t.TableName), d.Quote(old),
			s.ColumnDefinition(t, c, ColumnOptions{EmitDefault: true}))
	case dialect.RenameColumnSpRename:
		return fmt.Sprintf("EXEC sp_rename '%s.%s', '%s', 'COLUMN'",
			t.Name, old, c.Name)
	default:
		return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			s.TableRef(t.TableName), d.Quote(old), d.Quote(c.Name))
	}
}

// RenameIndex renames an index in place on dialects that can; the executor
// falls back to drop-and-recreate elsewhere.
func (s *Synthesizer) RenameIndex(t *schema.Table, oldName, newName string) (string, error) {
	d := s.Dialect
	if !d.SupportsRenameIndex {
		return "", fmt.Errorf("index rename on %s: %w", d.Name, ErrUnsupported)
	}
	switch d.Name {
	case "postgres":
		ref := d.Quote(oldName)
		if t.Schema != "" {
			ref = d.Quote(t.Schema) + "." + ref
		}
		return fmt.Sprintf("ALTER INDEX %s RENAME TO %s", ref, d.Quote(newName)), nil
	case "mysql":
		return fmt.Sprintf("ALTER TABLE %s RENAME INDEX %s TO %s",
			s.TableRef(t.TableName), d.Quote(oldName), d.Quote(newName)), nil
	default:
		return fmt.Sprintf("EXEC sp_rename '%s.%s', '%s', 'INDEX'",
			t.Name, oldName, newName), nil
	}
}

// RenameConstraint renames a constraint in place where the dialect allows
// it.
func (s *Synthesizer) RenameConstraint(t *schema.Table, oldName, newName string) (string, error) {
	d := s.Dialect
	switch d.Name {
	case "postgres":
		return fmt.Sprintf("ALTER TABLE %s RENAME CONSTRAINT %s TO %s",
			s.TableRef(t.TableName), d.Quote(oldName), d.Quote(newName)), nil
	case "sqlserver":
		return fmt.Sprintf("EXEC sp_rename '%s', '%s', 'OBJECT'", oldName, newName), nil
	default:
		return "", fmt.Errorf("constraint rename on %s: %w", d.Name, ErrUnsupported)
	}
}

// RenameEnumType renames the enum type backing a column (postgres).
func (s *Synthesizer) RenameEnumType(oldName, newName string) (string, error) {
	if !s.Dialect.SupportsEnumTypes {
		return "", fmt.Errorf("enum types on %s: %w", s.Dialect.Name, ErrUnsupported)
	}
	return fmt.Sprintf("ALTER TYPE %s RENAME TO %s",
		s.Dialect.Quote(oldName), s.Dialect.Quote(newName)), nil
}
