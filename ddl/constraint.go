package ddl

import (
	"fmt"
	"strings"

	"github.com/alterkit/alterkit/schema"
)

// CreatePrimaryKey adds a primary key constraint over the given columns,
// named by the naming strategy.
func (s *Synthesizer) CreatePrimaryKey(t *schema.Table, columns []string) string {
	name := s.Naming.PrimaryKey(t.Name, columns)
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s)",
		s.TableRef(t.TableName), s.Dialect.Quote(name), strings.Join(s.quoteAll(columns), ", "))
}

// DropPrimaryKey is the structural inverse of CreatePrimaryKey.
func (s *Synthesizer) DropPrimaryKey(t *schema.Table, columns []string) string {
	d := s.Dialect
	if d.Name == "mysql" || d.Name == "mariadb" {
		return fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY", s.TableRef(t.TableName))
	}
	name := s.Naming.PrimaryKey(t.Name, columns)
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
		s.TableRef(t.TableName), d.Quote(name))
}

// foreignKeyClause renders the constraint body shared by inline and ALTER
// forms.
func (s *Synthesizer) foreignKeyClause(fk *schema.ForeignKey) string {
	d := s.Dialect
	var b strings.Builder
	fmt.Fprintf(&b, "CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.Quote(fk.Name),
		strings.Join(s.quoteAll(fk.Columns), ", "),
		d.QuoteQualified(fk.RefTable),
		strings.Join(s.quoteAll(fk.RefColumns), ", "))
	if fk.OnDelete != "" {
		fmt.Fprintf(&b, " ON DELETE %s", fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		fmt.Fprintf(&b, " ON UPDATE %s", fk.OnUpdate)
	}
	if fk.Deferrable && d.SupportsDeferrableFK {
		b.WriteString(" DEFERRABLE")
		if fk.InitiallyDeferred {
			b.WriteString(" INITIALLY DEFERRED")
		}
	}
	return b.String()
}

// CreateForeignKey adds a foreign key constraint.
func (s *Synthesizer) CreateForeignKey(t *schema.Table, fk *schema.ForeignKey) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s", s.TableRef(t.TableName), s.foreignKeyClause(fk))
}

// DropForeignKey is the structural inverse of CreateForeignKey.
func (s *Synthesizer) DropForeignKey(t *schema.Table, fk *schema.ForeignKey) string {
	d := s.Dialect
	if d.Name == "mysql" || d.Name == "mariadb" {
		return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", s.TableRef(t.TableName), d.Quote(fk.Name))
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", s.TableRef(t.TableName), d.Quote(fk.Name))
}

// CreateUnique adds a first-class unique constraint. Dialects without the
// object fail with ErrUnsupported and emit no SQL; the executor emulates
// them with a unique index instead.
func (s *Synthesizer) CreateUnique(t *schema.Table, u *schema.UniqueConstraint) (string, error) {
	if !s.Dialect.SupportsUniqueConstraints {
		return "", fmt.Errorf("unique constraints on %s: %w", s.Dialect.Name, ErrUnsupported)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)",
		s.TableRef(t.TableName), s.Dialect.Quote(u.Name), strings.Join(s.quoteAll(u.Columns), ", ")), nil
}

// DropUnique is the structural inverse of CreateUnique, under the same gate.
func (s *Synthesizer) DropUnique(t *schema.Table, u *schema.UniqueConstraint) (string, error) {
	if !s.Dialect.SupportsUniqueConstraints {
		return "", fmt.Errorf("unique constraints on %s: %w", s.Dialect.Name, ErrUnsupported)
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
		s.TableRef(t.TableName), s.Dialect.Quote(u.Name)), nil
}

// CreateCheck adds a check constraint, gated on dialect support.
func (s *Synthesizer) CreateCheck(t *schema.Table, c *schema.CheckConstraint) (string, error) {
	if !s.Dialect.SupportsCheckConstraints {
		return "", fmt.Errorf("check constraints on %s: %w", s.Dialect.Name, ErrUnsupported)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)",
		s.TableRef(t.TableName), s.Dialect.Quote(c.Name), c.Expression), nil
}

// DropCheck is the structural inverse of CreateCheck, under the same gate.
func (s *Synthesizer) DropCheck(t *schema.Table, c *schema.CheckConstraint) (string, error) {
	if !s.Dialect.SupportsCheckConstraints {
		return "", fmt.Errorf("check constraints on %s: %w", s.Dialect.Name, ErrUnsupported)
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
		s.TableRef(t.TableName), s.Dialect.Quote(c.Name)), nil
}

// CreateExclusion adds an exclusion constraint; only the postgres family has
// them.
func (s *Synthesizer) CreateExclusion(t *schema.Table, e *schema.ExclusionConstraint) (string, error) {
	if !s.Dialect.SupportsExclusionConstraints {
		return "", fmt.Errorf("exclusion constraints on %s: %w", s.Dialect.Name, ErrUnsupported)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s EXCLUDE %s",
		s.TableRef(t.TableName), s.Dialect.Quote(e.Name), e.Expression), nil
}

// DropExclusion is the structural inverse of CreateExclusion.
func (s *Synthesizer) DropExclusion(t *schema.Table, e *schema.ExclusionConstraint) (string, error) {
	if !s.Dialect.SupportsExclusionConstraints {
		return "", fmt.Errorf("exclusion constraints on %s: %w", s.Dialect.Name, ErrUnsupported)
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
		s.TableRef(t.TableName), s.Dialect.Quote(e.Name)), nil
}
