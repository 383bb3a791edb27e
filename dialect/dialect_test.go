package dialect

import (
	"testing"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		dialect string
		ident   string
		want    string
	}{
		{"postgres", "users", `"users"`},
		{"mysql", "users", "`users`"},
		{"mariadb", "order", "`order`"},
		{"sqlserver", "users", "[users]"},
		{"sqlite", "users", `"users"`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			d, err := Get(tt.dialect)
			if err != nil {
				t.Fatalf("Get(%q): %v", tt.dialect, err)
			}
			if got := d.Quote(tt.ident); got != tt.want {
				t.Errorf("Quote(%q) = %q, want %q", tt.ident, got, tt.want)
			}
		})
	}
}

func TestGetUnknownDialect(t *testing.T) {
	if _, err := Get("oracle"); err == nil {
		t.Fatal("Get(oracle) = nil error, want failure")
	}
}

func TestIsolationStmt(t *testing.T) {
	d, _ := Get("postgres")
	got := d.IsolationStmt("repeatable read")
	want := "SET TRANSACTION ISOLATION LEVEL REPEATABLE READ"
	if got != want {
		t.Errorf("IsolationStmt = %q, want %q", got, want)
	}
}

func TestTruncateIdentifier(t *testing.T) {
	d, _ := Get("postgres")
	long := "a_very_long_identifier_that_exceeds_the_sixty_three_byte_postgres_limit"
	got := d.TruncateIdentifier(long)
	if len(got) != d.MaxIdentifierLength {
		t.Errorf("len = %d, want %d", len(got), d.MaxIdentifierLength)
	}
	if d.TruncateIdentifier("short") != "short" {
		t.Error("short identifier must pass through untouched")
	}
}

func TestCapabilityMatrix(t *testing.T) {
	pg, _ := Get("postgres")
	my, _ := Get("mysql")
	ma, _ := Get("mariadb")
	ms, _ := Get("sqlserver")
	lite, _ := Get("sqlite")

	if !pg.SupportsEnumTypes || my.SupportsEnumTypes {
		t.Error("enum types are a postgres capability")
	}
	if !my.SupportsInlineEnum || pg.SupportsInlineEnum {
		t.Error("inline enums are a mysql-family capability")
	}
	if !pg.SupportsExclusionConstraints || ms.SupportsExclusionConstraints {
		t.Error("exclusion constraints are postgres-only")
	}
	if lite.SupportsCheckConstraints {
		t.Error("sqlite cannot add check constraints after create")
	}
	if pg.IdentityRequiresPrimaryKey {
		t.Error("postgres identity is independent of the primary key")
	}
	for _, d := range []*Dialect{my, ma, ms, lite} {
		if !d.IdentityRequiresPrimaryKey {
			t.Errorf("%s identity must be coupled to the primary key", d.Name)
		}
	}
	if ma.RenameColumnStmt != RenameColumnChange {
		t.Error("mariadb renames columns via CHANGE")
	}
	if ms.RenameColumnStmt != RenameColumnSpRename {
		t.Error("sqlserver renames columns via sp_rename")
	}
	if !pg.SupportsPipelining || my.SupportsPipelining {
		t.Error("pipelining is postgres-only")
	}
}
