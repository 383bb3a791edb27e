package naming

import (
	"strings"
	"testing"
)

func TestDerivedNamesAreDeterministic(t *testing.T) {
	s := New(63)
	a := s.Index("users", []string{"email", "tenant_id"}, "")
	b := s.Index("users", []string{"email", "tenant_id"}, "")
	if a != b {
		t.Fatalf("same inputs produced %q and %q", a, b)
	}
}

func TestDerivedNamesDependOnAllInputs(t *testing.T) {
	s := New(63)
	base := s.Index("users", []string{"email"}, "")
	if base == s.Index("users", []string{"name"}, "") {
		t.Error("column change must change the name")
	}
	if base == s.Index("accounts", []string{"email"}, "") {
		t.Error("table change must change the name")
	}
	if base == s.Index("users", []string{"email"}, "deleted_at IS NULL") {
		t.Error("predicate change must change the name")
	}
}

func TestPrefixes(t *testing.T) {
	s := New(63)
	tests := []struct {
		prefix string
		name   string
	}{
		{"pk_", s.PrimaryKey("users", []string{"id"})},
		{"idx_", s.Index("users", []string{"email"}, "")},
		{"uq_", s.Unique("users", []string{"email"})},
		{"fk_", s.ForeignKey("users", []string{"org_id"})},
		{"chk_", s.Check("users", "age > 0")},
		{"xcl_", s.Exclusion("rooms", "daterange(arrival, departure) WITH &&")},
		{"df_", s.Default("users", "created_at")},
		{"enum_", s.EnumType("users", "status")},
	}
	for _, tt := range tests {
		if !strings.HasPrefix(tt.name, tt.prefix) {
			t.Errorf("%q should start with %q", tt.name, tt.prefix)
		}
	}
}

func TestMaxLengthIsRespected(t *testing.T) {
	s := New(30)
	name := s.Index("a_table_with_a_rather_long_name", []string{"and_a_long_column"}, "")
	if len(name) > 30 {
		t.Errorf("len(%q) = %d, want <= 30", name, len(name))
	}
}

func TestDifferentKindsDiffer(t *testing.T) {
	s := New(63)
	if s.Index("users", []string{"email"}, "") == s.Unique("users", []string{"email"}) {
		t.Error("index and unique names over the same columns must differ")
	}
}
