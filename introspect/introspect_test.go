package introspect

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCanonicalType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"int4", "integer"},
		{"INT8", "bigint"},
		{"bpchar", "character"},
		{"varchar", "character varying"},
		{"timestamptz", "timestamp with time zone"},
		{"TEXT", "text"},
		{"numeric", "numeric"},
	}
	for _, tt := range tests {
		if got := canonicalType(tt.in); got != tt.want {
			t.Errorf("canonicalType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeExpr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"1   +   2", "1 + 2"},
		{"'active'::text", "'active'::text"},
		// Unparseable input passes through untouched.
		{"DEFAULT GARBAGE ((", "DEFAULT GARBAGE (("},
	}
	for _, tt := range tests {
		if got := normalizeExpr(tt.in); got != tt.want {
			t.Errorf("normalizeExpr(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsUUIDDefault(t *testing.T) {
	for _, expr := range []string{"gen_random_uuid()", "UUID()", " newid() ", "uuid_generate_v4()"} {
		if !isUUIDDefault(expr) {
			t.Errorf("isUUIDDefault(%q) = false", expr)
		}
	}
	for _, expr := range []string{"now()", "'fixed'", ""} {
		if isUUIDDefault(expr) {
			t.Errorf("isUUIDDefault(%q) = true", expr)
		}
	}
}

func TestStripCheckClause(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CHECK (price > 0)", "price > 0"},
		{"CHECK ((status)::text <> ''::text)", "(status)::text <> ''::text"},
		{"price > 0", "price > 0"},
		{"  CHECK ( a OR b )  ", "a OR b"},
	}
	for _, tt := range tests {
		if got := stripCheckClause(tt.in); got != tt.want {
			t.Errorf("stripCheckClause(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseInlineEnum(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"enum('open','closed')", []string{"open", "closed"}},
		{"set('a','b','c')", []string{"a", "b", "c"}},
		{"enum('it''s','fine')", []string{"it's", "fine"}},
		{"enum()", nil},
		{"varchar(255)", nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, parseInlineEnum(tt.in)); diff != "" {
			t.Errorf("parseInlineEnum(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestStripParens(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"((0))", "0"},
		{"(getdate())", "getdate()"},
		{"([price]>(0))", "[price]>(0)"},
		// Unbalanced wrapping must not be peeled.
		{"(a) OR (b)", "(a) OR (b)"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := stripParens(tt.in); got != tt.want {
			t.Errorf("stripParens(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScanStringArray(t *testing.T) {
	tests := []struct {
		in   any
		want []string
	}{
		{[]byte("{id,name}"), []string{"id", "name"}},
		{"{a}", []string{"a"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, scanStringArray(tt.in)); diff != "" {
			t.Errorf("scanStringArray(%v) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
	if got := scanStringArray("{}"); len(got) != 0 {
		t.Errorf("scanStringArray({}) = %v, want empty", got)
	}
}

func TestNonDefaultRule(t *testing.T) {
	if got := nonDefaultRule("NO ACTION"); got != "" {
		t.Errorf("NO ACTION must map to empty, got %q", got)
	}
	if got := nonDefaultRule("CASCADE"); got != "CASCADE" {
		t.Errorf("CASCADE must pass through, got %q", got)
	}
}

func TestRecordAccessors(t *testing.T) {
	rec := map[string]any{
		"s":  []byte("hello"),
		"n":  int64(42),
		"ns": "17",
		"b":  "YES",
		"b2": int64(1),
		"z":  nil,
	}
	if got := recString(rec, "s"); got != "hello" {
		t.Errorf("recString = %q", got)
	}
	if got := recString(rec, "z"); got != "" {
		t.Errorf("recString(nil) = %q", got)
	}
	if n, ok := recInt(rec, "n"); !ok || n != 42 {
		t.Errorf("recInt(int64) = %d, %v", n, ok)
	}
	if n, ok := recInt(rec, "ns"); !ok || n != 17 {
		t.Errorf("recInt(string) = %d, %v", n, ok)
	}
	if _, ok := recInt(rec, "z"); ok {
		t.Error("recInt(nil) must report absence")
	}
	if !recBool(rec, "b") || !recBool(rec, "b2") {
		t.Error("recBool must accept YES and 1")
	}
	if recBool(rec, "z") {
		t.Error("recBool(nil) = true")
	}
	if recNullString(rec, "z") != nil {
		t.Error("recNullString(nil) must be nil")
	}
	if got := recNullString(rec, "s"); got == nil || *got != "hello" {
		t.Errorf("recNullString = %v", got)
	}
}

func TestTableKeyUsesBareNames(t *testing.T) {
	key := tableKey([]string{"public.users", "orders"})
	if !key["users"] || !key["orders"] {
		t.Errorf("tableKey = %v", key)
	}
	if diff := cmp.Diff([]string{"users", "orders"}, bareNames([]string{"public.users", "orders"})); diff != "" {
		t.Errorf("bareNames mismatch (-want +got):\n%s", diff)
	}
}
