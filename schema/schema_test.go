package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTableName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  TableName
	}{
		{
			name:  "bare",
			input: "users",
			want:  TableName{Name: "users"},
		},
		{
			name:  "schema qualified",
			input: "public.users",
			want:  TableName{Schema: "public", Name: "users"},
		},
		{
			name:  "fully qualified",
			input: "analytics.dbo.events",
			want:  TableName{Database: "analytics", Schema: "dbo", Name: "events"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTableName(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseTableName(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
			if got.String() != tt.input {
				t.Errorf("String() = %q, want %q", got.String(), tt.input)
			}
		})
	}
}

func TestLookupsReturnNotFound(t *testing.T) {
	tbl := &Table{
		TableName: TableName{Name: "users"},
		Columns:   []*Column{{Name: "id", Type: "integer"}},
	}

	if _, err := tbl.Column("id"); err != nil {
		t.Fatalf("Column(id) = %v, want nil", err)
	}
	if _, err := tbl.Column("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Column(missing) = %v, want ErrNotFound", err)
	}
	if _, err := tbl.Index("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Index(missing) = %v, want ErrNotFound", err)
	}
	if _, err := tbl.ForeignKey("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ForeignKey(missing) = %v, want ErrNotFound", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	def := "0"
	precision := 10
	orig := &Table{
		TableName: TableName{Schema: "public", Name: "orders"},
		Columns: []*Column{
			{Name: "id", Type: "integer", Generation: GenerationIncrement, IsPrimary: true},
			{Name: "total", Type: "numeric", Precision: &precision, Default: &def},
			{Name: "status", Type: "", Enum: []string{"open", "closed"}},
		},
		Indexes: []*Index{
			{Name: "idx_orders_status", Columns: []string{"status"}},
		},
		ForeignKeys: []*ForeignKey{
			{Name: "fk_orders_user", Columns: []string{"user_id"}, RefTable: "users", RefColumns: []string{"id"}},
		},
		Uniques: []*UniqueConstraint{{Name: "uq_orders_ref", Columns: []string{"ref"}}},
		Checks:  []*CheckConstraint{{Name: "chk_total", Expression: "total >= 0"}},
	}

	clone := orig.Clone()
	if diff := cmp.Diff(orig, clone); diff != "" {
		t.Fatalf("clone differs from original (-orig +clone):\n%s", diff)
	}

	// Mutating the clone must not reach back into the original.
	clone.Columns[1].Name = "amount"
	*clone.Columns[1].Precision = 12
	*clone.Columns[1].Default = "1"
	clone.Columns[2].Enum[0] = "pending"
	clone.Indexes[0].Columns[0] = "id"
	clone.ForeignKeys[0].RefColumns[0] = "uuid"

	if orig.Columns[1].Name != "total" {
		t.Error("column name mutation leaked into original")
	}
	if *orig.Columns[1].Precision != 10 {
		t.Error("precision mutation leaked into original")
	}
	if *orig.Columns[1].Default != "0" {
		t.Error("default mutation leaked into original")
	}
	if orig.Columns[2].Enum[0] != "open" {
		t.Error("enum mutation leaked into original")
	}
	if orig.Indexes[0].Columns[0] != "status" {
		t.Error("index column mutation leaked into original")
	}
	if orig.ForeignKeys[0].RefColumns[0] != "id" {
		t.Error("foreign key mutation leaked into original")
	}
}

func TestPrimaryColumns(t *testing.T) {
	tbl := &Table{
		Columns: []*Column{
			{Name: "tenant_id", IsPrimary: true},
			{Name: "id", IsPrimary: true},
			{Name: "name"},
		},
	}
	got := tbl.PrimaryColumns()
	want := []string{"tenant_id", "id"}
	var names []string
	for _, c := range got {
		names = append(names, c.Name)
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("PrimaryColumns mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexesOn(t *testing.T) {
	tbl := &Table{
		Indexes: []*Index{
			{Name: "a", Columns: []string{"x", "y"}},
			{Name: "b", Columns: []string{"y"}},
			{Name: "c", Columns: []string{"z"}},
		},
	}
	var names []string
	for _, ix := range tbl.IndexesOn("y") {
		names = append(names, ix.Name)
	}
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Errorf("IndexesOn mismatch (-want +got):\n%s", diff)
	}
}
