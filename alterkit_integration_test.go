//go:build integration

package alterkit_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alterkit/alterkit"
	"github.com/alterkit/alterkit/schema"
	"github.com/alterkit/alterkit/testutil"
)

func openClient(t *testing.T, dsn string) *alterkit.Client {
	t.Helper()
	c, err := alterkit.Open(alterkit.Config{Dialect: "postgres", DSN: dsn, Schema: "public"})
	if err != nil {
		t.Fatalf("Failed to open client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPostgresRoundTrip(t *testing.T) {
	ctx := context.Background()
	info := testutil.SetupPostgresContainer(ctx, t)
	defer info.Terminate(ctx, t)

	c := openClient(t, info.DSN)

	orgs := &alterkit.Table{
		TableName: schema.TableName{Name: "orgs"},
		Columns: []*alterkit.Column{
			{Name: "id", Type: "integer", Generation: schema.GenerationIncrement, IsPrimary: true},
			{Name: "name", Type: "varchar", Length: "120"},
		},
	}
	if err := c.Executor().CreateTable(ctx, orgs); err != nil {
		t.Fatalf("Failed to create orgs: %v", err)
	}

	users := &alterkit.Table{
		TableName: schema.TableName{Name: "users"},
		Columns: []*alterkit.Column{
			{Name: "id", Type: "integer", Generation: schema.GenerationIncrement, IsPrimary: true},
			{Name: "email", Type: "varchar", Length: "255", IsUnique: true},
			{Name: "status", Nullable: true, Enum: []string{"active", "blocked"}},
			{Name: "org_id", Type: "integer", Nullable: true},
		},
		Indexes: []*alterkit.Index{
			{Name: "idx_users_org", Columns: []string{"org_id"}},
		},
		ForeignKeys: []*alterkit.ForeignKey{
			{Name: "fk_users_org", Columns: []string{"org_id"}, RefTable: "orgs", RefColumns: []string{"id"}},
		},
	}
	if err := c.Executor().CreateTable(ctx, users); err != nil {
		t.Fatalf("Failed to create users: %v", err)
	}

	// Data flows through the same session the DDL used.
	if _, err := c.Query(ctx, "INSERT INTO users (email, status) VALUES ($1, $2)", "a@b.c", "active"); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	res, err := c.Query(ctx, "SELECT email, status FROM users")
	if err != nil {
		t.Fatalf("Failed to select: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0]["email"] != "a@b.c" {
		t.Errorf("unexpected records: %v", res.Records)
	}

	// A fresh client sees the schema through the catalog only.
	fresh := openClient(t, info.DSN)
	got, err := fresh.Executor().Table(ctx, "public.users")
	if err != nil {
		t.Fatalf("Failed to introspect: %v", err)
	}

	email, err := got.Column("email")
	if err != nil {
		t.Fatal(err)
	}
	if email.Length != "255" || email.Nullable {
		t.Errorf("email = %+v", email)
	}
	status, err := got.Column("status")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"active", "blocked"}, status.Enum); diff != "" {
		t.Errorf("enum labels mismatch (-want +got):\n%s", diff)
	}
	id, err := got.Column("id")
	if err != nil {
		t.Fatal(err)
	}
	if id.Generation != schema.GenerationIncrement || !id.IsPrimary {
		t.Errorf("id = %+v", id)
	}
	if _, err := got.Index("idx_users_org"); err != nil {
		t.Errorf("index not introspected: %v", err)
	}
	if _, err := got.ForeignKey("fk_users_org"); err != nil {
		t.Errorf("foreign key not introspected: %v", err)
	}
	if len(got.UniquesOn("email")) != 1 {
		t.Error("unique constraint not introspected")
	}
}

func TestPostgresJournalRestoresSchema(t *testing.T) {
	ctx := context.Background()
	info := testutil.SetupPostgresContainer(ctx, t)
	defer info.Terminate(ctx, t)

	setup := openClient(t, info.DSN)
	if err := setup.Executor().CreateTable(ctx, &alterkit.Table{
		TableName: schema.TableName{Name: "gadgets"},
		Columns: []*alterkit.Column{
			{Name: "id", Type: "integer", Generation: schema.GenerationIncrement, IsPrimary: true},
			{Name: "label", Type: "varchar", Length: "80", Nullable: true},
		},
	}); err != nil {
		t.Fatalf("Failed to create gadgets: %v", err)
	}

	before, err := openClient(t, info.DSN).Executor().Table(ctx, "public.gadgets")
	if err != nil {
		t.Fatalf("Failed to introspect before: %v", err)
	}

	// Mutate through a dedicated client so its journal covers exactly these
	// changes.
	mut := openClient(t, info.DSN)
	exec := mut.Executor()
	if err := exec.AddColumn(ctx, "public.gadgets", &alterkit.Column{
		Name: "weight", Type: "numeric", Nullable: true,
	}); err != nil {
		t.Fatalf("Failed to add column: %v", err)
	}
	if err := exec.RenameColumn(ctx, "public.gadgets", "label", "title"); err != nil {
		t.Fatalf("Failed to rename column: %v", err)
	}
	if err := exec.CreateIndex(ctx, "public.gadgets", &alterkit.Index{Columns: []string{"title"}}); err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}

	// Replay every down list in reverse journal order.
	changes := exec.Changes()
	for i := len(changes) - 1; i >= 0; i-- {
		for _, stmt := range changes[i].Down {
			if _, err := mut.Query(ctx, stmt); err != nil {
				t.Fatalf("Failed to replay %q: %v", stmt, err)
			}
		}
	}

	after, err := openClient(t, info.DSN).Executor().Table(ctx, "public.gadgets")
	if err != nil {
		t.Fatalf("Failed to introspect after: %v", err)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("schema not restored (-before +after):\n%s", diff)
	}
}
