package session

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"github.com/alterkit/alterkit/dialect"
)

// openSQLite backs a session with an in-process database so the real row
// scanning and cursor paths get exercised without a server.
func openSQLite(t *testing.T) *Session {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	d, err := dialect.Get("sqlite")
	if err != nil {
		t.Fatal(err)
	}
	s := New(NewPool(db), d, nil)
	t.Cleanup(func() { _ = s.Release() })
	return s
}

func TestQueryAgainstLiveDatabase(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	if _, err := s.Query(ctx, "CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatal(err)
	}
	res, err := s.Query(ctx, "INSERT INTO people (name) VALUES (?), (?)", "ada", "grace")
	if err != nil {
		t.Fatal(err)
	}
	if res.Affected == nil || *res.Affected != 2 {
		t.Errorf("Affected = %v, want 2", res.Affected)
	}

	res, err = s.Query(ctx, "SELECT id, name FROM people ORDER BY id")
	if err != nil {
		t.Fatal(err)
	}
	want := []map[string]any{
		{"id": int64(1), "name": "ada"},
		{"id": int64(2), "name": "grace"},
	}
	if diff := cmp.Diff(want, res.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if res.Affected != nil {
		t.Error("row-returning result must not carry Affected")
	}
}

func TestStreamCursor(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	if _, err := s.Query(ctx, "CREATE TABLE nums (n INTEGER)"); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if _, err := s.Query(ctx, "INSERT INTO nums (n) VALUES (?)", i); err != nil {
			t.Fatal(err)
		}
	}

	cur, err := s.Stream(ctx, "SELECT n FROM nums ORDER BY n")
	if err != nil {
		t.Fatal(err)
	}
	closed := false
	cur.OnClose = func(error) { closed = true }

	var got []int64
	for cur.Next() {
		rec, err := cur.Record()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, rec["n"].(int64))
	}
	if cur.Err() != nil {
		t.Fatalf("cursor error: %v", cur.Err())
	}
	if diff := cmp.Diff([]int64{1, 2, 3}, got); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}
	if !closed {
		t.Error("cursor must auto-close on exhaustion")
	}

	// A further query must be admitted: the cursor's slot was freed.
	if _, err := s.Query(ctx, "SELECT count(*) AS c FROM nums"); err != nil {
		t.Fatalf("query after stream: %v", err)
	}
}

func TestReleaseClosesOpenCursors(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	if _, err := s.Query(ctx, "CREATE TABLE nums (n INTEGER)"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Query(ctx, "INSERT INTO nums (n) VALUES (1)"); err != nil {
		t.Fatal(err)
	}
	cur, err := s.Stream(ctx, "SELECT n FROM nums")
	if err != nil {
		t.Fatal(err)
	}

	var got error
	cur.OnClose = func(e error) { got = e }
	if err := s.Release(); err != nil {
		t.Fatal(err)
	}
	if got != ErrReleased {
		t.Errorf("OnClose cause = %v, want ErrReleased", got)
	}
	if cur.Next() {
		t.Error("closed cursor must not advance")
	}
}
