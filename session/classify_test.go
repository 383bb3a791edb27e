package session

import "testing"

func TestReturnsRows(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT * FROM users", true},
		{"  select 1", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"SHOW TABLES", true},
		{"PRAGMA table_info(users)", true},
		{"EXPLAIN SELECT 1", true},
		{"DESCRIBE users", true},
		{"VALUES (1), (2)", true},
		{"TABLE users", true},
		{"INSERT INTO t (a) VALUES (1)", false},
		{"UPDATE t SET a = 1", false},
		{"DELETE FROM t", false},
		{"INSERT INTO t (a) VALUES (1) RETURNING id", true},
		{"UPDATE t SET a = 1 RETURNING *", true},
		{"CREATE TABLE t (id integer)", false},
		{"BEGIN", false},
		{"-- leading comment\nSELECT 1", true},
		{"/* block */ SELECT 1", true},
		{"-- only a comment", false},
		{"EXEC sp_rename 'a', 'b'", false},
	}
	for _, tt := range tests {
		if got := returnsRows(tt.sql); got != tt.want {
			t.Errorf("returnsRows(%q) = %v, want %v", tt.sql, got, tt.want)
		}
	}
}
