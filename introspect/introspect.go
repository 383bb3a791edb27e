// Package introspect reads live catalog metadata into the canonical schema
// model. Each dialect batches its catalog reads into a small fixed number
// of round trips covering all requested objects at once.
package introspect

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alterkit/alterkit/dialect"
	"github.com/alterkit/alterkit/schema"
	"github.com/alterkit/alterkit/session"
)

// Querier is the session surface introspection needs.
type Querier interface {
	Query(ctx context.Context, sql string, params ...any) (*session.Result, error)
}

// Introspector loads tables and views for one dialect.
type Introspector interface {
	LoadTables(ctx context.Context, names []string) ([]*schema.Table, error)
	LoadViews(ctx context.Context, names []string) ([]*schema.View, error)
	ListTableNames(ctx context.Context) ([]string, error)
	ListViewNames(ctx context.Context) ([]string, error)

	// DefaultCollation reports the database's default collation, used to
	// suppress spurious per-column collation attributes.
	DefaultCollation(ctx context.Context) (string, error)
}

// Scope narrows introspection to one database/schema. Zero values fall back
// to the connection's current database and the dialect's default schema.
type Scope struct {
	Database string
	Schema   string
}

// New returns the introspector for the given dialect.
func New(q Querier, d *dialect.Dialect, scope Scope) (Introspector, error) {
	switch d.Name {
	case "postgres":
		if scope.Schema == "" {
			scope.Schema = "public"
		}
		return &postgresIntrospector{q: q, d: d, scope: scope}, nil
	case "mysql", "mariadb":
		return &mysqlIntrospector{q: q, d: d, scope: scope}, nil
	case "sqlserver":
		if scope.Schema == "" {
			scope.Schema = "dbo"
		}
		return &sqlserverIntrospector{q: q, d: d, scope: scope}, nil
	case "sqlite":
		return &sqliteIntrospector{q: q, d: d}, nil
	default:
		return nil, fmt.Errorf("no introspector for dialect %q", d.Name)
	}
}

// record accessors tolerate the shape differences between drivers: numbers
// may arrive as int64, strings, or byte slices.

func recString(rec map[string]any, key string) string {
	switch v := rec[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func recNullString(rec map[string]any, key string) *string {
	if rec[key] == nil {
		return nil
	}
	s := recString(rec, key)
	return &s
}

func recInt(rec map[string]any, key string) (int, bool) {
	switch v := rec[key].(type) {
	case nil:
		return 0, false
	case int64:
		return int(v), true
	case int:
		return v, true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	case []byte:
		n, err := strconv.Atoi(string(v))
		return n, err == nil
	default:
		return 0, false
	}
}

func recBool(rec map[string]any, key string) bool {
	switch v := rec[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case string:
		return v == "YES" || v == "yes" || v == "1" || v == "t" || v == "true"
	case []byte:
		s := string(v)
		return s == "YES" || s == "yes" || s == "1" || s == "t" || s == "true"
	default:
		return false
	}
}

func tableKey(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[schema.ParseTableName(n).Name] = true
	}
	return set
}

func bareNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = schema.ParseTableName(n).Name
	}
	return out
}
