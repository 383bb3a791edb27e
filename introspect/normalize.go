package introspect

import (
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v6"
)

// canonicalTypes maps internal catalog type names to their canonical SQL
// spellings so the model compares cleanly against caller-supplied types.
var canonicalTypes = map[string]string{
	"int2":        "smallint",
	"int4":        "integer",
	"int8":        "bigint",
	"float4":      "real",
	"float8":      "double precision",
	"bool":        "boolean",
	"bpchar":      "character",
	"varchar":     "character varying",
	"timestamptz": "timestamp with time zone",
	"timetz":      "time with time zone",
}

func canonicalType(name string) string {
	if c, ok := canonicalTypes[strings.ToLower(name)]; ok {
		return c
	}
	return strings.ToLower(name)
}

// normalizeExpr canonicalizes a default or check expression through the
// postgres parser: parse as a bare SELECT, deparse, strip the prefix. The
// round trip collapses whitespace and cast-spelling differences so model
// diffing never sees a spurious change. Unparseable input passes through
// untouched.
func normalizeExpr(expr string) string {
	if expr == "" {
		return expr
	}
	tree, err := pgquery.Parse("SELECT " + expr)
	if err != nil {
		return expr
	}
	out, err := pgquery.Deparse(tree)
	if err != nil {
		return expr
	}
	return strings.TrimPrefix(out, "SELECT ")
}

// uuidDefaults are default expressions that mark a column as uuid-generated
// rather than carrying an ordinary default.
var uuidDefaults = map[string]bool{
	"gen_random_uuid()":  true,
	"uuid_generate_v4()": true,
	"uuid()":             true,
	"(uuid())":           true,
	"newsequentialid()":  true,
	"newid()":            true,
}

func isUUIDDefault(expr string) bool {
	return uuidDefaults[strings.ToLower(strings.TrimSpace(expr))]
}

// stripCheckClause unwraps "CHECK (expr)" to its bare expression.
func stripCheckClause(clause string) string {
	s := strings.TrimSpace(clause)
	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "CHECK") {
		s = strings.TrimSpace(s[len("CHECK"):])
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
