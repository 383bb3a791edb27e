package introspect

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/alterkit/alterkit/dialect"
	"github.com/alterkit/alterkit/schema"
)

type postgresIntrospector struct {
	q     Querier
	d     *dialect.Dialect
	scope Scope

	collation string
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (in *postgresIntrospector) ListTableNames(ctx context.Context) ([]string, error) {
	return in.listRelations(ctx, "BASE TABLE")
}

func (in *postgresIntrospector) ListViewNames(ctx context.Context) ([]string, error) {
	return in.listRelations(ctx, "VIEW")
}

func (in *postgresIntrospector) listRelations(ctx context.Context, kind string) ([]string, error) {
	query, args, err := psql.
		Select("table_name").
		From("information_schema.tables").
		Where(sq.Eq{"table_schema": in.scope.Schema, "table_type": kind}).
		OrderBy("table_name").
		ToSql()
	if err != nil {
		return nil, err
	}
	res, err := in.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, rec := range res.Records {
		names = append(names, recString(rec, "table_name"))
	}
	return names, nil
}

func (in *postgresIntrospector) DefaultCollation(ctx context.Context) (string, error) {
	if in.collation != "" {
		return in.collation, nil
	}
	res, err := in.q.Query(ctx, "SELECT datcollate FROM pg_database WHERE datname = current_database()")
	if err != nil {
		return "", err
	}
	if len(res.Records) > 0 {
		in.collation = recString(res.Records[0], "datcollate")
	}
	return in.collation, nil
}

// LoadViews batch-loads view definitions.
func (in *postgresIntrospector) LoadViews(ctx context.Context, names []string) ([]*schema.View, error) {
	if len(names) == 0 {
		return nil, nil
	}
	query, args, err := psql.
		Select("viewname", "definition").
		From("pg_catalog.pg_views").
		Where(sq.Eq{"schemaname": in.scope.Schema, "viewname": bareNames(names)}).
		ToSql()
	if err != nil {
		return nil, err
	}
	res, err := in.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var views []*schema.View
	for _, rec := range res.Records {
		views = append(views, &schema.View{
			TableName:  schema.TableName{Schema: in.scope.Schema, Name: recString(rec, "viewname")},
			Definition: strings.TrimSuffix(strings.TrimSpace(recString(rec, "definition")), ";"),
		})
	}
	return views, nil
}

// LoadTables builds the canonical model for all requested tables using a
// fixed set of batched catalog queries: columns, key constraints, foreign
// keys, indexes, enum labels, exclusion constraints and (when PostGIS is
// installed) geometry metadata.
func (in *postgresIntrospector) LoadTables(ctx context.Context, names []string) ([]*schema.Table, error) {
	if len(names) == 0 {
		return nil, nil
	}
	bare := bareNames(names)

	defCollation, err := in.DefaultCollation(ctx)
	if err != nil {
		return nil, err
	}
	enums, err := in.loadEnumLabels(ctx)
	if err != nil {
		return nil, err
	}

	tables := make(map[string]*schema.Table, len(bare))

	if err := in.loadColumns(ctx, bare, tables, enums, defCollation); err != nil {
		return nil, err
	}
	if err := in.loadKeyConstraints(ctx, bare, tables); err != nil {
		return nil, err
	}
	if err := in.loadForeignKeys(ctx, bare, tables); err != nil {
		return nil, err
	}
	if err := in.loadIndexes(ctx, bare, tables); err != nil {
		return nil, err
	}
	if err := in.loadExclusions(ctx, bare, tables); err != nil {
		return nil, err
	}
	in.loadGeometry(ctx, tables) // tolerant: PostGIS may be absent

	out := make([]*schema.Table, 0, len(tables))
	for _, n := range bare {
		if t, ok := tables[n]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// loadEnumLabels maps every enum type in scope to its ordered labels.
func (in *postgresIntrospector) loadEnumLabels(ctx context.Context) (map[string][]string, error) {
	const q = `
SELECT t.typname AS name,
       array_agg(e.enumlabel ORDER BY e.enumsortorder) AS labels
FROM pg_catalog.pg_type t
JOIN pg_catalog.pg_enum e ON e.enumtypid = t.oid
JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
WHERE n.nspname = $1
GROUP BY t.typname`

	res, err := in.q.Query(ctx, q, in.scope.Schema)
	if err != nil {
		return nil, err
	}
	enums := make(map[string][]string, len(res.Records))
	for _, rec := range res.Records {
		enums[recString(rec, "name")] = scanStringArray(rec["labels"])
	}
	return enums, nil
}

func (in *postgresIntrospector) loadColumns(ctx context.Context, names []string, tables map[string]*schema.Table, enums map[string][]string, defCollation string) error {
	query, args, err := psql.
		Select("table_name", "column_name", "data_type", "udt_name",
			"character_maximum_length", "numeric_precision", "numeric_scale",
			"is_nullable", "column_default", "is_identity",
			"is_generated", "generation_expression", "collation_name").
		From("information_schema.columns").
		Where(sq.Eq{"table_schema": in.scope.Schema, "table_name": names}).
		OrderBy("table_name", "ordinal_position").
		ToSql()
	if err != nil {
		return err
	}
	res, err := in.q.Query(ctx, query, args...)
	if err != nil {
		return err
	}

	for _, rec := range res.Records {
		tname := recString(rec, "table_name")
		t, ok := tables[tname]
		if !ok {
			t = &schema.Table{TableName: schema.TableName{Schema: in.scope.Schema, Name: tname}}
			tables[tname] = t
		}

		c := &schema.Column{
			Name:     recString(rec, "column_name"),
			Nullable: recBool(rec, "is_nullable"),
		}

		dataType := recString(rec, "data_type")
		udt := recString(rec, "udt_name")
		switch {
		case dataType == "USER-DEFINED" && enums[udt] != nil:
			c.Enum = append([]string(nil), enums[udt]...)
			c.EnumName = udt
		case dataType == "ARRAY":
			c.Type = canonicalType(strings.TrimPrefix(udt, "_")) + "[]"
		default:
			c.Type = canonicalType(udt)
		}

		if ln, ok := recInt(rec, "character_maximum_length"); ok && ln > 0 &&
			(c.Type == "character varying" || c.Type == "character") {
			c.Length = fmt.Sprintf("%d", ln)
		}
		// Precision is catalog-reported for every numeric column; only an
		// explicit typmod on numeric/decimal is a real attribute.
		if c.Type == "numeric" || c.Type == "decimal" {
			if p, ok := recInt(rec, "numeric_precision"); ok && p > 0 {
				c.Precision = &p
				if s, ok := recInt(rec, "numeric_scale"); ok {
					c.Scale = &s
				}
			}
		}

		if recBool(rec, "is_identity") {
			c.Generation = schema.GenerationIncrement
		}
		if def := recNullString(rec, "column_default"); def != nil {
			switch {
			case strings.HasPrefix(*def, "nextval("):
				c.Generation = schema.GenerationIncrement
			case isUUIDDefault(*def):
				c.Generation = schema.GenerationUUID
			default:
				norm := normalizeExpr(*def)
				c.Default = &norm
			}
		}

		if recString(rec, "is_generated") == "ALWAYS" {
			c.GeneratedExpr = normalizeExpr(recString(rec, "generation_expression"))
			c.Stored = true
		}

		if coll := recString(rec, "collation_name"); coll != "" && coll != defCollation {
			c.Collation = coll
		}

		t.Columns = append(t.Columns, c)
	}
	return nil
}

func (in *postgresIntrospector) loadKeyConstraints(ctx context.Context, names []string, tables map[string]*schema.Table) error {
	query, args, err := psql.
		Select("tc.table_name", "tc.constraint_name", "tc.constraint_type",
			"array_agg(kcu.column_name ORDER BY kcu.ordinal_position) AS columns").
		From("information_schema.table_constraints tc").
		Join("information_schema.key_column_usage kcu ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema").
		Where(sq.Eq{"tc.table_schema": in.scope.Schema, "tc.table_name": names}).
		Where(sq.Eq{"tc.constraint_type": []string{"PRIMARY KEY", "UNIQUE"}}).
		GroupBy("tc.table_name", "tc.constraint_name", "tc.constraint_type").
		ToSql()
	if err != nil {
		return err
	}
	res, err := in.q.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	for _, rec := range res.Records {
		t, ok := tables[recString(rec, "table_name")]
		if !ok {
			continue
		}
		cols := scanStringArray(rec["columns"])
		switch recString(rec, "constraint_type") {
		case "PRIMARY KEY":
			for _, name := range cols {
				if c, err := t.Column(name); err == nil {
					c.IsPrimary = true
				}
			}
		case "UNIQUE":
			uq := &schema.UniqueConstraint{Name: recString(rec, "constraint_name"), Columns: cols}
			t.Uniques = append(t.Uniques, uq)
			if len(cols) == 1 {
				if c, err := t.Column(cols[0]); err == nil {
					c.IsUnique = true
				}
			}
		}
	}

	// Check constraints ride a second catalog view; filter the implicit
	// not-null checks the catalog materializes alongside real ones.
	query, args, err = psql.
		Select("tc.table_name", "tc.constraint_name", "cc.check_clause").
		From("information_schema.table_constraints tc").
		Join("information_schema.check_constraints cc ON cc.constraint_name = tc.constraint_name AND cc.constraint_schema = tc.table_schema").
		Where(sq.Eq{"tc.table_schema": in.scope.Schema, "tc.table_name": names, "tc.constraint_type": "CHECK"}).
		ToSql()
	if err != nil {
		return err
	}
	res, err = in.q.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	for _, rec := range res.Records {
		t, ok := tables[recString(rec, "table_name")]
		if !ok {
			continue
		}
		clause := recString(rec, "check_clause")
		if strings.HasSuffix(strings.ToUpper(clause), "IS NOT NULL") {
			continue
		}
		t.Checks = append(t.Checks, &schema.CheckConstraint{
			Name:       recString(rec, "constraint_name"),
			Expression: normalizeExpr(stripCheckClause(clause)),
		})
	}
	return nil
}

func (in *postgresIntrospector) loadForeignKeys(ctx context.Context, names []string, tables map[string]*schema.Table) error {
	query, args, err := psql.
		Select("tc.table_name", "tc.constraint_name",
			"array_agg(kcu.column_name ORDER BY kcu.ordinal_position) AS columns",
			"min(ccu.table_name) AS ref_table",
			"array_agg(ccu.column_name ORDER BY kcu.ordinal_position) AS ref_columns",
			"min(rc.delete_rule) AS delete_rule",
			"min(rc.update_rule) AS update_rule",
			"min(tc.is_deferrable) AS is_deferrable",
			"min(tc.initially_deferred) AS initially_deferred").
		From("information_schema.table_constraints tc").
		Join("information_schema.key_column_usage kcu ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema").
		Join("information_schema.referential_constraints rc ON rc.constraint_name = tc.constraint_name AND rc.constraint_schema = tc.table_schema").
		Join("information_schema.constraint_column_usage ccu ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema").
		Where(sq.Eq{"tc.table_schema": in.scope.Schema, "tc.table_name": names, "tc.constraint_type": "FOREIGN KEY"}).
		GroupBy("tc.table_name", "tc.constraint_name").
		ToSql()
	if err != nil {
		return err
	}
	res, err := in.q.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	for _, rec := range res.Records {
		t, ok := tables[recString(rec, "table_name")]
		if !ok {
			continue
		}
		t.ForeignKeys = append(t.ForeignKeys, &schema.ForeignKey{
			Name:              recString(rec, "constraint_name"),
			Columns:           scanStringArray(rec["columns"]),
			RefTable:          recString(rec, "ref_table"),
			RefColumns:        scanStringArray(rec["ref_columns"]),
			OnDelete:          nonDefaultRule(recString(rec, "delete_rule")),
			OnUpdate:          nonDefaultRule(recString(rec, "update_rule")),
			Deferrable:        recBool(rec, "is_deferrable"),
			InitiallyDeferred: recBool(rec, "initially_deferred"),
		})
	}
	return nil
}

// loadIndexes reads secondary indexes from pg_catalog, grouped per index,
// excluding those that back a constraint (the constraints are modeled
// separately).
func (in *postgresIntrospector) loadIndexes(ctx context.Context, names []string, tables map[string]*schema.Table) error {
	const q = `
SELECT t.relname AS table_name,
       i.relname AS index_name,
       ix.indisunique AS is_unique,
       am.amname AS method,
       pg_get_expr(ix.indpred, ix.indrelid) AS predicate,
       array_agg(a.attname ORDER BY k.ord) AS columns
FROM pg_catalog.pg_index ix
JOIN pg_catalog.pg_class t ON t.oid = ix.indrelid
JOIN pg_catalog.pg_class i ON i.oid = ix.indexrelid
JOIN pg_catalog.pg_am am ON am.oid = i.relam
JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
JOIN pg_catalog.pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
WHERE n.nspname = $1
  AND t.relname = ANY($2)
  AND NOT ix.indisprimary
  AND NOT EXISTS (
        SELECT 1 FROM pg_catalog.pg_constraint con
        WHERE con.conindid = ix.indexrelid)
GROUP BY t.relname, i.relname, ix.indisunique, am.amname, ix.indpred, ix.indrelid
ORDER BY t.relname, i.relname`

	res, err := in.q.Query(ctx, q, in.scope.Schema, pq.Array(names))
	if err != nil {
		return err
	}
	for _, rec := range res.Records {
		t, ok := tables[recString(rec, "table_name")]
		if !ok {
			continue
		}
		ix := &schema.Index{
			Name:    recString(rec, "index_name"),
			Columns: scanStringArray(rec["columns"]),
			Unique:  recBool(rec, "is_unique"),
		}
		if recString(rec, "method") == "gist" {
			ix.Spatial = true
		}
		if pred := recString(rec, "predicate"); pred != "" {
			ix.Where = normalizeExpr(pred)
		}
		t.Indexes = append(t.Indexes, ix)
		if ix.Unique {
			// A plain unique index still represents a logical unique
			// constraint to the planner.
			t.Uniques = append(t.Uniques, &schema.UniqueConstraint{Name: ix.Name, Columns: ix.Columns})
		}
	}
	return nil
}

func (in *postgresIntrospector) loadExclusions(ctx context.Context, names []string, tables map[string]*schema.Table) error {
	const q = `
SELECT rel.relname AS table_name,
       con.conname AS constraint_name,
       pg_get_constraintdef(con.oid) AS definition
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class rel ON rel.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = rel.relnamespace
WHERE con.contype = 'x' AND n.nspname = $1 AND rel.relname = ANY($2)`

	res, err := in.q.Query(ctx, q, in.scope.Schema, pq.Array(names))
	if err != nil {
		return err
	}
	for _, rec := range res.Records {
		t, ok := tables[recString(rec, "table_name")]
		if !ok {
			continue
		}
		def := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(recString(rec, "definition")), "EXCLUDE"))
		t.Exclusions = append(t.Exclusions, &schema.ExclusionConstraint{
			Name:       recString(rec, "constraint_name"),
			Expression: def,
		})
	}
	return nil
}

// loadGeometry enriches geometry columns with feature type and SRID from
// the PostGIS registry. Errors are swallowed: the extension is optional.
func (in *postgresIntrospector) loadGeometry(ctx context.Context, tables map[string]*schema.Table) {
	res, err := in.q.Query(ctx,
		"SELECT f_table_name, f_geometry_column, type, srid FROM geometry_columns WHERE f_table_schema = $1",
		in.scope.Schema)
	if err != nil {
		return
	}
	for _, rec := range res.Records {
		t, ok := tables[recString(rec, "f_table_name")]
		if !ok {
			continue
		}
		c, cerr := t.Column(recString(rec, "f_geometry_column"))
		if cerr != nil {
			continue
		}
		c.SpatialType = recString(rec, "type")
		if srid, ok := recInt(rec, "srid"); ok && srid != 0 {
			c.SRID = &srid
		}
		c.Type = "geometry"
	}
}

// scanStringArray decodes a postgres text[] literal through lib/pq's array
// scanner; other drivers hand back plain comma-joined text.
func scanStringArray(v any) []string {
	var arr pq.StringArray
	if err := arr.Scan(v); err == nil {
		return []string(arr)
	}
	s := strings.Trim(fmt.Sprintf("%v", v), "{}")
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// nonDefaultRule drops NO ACTION, the implicit referential action, so the
// model only carries explicit ones.
func nonDefaultRule(rule string) string {
	if strings.EqualFold(rule, "NO ACTION") {
		return ""
	}
	return rule
}
