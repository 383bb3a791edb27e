package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/alterkit/alterkit/dialect"
	"github.com/alterkit/alterkit/schema"
)

// sqlserverIntrospector reads sys.* catalog views. The catalog queries scan
// the whole schema in one round trip each and filter to the requested
// tables client-side; sys views have no portable array placeholder syntax.
type sqlserverIntrospector struct {
	q     Querier
	d     *dialect.Dialect
	scope Scope

	collation string
}

func (in *sqlserverIntrospector) ListTableNames(ctx context.Context) ([]string, error) {
	res, err := in.q.Query(ctx,
		"SELECT t.name FROM sys.tables t JOIN sys.schemas s ON s.schema_id = t.schema_id WHERE s.name = @p1 ORDER BY t.name",
		in.scope.Schema)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, rec := range res.Records {
		names = append(names, recString(rec, "name"))
	}
	return names, nil
}

func (in *sqlserverIntrospector) ListViewNames(ctx context.Context) ([]string, error) {
	res, err := in.q.Query(ctx,
		"SELECT v.name FROM sys.views v JOIN sys.schemas s ON s.schema_id = v.schema_id WHERE s.name = @p1 ORDER BY v.name",
		in.scope.Schema)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, rec := range res.Records {
		names = append(names, recString(rec, "name"))
	}
	return names, nil
}

func (in *sqlserverIntrospector) DefaultCollation(ctx context.Context) (string, error) {
	if in.collation != "" {
		return in.collation, nil
	}
	res, err := in.q.Query(ctx, "SELECT CONVERT(nvarchar(128), DATABASEPROPERTYEX(DB_NAME(), 'Collation')) AS coll")
	if err != nil {
		return "", err
	}
	if len(res.Records) > 0 {
		in.collation = recString(res.Records[0], "coll")
	}
	return in.collation, nil
}

func (in *sqlserverIntrospector) LoadViews(ctx context.Context, names []string) ([]*schema.View, error) {
	if len(names) == 0 {
		return nil, nil
	}
	want := tableKey(names)
	res, err := in.q.Query(ctx, `
SELECT v.name, m.definition
FROM sys.views v
JOIN sys.schemas s ON s.schema_id = v.schema_id
JOIN sys.sql_modules m ON m.object_id = v.object_id
WHERE s.name = @p1`, in.scope.Schema)
	if err != nil {
		return nil, err
	}
	var views []*schema.View
	for _, rec := range res.Records {
		name := recString(rec, "name")
		if !want[name] {
			continue
		}
		def := recString(rec, "definition")
		// The module text carries the full CREATE VIEW statement; keep just
		// the select body.
		if i := strings.Index(strings.ToUpper(def), " AS "); i >= 0 {
			def = def[i+len(" AS "):]
		}
		views = append(views, &schema.View{
			TableName:  schema.TableName{Schema: in.scope.Schema, Name: name},
			Definition: strings.TrimSpace(def),
		})
	}
	return views, nil
}

func (in *sqlserverIntrospector) LoadTables(ctx context.Context, names []string) ([]*schema.Table, error) {
	if len(names) == 0 {
		return nil, nil
	}
	want := tableKey(names)
	tables := make(map[string]*schema.Table, len(want))
	for _, n := range bareNames(names) {
		tables[n] = &schema.Table{TableName: schema.TableName{Schema: in.scope.Schema, Name: n}}
	}

	if err := in.loadColumns(ctx, want, tables); err != nil {
		return nil, err
	}
	if err := in.loadKeys(ctx, want, tables); err != nil {
		return nil, err
	}
	if err := in.loadForeignKeys(ctx, want, tables); err != nil {
		return nil, err
	}
	if err := in.loadIndexes(ctx, want, tables); err != nil {
		return nil, err
	}
	if err := in.loadChecks(ctx, want, tables); err != nil {
		return nil, err
	}

	out := make([]*schema.Table, 0, len(tables))
	for _, n := range bareNames(names) {
		if t := tables[n]; t != nil && len(t.Columns) > 0 {
			out = append(out, t)
		}
	}
	return out, nil
}

func (in *sqlserverIntrospector) loadColumns(ctx context.Context, want map[string]bool, tables map[string]*schema.Table) error {
	res, err := in.q.Query(ctx, `
SELECT t.name AS table_name,
       c.name AS column_name,
       ty.name AS type_name,
       c.max_length,
       c.precision,
       c.scale,
       c.is_nullable,
       c.is_identity,
       c.collation_name,
       dc.definition AS default_definition,
       cc.definition AS computed_definition,
       cc.is_persisted
FROM sys.columns c
JOIN sys.tables t ON t.object_id = c.object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
JOIN sys.types ty ON ty.user_type_id = c.user_type_id
LEFT JOIN sys.default_constraints dc ON dc.object_id = c.default_object_id
LEFT JOIN sys.computed_columns cc ON cc.object_id = c.object_id AND cc.column_id = c.column_id
WHERE s.name = @p1
ORDER BY t.name, c.column_id`, in.scope.Schema)
	if err != nil {
		return err
	}
	defCollation, err := in.DefaultCollation(ctx)
	if err != nil {
		return err
	}

	for _, rec := range res.Records {
		tname := recString(rec, "table_name")
		if !want[tname] {
			continue
		}
		t := tables[tname]

		typeName := strings.ToLower(recString(rec, "type_name"))
		c := &schema.Column{
			Name:     recString(rec, "column_name"),
			Type:     typeName,
			Nullable: recBool(rec, "is_nullable"),
		}

		switch typeName {
		case "varchar", "char", "varbinary", "binary", "nvarchar", "nchar":
			if ln, ok := recInt(rec, "max_length"); ok {
				if ln == -1 {
					c.Length = "MAX"
				} else if ln > 0 {
					if strings.HasPrefix(typeName, "n") {
						ln /= 2 // max_length counts bytes, nchar types use two per character
					}
					c.Length = fmt.Sprintf("%d", ln)
				}
			}
		case "decimal", "numeric":
			if p, ok := recInt(rec, "precision"); ok && p > 0 {
				c.Precision = &p
				if s, ok := recInt(rec, "scale"); ok {
					c.Scale = &s
				}
			}
		case "geometry", "geography":
			c.SpatialType = typeName
		}

		if recBool(rec, "is_identity") {
			c.Generation = schema.GenerationIncrement
		}
		if def := recNullString(rec, "default_definition"); def != nil {
			expr := stripParens(*def)
			if isUUIDDefault(expr) {
				c.Generation = schema.GenerationUUID
			} else {
				c.Default = &expr
			}
		}
		if expr := recNullString(rec, "computed_definition"); expr != nil {
			c.GeneratedExpr = stripParens(*expr)
			c.Stored = recBool(rec, "is_persisted")
		}
		if coll := recString(rec, "collation_name"); coll != "" && coll != defCollation {
			c.Collation = coll
		}

		t.Columns = append(t.Columns, c)
	}
	return nil
}

func (in *sqlserverIntrospector) loadKeys(ctx context.Context, want map[string]bool, tables map[string]*schema.Table) error {
	res, err := in.q.Query(ctx, `
SELECT t.name AS table_name,
       kc.name AS constraint_name,
       kc.type AS kind,
       col.name AS column_name,
       ic.key_ordinal
FROM sys.key_constraints kc
JOIN sys.tables t ON t.object_id = kc.parent_object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
JOIN sys.index_columns ic ON ic.object_id = t.object_id AND ic.index_id = kc.unique_index_id
JOIN sys.columns col ON col.object_id = t.object_id AND col.column_id = ic.column_id
WHERE s.name = @p1
ORDER BY t.name, kc.name, ic.key_ordinal`, in.scope.Schema)
	if err != nil {
		return err
	}

	type key struct{ table, name string }
	grouped := map[key][]string{}
	kinds := map[key]string{}
	var order []key
	for _, rec := range res.Records {
		tname := recString(rec, "table_name")
		if !want[tname] {
			continue
		}
		k := key{tname, recString(rec, "constraint_name")}
		if _, seen := grouped[k]; !seen {
			order = append(order, k)
			kinds[k] = strings.TrimSpace(recString(rec, "kind"))
		}
		grouped[k] = append(grouped[k], recString(rec, "column_name"))
	}

	for _, k := range order {
		t := tables[k.table]
		cols := grouped[k]
		switch kinds[k] {
		case "PK":
			for _, name := range cols {
				if c, err := t.Column(name); err == nil {
					c.IsPrimary = true
				}
			}
		case "UQ":
			t.Uniques = append(t.Uniques, &schema.UniqueConstraint{Name: k.name, Columns: cols})
			if len(cols) == 1 {
				if c, err := t.Column(cols[0]); err == nil {
					c.IsUnique = true
				}
			}
		}
	}
	return nil
}

func (in *sqlserverIntrospector) loadForeignKeys(ctx context.Context, want map[string]bool, tables map[string]*schema.Table) error {
	res, err := in.q.Query(ctx, `
SELECT t.name AS table_name,
       fk.name AS constraint_name,
       pc.name AS column_name,
       rt.name AS ref_table,
       rc.name AS ref_column,
       fk.delete_referential_action_desc AS delete_rule,
       fk.update_referential_action_desc AS update_rule,
       fkc.constraint_column_id
FROM sys.foreign_keys fk
JOIN sys.tables t ON t.object_id = fk.parent_object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
JOIN sys.tables rt ON rt.object_id = fk.referenced_object_id
JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
WHERE s.name = @p1
ORDER BY t.name, fk.name, fkc.constraint_column_id`, in.scope.Schema)
	if err != nil {
		return err
	}

	type key struct{ table, name string }
	fks := map[key]*schema.ForeignKey{}
	var order []key
	for _, rec := range res.Records {
		tname := recString(rec, "table_name")
		if !want[tname] {
			continue
		}
		k := key{tname, recString(rec, "constraint_name")}
		fk, seen := fks[k]
		if !seen {
			fk = &schema.ForeignKey{
				Name:     k.name,
				RefTable: recString(rec, "ref_table"),
				OnDelete: nonDefaultRule(strings.ReplaceAll(recString(rec, "delete_rule"), "_", " ")),
				OnUpdate: nonDefaultRule(strings.ReplaceAll(recString(rec, "update_rule"), "_", " ")),
			}
			fks[k] = fk
			order = append(order, k)
		}
		fk.Columns = append(fk.Columns, recString(rec, "column_name"))
		fk.RefColumns = append(fk.RefColumns, recString(rec, "ref_column"))
	}
	for _, k := range order {
		tables[k.table].ForeignKeys = append(tables[k.table].ForeignKeys, fks[k])
	}
	return nil
}

func (in *sqlserverIntrospector) loadIndexes(ctx context.Context, want map[string]bool, tables map[string]*schema.Table) error {
	res, err := in.q.Query(ctx, `
SELECT t.name AS table_name,
       i.name AS index_name,
       i.is_unique,
       i.filter_definition,
       col.name AS column_name,
       ic.key_ordinal
FROM sys.indexes i
JOIN sys.tables t ON t.object_id = i.object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
JOIN sys.columns col ON col.object_id = t.object_id AND col.column_id = ic.column_id
WHERE s.name = @p1
  AND i.is_primary_key = 0
  AND i.is_unique_constraint = 0
  AND i.name IS NOT NULL
ORDER BY t.name, i.name, ic.key_ordinal`, in.scope.Schema)
	if err != nil {
		return err
	}

	type key struct{ table, name string }
	idx := map[key]*schema.Index{}
	var order []key
	for _, rec := range res.Records {
		tname := recString(rec, "table_name")
		if !want[tname] {
			continue
		}
		k := key{tname, recString(rec, "index_name")}
		ix, seen := idx[k]
		if !seen {
			ix = &schema.Index{
				Name:   k.name,
				Unique: recBool(rec, "is_unique"),
				Where:  stripParens(recString(rec, "filter_definition")),
			}
			idx[k] = ix
			order = append(order, k)
		}
		ix.Columns = append(ix.Columns, recString(rec, "column_name"))
	}
	for _, k := range order {
		t := tables[k.table]
		ix := idx[k]
		t.Indexes = append(t.Indexes, ix)
		if ix.Unique {
			t.Uniques = append(t.Uniques, &schema.UniqueConstraint{Name: ix.Name, Columns: ix.Columns})
		}
	}
	return nil
}

func (in *sqlserverIntrospector) loadChecks(ctx context.Context, want map[string]bool, tables map[string]*schema.Table) error {
	res, err := in.q.Query(ctx, `
SELECT t.name AS table_name, cc.name AS constraint_name, cc.definition
FROM sys.check_constraints cc
JOIN sys.tables t ON t.object_id = cc.parent_object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE s.name = @p1`, in.scope.Schema)
	if err != nil {
		return err
	}
	for _, rec := range res.Records {
		tname := recString(rec, "table_name")
		if !want[tname] {
			continue
		}
		tables[tname].Checks = append(tables[tname].Checks, &schema.CheckConstraint{
			Name:       recString(rec, "constraint_name"),
			Expression: stripParens(recString(rec, "definition")),
		})
	}
	return nil
}

// stripParens peels one redundant layer of wrapping parentheses, the form
// sys catalog definitions arrive in.
func stripParens(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") && balanced(s[1:len(s)-1]) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
