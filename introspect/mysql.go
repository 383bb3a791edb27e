package introspect

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/alterkit/alterkit/dialect"
	"github.com/alterkit/alterkit/schema"
)

type mysqlIntrospector struct {
	q     Querier
	d     *dialect.Dialect
	scope Scope

	collation string
}

func (in *mysqlIntrospector) database(ctx context.Context) (string, error) {
	if in.scope.Database != "" {
		return in.scope.Database, nil
	}
	res, err := in.q.Query(ctx, "SELECT DATABASE() AS db")
	if err != nil {
		return "", err
	}
	if len(res.Records) == 0 {
		return "", fmt.Errorf("no current database")
	}
	in.scope.Database = recString(res.Records[0], "db")
	return in.scope.Database, nil
}

func (in *mysqlIntrospector) ListTableNames(ctx context.Context) ([]string, error) {
	return in.listRelations(ctx, "BASE TABLE")
}

func (in *mysqlIntrospector) ListViewNames(ctx context.Context) ([]string, error) {
	return in.listRelations(ctx, "VIEW")
}

func (in *mysqlIntrospector) listRelations(ctx context.Context, kind string) ([]string, error) {
	db, err := in.database(ctx)
	if err != nil {
		return nil, err
	}
	query, args, err := sq.
		Select("table_name").
		From("information_schema.tables").
		Where(sq.Eq{"table_schema": db, "table_type": kind}).
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

func (in *mysqlIntrospector) DefaultCollation(ctx context.Context) (string, error) {
	if in.collation != "" {
		return in.collation, nil
	}
	db, err := in.database(ctx)
	if err != nil {
		return "", err
	}
	res, err := in.q.Query(ctx,
		"SELECT default_collation_name AS coll FROM information_schema.schemata WHERE schema_name = ?", db)
	if err != nil {
		return "", err
	}
	if len(res.Records) > 0 {
		in.collation = recString(res.Records[0], "coll")
	}
	return in.collation, nil
}

func (in *mysqlIntrospector) LoadViews(ctx context.Context, names []string) ([]*schema.View, error) {
	if len(names) == 0 {
		return nil, nil
	}
	db, err := in.database(ctx)
	if err != nil {
		return nil, err
	}
	query, args, err := sq.
		Select("table_name", "view_definition").
		From("information_schema.views").
		Where(sq.Eq{"table_schema": db, "table_name": bareNames(names)}).
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
			TableName:  schema.TableName{Database: db, Name: recString(rec, "table_name")},
			Definition: strings.TrimSpace(recString(rec, "view_definition")),
		})
	}
	return views, nil
}

func (in *mysqlIntrospector) LoadTables(ctx context.Context, names []string) ([]*schema.Table, error) {
	if len(names) == 0 {
		return nil, nil
	}
	db, err := in.database(ctx)
	if err != nil {
		return nil, err
	}
	bare := bareNames(names)

	defCollation, err := in.DefaultCollation(ctx)
	if err != nil {
		return nil, err
	}

	tables := make(map[string]*schema.Table, len(bare))
	if err := in.loadEngines(ctx, db, bare, tables); err != nil {
		return nil, err
	}
	if err := in.loadColumns(ctx, db, bare, tables, defCollation); err != nil {
		return nil, err
	}
	if err := in.loadIndexes(ctx, db, bare, tables); err != nil {
		return nil, err
	}
	if err := in.loadForeignKeys(ctx, db, bare, tables); err != nil {
		return nil, err
	}
	if err := in.loadChecks(ctx, db, bare, tables); err != nil {
		return nil, err
	}

	out := make([]*schema.Table, 0, len(tables))
	for _, n := range bare {
		if t, ok := tables[n]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (in *mysqlIntrospector) loadEngines(ctx context.Context, db string, names []string, tables map[string]*schema.Table) error {
	query, args, err := sq.
		Select("table_name", "engine", "table_comment").
		From("information_schema.tables").
		Where(sq.Eq{"table_schema": db, "table_name": names}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := in.q.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	for _, rec := range res.Records {
		name := recString(rec, "table_name")
		t := &schema.Table{TableName: schema.TableName{Database: db, Name: name}}
		if eng := recString(rec, "engine"); eng != "" && !strings.EqualFold(eng, "InnoDB") {
			t.Engine = eng
		}
		t.Comment = recString(rec, "table_comment")
		tables[name] = t
	}
	return nil
}

func (in *mysqlIntrospector) loadColumns(ctx context.Context, db string, names []string, tables map[string]*schema.Table, defCollation string) error {
	query, args, err := sq.
		Select("table_name", "column_name", "data_type", "column_type",
			"character_maximum_length", "numeric_precision", "numeric_scale",
			"is_nullable", "column_default", "extra", "column_key",
			"generation_expression", "collation_name", "character_set_name",
			"column_comment", "srs_id").
		From("information_schema.columns").
		Where(sq.Eq{"table_schema": db, "table_name": names}).
		OrderBy("table_name", "ordinal_position").
		ToSql()
	if err != nil {
		return err
	}
	res, err := in.q.Query(ctx, query, args...)
	if err != nil {
		// srs_id is 8.0-only; retry without it for mariadb and 5.7.
		res, err = in.q.Query(ctx, strings.Replace(query, ", srs_id", "", 1), args...)
		if err != nil {
			return err
		}
	}

	for _, rec := range res.Records {
		t, ok := tables[recString(rec, "table_name")]
		if !ok {
			continue
		}

		dataType := strings.ToLower(recString(rec, "data_type"))
		columnType := recString(rec, "column_type")
		extra := strings.ToLower(recString(rec, "extra"))

		c := &schema.Column{
			Name:     recString(rec, "column_name"),
			Type:     dataType,
			Nullable: recBool(rec, "is_nullable"),
			Comment:  recString(rec, "column_comment"),
		}

		switch dataType {
		case "enum", "set":
			c.Enum = parseInlineEnum(columnType)
		case "varchar", "char", "binary", "varbinary":
			if ln, ok := recInt(rec, "character_maximum_length"); ok && ln > 0 {
				c.Length = fmt.Sprintf("%d", ln)
			}
		case "decimal", "numeric":
			if p, ok := recInt(rec, "numeric_precision"); ok && p > 0 {
				c.Precision = &p
				if s, ok := recInt(rec, "numeric_scale"); ok {
					c.Scale = &s
				}
			}
		case "geometry", "point", "linestring", "polygon", "multipoint",
			"multilinestring", "multipolygon", "geometrycollection":
			c.SpatialType = dataType
			c.Type = "geometry"
			if srid, ok := recInt(rec, "srs_id"); ok && srid != 0 {
				c.SRID = &srid
			}
		}

		if strings.Contains(extra, "auto_increment") {
			c.Generation = schema.GenerationIncrement
		}
		if def := recNullString(rec, "column_default"); def != nil && *def != "NULL" {
			if isUUIDDefault(*def) {
				c.Generation = schema.GenerationUUID
			} else {
				d := *def
				c.Default = &d
			}
		}
		if expr := recString(rec, "generation_expression"); expr != "" {
			c.GeneratedExpr = expr
			c.Stored = strings.Contains(extra, "stored")
		}

		if coll := recString(rec, "collation_name"); coll != "" && coll != defCollation {
			c.Collation = coll
			c.Charset = recString(rec, "character_set_name")
		}
		if recString(rec, "column_key") == "PRI" {
			c.IsPrimary = true
		}

		t.Columns = append(t.Columns, c)
	}
	return nil
}

// loadIndexes reads information_schema.statistics; PRIMARY rows are skipped
// since primary membership already came from the column listing.
func (in *mysqlIntrospector) loadIndexes(ctx context.Context, db string, names []string, tables map[string]*schema.Table) error {
	query, args, err := sq.
		Select("table_name", "index_name", "non_unique", "index_type",
			"GROUP_CONCAT(column_name ORDER BY seq_in_index) AS columns").
		From("information_schema.statistics").
		Where(sq.Eq{"table_schema": db, "table_name": names}).
		Where(sq.NotEq{"index_name": "PRIMARY"}).
		GroupBy("table_name", "index_name", "non_unique", "index_type").
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
		nonUnique, _ := recInt(rec, "non_unique")
		kind := strings.ToUpper(recString(rec, "index_type"))
		ix := &schema.Index{
			Name:     recString(rec, "index_name"),
			Columns:  strings.Split(recString(rec, "columns"), ","),
			Unique:   nonUnique == 0,
			Spatial:  kind == "SPATIAL",
			Fulltext: kind == "FULLTEXT",
		}
		t.Indexes = append(t.Indexes, ix)
		if ix.Unique {
			t.Uniques = append(t.Uniques, &schema.UniqueConstraint{Name: ix.Name, Columns: ix.Columns})
			if len(ix.Columns) == 1 {
				if c, err := t.Column(ix.Columns[0]); err == nil {
					c.IsUnique = true
				}
			}
		}
	}
	return nil
}

func (in *mysqlIntrospector) loadForeignKeys(ctx context.Context, db string, names []string, tables map[string]*schema.Table) error {
	query, args, err := sq.
		Select("kcu.table_name", "kcu.constraint_name",
			"GROUP_CONCAT(kcu.column_name ORDER BY kcu.ordinal_position) AS columns",
			"kcu.referenced_table_name AS ref_table",
			"GROUP_CONCAT(kcu.referenced_column_name ORDER BY kcu.ordinal_position) AS ref_columns",
			"rc.delete_rule", "rc.update_rule").
		From("information_schema.key_column_usage kcu").
		Join("information_schema.referential_constraints rc ON rc.constraint_name = kcu.constraint_name AND rc.constraint_schema = kcu.table_schema").
		Where(sq.Eq{"kcu.table_schema": db, "kcu.table_name": names}).
		Where("kcu.referenced_table_name IS NOT NULL").
		GroupBy("kcu.table_name", "kcu.constraint_name", "kcu.referenced_table_name", "rc.delete_rule", "rc.update_rule").
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
			Name:       recString(rec, "constraint_name"),
			Columns:    strings.Split(recString(rec, "columns"), ","),
			RefTable:   recString(rec, "ref_table"),
			RefColumns: strings.Split(recString(rec, "ref_columns"), ","),
			OnDelete:   nonDefaultRule(recString(rec, "delete_rule")),
			OnUpdate:   nonDefaultRule(recString(rec, "update_rule")),
		})
	}
	return nil
}

// loadChecks reads check constraints on servers that have the view; older
// MySQL lacks it entirely, which reads as no checks.
func (in *mysqlIntrospector) loadChecks(ctx context.Context, db string, names []string, tables map[string]*schema.Table) error {
	query, args, err := sq.
		Select("tc.table_name", "tc.constraint_name", "cc.check_clause").
		From("information_schema.table_constraints tc").
		Join("information_schema.check_constraints cc ON cc.constraint_name = tc.constraint_name AND cc.constraint_schema = tc.table_schema").
		Where(sq.Eq{"tc.table_schema": db, "tc.table_name": names, "tc.constraint_type": "CHECK"}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := in.q.Query(ctx, query, args...)
	if err != nil {
		return nil
	}
	for _, rec := range res.Records {
		t, ok := tables[recString(rec, "table_name")]
		if !ok {
			continue
		}
		t.Checks = append(t.Checks, &schema.CheckConstraint{
			Name:       recString(rec, "constraint_name"),
			Expression: stripCheckClause(recString(rec, "check_clause")),
		})
	}
	return nil
}

// parseInlineEnum pulls the labels out of a column_type like
// enum('a','b','c'), unescaping doubled quotes.
func parseInlineEnum(columnType string) []string {
	open := strings.Index(columnType, "(")
	end := strings.LastIndex(columnType, ")")
	if open < 0 || end <= open {
		return nil
	}
	body := columnType[open+1 : end]
	var labels []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case ch == '\'' && !inQuote:
			inQuote = true
		case ch == '\'' && inQuote:
			if i+1 < len(body) && body[i+1] == '\'' {
				cur.WriteByte('\'')
				i++
				continue
			}
			inQuote = false
			labels = append(labels, cur.String())
			cur.Reset()
		case inQuote:
			cur.WriteByte(ch)
		}
	}
	return labels
}
