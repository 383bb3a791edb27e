package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/alterkit/alterkit/dialect"
	"github.com/alterkit/alterkit/schema"
)

// sqliteIntrospector walks sqlite_master plus the per-table PRAGMAs. The
// PRAGMAs only answer for one table at a time, so loading is per table by
// necessity; each table still takes a fixed number of statements.
type sqliteIntrospector struct {
	q Querier
	d *dialect.Dialect
}

func (in *sqliteIntrospector) ListTableNames(ctx context.Context) ([]string, error) {
	return in.listMaster(ctx, "table")
}

func (in *sqliteIntrospector) ListViewNames(ctx context.Context) ([]string, error) {
	return in.listMaster(ctx, "view")
}

func (in *sqliteIntrospector) listMaster(ctx context.Context, kind string) ([]string, error) {
	res, err := in.q.Query(ctx,
		"SELECT name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%' ORDER BY name", kind)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, rec := range res.Records {
		names = append(names, recString(rec, "name"))
	}
	return names, nil
}

func (in *sqliteIntrospector) DefaultCollation(ctx context.Context) (string, error) {
	return "BINARY", nil
}

func (in *sqliteIntrospector) LoadViews(ctx context.Context, names []string) ([]*schema.View, error) {
	if len(names) == 0 {
		return nil, nil
	}
	want := tableKey(names)
	res, err := in.q.Query(ctx, "SELECT name, sql FROM sqlite_master WHERE type = 'view'")
	if err != nil {
		return nil, err
	}
	var views []*schema.View
	for _, rec := range res.Records {
		name := recString(rec, "name")
		if !want[name] {
			continue
		}
		def := recString(rec, "sql")
		if i := strings.Index(strings.ToUpper(def), " AS "); i >= 0 {
			def = def[i+len(" AS "):]
		}
		views = append(views, &schema.View{
			TableName:  schema.TableName{Name: name},
			Definition: strings.TrimSpace(def),
		})
	}
	return views, nil
}

func (in *sqliteIntrospector) LoadTables(ctx context.Context, names []string) ([]*schema.Table, error) {
	var out []*schema.Table
	for _, n := range bareNames(names) {
		t, err := in.loadTable(ctx, n)
		if err != nil {
			return nil, err
		}
		if t != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (in *sqliteIntrospector) loadTable(ctx context.Context, name string) (*schema.Table, error) {
	res, err := in.q.Query(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", name)
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, nil
	}
	createSQL := recString(res.Records[0], "sql")

	t := &schema.Table{TableName: schema.TableName{Name: name}}

	if err := in.loadColumns(ctx, t, createSQL); err != nil {
		return nil, err
	}
	if err := in.loadIndexes(ctx, t); err != nil {
		return nil, err
	}
	if err := in.loadForeignKeys(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (in *sqliteIntrospector) loadColumns(ctx context.Context, t *schema.Table, createSQL string) error {
	res, err := in.q.Query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", in.d.Quote(t.Name)))
	if err != nil {
		return err
	}
	autoinc := strings.Contains(strings.ToUpper(createSQL), "AUTOINCREMENT")

	for _, rec := range res.Records {
		pk, _ := recInt(rec, "pk")
		c := &schema.Column{
			Name:      recString(rec, "name"),
			Type:      strings.ToLower(recString(rec, "type")),
			Nullable:  !recBool(rec, "notnull"),
			IsPrimary: pk > 0,
		}
		// typmods come back embedded in the declared type.
		if open := strings.Index(c.Type, "("); open >= 0 {
			base := strings.TrimSpace(c.Type[:open])
			body := strings.TrimSuffix(c.Type[open+1:], ")")
			c.Type = base
			parts := strings.SplitN(body, ",", 2)
			switch base {
			case "decimal", "numeric":
				var p int
				if _, err := fmt.Sscanf(strings.TrimSpace(parts[0]), "%d", &p); err == nil {
					c.Precision = &p
				}
				if len(parts) == 2 {
					var s int
					if _, err := fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &s); err == nil {
						c.Scale = &s
					}
				}
			default:
				c.Length = strings.TrimSpace(parts[0])
			}
		}
		if def := recNullString(rec, "dflt_value"); def != nil {
			if isUUIDDefault(*def) {
				c.Generation = schema.GenerationUUID
			} else {
				d := *def
				c.Default = &d
			}
		}
		if c.IsPrimary && autoinc && strings.Contains(c.Type, "int") {
			c.Generation = schema.GenerationIncrement
		}
		t.Columns = append(t.Columns, c)
	}
	return nil
}

func (in *sqliteIntrospector) loadIndexes(ctx context.Context, t *schema.Table) error {
	res, err := in.q.Query(ctx, fmt.Sprintf("PRAGMA index_list(%s)", in.d.Quote(t.Name)))
	if err != nil {
		return err
	}
	for _, rec := range res.Records {
		// origin 'c' is an explicit CREATE INDEX; 'u' and 'pk' are the
		// implicit ones backing constraints.
		origin := recString(rec, "origin")
		name := recString(rec, "name")
		unique := recBool(rec, "unique")

		cols, err := in.indexColumns(ctx, name)
		if err != nil {
			return err
		}
		switch origin {
		case "c":
			ix := &schema.Index{Name: name, Columns: cols, Unique: unique}
			t.Indexes = append(t.Indexes, ix)
			if unique {
				t.Uniques = append(t.Uniques, &schema.UniqueConstraint{Name: name, Columns: cols})
			}
		case "u":
			t.Uniques = append(t.Uniques, &schema.UniqueConstraint{Name: name, Columns: cols})
			if len(cols) == 1 {
				if c, err := t.Column(cols[0]); err == nil {
					c.IsUnique = true
				}
			}
		}
	}
	return nil
}

func (in *sqliteIntrospector) indexColumns(ctx context.Context, index string) ([]string, error) {
	res, err := in.q.Query(ctx, fmt.Sprintf("PRAGMA index_info(%s)", in.d.Quote(index)))
	if err != nil {
		return nil, err
	}
	var cols []string
	for _, rec := range res.Records {
		cols = append(cols, recString(rec, "name"))
	}
	return cols, nil
}

func (in *sqliteIntrospector) loadForeignKeys(ctx context.Context, t *schema.Table) error {
	res, err := in.q.Query(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", in.d.Quote(t.Name)))
	if err != nil {
		return err
	}
	// Rows arrive one per column, grouped by the numeric id.
	fks := map[string]*schema.ForeignKey{}
	var order []string
	for _, rec := range res.Records {
		id := recString(rec, "id")
		fk, seen := fks[id]
		if !seen {
			fk = &schema.ForeignKey{
				RefTable: recString(rec, "table"),
				OnDelete: nonDefaultRule(recString(rec, "on_delete")),
				OnUpdate: nonDefaultRule(recString(rec, "on_update")),
			}
			fks[id] = fk
			order = append(order, id)
		}
		fk.Columns = append(fk.Columns, recString(rec, "from"))
		fk.RefColumns = append(fk.RefColumns, recString(rec, "to"))
	}
	for _, id := range order {
		fk := fks[id]
		// The pragma never reports constraint names; derive stable ones so
		// the model stays addressable.
		fk.Name = fmt.Sprintf("fk_%s_%s", t.Name, strings.Join(fk.Columns, "_"))
		t.ForeignKeys = append(t.ForeignKeys, fk)
	}
	return nil
}
