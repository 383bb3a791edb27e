package migrate

import (
	"context"
	"fmt"

	"github.com/alterkit/alterkit/schema"
)

// ClearDatabase drops every view, foreign key, table and enum type the
// loader can see, inside one transaction. A mid-sequence failure rolls the
// transaction back; a rollback failure is suppressed in favor of the
// original error so the caller always observes the real cause.
func (e *Executor) ClearDatabase(ctx context.Context) (err error) {
	if e.cache.loader == nil {
		return fmt.Errorf("clear database: no introspector configured")
	}

	viewNames, err := e.cache.loader.ListViewNames(ctx)
	if err != nil {
		return err
	}
	views, err := e.cache.loader.LoadViews(ctx, viewNames)
	if err != nil {
		return err
	}
	tableNames, err := e.cache.loader.ListTableNames(ctx)
	if err != nil {
		return err
	}
	tables, err := e.cache.loader.LoadTables(ctx, tableNames)
	if err != nil {
		return err
	}

	// sqlite has no ALTER TABLE ... DROP CONSTRAINT; instead of dropping
	// foreign keys we switch enforcement off for the clear. The pragma is a
	// no-op inside a transaction, so it has to run before BEGIN.
	if e.d.Name == "sqlite" {
		res, ferr := e.sess.Query(ctx, "PRAGMA foreign_keys")
		if ferr != nil {
			return ferr
		}
		wasOn := len(res.Records) > 0 && fmt.Sprintf("%v", res.Records[0]["foreign_keys"]) == "1"
		if _, ferr := e.sess.Query(ctx, "PRAGMA foreign_keys = OFF"); ferr != nil {
			return ferr
		}
		if wasOn {
			defer func() {
				_, _ = e.sess.Query(ctx, "PRAGMA foreign_keys = ON")
			}()
		}
	}

	if err := e.sess.StartTransaction(ctx, ""); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			// Keep the triggering error even when rollback itself fails.
			_ = e.sess.RollbackTransaction(ctx)
			return
		}
		err = e.sess.CommitTransaction(ctx)
	}()

	for _, v := range views {
		if _, err = e.sess.Query(ctx, e.syn.DropView(v)); err != nil {
			return err
		}
	}

	// Foreign keys first so drop order between tables cannot matter.
	// Skipped on sqlite, where enforcement was switched off above.
	if e.d.Name != "sqlite" {
		for _, t := range tables {
			for _, fk := range t.ForeignKeys {
				if _, err = e.sess.Query(ctx, e.syn.DropForeignKey(t, fk)); err != nil {
					return err
				}
			}
		}
	}

	for _, t := range tables {
		if _, err = e.sess.Query(ctx, e.syn.DropTable(t)); err != nil {
			return err
		}
	}

	if e.d.SupportsEnumTypes {
		for _, t := range tables {
			for _, c := range t.Columns {
				if len(c.Enum) == 0 {
					continue
				}
				var drop string
				drop, err = e.syn.DropEnumType(t, c)
				if err != nil {
					return err
				}
				if _, err = e.sess.Query(ctx, drop); err != nil {
					return err
				}
			}
		}
	}

	for _, t := range tables {
		e.cache.Remove(t.TableName)
	}
	return nil
}

// CreateView creates a view.
func (e *Executor) CreateView(ctx context.Context, v *schema.View) error {
	var ch Change
	ch.push(e.syn.CreateView(v), e.syn.DropView(v))
	return e.apply(ctx, ch)
}

// DropView drops a view; the journaled down list recreates it.
func (e *Executor) DropView(ctx context.Context, v *schema.View) error {
	var ch Change
	ch.push(e.syn.DropView(v), e.syn.CreateView(v))
	return e.apply(ctx, ch)
}
