package migrate

import (
	"context"
	"errors"

	"github.com/alterkit/alterkit/schema"
)

// normalizeTable folds column-level unique markers into named constraint
// objects so the rest of the planner deals with one shape. On dialects
// without a native unique constraint the emulating unique index is recorded
// in both the index list and the logical unique list.
func (e *Executor) normalizeTable(t *schema.Table) *schema.Table {
	out := t.Clone()
	for _, c := range out.Columns {
		if !c.IsUnique {
			continue
		}
		if len(out.UniquesOn(c.Name)) > 0 {
			continue
		}
		name := e.naming.Unique(out.Name, []string{c.Name})
		out.Uniques = append(out.Uniques, &schema.UniqueConstraint{Name: name, Columns: []string{c.Name}})
		if !e.d.SupportsUniqueConstraints {
			out.Indexes = append(out.Indexes, &schema.Index{Name: name, Columns: []string{c.Name}, Unique: true})
		}
	}
	// Derive names for any caller-supplied objects that arrived unnamed.
	for _, ix := range out.Indexes {
		if ix.Name == "" {
			ix.Name = e.naming.Index(out.Name, ix.Columns, ix.Where)
		}
	}
	for _, u := range out.Uniques {
		if u.Name == "" {
			u.Name = e.naming.Unique(out.Name, u.Columns)
		}
	}
	for _, c := range out.Checks {
		if c.Name == "" {
			c.Name = e.naming.Check(out.Name, c.Expression)
		}
	}
	for _, x := range out.Exclusions {
		if x.Name == "" {
			x.Name = e.naming.Exclusion(out.Name, x.Expression)
		}
	}
	for _, fk := range out.ForeignKeys {
		if fk.Name == "" {
			fk.Name = e.naming.ForeignKey(out.Name, fk.Columns)
		}
	}
	return out
}

// planCreateTable builds the full reversible statement pair for a table and
// its secondary objects.
func (e *Executor) planCreateTable(t *schema.Table) (Change, error) {
	var ch Change

	// Enum types precede the table that references them.
	if e.d.SupportsEnumTypes {
		for _, c := range t.Columns {
			if len(c.Enum) == 0 {
				continue
			}
			up, err := e.syn.CreateEnumType(t, c)
			if err != nil {
				return Change{}, err
			}
			down, err := e.syn.DropEnumType(t, c)
			if err != nil {
				return Change{}, err
			}
			ch.push(up, down)
		}
	}

	createSQL, err := e.syn.CreateTable(t)
	if err != nil {
		return Change{}, err
	}
	ch.push(createSQL, e.syn.DropTable(t))

	for _, ix := range t.Indexes {
		ch.push(e.syn.CreateIndex(t, ix), e.syn.DropIndex(t, ix))
	}
	return ch, nil
}

// CreateTable creates the table, its enum types, indexes and constraints,
// and registers the model in the cache.
func (e *Executor) CreateTable(ctx context.Context, t *schema.Table) error {
	table := e.normalizeTable(t)
	ch, err := e.planCreateTable(table)
	if err != nil {
		return err
	}
	if err := e.apply(ctx, ch); err != nil {
		return err
	}
	e.cache.Insert(table)
	return nil
}

// DropTable drops the table; the journaled down list recreates it with
// every secondary object.
func (e *Executor) DropTable(ctx context.Context, tableOrName any) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}

	create, err := e.planCreateTable(t)
	if err != nil {
		return err
	}
	// The drop is the exact inverse of the create plan.
	ch := Change{Up: create.Down, Down: create.Up}
	if err := e.apply(ctx, ch); err != nil {
		return err
	}
	e.cache.Remove(t.TableName)
	return nil
}

// RenameTable renames a table and cascades the rename to every index,
// foreign key, unique constraint, primary key and enum type whose derived
// name embeds the old table name. Cross-database moves on dialects that
// address objects through the active database wrap the rename in a context
// switch with its own inverse.
func (e *Executor) RenameTable(ctx context.Context, tableOrName any, newName string) error {
	old, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	target := schema.ParseTableName(newName)
	if target.Schema == "" {
		target.Schema = old.Schema
	}
	if target.Database == "" {
		target.Database = old.Database
	}

	var ch Change

	needsSwitch := e.d.RequiresDBSwitchForCrossDBRename && old.Database != "" &&
		e.CurrentDatabase != "" && old.Database != e.CurrentDatabase
	if needsSwitch {
		// The context switch carries its own inverse on both sides.
		ch.push(e.syn.UseDatabase(old.Database), e.syn.UseDatabase(e.CurrentDatabase))
	}

	ch.push(e.syn.RenameTable(old.TableName, target), e.syn.RenameTable(target, old.TableName))

	// Post-rename model; object renames below are computed against it.
	renamed := old.Clone()
	renamed.TableName = target

	oldView := old.Clone()
	oldView.TableName = target // old object names still live on the renamed table

	if err := e.cascadeObjectRenames(&ch, oldView, renamed, old.Name); err != nil {
		return err
	}

	if needsSwitch {
		ch.push(e.syn.UseDatabase(e.CurrentDatabase), e.syn.UseDatabase(old.Database))
	}

	if err := e.apply(ctx, ch); err != nil {
		return err
	}
	e.cache.Replace(old, renamed)
	return nil
}

// cascadeObjectRenames renames every secondary object whose derived name
// embedded the old table name. oldModel carries the old object names under
// the new table name; newModel receives the recomputed names.
func (e *Executor) cascadeObjectRenames(ch *Change, oldModel, newModel *schema.Table, oldTable string) error {
	for i, ix := range newModel.Indexes {
		oldName := ix.Name
		if oldName != e.naming.Index(oldTable, ix.Columns, ix.Where) {
			continue // caller-supplied name, not ours to rewrite
		}
		newIxName := e.naming.Index(newModel.Name, ix.Columns, ix.Where)
		if newIxName == oldName {
			continue
		}
		if err := e.renameIndexPair(ch, oldModel, oldName, newIxName, ix); err != nil {
			return err
		}
		newModel.Indexes[i].Name = newIxName
		e.retagUnique(newModel, oldName, newIxName)
	}

	for i, u := range newModel.Uniques {
		oldName := u.Name
		if oldName != e.naming.Unique(oldTable, u.Columns) {
			continue
		}
		newUqName := e.naming.Unique(newModel.Name, u.Columns)
		if newUqName == oldName {
			continue
		}
		if e.d.SupportsUniqueConstraints {
			up, err := e.syn.RenameConstraint(oldModel, oldName, newUqName)
			if err != nil {
				return err
			}
			down, err := e.syn.RenameConstraint(oldModel, newUqName, oldName)
			if err != nil {
				return err
			}
			ch.push(up, down)
		}
		// Emulating dialects already renamed the backing index above.
		newModel.Uniques[i].Name = newUqName
	}

	for i, fk := range newModel.ForeignKeys {
		oldName := fk.Name
		if oldName != e.naming.ForeignKey(oldTable, fk.Columns) {
			continue
		}
		newFkName := e.naming.ForeignKey(newModel.Name, fk.Columns)
		if newFkName == oldName {
			continue
		}
		if err := e.renameForeignKeyPair(ch, oldModel, fk, newFkName); err != nil {
			return err
		}
		newModel.ForeignKeys[i].Name = newFkName
	}

	// Primary key constraint name embeds the table name on dialects that
	// name it at all.
	if pk := newModel.PrimaryColumns(); len(pk) > 0 && e.d.Name != "mysql" && e.d.Name != "mariadb" && e.d.Name != "sqlite" {
		cols := make([]string, len(pk))
		for i, c := range pk {
			cols[i] = c.Name
		}
		oldPk := e.naming.PrimaryKey(oldTable, cols)
		newPk := e.naming.PrimaryKey(newModel.Name, cols)
		if oldPk != newPk {
			up, err := e.syn.RenameConstraint(oldModel, oldPk, newPk)
			if err != nil {
				return err
			}
			down, err := e.syn.RenameConstraint(oldModel, newPk, oldPk)
			if err != nil {
				return err
			}
			ch.push(up, down)
		}
	}

	// Enum type names derived from the table follow it.
	if e.d.SupportsEnumTypes {
		for _, c := range newModel.Columns {
			if len(c.Enum) == 0 || c.EnumName != "" {
				continue
			}
			oldType := e.naming.EnumType(oldTable, c.Name)
			newType := e.naming.EnumType(newModel.Name, c.Name)
			if oldType == newType {
				continue
			}
			up, err := e.syn.RenameEnumType(oldType, newType)
			if err != nil {
				return err
			}
			down, err := e.syn.RenameEnumType(newType, oldType)
			if err != nil {
				return err
			}
			ch.push(up, down)
		}
	}
	return nil
}

// renameIndexPair emits a rename (or drop+recreate on dialects without one)
// for an index, with its inverse.
func (e *Executor) renameIndexPair(ch *Change, t *schema.Table, oldName, newName string, ix *schema.Index) error {
	if e.d.SupportsRenameIndex {
		up, err := e.syn.RenameIndex(t, oldName, newName)
		if err != nil {
			return err
		}
		down, err := e.syn.RenameIndex(t, newName, oldName)
		if err != nil {
			return err
		}
		ch.push(up, down)
		return nil
	}
	oldIx := ix.Clone()
	oldIx.Name = oldName
	newIx := ix.Clone()
	newIx.Name = newName
	ch.push(e.syn.DropIndex(t, oldIx), e.syn.CreateIndex(t, oldIx))
	ch.push(e.syn.CreateIndex(t, newIx), e.syn.DropIndex(t, newIx))
	return nil
}

// renameForeignKeyPair renames a foreign key, dropping and recreating it on
// dialects without constraint renames.
func (e *Executor) renameForeignKeyPair(ch *Change, t *schema.Table, fk *schema.ForeignKey, newName string) error {
	up, err := e.syn.RenameConstraint(t, fk.Name, newName)
	if err == nil {
		down, derr := e.syn.RenameConstraint(t, newName, fk.Name)
		if derr != nil {
			return derr
		}
		ch.push(up, down)
		return nil
	}
	renamed := fk.Clone()
	renamed.Name = newName
	ch.push(e.syn.DropForeignKey(t, fk), e.syn.CreateForeignKey(t, fk))
	ch.push(e.syn.CreateForeignKey(t, renamed), e.syn.DropForeignKey(t, renamed))
	return nil
}

// retagUnique keeps the logical unique list in step when an emulating
// unique index is renamed.
func (e *Executor) retagUnique(t *schema.Table, oldName, newName string) {
	for _, u := range t.Uniques {
		if u.Name == oldName {
			u.Name = newName
		}
	}
}

// Table returns the cached model for a table, introspecting on first
// access.
func (e *Executor) Table(ctx context.Context, name string) (*schema.Table, error) {
	return e.cache.Table(ctx, schema.ParseTableName(name))
}

// HasTable reports whether the table exists, checking the cache first.
func (e *Executor) HasTable(ctx context.Context, name string) (bool, error) {
	_, err := e.Table(ctx, name)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func isNotFound(err error) bool {
	return errors.Is(err, schema.ErrNotFound)
}
