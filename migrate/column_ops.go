package migrate

import (
	"context"
	"slices"

	"github.com/alterkit/alterkit/schema"
)

// AddColumn adds a column together with any unique object or primary-key
// rebuild it implies, journaling the reversible pair, and swaps the
// post-change model into the cache.
func (e *Executor) AddColumn(ctx context.Context, tableOrName any, col *schema.Column) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	ch, post, err := e.planAddColumn(t, col)
	if err != nil {
		return err
	}
	if err := e.apply(ctx, ch); err != nil {
		return err
	}
	e.cache.Replace(t, post)
	return nil
}

func (e *Executor) planAddColumn(t *schema.Table, col *schema.Column) (Change, *schema.Table, error) {
	var ch Change
	post := t.Clone()
	c := col.Clone()

	if len(c.Enum) > 0 && e.d.SupportsEnumTypes {
		up, err := e.syn.CreateEnumType(t, c)
		if err != nil {
			return Change{}, nil, err
		}
		down, err := e.syn.DropEnumType(t, c)
		if err != nil {
			return Change{}, nil, err
		}
		ch.push(up, down)
	}

	addSQL := e.syn.AddColumn(t, c)
	pkCoupled := c.Generation == schema.GenerationIncrement && e.d.IdentityRequiresPrimaryKey
	if c.IsPrimary && pkCoupled && e.d.Name != "sqlite" {
		// The key must cover the increment column in the same statement.
		addSQL += " PRIMARY KEY"
	}
	ch.push(addSQL, e.syn.DropColumn(t, c))
	post.Columns = append(post.Columns, c)

	if c.IsUnique {
		uq := &schema.UniqueConstraint{
			Name:    e.naming.Unique(t.Name, []string{c.Name}),
			Columns: []string{c.Name},
		}
		if err := e.pushAddUnique(&ch, post, uq); err != nil {
			return Change{}, nil, err
		}
	}

	if c.IsPrimary && !pkCoupled {
		oldPK := primaryNames(t)
		newPK := append(append([]string(nil), oldPK...), c.Name)
		ch.merge(e.planSetPrimary(post, oldPK, newPK))
	}

	return ch, post, nil
}

// pushAddUnique emits the unique object for the dialect: a first-class
// constraint where supported, otherwise a unique index recorded in both the
// index list and the logical unique list. The post model is updated in
// place.
func (e *Executor) pushAddUnique(ch *Change, post *schema.Table, uq *schema.UniqueConstraint) error {
	if e.d.SupportsUniqueConstraints {
		up, err := e.syn.CreateUnique(post, uq)
		if err != nil {
			return err
		}
		down, err := e.syn.DropUnique(post, uq)
		if err != nil {
			return err
		}
		ch.push(up, down)
		post.Uniques = append(post.Uniques, uq)
		return nil
	}
	ix := &schema.Index{Name: uq.Name, Columns: append([]string(nil), uq.Columns...), Unique: true}
	ch.push(e.syn.CreateIndex(post, ix), e.syn.DropIndex(post, ix))
	post.Indexes = append(post.Indexes, ix)
	post.Uniques = append(post.Uniques, uq)
	return nil
}

// pushDropUnique is the inverse of pushAddUnique.
func (e *Executor) pushDropUnique(ch *Change, post *schema.Table, uq *schema.UniqueConstraint) error {
	if e.d.SupportsUniqueConstraints {
		up, err := e.syn.DropUnique(post, uq)
		if err != nil {
			return err
		}
		down, err := e.syn.CreateUnique(post, uq)
		if err != nil {
			return err
		}
		ch.push(up, down)
	} else {
		ix := &schema.Index{Name: uq.Name, Columns: append([]string(nil), uq.Columns...), Unique: true}
		ch.push(e.syn.DropIndex(post, ix), e.syn.CreateIndex(post, ix))
		post.Indexes = slices.DeleteFunc(post.Indexes, func(i *schema.Index) bool { return i.Name == uq.Name })
	}
	post.Uniques = slices.DeleteFunc(post.Uniques, func(u *schema.UniqueConstraint) bool { return u.Name == uq.Name })
	return nil
}

// DropColumn drops a column and every index, unique, check and foreign key
// referencing it; the journaled down list restores all of them.
func (e *Executor) DropColumn(ctx context.Context, tableOrName any, columnName string) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	ch, post, err := e.planDropColumn(t, columnName)
	if err != nil {
		return err
	}
	if err := e.apply(ctx, ch); err != nil {
		return err
	}
	e.cache.Replace(t, post)
	return nil
}

func (e *Executor) planDropColumn(t *schema.Table, columnName string) (Change, *schema.Table, error) {
	col, err := t.Column(columnName)
	if err != nil {
		return Change{}, nil, err
	}

	var ch Change
	post := t.Clone()

	for _, fk := range t.ForeignKeysOn(columnName) {
		ch.push(e.syn.DropForeignKey(t, fk), e.syn.CreateForeignKey(t, fk))
	}

	// Uniques first on native dialects; on emulating dialects the backing
	// object is the index handled below.
	if e.d.SupportsUniqueConstraints {
		for _, u := range t.UniquesOn(columnName) {
			up, uerr := e.syn.DropUnique(t, u)
			if uerr != nil {
				return Change{}, nil, uerr
			}
			down, uerr := e.syn.CreateUnique(t, u)
			if uerr != nil {
				return Change{}, nil, uerr
			}
			ch.push(up, down)
		}
	}

	for _, ix := range t.IndexesOn(columnName) {
		ch.push(e.syn.DropIndex(t, ix), e.syn.CreateIndex(t, ix))
	}

	for _, chk := range t.ChecksOn(columnName) {
		up, cerr := e.syn.DropCheck(t, chk)
		if cerr != nil {
			return Change{}, nil, cerr
		}
		down, cerr := e.syn.CreateCheck(t, chk)
		if cerr != nil {
			return Change{}, nil, cerr
		}
		ch.push(up, down)
	}

	if col.IsPrimary {
		oldPK := primaryNames(t)
		newPK := slices.DeleteFunc(append([]string(nil), oldPK...), func(n string) bool { return n == columnName })
		ch.merge(e.planSetPrimary(t, oldPK, newPK))
	}

	ch.push(e.syn.DropColumn(t, col), e.syn.AddColumn(t, col))

	if len(col.Enum) > 0 && e.d.SupportsEnumTypes && col.EnumName == "" {
		up, eerr := e.syn.DropEnumType(t, col)
		if eerr != nil {
			return Change{}, nil, eerr
		}
		down, eerr := e.syn.CreateEnumType(t, col)
		if eerr != nil {
			return Change{}, nil, eerr
		}
		ch.push(up, down)
	}

	removeColumnFromModel(post, columnName)
	return ch, post, nil
}

// removeColumnFromModel strips the column and every object referencing it
// from a working clone.
func removeColumnFromModel(t *schema.Table, name string) {
	t.Columns = slices.DeleteFunc(t.Columns, func(c *schema.Column) bool { return c.Name == name })
	t.Indexes = slices.DeleteFunc(t.Indexes, func(ix *schema.Index) bool { return slices.Contains(ix.Columns, name) })
	t.Uniques = slices.DeleteFunc(t.Uniques, func(u *schema.UniqueConstraint) bool { return slices.Contains(u.Columns, name) })
	t.Checks = slices.DeleteFunc(t.Checks, func(c *schema.CheckConstraint) bool { return slices.Contains(c.Columns, name) })
	t.ForeignKeys = slices.DeleteFunc(t.ForeignKeys, func(fk *schema.ForeignKey) bool { return slices.Contains(fk.Columns, name) })
}

func primaryNames(t *schema.Table) []string {
	var out []string
	for _, c := range t.PrimaryColumns() {
		out = append(out, c.Name)
	}
	return out
}

// planSetPrimary rebuilds primary-key membership. On dialects where an
// increment column cannot exist outside the primary key, the identity
// attribute is stripped before the old key drops and restored only after
// the new key covers the column again, so no intermediate statement leaves
// identity uncovered.
func (e *Executor) planSetPrimary(t *schema.Table, oldPK, newPK []string) Change {
	var ch Change
	if slices.Equal(oldPK, newPK) {
		return ch
	}

	var danced []*schema.Column
	if e.d.IdentityRequiresPrimaryKey {
		for _, c := range t.Columns {
			if c.Generation == schema.GenerationIncrement && slices.Contains(oldPK, c.Name) {
				danced = append(danced, c)
			}
		}
	}

	for _, c := range danced {
		ch.push(e.syn.DropIdentity(t, c), e.syn.SetIdentity(t, c))
	}
	if len(oldPK) > 0 {
		ch.push(e.syn.DropPrimaryKey(t, oldPK), e.syn.CreatePrimaryKey(t, oldPK))
	}
	if len(newPK) > 0 {
		ch.push(e.syn.CreatePrimaryKey(t, newPK), e.syn.DropPrimaryKey(t, newPK))
	}
	for _, c := range danced {
		if slices.Contains(newPK, c.Name) {
			ch.push(e.syn.SetIdentity(t, c), e.syn.DropIdentity(t, c))
		}
	}
	return ch
}

// UpdatePrimaryKeys replaces primary-key membership with the given column
// set.
func (e *Executor) UpdatePrimaryKeys(ctx context.Context, tableOrName any, columns []string) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	for _, name := range columns {
		if _, err := t.Column(name); err != nil {
			return err
		}
	}

	oldPK := primaryNames(t)
	ch := e.planSetPrimary(t, oldPK, columns)

	post := t.Clone()
	for _, c := range post.Columns {
		c.IsPrimary = slices.Contains(columns, c.Name)
		if c.Generation == schema.GenerationIncrement && e.d.IdentityRequiresPrimaryKey && !c.IsPrimary {
			// Identity cannot survive outside the key on this dialect.
			c.Generation = schema.GenerationNone
		}
	}

	if err := e.apply(ctx, ch); err != nil {
		return err
	}
	e.cache.Replace(t, post)
	return nil
}

// RenameColumn renames a column and cascades the rename to every index,
// foreign key, unique and default object whose derived name embeds it.
func (e *Executor) RenameColumn(ctx context.Context, tableOrName any, oldName, newName string) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	ch, post, err := e.planRenameColumn(t, oldName, newName)
	if err != nil {
		return err
	}
	if err := e.apply(ctx, ch); err != nil {
		return err
	}
	e.cache.Replace(t, post)
	return nil
}

func (e *Executor) planRenameColumn(t *schema.Table, oldName, newName string) (Change, *schema.Table, error) {
	col, err := t.Column(oldName)
	if err != nil {
		return Change{}, nil, err
	}

	var ch Change
	post := t.Clone()

	renamed := col.Clone()
	renamed.Name = newName
	oldCol := col.Clone()

	ch.push(e.syn.RenameColumn(t, oldName, renamed), e.syn.RenameColumn(t, newName, oldCol))

	// Rewrite the post model's column lists before recomputing names.
	for _, c := range post.Columns {
		if c.Name == oldName {
			c.Name = newName
		}
	}
	renameInList := func(cols []string) {
		for i, n := range cols {
			if n == oldName {
				cols[i] = newName
			}
		}
	}
	for _, ix := range post.Indexes {
		renameInList(ix.Columns)
	}
	for _, u := range post.Uniques {
		renameInList(u.Columns)
	}
	for _, c := range post.Checks {
		renameInList(c.Columns)
	}
	for _, fk := range post.ForeignKeys {
		renameInList(fk.Columns)
	}

	// Recompute derived names over the updated column set. The mid model
	// carries old object names on the renamed column.
	mid := t.Clone()
	for _, c := range mid.Columns {
		if c.Name == oldName {
			c.Name = newName
		}
	}

	for i, ix := range post.Indexes {
		oldIx := t.Indexes[i]
		if oldIx.Name != e.naming.Index(t.Name, oldIx.Columns, oldIx.Where) {
			continue
		}
		newIxName := e.naming.Index(t.Name, ix.Columns, ix.Where)
		if newIxName == oldIx.Name {
			continue
		}
		if err := e.renameIndexPair(&ch, mid, oldIx.Name, newIxName, ix); err != nil {
			return Change{}, nil, err
		}
		ix.Name = newIxName
		e.retagUnique(post, oldIx.Name, newIxName)
	}

	for i, u := range post.Uniques {
		oldU := t.Uniques[i]
		if oldU.Name != e.naming.Unique(t.Name, oldU.Columns) {
			continue
		}
		newUName := e.naming.Unique(t.Name, u.Columns)
		if newUName == oldU.Name || u.Name == newUName {
			continue
		}
		if e.d.SupportsUniqueConstraints {
			up, rerr := e.syn.RenameConstraint(mid, oldU.Name, newUName)
			if rerr != nil {
				return Change{}, nil, rerr
			}
			down, rerr := e.syn.RenameConstraint(mid, newUName, oldU.Name)
			if rerr != nil {
				return Change{}, nil, rerr
			}
			ch.push(up, down)
		}
		u.Name = newUName
	}

	for i, fk := range post.ForeignKeys {
		oldFk := t.ForeignKeys[i]
		if oldFk.Name != e.naming.ForeignKey(t.Name, oldFk.Columns) {
			continue
		}
		newFkName := e.naming.ForeignKey(t.Name, fk.Columns)
		if newFkName == oldFk.Name {
			continue
		}
		if err := e.renameForeignKeyPair(&ch, mid, fk, newFkName); err != nil {
			return Change{}, nil, err
		}
		fk.Name = newFkName
	}

	// Default constraints are standalone named objects on sqlserver.
	if e.d.Name == "sqlserver" && col.Default != nil {
		oldDf := e.naming.Default(t.Name, oldName)
		newDf := e.naming.Default(t.Name, newName)
		up, rerr := e.syn.RenameConstraint(mid, oldDf, newDf)
		if rerr != nil {
			return Change{}, nil, rerr
		}
		down, rerr := e.syn.RenameConstraint(mid, newDf, oldDf)
		if rerr != nil {
			return Change{}, nil, rerr
		}
		ch.push(up, down)
	}

	return ch, post, nil
}
