package migrate

import (
	"context"
	"slices"

	"github.com/alterkit/alterkit/schema"
)

// ChangeColumn reshapes an existing column into the supplied definition,
// renaming first when the names differ. Type, length and identity changes
// are destructive: safe narrowing is not uniformly guaranteed across
// dialects, so the column is dropped and re-added rather than altered in
// place.
func (e *Executor) ChangeColumn(ctx context.Context, tableOrName any, oldName string, newCol *schema.Column) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	ch, post, err := e.planChangeColumn(t, oldName, newCol)
	if err != nil {
		return err
	}
	if err := e.apply(ctx, ch); err != nil {
		return err
	}
	e.cache.Replace(t, post)
	return nil
}

func (e *Executor) planChangeColumn(t *schema.Table, oldName string, newCol *schema.Column) (Change, *schema.Table, error) {
	old, err := t.Column(oldName)
	if err != nil {
		return Change{}, nil, err
	}

	var ch Change
	cur := t

	if newCol.Name != "" && newCol.Name != oldName {
		rch, renamed, rerr := e.planRenameColumn(t, oldName, newCol.Name)
		if rerr != nil {
			return Change{}, nil, rerr
		}
		ch.merge(rch)
		cur = renamed
		old, _ = cur.Column(newCol.Name)
	}
	name := old.Name

	if e.isDestructiveChange(old, newCol) {
		dch, afterDrop, derr := e.planDropColumn(cur, name)
		if derr != nil {
			return Change{}, nil, derr
		}
		ch.merge(dch)
		ach, post, aerr := e.planAddColumn(afterDrop, newCol)
		if aerr != nil {
			return Change{}, nil, aerr
		}
		ch.merge(ach)
		return ch, post, nil
	}

	post := cur.Clone()
	pc, _ := post.Column(name)

	enumChanged := !slices.Equal(old.Enum, newCol.Enum)
	defaultChanged := !strPtrEq(old.Default, newCol.Default) || old.Generation != newCol.Generation

	if enumChanged {
		if err := e.pushEnumChange(&ch, cur, old, newCol); err != nil {
			return Change{}, nil, err
		}
		// An enum alter never carries the default inline, so a surviving
		// default must be re-emitted afterwards.
		if e.d.SupportsEnumTypes && newCol.Default != nil {
			e.pushDefaultChange(&ch, cur, old, newCol)
		}
	} else if defaultChanged {
		e.pushDefaultChange(&ch, cur, old, newCol)
	}

	if old.Nullable != newCol.Nullable {
		if newCol.Nullable {
			ch.push(e.syn.DropNotNull(cur, newCol), e.syn.SetNotNull(cur, newCol))
		} else {
			ch.push(e.syn.SetNotNull(cur, newCol), e.syn.DropNotNull(cur, newCol))
		}
	}

	if old.IsPrimary != newCol.IsPrimary {
		oldPK := primaryNames(cur)
		var newPK []string
		if newCol.IsPrimary {
			newPK = append(append([]string(nil), oldPK...), name)
		} else {
			newPK = slices.DeleteFunc(append([]string(nil), oldPK...), func(n string) bool { return n == name })
		}
		ch.merge(e.planSetPrimary(cur, oldPK, newPK))
	}

	if old.IsUnique != newCol.IsUnique {
		if newCol.IsUnique {
			uq := &schema.UniqueConstraint{
				Name:    e.naming.Unique(cur.Name, []string{name}),
				Columns: []string{name},
			}
			if err := e.pushAddUnique(&ch, post, uq); err != nil {
				return Change{}, nil, err
			}
		} else {
			for _, u := range cur.UniquesOn(name) {
				if len(u.Columns) != 1 {
					continue
				}
				if err := e.pushDropUnique(&ch, post, u); err != nil {
					return Change{}, nil, err
				}
			}
		}
	}

	if old.Comment != newCol.Comment && e.d.Name == "postgres" {
		ch.push(e.syn.CommentOnColumn(cur, newCol, newCol.Comment),
			e.syn.CommentOnColumn(cur, newCol, old.Comment))
	}

	// Fold the new definition into the post model.
	*pc = *newCol.Clone()
	pc.Name = name

	return ch, post, nil
}

// isDestructiveChange reports whether the edit must go through drop-and-add.
func (e *Executor) isDestructiveChange(old, new *schema.Column) bool {
	if old.Type != new.Type ||
		old.Length != new.Length ||
		!intPtrEq(old.Precision, new.Precision) ||
		!intPtrEq(old.Scale, new.Scale) ||
		old.SpatialType != new.SpatialType ||
		!intPtrEq(old.SRID, new.SRID) ||
		old.GeneratedExpr != new.GeneratedExpr ||
		old.Stored != new.Stored {
		return true
	}
	// Identity toggles rebuild the column everywhere except through the
	// primary-key dance, which only restores a pre-existing identity.
	if (old.Generation == schema.GenerationIncrement) != (new.Generation == schema.GenerationIncrement) {
		return true
	}
	if e.d.Name == "sqlite" {
		// sqlite has no usable ALTER COLUMN: anything beyond a rename or a
		// unique toggle rebuilds the column.
		if old.Nullable != new.Nullable || !strPtrEq(old.Default, new.Default) ||
			!slices.Equal(old.Enum, new.Enum) || old.IsPrimary != new.IsPrimary {
			return true
		}
	}
	return false
}

// pushEnumChange rewrites a column's enum value list. On enum-type dialects
// the old type is shelved under a temporary name, the new type created and
// cast into place, and the shelf dropped; the inverse is the same shape
// with the value lists swapped.
func (e *Executor) pushEnumChange(ch *Change, t *schema.Table, old, new *schema.Column) error {
	if !e.d.SupportsEnumTypes {
		// Inline-enum dialects rebuild the definition.
		ch.push(e.syn.AlterColumnType(t, new), e.syn.AlterColumnType(t, old))
		return nil
	}

	oldCol := old.Clone()
	newCol := new.Clone()
	newCol.Name = old.Name

	name := oldCol.EnumName
	if name == "" {
		name = e.naming.EnumType(t.Name, old.Name)
	}
	shelf := name + "_old"

	shelved := oldCol.Clone()
	shelved.EnumName = shelf

	renameUp, err := e.syn.RenameEnumType(name, shelf)
	if err != nil {
		return err
	}
	createUp, err := e.syn.CreateEnumType(t, newCol)
	if err != nil {
		return err
	}
	dropShelfUp, err := e.syn.DropEnumType(t, shelved)
	if err != nil {
		return err
	}
	castUp := e.syn.AlterColumnEnumType(t, newCol, name)

	createDown, err := e.syn.CreateEnumType(t, oldCol)
	if err != nil {
		return err
	}
	dropShelfDown, err := e.syn.DropEnumType(t, shelved)
	if err != nil {
		return err
	}

	ch.Up = append(ch.Up, renameUp, createUp, castUp, dropShelfUp)
	ch.Down = append([]string{renameUp, createDown, castUp, dropShelfDown}, ch.Down...)
	return nil
}

// pushDefaultChange emits the set/drop default pair moving from old to new,
// with the inverse restoring old.
func (e *Executor) pushDefaultChange(ch *Change, t *schema.Table, old, new *schema.Column) {
	newHas := new.Default != nil || new.Generation == schema.GenerationUUID
	oldHas := old.Default != nil || old.Generation == schema.GenerationUUID
	switch {
	case newHas && oldHas:
		ch.push(e.syn.SetDefault(t, new), e.syn.SetDefault(t, old))
	case newHas:
		ch.push(e.syn.SetDefault(t, new), e.syn.DropDefault(t, new))
	case oldHas:
		ch.push(e.syn.DropDefault(t, old), e.syn.SetDefault(t, old))
	}
}

func strPtrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
