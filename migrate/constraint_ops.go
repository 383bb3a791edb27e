package migrate

import (
	"context"
	"slices"

	"github.com/alterkit/alterkit/schema"
)

// CreateIndex creates an index, deriving its name when the caller left it
// empty.
func (e *Executor) CreateIndex(ctx context.Context, tableOrName any, ix *schema.Index) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	for _, c := range ix.Columns {
		if _, err := t.Column(c); err != nil {
			return err
		}
	}
	idx := ix.Clone()
	if idx.Name == "" {
		idx.Name = e.naming.Index(t.Name, idx.Columns, idx.Where)
	}

	var ch Change
	ch.push(e.syn.CreateIndex(t, idx), e.syn.DropIndex(t, idx))
	if err := e.apply(ctx, ch); err != nil {
		return err
	}

	post := t.Clone()
	post.Indexes = append(post.Indexes, idx)
	if idx.Unique {
		post.Uniques = append(post.Uniques, &schema.UniqueConstraint{
			Name:    idx.Name,
			Columns: append([]string(nil), idx.Columns...),
		})
	}
	e.cache.Replace(t, post)
	return nil
}

// DropIndex drops the named index.
func (e *Executor) DropIndex(ctx context.Context, tableOrName any, name string) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	ix, err := t.Index(name)
	if err != nil {
		return err
	}

	var ch Change
	ch.push(e.syn.DropIndex(t, ix), e.syn.CreateIndex(t, ix))
	if err := e.apply(ctx, ch); err != nil {
		return err
	}

	post := t.Clone()
	post.Indexes = slices.DeleteFunc(post.Indexes, func(i *schema.Index) bool { return i.Name == name })
	post.Uniques = slices.DeleteFunc(post.Uniques, func(u *schema.UniqueConstraint) bool { return u.Name == name })
	e.cache.Replace(t, post)
	return nil
}

// CreateForeignKey adds a foreign key constraint.
func (e *Executor) CreateForeignKey(ctx context.Context, tableOrName any, fk *schema.ForeignKey) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	for _, c := range fk.Columns {
		if _, err := t.Column(c); err != nil {
			return err
		}
	}
	key := fk.Clone()
	if key.Name == "" {
		key.Name = e.naming.ForeignKey(t.Name, key.Columns)
	}

	var ch Change
	ch.push(e.syn.CreateForeignKey(t, key), e.syn.DropForeignKey(t, key))
	if err := e.apply(ctx, ch); err != nil {
		return err
	}

	post := t.Clone()
	post.ForeignKeys = append(post.ForeignKeys, key)
	e.cache.Replace(t, post)
	return nil
}

// DropForeignKey drops the named foreign key.
func (e *Executor) DropForeignKey(ctx context.Context, tableOrName any, name string) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	fk, err := t.ForeignKey(name)
	if err != nil {
		return err
	}

	var ch Change
	ch.push(e.syn.DropForeignKey(t, fk), e.syn.CreateForeignKey(t, fk))
	if err := e.apply(ctx, ch); err != nil {
		return err
	}

	post := t.Clone()
	post.ForeignKeys = slices.DeleteFunc(post.ForeignKeys, func(f *schema.ForeignKey) bool { return f.Name == name })
	e.cache.Replace(t, post)
	return nil
}

// CreateUniqueConstraint adds a first-class unique constraint. On dialects
// without the object it fails with ErrUnsupported before any SQL is
// emitted; the column-level unique toggle is the emulation path there.
func (e *Executor) CreateUniqueConstraint(ctx context.Context, tableOrName any, uq *schema.UniqueConstraint) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	u := uq.Clone()
	if u.Name == "" {
		u.Name = e.naming.Unique(t.Name, u.Columns)
	}

	up, err := e.syn.CreateUnique(t, u)
	if err != nil {
		return err
	}
	down, err := e.syn.DropUnique(t, u)
	if err != nil {
		return err
	}

	var ch Change
	ch.push(up, down)
	if err := e.apply(ctx, ch); err != nil {
		return err
	}

	post := t.Clone()
	post.Uniques = append(post.Uniques, u)
	e.cache.Replace(t, post)
	return nil
}

// DropUniqueConstraint drops a first-class unique constraint under the same
// capability gate as CreateUniqueConstraint.
func (e *Executor) DropUniqueConstraint(ctx context.Context, tableOrName any, name string) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	u, err := t.Unique(name)
	if err != nil {
		return err
	}

	up, err := e.syn.DropUnique(t, u)
	if err != nil {
		return err
	}
	down, err := e.syn.CreateUnique(t, u)
	if err != nil {
		return err
	}

	var ch Change
	ch.push(up, down)
	if err := e.apply(ctx, ch); err != nil {
		return err
	}

	post := t.Clone()
	post.Uniques = slices.DeleteFunc(post.Uniques, func(x *schema.UniqueConstraint) bool { return x.Name == name })
	e.cache.Replace(t, post)
	return nil
}

// CreateCheckConstraint adds a check constraint, gated on dialect support.
func (e *Executor) CreateCheckConstraint(ctx context.Context, tableOrName any, c *schema.CheckConstraint) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	chk := c.Clone()
	if chk.Name == "" {
		chk.Name = e.naming.Check(t.Name, chk.Expression)
	}

	up, err := e.syn.CreateCheck(t, chk)
	if err != nil {
		return err
	}
	down, err := e.syn.DropCheck(t, chk)
	if err != nil {
		return err
	}

	var ch Change
	ch.push(up, down)
	if err := e.apply(ctx, ch); err != nil {
		return err
	}

	post := t.Clone()
	post.Checks = append(post.Checks, chk)
	e.cache.Replace(t, post)
	return nil
}

// DropCheckConstraint drops the named check constraint.
func (e *Executor) DropCheckConstraint(ctx context.Context, tableOrName any, name string) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	chk, err := t.Check(name)
	if err != nil {
		return err
	}

	up, err := e.syn.DropCheck(t, chk)
	if err != nil {
		return err
	}
	down, err := e.syn.CreateCheck(t, chk)
	if err != nil {
		return err
	}

	var ch Change
	ch.push(up, down)
	if err := e.apply(ctx, ch); err != nil {
		return err
	}

	post := t.Clone()
	post.Checks = slices.DeleteFunc(post.Checks, func(x *schema.CheckConstraint) bool { return x.Name == name })
	e.cache.Replace(t, post)
	return nil
}

// CreateExclusionConstraint adds an exclusion constraint on the one dialect
// family that has them.
func (e *Executor) CreateExclusionConstraint(ctx context.Context, tableOrName any, x *schema.ExclusionConstraint) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	excl := *x
	if excl.Name == "" {
		excl.Name = e.naming.Exclusion(t.Name, excl.Expression)
	}

	up, err := e.syn.CreateExclusion(t, &excl)
	if err != nil {
		return err
	}
	down, err := e.syn.DropExclusion(t, &excl)
	if err != nil {
		return err
	}

	var ch Change
	ch.push(up, down)
	if err := e.apply(ctx, ch); err != nil {
		return err
	}

	post := t.Clone()
	post.Exclusions = append(post.Exclusions, &excl)
	e.cache.Replace(t, post)
	return nil
}

// DropExclusionConstraint drops the named exclusion constraint.
func (e *Executor) DropExclusionConstraint(ctx context.Context, tableOrName any, name string) error {
	t, err := e.resolve(ctx, tableOrName)
	if err != nil {
		return err
	}
	excl, err := t.Exclusion(name)
	if err != nil {
		return err
	}

	up, err := e.syn.DropExclusion(t, excl)
	if err != nil {
		return err
	}
	down, err := e.syn.CreateExclusion(t, excl)
	if err != nil {
		return err
	}

	var ch Change
	ch.push(up, down)
	if err := e.apply(ctx, ch); err != nil {
		return err
	}

	post := t.Clone()
	post.Exclusions = slices.DeleteFunc(post.Exclusions, func(y *schema.ExclusionConstraint) bool { return y.Name == name })
	e.cache.Replace(t, post)
	return nil
}
