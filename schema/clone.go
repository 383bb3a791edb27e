package schema

// Clone returns a deep copy of the table. The copy shares nothing with the
// receiver, so edits to the copy never leak into cached references.
func (t *Table) Clone() *Table {
	out := &Table{
		TableName: t.TableName,
		Engine:    t.Engine,
		Comment:   t.Comment,
	}
	if t.Columns != nil {
		out.Columns = make([]*Column, len(t.Columns))
		for i, c := range t.Columns {
			out.Columns[i] = c.Clone()
		}
	}
	if t.Indexes != nil {
		out.Indexes = make([]*Index, len(t.Indexes))
		for i, ix := range t.Indexes {
			out.Indexes[i] = ix.Clone()
		}
	}
	if t.Uniques != nil {
		out.Uniques = make([]*UniqueConstraint, len(t.Uniques))
		for i, u := range t.Uniques {
			out.Uniques[i] = u.Clone()
		}
	}
	if t.Checks != nil {
		out.Checks = make([]*CheckConstraint, len(t.Checks))
		for i, c := range t.Checks {
			out.Checks[i] = c.Clone()
		}
	}
	if t.Exclusions != nil {
		out.Exclusions = make([]*ExclusionConstraint, len(t.Exclusions))
		for i, e := range t.Exclusions {
			cp := *e
			out.Exclusions[i] = &cp
		}
	}
	if t.ForeignKeys != nil {
		out.ForeignKeys = make([]*ForeignKey, len(t.ForeignKeys))
		for i, fk := range t.ForeignKeys {
			out.ForeignKeys[i] = fk.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	cp := *c
	if c.Precision != nil {
		v := *c.Precision
		cp.Precision = &v
	}
	if c.Scale != nil {
		v := *c.Scale
		cp.Scale = &v
	}
	if c.Default != nil {
		v := *c.Default
		cp.Default = &v
	}
	if c.SRID != nil {
		v := *c.SRID
		cp.SRID = &v
	}
	if c.Enum != nil {
		cp.Enum = append([]string(nil), c.Enum...)
	}
	return &cp
}

// Clone returns a deep copy of the index.
func (ix *Index) Clone() *Index {
	cp := *ix
	cp.Columns = append([]string(nil), ix.Columns...)
	return &cp
}

// Clone returns a deep copy of the foreign key.
func (fk *ForeignKey) Clone() *ForeignKey {
	cp := *fk
	cp.Columns = append([]string(nil), fk.Columns...)
	cp.RefColumns = append([]string(nil), fk.RefColumns...)
	return &cp
}

// Clone returns a deep copy of the unique constraint.
func (u *UniqueConstraint) Clone() *UniqueConstraint {
	cp := *u
	cp.Columns = append([]string(nil), u.Columns...)
	return &cp
}

// Clone returns a deep copy of the check constraint.
func (c *CheckConstraint) Clone() *CheckConstraint {
	cp := *c
	if c.Columns != nil {
		cp.Columns = append([]string(nil), c.Columns...)
	}
	return &cp
}
