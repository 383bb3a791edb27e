package migrate

// Change is one logical schema mutation as an ordered (up, down) statement
// pair. Replaying Down immediately after Up restores the prior table model
// exactly, including every incidentally renamed object.
type Change struct {
	Up   []string
	Down []string
}

// push appends a forward statement and its inverse. Down statements are
// prepended so they replay in reverse order of the ups they undo.
func (c *Change) push(up, down string) {
	if up != "" {
		c.Up = append(c.Up, up)
	}
	if down != "" {
		c.Down = append([]string{down}, c.Down...)
	}
}

// merge appends another change, keeping the inverse ordering discipline.
func (c *Change) merge(other Change) {
	c.Up = append(c.Up, other.Up...)
	c.Down = append(append([]string(nil), other.Down...), c.Down...)
}

// empty reports whether the change carries no statements.
func (c *Change) empty() bool {
	return len(c.Up) == 0 && len(c.Down) == 0
}
