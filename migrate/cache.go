package migrate

import (
	"context"
	"fmt"
	"sync"

	"github.com/alterkit/alterkit/schema"
)

// Loader batch-introspects live database objects into the canonical model.
// Implemented per dialect by the introspect package.
type Loader interface {
	LoadTables(ctx context.Context, names []string) ([]*schema.Table, error)
	LoadViews(ctx context.Context, names []string) ([]*schema.View, error)
	ListTableNames(ctx context.Context) ([]string, error)
	ListViewNames(ctx context.Context) ([]string, error)
}

// Cache holds exactly one Table per qualified name, scoped to one
// session/migration run. Lookups and entry swaps are safe for concurrent
// callers; loads are single-flight under the same lock. Entries are replaced
// wholesale, never edited in place.
type Cache struct {
	mu     sync.Mutex
	loader Loader
	tables map[string]*schema.Table
	views  map[string]*schema.View
	missed map[string]bool // names introspection found nothing for
}

// NewCache creates a cache backed by the given loader.
func NewCache(loader Loader) *Cache {
	return &Cache{
		loader: loader,
		tables: make(map[string]*schema.Table),
		views:  make(map[string]*schema.View),
		missed: make(map[string]bool),
	}
}

// Table returns the cached table, introspecting on first access.
func (c *Cache) Table(ctx context.Context, name schema.TableName) (*schema.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := name.String()
	if t, ok := c.tables[key]; ok {
		return t, nil
	}
	if c.missed[key] {
		return nil, fmt.Errorf("table %q: %w", key, schema.ErrNotFound)
	}
	if c.loader == nil {
		return nil, fmt.Errorf("table %q: %w", key, schema.ErrNotFound)
	}
	tables, err := c.loader.LoadTables(ctx, []string{key})
	if err != nil {
		return nil, fmt.Errorf("introspecting table %q: %w", key, err)
	}
	for _, t := range tables {
		c.tables[t.TableName.String()] = t
	}
	if t, ok := c.tables[key]; ok {
		return t, nil
	}
	c.missed[key] = true
	return nil, fmt.Errorf("table %q: %w", key, schema.ErrNotFound)
}

// Replace atomically swaps a cache entry: the old table's slot is taken by
// the new one, including a rename.
func (c *Cache) Replace(old, new *schema.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, old.TableName.String())
	c.tables[new.TableName.String()] = new
	delete(c.missed, new.TableName.String())
}

// Insert registers a freshly created table.
func (c *Cache) Insert(t *schema.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := t.TableName.String()
	c.tables[key] = t
	delete(c.missed, key)
}

// Remove drops a cache entry after the table itself was dropped.
func (c *Cache) Remove(name schema.TableName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := name.String()
	delete(c.tables, key)
	c.missed[key] = true
}

// ListTableNames lists live table names through the loader.
func (c *Cache) ListTableNames(ctx context.Context) ([]string, error) {
	if c.loader == nil {
		return nil, fmt.Errorf("list tables: no introspector configured")
	}
	return c.loader.ListTableNames(ctx)
}

// ListViewNames lists live view names through the loader.
func (c *Cache) ListViewNames(ctx context.Context) ([]string, error) {
	if c.loader == nil {
		return nil, fmt.Errorf("list views: no introspector configured")
	}
	return c.loader.ListViewNames(ctx)
}

// Tables returns all currently cached tables.
func (c *Cache) Tables() []*schema.Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*schema.Table, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	return out
}
