package stacks

import (
	"errors"
	"fmt"
	"io"
	"reflect"
)

// resource is a loaded item and the namespace path it was loaded from.
type resource struct {
	path string
	item any
}

// resourceCache holds loaded items partitioned by their declared type.
// Entries live until the library is closed.
type resourceCache struct {
	partitions map[reflect.Type]map[string]*resource
	count      int
}

func newResourceCache() *resourceCache {
	return &resourceCache{partitions: make(map[reflect.Type]map[string]*resource)}
}

func (c *resourceCache) get(typ reflect.Type, path string) (any, bool) {
	r, ok := c.partitions[typ][path]
	if !ok {
		return nil, false
	}
	return r.item, true
}

func (c *resourceCache) put(typ reflect.Type, path string, item any) {
	partition, ok := c.partitions[typ]
	if !ok {
		partition = make(map[string]*resource)
		c.partitions[typ] = partition
	}
	if _, exists := partition[path]; !exists {
		c.count++
	}
	partition[path] = &resource{path: path, item: item}
}

func (c *resourceCache) len() int { return c.count }

func (c *resourceCache) close() error {
	var errs []error
	for _, partition := range c.partitions {
		for _, r := range partition {
			if err := closeItem(r.item); err != nil {
				errs = append(errs, fmt.Errorf("close %q: %w", r.path, err))
			}
		}
	}
	c.partitions = make(map[reflect.Type]map[string]*resource)
	c.count = 0
	return errors.Join(errs...)
}

// mount is a nested store opened at a namespace path, plus the stream it
// reads from.
type mount struct {
	path   string
	store  Store
	stream io.Closer
}

// mountCache holds nested stores by the namespace path they were opened at.
// A path is opened at most once; entries are never evicted.
type mountCache struct {
	entries map[string]*mount
	order   []*mount
}

func newMountCache() *mountCache {
	return &mountCache{entries: make(map[string]*mount)}
}

func (c *mountCache) get(path string) (*mount, bool) {
	m, ok := c.entries[path]
	return m, ok
}

func (c *mountCache) put(path string, s Store, stream io.Closer) {
	m := &mount{path: path, store: s, stream: stream}
	c.entries[path] = m
	c.order = append(c.order, m)
}

func (c *mountCache) len() int { return len(c.entries) }

// close releases mounts newest first, so a store nested in another is
// closed before the store whose stream backs it.
func (c *mountCache) close() error {
	var errs []error
	for i := len(c.order) - 1; i >= 0; i-- {
		m := c.order[i]
		if err := m.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close mount %q: %w", m.path, err))
		}
		if err := m.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stream %q: %w", m.path, err))
		}
	}
	c.entries = make(map[string]*mount)
	c.order = nil
	return errors.Join(errs...)
}

func closeItem(item any) error {
	if c, ok := item.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
