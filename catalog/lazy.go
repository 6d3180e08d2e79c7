package catalog

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FactoryFunc materializes the value of a canonical key.
type FactoryFunc[V any] func(ctx context.Context, key string) (V, error)

// LazyCache maps keys to values that are materialized on first access.
//
// Keys are registered up front without a value. A canonical key may have
// aliases; an alias resolves to the same value as its canonical key and
// never causes a second materialization. Listing, membership and removal
// never run the factory.
//
// The factory runs at most once per canonical key, and only successful
// results are stored. A failed materialization leaves the key as if it
// had never been accessed.
type LazyCache[V any] struct {
	factory FactoryFunc[V]
	group   singleflight.Group

	mu      sync.RWMutex
	keys    []string
	entries map[string]*lazyEntry[V]
	aliases map[string]string
}

type lazyEntry[V any] struct {
	value V
	ready bool
}

// NewLazyCache creates an empty cache using factory to materialize values.
func NewLazyCache[V any](factory FactoryFunc[V]) *LazyCache[V] {
	return &LazyCache[V]{
		factory: factory,
		entries: make(map[string]*lazyEntry[V]),
		aliases: make(map[string]string),
	}
}

// Register adds an unmaterialized canonical key.
// Registering an existing key is a no-op.
func (c *LazyCache[V]) Register(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasKeyLocked(key) {
		return
	}
	c.entries[key] = &lazyEntry[V]{}
	c.keys = append(c.keys, key)
}

// Alias adds alias as a secondary key for the canonical key.
// Returns false if key is not a canonical key or alias is already in use.
func (c *LazyCache[V]) Alias(alias, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok || c.hasKeyLocked(alias) {
		return false
	}
	c.aliases[alias] = key
	c.keys = append(c.keys, alias)
	return true
}

// Resolve returns the canonical key for key.
func (c *LazyCache[V]) Resolve(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolveLocked(key)
}

// Get returns the value for key, materializing it on first access.
// Unknown keys return ErrUnknownKey. Factory errors are returned as is.
//
// Concurrent callers share one factory run. The run is not cancelled with
// any single caller's context; a cancelled caller returns ctx.Err() while
// the others keep waiting for the result.
func (c *LazyCache[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V

	c.mu.RLock()
	canonical, ok := c.resolveLocked(key)
	var e lazyEntry[V]
	if ok {
		e = *c.entries[canonical]
	}
	c.mu.RUnlock()

	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if e.ready {
		return e.value, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(canonical, func() (_ any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("materialize %s: panic: %v", canonical, r)
			}
		}()

		// A previous flight may have finished between the check above
		// and joining this one.
		c.mu.RLock()
		current, ok := c.entries[canonical]
		if ok && current.ready {
			value := current.value
			c.mu.RUnlock()
			return value, nil
		}
		c.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}

		value, err := c.factory(shared, canonical)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if current, ok := c.entries[canonical]; ok {
			if current.ready {
				return current.value, nil
			}
			current.value = value
			current.ready = true
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		value, _ := res.Val.(V)
		return value, nil
	}
}

// Set stores v under key without running the factory.
// An unknown key is registered as a canonical key.
func (c *LazyCache[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	canonical, ok := c.resolveLocked(key)
	if !ok {
		canonical = key
		c.entries[key] = &lazyEntry[V]{}
		c.keys = append(c.keys, key)
	}
	e := c.entries[canonical]
	e.value = v
	e.ready = true
}

// Contains reports whether key is a canonical key or an alias.
func (c *LazyCache[V]) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasKeyLocked(key)
}

// Materialized reports whether the value for key has been materialized.
func (c *LazyCache[V]) Materialized(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	canonical, ok := c.resolveLocked(key)
	return ok && c.entries[canonical].ready
}

// Keys returns canonical keys and aliases in registration order.
func (c *LazyCache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.keys)
}

// Len returns the number of keys, aliases included.
func (c *LazyCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// Delete removes key. Deleting a canonical key also removes its aliases;
// deleting an alias leaves the canonical key in place.
func (c *LazyCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.aliases[key]; ok {
		delete(c.aliases, key)
		c.removeKeysLocked(map[string]bool{key: true})
		return
	}
	if _, ok := c.entries[key]; !ok {
		return
	}

	removed := map[string]bool{key: true}
	delete(c.entries, key)
	for alias, canonical := range c.aliases {
		if canonical == key {
			delete(c.aliases, alias)
			removed[alias] = true
		}
	}
	c.removeKeysLocked(removed)
}

func (c *LazyCache[V]) hasKeyLocked(key string) bool {
	if _, ok := c.entries[key]; ok {
		return true
	}
	_, ok := c.aliases[key]
	return ok
}

func (c *LazyCache[V]) resolveLocked(key string) (string, bool) {
	if _, ok := c.entries[key]; ok {
		return key, true
	}
	canonical, ok := c.aliases[key]
	return canonical, ok
}

func (c *LazyCache[V]) removeKeysLocked(removed map[string]bool) {
	c.keys = slices.DeleteFunc(c.keys, func(k string) bool { return removed[k] })
}
