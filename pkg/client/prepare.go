// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"container/list"
	"sync"

	"github.com/tantora/mariawire/pkg/proto"
	"go.uber.org/atomic"
)

// ServerPrepareResult is a reference-counted server-side prepared statement
// handle, shared between the cache and every execution using it. The server
// resource is released exactly once, when the use count reaches zero.
type ServerPrepareResult struct {
	statementID uint32
	numParams   uint16
	columns     []proto.Column
	useCount    atomic.Int32
}

// NewServerPrepareResult creates a handle with one reference, held by the
// command that prepared it.
func NewServerPrepareResult(statementID uint32, numParams uint16, columns []proto.Column) *ServerPrepareResult {
	r := &ServerPrepareResult{
		statementID: statementID,
		numParams:   numParams,
		columns:     columns,
	}
	r.useCount.Store(1)
	return r
}

func (r *ServerPrepareResult) StatementID() uint32 {
	return r.statementID
}

func (r *ServerPrepareResult) NumParams() uint16 {
	return r.numParams
}

func (r *ServerPrepareResult) Columns() []proto.Column {
	return r.columns
}

// UseCount is exposed for tests.
func (r *ServerPrepareResult) UseCount() int32 {
	return r.useCount.Load()
}

// IncrementUse takes a reference. It fails when the handle already reached
// zero and its server resource is being deallocated.
func (r *ServerPrepareResult) IncrementUse() bool {
	for {
		v := r.useCount.Load()
		if v <= 0 {
			return false
		}
		if r.useCount.CompareAndSwap(v, v+1) {
			return true
		}
	}
}

// DecrementUse drops a reference. The transition to zero happens once, and
// only that caller requests the server-side deallocation.
func (r *ServerPrepareResult) DecrementUse(closer StatementCloser) {
	if r.useCount.Dec() == 0 && closer != nil {
		closer.CloseStatement(r.statementID)
	}
}

type cacheEntry struct {
	sql  string
	stmt *ServerPrepareResult
}

// PrepareCache deduplicates prepared statements by normalized SQL text, with
// LRU eviction. Because preparation is a round trip, two concurrent
// preparations of the same text can both complete; Put resolves the race by
// an insert-if-absent under one lock, so exactly one handle stays
// authoritative.
type PrepareCache struct {
	mu       sync.Mutex
	elems    map[string]*list.Element
	lru      *list.List
	capacity int
	closer   StatementCloser
	hits     atomic.Uint64
	misses   atomic.Uint64
}

func NewPrepareCache(capacity int, closer StatementCloser) *PrepareCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &PrepareCache{
		elems:    make(map[string]*list.Element, capacity),
		lru:      list.New(),
		capacity: capacity,
		closer:   closer,
	}
}

// Put caches a freshly prepared handle. When another handle is already
// cached for the same text, the existing one is returned with a reference
// taken for the caller, who must discard its own handle with exactly one
// DecrementUse and use the returned one instead. Returns nil when the new
// handle was inserted.
func (c *PrepareCache) Put(sql string, stmt *ServerPrepareResult) *ServerPrepareResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.elems[sql]; ok {
		entry := el.Value.(*cacheEntry)
		if entry.stmt.IncrementUse() {
			c.lru.MoveToFront(el)
			return entry.stmt
		}
		// cached handle already died, replace it
		entry.stmt = stmt
		stmt.IncrementUse()
		c.lru.MoveToFront(el)
		return nil
	}
	// the cache holds its own reference
	stmt.IncrementUse()
	c.elems[sql] = c.lru.PushFront(&cacheEntry{sql: sql, stmt: stmt})
	for c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		entry := oldest.Value.(*cacheEntry)
		delete(c.elems, entry.sql)
		entry.stmt.DecrementUse(c.closer)
	}
	return nil
}

// Get returns the cached handle with a reference taken, or nil.
func (c *PrepareCache) Get(sql string) *ServerPrepareResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.elems[sql]
	if !ok {
		c.misses.Inc()
		return nil
	}
	entry := el.Value.(*cacheEntry)
	if !entry.stmt.IncrementUse() {
		c.lru.Remove(el)
		delete(c.elems, entry.sql)
		c.misses.Inc()
		return nil
	}
	c.lru.MoveToFront(el)
	c.hits.Inc()
	return entry.stmt
}

func (c *PrepareCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns hit and miss counts of Get.
func (c *PrepareCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
