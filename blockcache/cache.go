// Package blockcache provides a small in-process cache of decompressed
// block payloads keyed by (SST generation, block offset), so a Scanner
// re-reading a hot block during compaction or repeated lookups skips
// storage I/O and decompression.
//
// Adapted down from the teacher's go-block-cache: that package shards
// across N buckets and ref-counts entries to support many concurrent
// readers sharing one process-wide cache. This engine's reader model is
// one scanner per SST, single-threaded (spec.md's Non-goals exclude
// multi-writer/multi-reader concurrency on a single SST) — sharding and
// reference counting would only add lock contention accounting for
// concurrency this engine never has, so this cache keeps the teacher's
// hashing scheme (murmur3 over the (generation, offset) pair) and its
// doubly-linked LRU eviction, dropping only the sharding and ref-count
// machinery.
package blockcache

import (
	"encoding/binary"
	"sync"

	"github.com/twmb/murmur3"
)

// Key identifies one cached block.
type Key struct {
	Generation int64
	Offset     uint64
}

func (k Key) hash() uint32 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(k.Generation))
	binary.LittleEndian.PutUint64(buf[8:16], k.Offset)
	return murmur3.Sum32(buf[:])
}

type entry struct {
	key        Key
	value      []byte
	prev, next *entry
}

// Cache is a fixed-byte-budget LRU of decompressed block payloads.
type Cache struct {
	mu       sync.Mutex
	capacity int64
	inUse    int64
	index    map[uint32]*entry
	recent   *entry // sentinel: recent.next is most-recently-used
}

// New returns a Cache that evicts entries once the sum of cached
// payload lengths would exceed capacityBytes.
func New(capacityBytes int64) *Cache {
	sentinel := &entry{}
	sentinel.next = sentinel
	sentinel.prev = sentinel
	return &Cache{
		capacity: capacityBytes,
		index:    make(map[uint32]*entry),
		recent:   sentinel,
	}
}

// Get returns the cached payload for key, if present, promoting it to
// most-recently-used.
func (c *Cache) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[key.hash()]
	if !ok || e.key != key {
		return nil, false
	}
	c.unlink(e)
	c.pushFront(e)
	return e.value, true
}

// Set inserts or replaces the cached payload for key, evicting the
// least-recently-used entries until the cache is back under capacity.
func (c *Cache) Set(key Key, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := key.hash()
	if old, ok := c.index[h]; ok && old.key == key {
		c.unlink(old)
		c.inUse -= int64(len(old.value))
		delete(c.index, h)
	}

	e := &entry{key: key, value: value}
	c.index[h] = e
	c.pushFront(e)
	c.inUse += int64(len(value))

	for c.inUse > c.capacity && c.recent.prev != c.recent {
		lru := c.recent.prev
		c.unlink(lru)
		c.inUse -= int64(len(lru.value))
		delete(c.index, lru.key.hash())
	}
}

// Delete evicts key if present.
func (c *Cache) Delete(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := key.hash()
	e, ok := c.index[h]
	if !ok || e.key != key {
		return
	}
	c.unlink(e)
	c.inUse -= int64(len(e.value))
	delete(c.index, h)
}

// InUse returns the total bytes currently cached.
func (c *Cache) InUse() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inUse
}

func (c *Cache) pushFront(e *entry) {
	tail := c.recent.next
	c.recent.next = e
	e.prev = c.recent
	e.next = tail
	tail.prev = e
}

func (c *Cache) unlink(e *entry) {
	if e.prev == nil || e.next == nil {
		return
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
}
