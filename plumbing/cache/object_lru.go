package cache

import (
	"container/list"
	"sync"

	"github.com/sourcehold/gitkit/plumbing"
)

// ObjectLRU implements an object cache with an LRU eviction policy and a
// byte-size budget, the same shape as groupcache's lru.Cache but keyed by
// plumbing.Hash and aware of each entry's EncodedObject.Size.
type ObjectLRU struct {
	MaxSize FileSize

	actualSize FileSize
	ll         *list.List
	cache      map[interface{}]*list.Element
	mu         sync.Mutex
}

// NewObjectLRU creates a new ObjectLRU with the given maximum size.
func NewObjectLRU(maxSize FileSize) *ObjectLRU {
	return &ObjectLRU{MaxSize: maxSize}
}

// NewObjectLRUDefault creates a new ObjectLRU with DefaultMaxSize.
func NewObjectLRUDefault() *ObjectLRU {
	return NewObjectLRU(DefaultMaxSize)
}

type objectLRUEntry struct {
	key   plumbing.Hash
	value plumbing.EncodedObject
}

// Put puts an object into the cache. If the object is already present, its
// entry is moved to the front and its recorded size updated; objects are
// evicted from the back until the cache is within MaxSize.
func (c *ObjectLRU) Put(obj plumbing.EncodedObject) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := obj.Hash()

	if c.cache == nil {
		c.actualSize = 0
		c.cache = make(map[interface{}]*list.Element)
		c.ll = list.New()
	}

	if ee, ok := c.cache[key]; ok {
		oldSize := ee.Value.(*objectLRUEntry).value.Size()
		c.actualSize -= FileSize(oldSize)
		c.ll.MoveToFront(ee)
		ee.Value.(*objectLRUEntry).value = obj
		c.actualSize += FileSize(obj.Size())
	} else {
		ele := c.ll.PushFront(&objectLRUEntry{key, obj})
		c.cache[key] = ele
		c.actualSize += FileSize(obj.Size())
	}

	for c.actualSize > c.MaxSize && c.ll.Len() > 0 {
		c.removeOldest()
	}
}

// Get returns the object keyed by k, if present, promoting it to the front.
func (c *ObjectLRU) Get(k plumbing.Hash) (plumbing.EncodedObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache == nil {
		return nil, false
	}

	if ele, hit := c.cache[k]; hit {
		c.ll.MoveToFront(ele)
		return ele.Value.(*objectLRUEntry).value, true
	}

	return nil, false
}

// Clear empties the cache.
func (c *ObjectLRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll = nil
	c.cache = nil
	c.actualSize = 0
}

func (c *ObjectLRU) removeOldest() {
	ele := c.ll.Back()
	if ele == nil {
		return
	}

	c.ll.Remove(ele)
	entry := ele.Value.(*objectLRUEntry)
	delete(c.cache, entry.key)
	c.actualSize -= FileSize(entry.value.Size())
}
