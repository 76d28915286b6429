package gpso

import (
	"bytes"
	"sync"

	"github.com/petar/GoLLRB/llrb"

	"github.com/Baaaaam/gpso/bitvec"
)

// Entry is a cached evaluation.
type Entry struct {
	Subset   *bitvec.Vector
	Merit    float64
	Features int
}

type rankItem struct {
	key bitvec.Key
	e   *Entry
}

// Less orders entries best first: higher merit, then fewer features, then
// key bytes so that distinct contents never compare equal.
func (a rankItem) Less(than llrb.Item) bool {
	b := than.(rankItem)
	if a.e.Merit != b.e.Merit {
		return a.e.Merit > b.e.Merit
	}
	if a.e.Features != b.e.Features {
		return a.e.Features < b.e.Features
	}
	return bytes.Compare(a.key[:], b.key[:]) < 0
}

// Cache memoizes subset merits by content.  Entries are never evicted.  It
// is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[bitvec.Key]*Entry
	ranked  *llrb.LLRB
}

func NewCache() *Cache {
	return &Cache{
		entries: map[bitvec.Key]*Entry{},
		ranked:  llrb.New(),
	}
}

func (c *Cache) Get(k bitvec.Key) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[k]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Lookup is Get keyed by v's content.
func (c *Cache) Lookup(v *bitvec.Vector) (Entry, bool) { return c.Get(v.Key()) }

// Put stores a copy of v with its merit.  If the content is already present
// the existing entry is kept and Put reports false.
func (c *Cache) Put(v *bitvec.Vector, merit float64) bool {
	k := v.Key()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[k]; ok {
		return false
	}
	e := &Entry{Subset: v.Clone(), Merit: merit, Features: v.Count()}
	c.entries[k] = e
	c.ranked.ReplaceOrInsert(rankItem{key: k, e: e})
	return true
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ranked returns up to n of the best cached subsets, best first.  The
// returned subsets are copies.
func (c *Cache) Ranked(n int) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n <= 0 || c.ranked.Len() == 0 {
		return nil
	}

	out := make([]Entry, 0, n)
	c.ranked.AscendGreaterOrEqual(c.ranked.Min(), func(it llrb.Item) bool {
		e := it.(rankItem).e
		out = append(out, Entry{Subset: e.Subset.Clone(), Merit: e.Merit, Features: e.Features})
		return len(out) < n
	})
	return out
}
