// Package flow tracks telemetry reports per correlation key.
//
// Packet reports and the drop reports that follow them share a correlation
// key, so the index shows how many reports each flow produced and whether any
// of them were drops. Entries expire after a configurable idle time.
package flow

import (
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"firestige.xyz/trpt/pkg/trpt"
)

const (
	defaultTTL     = 10 * time.Minute
	defaultCleanup = 1 * time.Minute
)

// Entry is the state kept per correlation key.
type Entry struct {
	Key       string    `json:"key" yaml:"key"`
	Reports   uint64    `json:"reports" yaml:"reports"`
	Packets   uint64    `json:"packets" yaml:"packets"`
	Drops     uint64    `json:"drops" yaml:"drops"`
	FirstSeen time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen  time.Time `json:"last_seen" yaml:"last_seen"`
}

// Index is a concurrency-safe expiring map from correlation key to Entry.
type Index struct {
	mu    sync.Mutex
	ttl   time.Duration
	cache *cache.Cache
}

// New creates an index. Entries idle for ttl are evicted; expired entries are
// purged every cleanup. Non-positive values select the defaults.
func New(ttl, cleanup time.Duration) *Index {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if cleanup <= 0 {
		cleanup = defaultCleanup
	}
	return &Index{ttl: ttl, cache: cache.New(ttl, cleanup)}
}

// Observe records a report of kind for key seen at ts and returns the
// updated entry.
func (i *Index) Observe(key string, kind trpt.Kind, ts time.Time) Entry {
	i.mu.Lock()
	defer i.mu.Unlock()

	var e Entry
	if cached, found := i.cache.Get(key); found {
		e = cached.(Entry)
	} else {
		e = Entry{Key: key, FirstSeen: ts}
	}
	e.Reports++
	switch kind {
	case trpt.KindDrop:
		e.Drops++
	default:
		e.Packets++
	}
	if ts.Before(e.FirstSeen) {
		e.FirstSeen = ts
	}
	if ts.After(e.LastSeen) {
		e.LastSeen = ts
	}
	i.cache.Set(key, e, i.ttl)
	return e
}

// Get returns the entry for key.
func (i *Index) Get(key string) (Entry, bool) {
	cached, found := i.cache.Get(key)
	if !found {
		return Entry{}, false
	}
	return cached.(Entry), true
}

// Len returns the number of entries, possibly including expired entries not
// yet purged.
func (i *Index) Len() int { return i.cache.ItemCount() }

// Snapshot returns the live entries, most reports first, ties by key.
func (i *Index) Snapshot() []Entry {
	items := i.cache.Items()
	out := make([]Entry, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(Entry))
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Reports != out[b].Reports {
			return out[a].Reports > out[b].Reports
		}
		return out[a].Key < out[b].Key
	})
	return out
}

// Flush removes every entry.
func (i *Index) Flush() { i.cache.Flush() }
