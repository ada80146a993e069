package core

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"sort"
	"sync"
)

// Assigns is the state a component publishes for rendering. Writes go
// through a ChangeTracker so the router can skip renders after events that
// changed nothing.
type Assigns struct {
	data    map[string]any
	tracker *ChangeTracker
	mu      sync.RWMutex
}

// NewAssigns creates an empty store.
func NewAssigns() *Assigns {
	return &Assigns{
		data:    make(map[string]any),
		tracker: NewChangeTracker(),
	}
}

// Get returns the value under key, or nil.
func (a *Assigns) Get(key string) any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data[key]
}

// Set stores value under key.
func (a *Assigns) Set(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[key] = value
	a.tracker.Track(key, value)
}

// SetAll stores every entry of values.
func (a *Assigns) SetAll(values map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, value := range values {
		a.data[key] = value
		a.tracker.Track(key, value)
	}
}

// Keys returns the stored keys, sorted.
func (a *Assigns) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.data))
	for k := range a.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Tracker returns the change tracker.
func (a *Assigns) Tracker() *ChangeTracker {
	return a.tracker
}

// ChangeTracker remembers a fingerprint per key and flags keys whose
// fingerprint moved since the last flush.
type ChangeTracker struct {
	prints  map[string]uint64
	changed map[string]bool
	flushes uint64
	mu      sync.Mutex
}

// NewChangeTracker creates a tracker with nothing pending.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{
		prints:  make(map[string]uint64),
		changed: make(map[string]bool),
	}
}

// Track records a write. Writing an equal value is not a change.
func (ct *ChangeTracker) Track(key string, value any) {
	fp := Fingerprint(value)
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if prev, ok := ct.prints[key]; !ok || prev != fp {
		ct.changed[key] = true
	}
	ct.prints[key] = fp
}

// HasChanges reports whether a key changed since the last flush.
func (ct *ChangeTracker) HasChanges() bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return len(ct.changed) > 0
}

// Flush returns the changed keys, sorted, and clears them.
func (ct *ChangeTracker) Flush() []string {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	keys := make([]string, 0, len(ct.changed))
	for k := range ct.changed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	clear(ct.changed)
	ct.flushes++
	return keys
}

// Flushes returns how many times Flush ran.
func (ct *ChangeTracker) Flushes() uint64 {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.flushes
}

// Fingerprint hashes the values components publish: strings, numbers,
// bools, string slices and maps of those. Every value is prefixed with a
// type tag, so "1" and 1 differ. Other types hash their %#v form.
func Fingerprint(v any) uint64 {
	h := fnv.New64a()
	writeValue(h, v)
	return h.Sum64()
}

func writeValue(w io.Writer, v any) {
	var num [8]byte
	putUint := func(tag byte, u uint64) {
		binary.LittleEndian.PutUint64(num[:], u)
		w.Write([]byte{tag})
		w.Write(num[:])
	}
	putString := func(tag byte, s string) {
		putUint(tag, uint64(len(s)))
		io.WriteString(w, s)
	}

	switch val := v.(type) {
	case nil:
		w.Write([]byte{'n'})
	case string:
		putString('s', val)
	case bool:
		if val {
			putUint('b', 1)
		} else {
			putUint('b', 0)
		}
	case int:
		putUint('i', uint64(val))
	case int64:
		putUint('i', uint64(val))
	case float64:
		putUint('f', math.Float64bits(val))
	case []string:
		putUint('l', uint64(len(val)))
		for _, item := range val {
			putString('s', item)
		}
	case []any:
		putUint('l', uint64(len(val)))
		for _, item := range val {
			writeValue(w, item)
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		putUint('m', uint64(len(keys)))
		for _, k := range keys {
			putString('k', k)
			writeValue(w, val[k])
		}
	default:
		putString('?', fmt.Sprintf("%#v", val))
	}
}
