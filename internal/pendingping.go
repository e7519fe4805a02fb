package internal

import (
	"github.com/dolthub/maphash"
)

// PendingPing pairs a ping payload with the callback to run when the
// matching pong arrives (spec.md §3: "Pending Ping: pair of (payload
// bytes, callback)").
type PendingPing struct {
	Payload  []byte
	Callback func()
}

type pingEntry struct {
	key  string
	ping PendingPing
	next int // index of the next entry in the same bucket chain, -1 if none
}

// PingTable is a payload-keyed table of pending pings. Grounded on the
// teacher's map.go ("because sync.Map is not easy to debug, so I
// implemented my own map"), generalized from interface{} keys to
// []byte-payload keys and hashed with github.com/dolthub/maphash instead
// of relying on Go's built-in (and unexported) map hash, matching that
// library's typed generic Hasher.
//
// The driver only ever touches one PingTable from the single cooperative
// goroutine that owns it (spec.md §5), so no locking is required.
type PingTable struct {
	hasher  maphash.Hasher[string]
	buckets []int // bucket -> head entry index, -1 if empty
	entries []pingEntry
}

// NewPingTable returns an empty table.
func NewPingTable() *PingTable {
	const initialBuckets = 8
	t := &PingTable{
		hasher:  maphash.NewHasher[string](),
		buckets: make([]int, initialBuckets),
	}
	for i := range t.buckets {
		t.buckets[i] = -1
	}
	return t
}

func (t *PingTable) bucketFor(key string) int {
	h := t.hasher.Hash(key)
	return int(h % uint64(len(t.buckets)))
}

// Store records a pending ping, replacing any existing entry for the
// same payload.
func (t *PingTable) Store(payload []byte, callback func()) {
	key := string(payload)
	t.Delete(payload)
	b := t.bucketFor(key)
	idx := len(t.entries)
	t.entries = append(t.entries, pingEntry{key: key, ping: PendingPing{Payload: payload, Callback: callback}, next: t.buckets[b]})
	t.buckets[b] = idx
}

// Take removes and returns the pending ping matching payload, if any.
// This is the operation driving spec.md §3's "On matching pong the
// callback fires and the entry is removed."
func (t *PingTable) Take(payload []byte) (PendingPing, bool) {
	key := string(payload)
	b := t.bucketFor(key)
	prev := -1
	for idx := t.buckets[b]; idx != -1; idx = t.entries[idx].next {
		if t.entries[idx].key == key {
			ping := t.entries[idx].ping
			t.unlink(b, idx, prev)
			return ping, true
		}
		prev = idx
	}
	return PendingPing{}, false
}

// Delete removes any pending ping for payload without returning it.
func (t *PingTable) Delete(payload []byte) {
	t.Take(payload)
}

func (t *PingTable) unlink(bucket, idx, prev int) {
	if prev == -1 {
		t.buckets[bucket] = t.entries[idx].next
	} else {
		t.entries[prev].next = t.entries[idx].next
	}
	// Entries slice keeps a tombstone; ping tables stay small (one
	// entry per in-flight ping) so we don't bother compacting it.
	t.entries[idx] = pingEntry{next: -2}
}

// Len reports the number of pings currently pending.
func (t *PingTable) Len() int {
	n := 0
	for _, b := range t.buckets {
		for idx := b; idx != -1; idx = t.entries[idx].next {
			n++
		}
	}
	return n
}
