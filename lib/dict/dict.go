package dict

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Key Dictionary
// --------------------------------------------------------------------------

// KeyDictionary is an append-only table that maps attribute and time
// series key names to small integer ids. Ids start at 1, are assigned in
// increasing order and are never reused.
//
// Thread-safety: all methods are safe for concurrent use.
type KeyDictionary struct {
	ids   *xsync.MapOf[string, int32]
	names *xsync.MapOf[int32, string]
	last  atomic.Int32
}

// NewKeyDictionary creates an empty dictionary.
func NewKeyDictionary() *KeyDictionary {
	return &KeyDictionary{
		ids:   xsync.NewMapOf[string, int32](),
		names: xsync.NewMapOf[int32, string](),
	}
}

// Lookup returns the id of key without assigning one.
func (d *KeyDictionary) Lookup(key string) (int32, bool) {
	return d.ids.Load(key)
}

// ID returns the id of key, assigning the next free id if key is new.
func (d *KeyDictionary) ID(key string) int32 {
	id, _ := d.ids.LoadOrCompute(key, func() int32 {
		id := d.last.Add(1)
		d.names.Store(id, key)
		return id
	})
	return id
}

// Name is the reverse lookup of ID.
func (d *KeyDictionary) Name(id int32) (string, bool) {
	return d.names.Load(id)
}

// Size returns the number of assigned ids.
func (d *KeyDictionary) Size() int {
	return d.ids.Size()
}
