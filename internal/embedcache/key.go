package embedcache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key is a content-addressed cache key: sha256(namespace \x00 text).
// The namespace isolates providers and dimensions from one another so
// a dimension change never collides with stale entries.
type Key string

// MakeKey derives the cache key for a (namespace, text) pair.
func MakeKey(namespace, text string) Key {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return Key(hex.EncodeToString(h.Sum(nil)))
}
