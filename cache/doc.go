// Package cache stores command results together with the filesystem
// dependencies they were computed from.
//
// An Entry is keyed by a command identity and carries the fingerprint of every
// path the command touched. LookupAndValidate re-fingerprints those paths and
// returns the entry only when all of them still match; there is no TTL.
//
// Three Store implementations are provided: MemoryStore for tests, BoltStore
// backed by a bbolt database file, and FileStore with one JSON document per
// identity. All of them replace entries atomically.
package cache
