// Package store holds the latest known sample of every tag.
//
// The Store is the decoupling point of the bridge: the southbound side
// writes into it from arbitrary goroutines and the northbound sync
// scheduler reads from it on its own cadence. Neither side waits for the
// other beyond a single key's critical section.
//
// Keys are spread over a fixed number of shards, each guarded by its own
// RWMutex that only protects the key set. Each entry publishes its current
// sample through an atomic pointer, so overwriting an existing tag never
// takes a write lock and readers never observe a partially written sample.
//
// Entries are created on the first update for a tag and are never deleted.
// A tag that was never updated is absent, which is distinct from a stored
// zero value.
package store
