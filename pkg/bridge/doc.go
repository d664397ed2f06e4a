// Package bridge wires the tag bridge together.
//
// A Bridge owns one value store, the address space synthesized from the
// configured tags, a supervisor running the southbound adapter, the sync
// scheduler and the northbound server. Components start in dependency
// order:
//
//  1. address space (in New; a duplicate or invalid tag fails New)
//  2. event log
//  3. southbound supervisor
//  4. sync scheduler
//  5. northbound server
//  6. mDNS advertisement
//
// and stop in reverse. A failed Start releases whatever it had started
// before returning, so a bridge never serves with a partial pipeline.
package bridge
