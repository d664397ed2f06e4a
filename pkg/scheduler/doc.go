// Package scheduler propagates store values into address space nodes on a
// fixed period.
//
// Each tick visits every node in address space order:
//
//  1. Read the bound tag from the store.
//  2. No entry: leave the node as it is.
//  3. Otherwise write the sample into the node and notify northbound.
//     In on-change mode, samples equal to the node's last write are skipped.
//
// A failing node write (type mismatch, panic in a notifier) is logged and
// counted. The remaining nodes of the tick are still processed.
//
// Ticks never overlap. When the timer fires while a tick is still running
// the new tick is skipped, not queued. Tick can also be called directly,
// which makes the sync cycle testable without real time passing.
package scheduler
