// Package storage defines the persistence contract for Early Shift: CCU
// snapshot history, per-universe metadata, collected creator videos, and the
// append-only spike ledger. The Store interface composes the four concerns;
// backends live in the sqlite, postgres, and memory subpackages and the
// driver subpackage picks one from configuration.
//
// All backends share the sentinel errors declared here so callers can branch
// on errors.Is without knowing which backend is wired. Writes are idempotent
// upserts keyed on natural identity, except the spike ledger, which rejects
// duplicates so an alert is recorded at most once per detection.
package storage
