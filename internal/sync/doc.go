// Package sync implements the offline-first synchronization engine: a
// single controller goroutine that owns the in-memory planner document,
// reconciles inbound remote snapshots (echo cancellation, tombstone-aware
// merge, wipe handling, upstream protection), and persists local changes
// through a debounced local-first, remote-second write path.
package sync
