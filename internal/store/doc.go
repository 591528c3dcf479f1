// Package store provides SQLite-backed durable storage for popup frequency
// counters.
//
// Counters live in scopes:
//   - "local": durable values such as last-shown timestamps, surviving reloads
//     and restarts.
//   - "session:<id>": values that only count within one browsing session.
//     Session ids are UUIDv7, so pruning by start time is an index scan.
//
// A Bucket binds a Store to one scope and satisfies counter.Store, which is
// what the engine consumes.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
