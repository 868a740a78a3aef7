// Package cache is the client's local cache of onboarding hints.
//
// Two layers:
//
//   - Store: an error-returning key/value store. SecureStore persists values in
//     the SQLite metadata table, sealed with AES-GCM under a key derived from a
//     device secret; MemoryStore keeps them in process memory.
//   - Cache: the failure-free view the reconciliation engine uses. Logged wraps
//     a Store, logs every failure and turns it into a miss or a skipped write.
//
// Writer serializes fire-and-forget writes so they land in issue order.
// The cache is a hint. Nothing in it is authoritative.
package cache
