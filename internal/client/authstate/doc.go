// Package authstate reconciles the authority's session and onboarding record,
// the local cache and the in-memory snapshot read by views.
//
// An Engine owns all mutable state on one goroutine. Lifecycle events, startup
// results, fetch results and external commands are all serialized through its
// inbox, so the snapshot has exactly one writer. Fetches run on their own
// goroutines and post their result back; a result is committed only if the
// user it was issued for is still the current user and nothing newer has been
// committed since. Stale results are dropped, never aborted mid-flight.
//
// The cache is a hint. Reads happen alongside the remote fetch, writes are
// queued on a cache.Writer and are never waited on by a state transition.
package authstate
