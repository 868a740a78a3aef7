// Package client is the Remote Authority client of the dailybread app.
//
// # Overview
//
//  1. Authority is the transport-agnostic contract the session synchronizer
//     depends on: GetSession, FetchOnboarding, CompleteOnboarding, the
//     sign-in/sign-out primitives, and a lifecycle event subscription.
//  2. HTTPClient implements it over the authority's JSON endpoints. It owns
//     the session: it persists it through a SessionStore, refreshes it when
//     it expires (StartAutoRefresh runs this in the background) and emits
//     SIGNED_IN, SIGNED_OUT, TOKEN_REFRESHED and INITIAL_SESSION events.
//  3. InitDatabase and RunMigrations bootstrap the local SQLite file shared by
//     the session store and the onboarding cache.
//
// # Error Handling
//
// Failures map to sentinels matched with errors.Is: ErrUnavailable (transport
// or 5xx), ErrUnauthorized (401/403), ErrNotFound (404), ErrBadRequest (other
// 4xx), ErrOnboardingWrite (any CompleteOnboarding failure) and ErrNoSession.
//
// # Events
//
// Delivery is serialized: every subscriber sees events in emission order.
// A missing onboarding record is not an error; it is the zero status.
package client
