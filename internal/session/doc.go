// Package session owns the client's authentication state machine.
//
// A Manager holds exactly one domain.Session and moves it through
// Uninitialized → Restoring → {Authenticated, Unauthenticated}. Every result
// that was computed against an older session (a restore racing a logout, a
// profile backfill finishing after the user switched accounts) is tagged with
// the epoch it started in and dropped when the epoch has moved on.
//
// Credential writes and epoch transitions are serialized under one lock, so a
// stale result can neither reach memory nor the credential store.
package session
