// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (session.go, user.go, auth.go,
// store.go, etc.) with shared types and the collaborator contracts the session
// manager depends on. No implementation code - just contracts.
// Prevents circular imports by keeping interfaces on the consumer side.
package domain
