// Package crypto seals credential values at rest.
//
// Two sealing schemes share one Service contract: AES-256-GCM keyed from a hex
// key (TOKEN_ENCRYPTION_KEY), and ChaCha20-Poly1305 keyed by scrypt from a
// passphrase (STORE_PASSPHRASE) with a fresh salt per value. The storage key
// name is bound as associated data, so a sealed access token cannot be replayed
// into the refresh-token slot. NoopService passes values through for dev/test.
package crypto
