// Package credentials persists the credential triplet (access token, refresh
// token, serialized user) behind domain.CredentialStore.
//
// MemoryStore and FileStore live here; Redis and PostgreSQL implementations
// live in internal/adapter. EncryptedStore and Instrumented are decorators that
// wrap any of them.
package credentials
