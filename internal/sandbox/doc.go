// Package sandbox is an in-memory implementation of the agromarket auth and
// profile backend, for local development and end-to-end tests.
//
// Accounts, one-time codes and refresh grants live in process memory and are
// lost on restart. One-time codes are logged instead of delivered.
package sandbox
