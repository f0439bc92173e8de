// Package apperr defines the sentinel error taxonomy shared across the
// service. Call sites wrap one of these with fmt.Errorf("...: %w", err)
// and callers unwrap with errors.Is.
package apperr

import "errors"

var (
	// ErrStoreUnavailable indicates the Cassandra cluster could not be
	// reached or a query failed for reasons outside the caller's control.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a uniqueness invariant would be violated.
	ErrAlreadyExists = errors.New("already exists")

	// ErrMigrationFailed indicates the schema migration/election state
	// machine could not bring the keyspace to the expected state.
	ErrMigrationFailed = errors.New("migration failed")

	// ErrAuthFailed indicates a credential or session check failed.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation error")
)
