package entities

import "errors"

// Domain errors surfaced by the sync and experience engines.
var (
	// ErrUserNotFound is returned when neither the requested identity nor the
	// configured default user exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrLevelNotFound is returned when the level ladder has no rung at or
	// below a score, which only happens on an unseeded table.
	ErrLevelNotFound = errors.New("level not found")

	// ErrRepositoryNotFound is returned when repository metadata has not been
	// fetched yet.
	ErrRepositoryNotFound = errors.New("repository not found")

	// ErrDuplicateContribution marks an insert that lost to the uniqueness
	// constraint. Callers treat it as success-as-no-op, never as a failure.
	ErrDuplicateContribution = errors.New("contribution already exists")
)
