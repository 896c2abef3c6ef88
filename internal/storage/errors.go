package storage

import (
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrProviderNotFound is returned when a provider is not found
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderExists is returned when a provider with the same id already exists for the user
	ErrProviderExists = errors.New("provider already exists")

	// ErrInvalidProvider is returned for provider input that cannot be stored
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrModelNotFound is returned when a model is not found
	ErrModelNotFound = errors.New("model not found")

	// ErrModelExists is returned when a model with the same id already exists for the provider
	ErrModelExists = errors.New("model already exists")

	// ErrInvalidModel is returned for model input that cannot be stored
	ErrInvalidModel = errors.New("invalid model")
)

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique or primary key
// constraint violation from either supported driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
