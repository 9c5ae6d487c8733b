// Package pending holds signups that have not confirmed their email code
// yet. Entries are transient: a restart drops them and the user signs up
// again.
package pending

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("pending registration not found")
	// ErrExpired also matches ErrNotFound for callers that do not care why.
	ErrExpired = fmt.Errorf("%w: expired", ErrNotFound)
)

type Registration struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Code         string    `json:"code"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Attempts     int       `json:"attempts"`
}

type Store interface {
	Put(ctx context.Context, reg Registration) (string, error)
	// Get returns ErrExpired (and drops the entry) once ExpiresAt has passed,
	// whether or not a sweep has run.
	Get(ctx context.Context, id string) (Registration, error)
	// Update replaces an existing entry, keeping its id.
	Update(ctx context.Context, id string, reg Registration) error
	Remove(ctx context.Context, id string) error
}
