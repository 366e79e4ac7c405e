package store

import (
	"context"

	"regdesk/internal/registration/models"
	id "regdesk/pkg/domain"
)

// Store persists registrations. Create and Delete are whole-aggregate
// operations; every mutation of an existing registration goes through
// Execute so a read-modify-write can never lose a concurrent sibling-slot
// update.
type Store interface {
	// Create inserts a new registration. Returns sentinel.ErrConflict when
	// the id already exists.
	Create(ctx context.Context, reg *models.Registration) error

	// GetByID loads one registration. Returns sentinel.ErrNotFound when it
	// does not exist. The persisted row is authoritative: clients never
	// re-derive workflow position from their own memory.
	GetByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)

	// List returns all registrations ordered by creation time, newest
	// first.
	List(ctx context.Context) ([]*models.Registration, error)

	// Execute runs validate and then mutate against the current
	// registration while holding its row exclusively, and persists the
	// mutated aggregate before releasing it. Either callback returning an
	// error aborts the operation with nothing written. The returned
	// registration is the persisted state.
	Execute(ctx context.Context, regID id.RegistrationID,
		validate func(*models.Registration) error,
		mutate func(*models.Registration) error,
	) (*models.Registration, error)

	// Delete removes a registration. Deleting an absent id returns
	// sentinel.ErrNotFound.
	Delete(ctx context.Context, regID id.RegistrationID) error
}
