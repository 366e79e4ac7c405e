package store

import (
	"context"

	"regdesk/internal/user/models"
	id "regdesk/pkg/domain"
)

// Store persists user accounts. Email uniqueness is case-insensitive and
// enforced by the store, surfacing sentinel.ErrConflict.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}
