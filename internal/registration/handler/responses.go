package handler

import "regdesk/internal/registration/models"

// Registrations marshal with their wire-format JSON tags, so responses
// return the aggregate directly. Only the collection endpoints wrap.

// ListResponse wraps the admin listing.
type ListResponse struct {
	Registrations []*models.Registration `json:"registrations"`
}
