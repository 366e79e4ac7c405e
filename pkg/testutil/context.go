package testutil

import (
	"context"
	"net/http"
	"time"

	id "regdesk/pkg/domain"
	"regdesk/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the userID is not a valid UUID, it will not be added to the context.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsed, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
	}
	return req
}

// WithRole adds a role to the request context. Invalid roles are silently
// ignored, mirroring WithUserID.
func WithRole(req *http.Request, role string) *http.Request {
	if parsed, err := id.ParseRole(role); err == nil {
		return req.WithContext(requestcontext.WithRole(req.Context(), parsed))
	}
	return req
}

// WithAuth adds both user ID and role to the request context.
// This is the typical state for an authenticated request.
// Invalid values are silently ignored.
func WithAuth(req *http.Request, userID, role string) *http.Request {
	ctx := req.Context()
	if userID != "" {
		if parsed, err := id.ParseUserID(userID); err == nil {
			ctx = requestcontext.WithUserID(ctx, parsed)
		}
	}
	if role != "" {
		if parsed, err := id.ParseRole(role); err == nil {
			ctx = requestcontext.WithRole(ctx, parsed)
		}
	}
	return req.WithContext(ctx)
}

// WithRequestTime pins the request-scoped clock, so handler tests observe
// deterministic timestamps.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), key, value))
}
