package audit

import "context"

// Store persists audit events. The PostgreSQL implementation writes to a
// transactional outbox; the in-memory one backs unit tests.
type Store interface {
	Append(ctx context.Context, event Event) error
}
