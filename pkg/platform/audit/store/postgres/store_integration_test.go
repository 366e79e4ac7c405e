//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "regdesk/pkg/domain"
	"regdesk/pkg/platform/audit"
	auditpg "regdesk/pkg/platform/audit/store/postgres"
	txcontext "regdesk/pkg/platform/tx"
	"regdesk/pkg/testutil/containers"
)

type OutboxSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpg.Store
	ctx      context.Context
	now      time.Time
}

func TestOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxSuite))
}

func (s *OutboxSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = auditpg.New(s.postgres.DB)
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func (s *OutboxSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(s.ctx))
}

func (s *OutboxSuite) appendEvent(regID id.RegistrationID, action string) {
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		Timestamp:      s.now,
		RegistrationID: regID,
		Action:         action,
		ActorRole:      "admin",
	}))
}

// TestAppendAndFetch verifies appended events come back unpublished in
// commit order with the full payload intact.
func (s *OutboxSuite) TestAppendAndFetch() {
	regID := id.NewRegistrationID(s.now)
	s.appendEvent(regID, string(audit.EventRegistrationCreated))
	s.appendEvent(regID, string(audit.EventGateApproved))

	entries, err := s.store.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(string(audit.EventRegistrationCreated), entries[0].EventType)
	s.Equal(string(audit.EventGateApproved), entries[1].EventType)
	s.Equal(string(regID), entries[0].AggregateID)

	var payload map[string]any
	s.Require().NoError(json.Unmarshal(entries[0].Payload, &payload))
	s.Equal(string(regID), payload["RegistrationID"])
	s.Equal("admin", payload["ActorRole"])
	s.Equal(string(audit.CategoryCompliance), payload["Category"])

	// Consumers dedupe on the payload ID; it must match the row id the
	// relay marks published.
	s.Equal(entries[0].ID.String(), payload["ID"])
}

// TestMarkPublished verifies published entries leave the unpublished set
// and marking is idempotent.
func (s *OutboxSuite) TestMarkPublished() {
	regID := id.NewRegistrationID(s.now)
	s.appendEvent(regID, string(audit.EventDocumentsPublished))
	s.appendEvent(regID, string(audit.EventDocumentsAcknowledged))

	entries, err := s.store.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)

	s.Require().NoError(s.store.MarkPublished(s.ctx, []uuid.UUID{entries[0].ID}, s.now))

	remaining, err := s.store.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal(entries[1].ID, remaining[0].ID)

	s.Require().NoError(s.store.MarkPublished(s.ctx, []uuid.UUID{entries[0].ID}, s.now))
	s.Require().NoError(s.store.MarkPublished(s.ctx, nil, s.now))
}

// TestFetchLimit verifies the batch size cap.
func (s *OutboxSuite) TestFetchLimit() {
	regID := id.NewRegistrationID(s.now)
	for range 5 {
		s.appendEvent(regID, string(audit.EventStepAdvanced))
	}

	entries, err := s.store.FetchUnpublished(s.ctx, 3)
	s.Require().NoError(err)
	s.Len(entries, 3)
}

// TestAppendInTransaction verifies an outbox row shares the caller's
// transaction: rollback discards it, commit makes it visible.
func (s *OutboxSuite) TestAppendInTransaction() {
	regID := id.NewRegistrationID(s.now)

	tx, err := s.postgres.DB.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	s.appendEventTx(tx, regID, string(audit.EventRegistrationDeleted))
	s.Require().NoError(tx.Rollback())

	entries, err := s.store.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(entries)

	tx, err = s.postgres.DB.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	s.appendEventTx(tx, regID, string(audit.EventRegistrationDeleted))
	s.Require().NoError(tx.Commit())

	entries, err = s.store.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *OutboxSuite) appendEventTx(tx *sql.Tx, regID id.RegistrationID, action string) {
	ctx := txcontext.WithTx(s.ctx, tx)
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp:      s.now,
		RegistrationID: regID,
		Action:         action,
	}))
}
