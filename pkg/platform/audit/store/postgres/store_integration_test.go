//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	audit "whaled/pkg/platform/audit"
	"whaled/pkg/testutil/containers"
)

type OutboxSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
}

func (s *OutboxSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = New(s.pg.DB)
	require.NoError(s.T(), s.store.EnsureSchema(context.Background()))
}

func (s *OutboxSuite) SetupTest() {
	require.NoError(s.T(), s.pg.TruncateTables(context.Background(), "audit_outbox"))
}

func TestOutboxSuite(t *testing.T) {
	suite.Run(t, new(OutboxSuite))
}

func (s *OutboxSuite) appendMint(tokenID uint64, owner string) {
	s.T().Helper()
	require.NoError(s.T(), s.store.Append(context.Background(), audit.Event{
		Timestamp: time.Now().UTC(),
		Action:    string(audit.EventWhaleMinted),
		TokenID:   &tokenID,
		Owner:     owner,
		ActorID:   "test-operator",
	}))
}

func (s *OutboxSuite) TestAppendAndListRecent() {
	ctx := context.Background()
	s.appendMint(0, "0x63A9975ba31b0B9626b34300f7F627147df1F526")
	s.appendMint(1, "0x7c42a86e0E4B4E1E3a6f9D62a10F174E0d8CbBbB")

	events, err := s.store.ListRecent(ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), events, 2)

	// Newest first.
	require.NotNil(s.T(), events[0].TokenID)
	assert.Equal(s.T(), uint64(1), *events[0].TokenID)
	assert.Equal(s.T(), audit.CategoryIssuance, events[0].Category)
	assert.Equal(s.T(), "test-operator", events[0].ActorID)
}

func (s *OutboxSuite) TestCategoryDerivedFromAction() {
	ctx := context.Background()
	require.NoError(s.T(), s.store.Append(ctx, audit.Event{
		Timestamp: time.Now().UTC(),
		Action:    string(audit.EventMintRejected),
		Owner:     "0x0000000000000000000000000000000000000000",
		Reason:    "invalid recipient",
	}))

	events, err := s.store.ListRecent(ctx, 1)
	require.NoError(s.T(), err)
	require.Len(s.T(), events, 1)
	assert.Equal(s.T(), audit.CategorySecurity, events[0].Category)
}

func (s *OutboxSuite) TestFetchAndMarkPublished() {
	ctx := context.Background()
	s.appendMint(0, "0x63A9975ba31b0B9626b34300f7F627147df1F526")
	s.appendMint(1, "0x7c42a86e0E4B4E1E3a6f9D62a10F174E0d8CbBbB")

	tx, err := s.store.BeginTx(ctx)
	require.NoError(s.T(), err)

	entries, err := s.store.FetchUnpublished(ctx, tx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 2)

	ids := []uuid.UUID{entries[0].ID, entries[1].ID}
	require.NoError(s.T(), s.store.MarkPublished(ctx, tx, ids))
	require.NoError(s.T(), tx.Commit())

	tx, err = s.store.BeginTx(ctx)
	require.NoError(s.T(), err)
	defer tx.Rollback()

	remaining, err := s.store.FetchUnpublished(ctx, tx, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), remaining, "published entries must not be re-fetched")
}

func (s *OutboxSuite) TestFetchLimitAndOrder() {
	ctx := context.Background()
	for i := range 5 {
		s.appendMint(uint64(i), "0x63A9975ba31b0B9626b34300f7F627147df1F526")
	}

	tx, err := s.store.BeginTx(ctx)
	require.NoError(s.T(), err)
	defer tx.Rollback()

	entries, err := s.store.FetchUnpublished(ctx, tx, 3)
	require.NoError(s.T(), err)
	assert.Len(s.T(), entries, 3, "limit bounds the batch")
}
