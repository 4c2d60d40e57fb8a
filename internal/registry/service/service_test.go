package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whaled/internal/registry/models"
	"whaled/internal/registry/store"
	dErrors "whaled/pkg/domain-errors"
	audit "whaled/pkg/platform/audit"
	"whaled/pkg/platform/sentinel"
)

var (
	ownerA = common.HexToAddress("0x000000000000000000000000000000000000ABCD")
	ownerB = common.HexToAddress("0x000000000000000000000000000000000000EF01")
)

func newRegistry(t *testing.T, opts ...Option) (*Registry, *store.Memory) {
	t.Helper()
	ledger := store.NewMemory()
	return New(ledger, opts...), ledger
}

func TestMint_MonotonicUniqueness(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	const n = 25
	for i := 0; i < n; i++ {
		token, err := reg.Mint(ctx, ownerA)
		require.NoError(t, err)
		assert.Equal(t, models.TokenID(i), token.ID, "ids are 0..N-1 in call order")
	}

	total, err := reg.TotalMinted(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), total)
}

func TestMint_OwnershipCorrectness(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	token, err := reg.Mint(ctx, ownerA)
	require.NoError(t, err)

	got, err := reg.OwnerOf(ctx, token.ID)
	require.NoError(t, err)
	assert.Equal(t, ownerA, got.Owner)
}

func TestMint_IndependenceAcrossOwners(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	first, err := reg.Mint(ctx, ownerA)
	require.NoError(t, err)
	second, err := reg.Mint(ctx, ownerB)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	gotA, err := reg.OwnerOf(ctx, first.ID)
	require.NoError(t, err)
	gotB, err := reg.OwnerOf(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, ownerA, gotA.Owner)
	assert.Equal(t, ownerB, gotB.Owner)

	// Same owner twice still yields distinct ids, both attributed.
	third, err := reg.Mint(ctx, ownerA)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	gotThird, err := reg.OwnerOf(ctx, third.ID)
	require.NoError(t, err)
	assert.Equal(t, ownerA, gotThird.Owner)
}

// TestMint_NoOpOnRejection pins down the counter behavior on a rejected
// recipient: no id is consumed and the ledger is untouched.
func TestMint_NoOpOnRejection(t *testing.T) {
	reg, ledger := newRegistry(t)
	ctx := context.Background()

	first, err := reg.Mint(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, models.TokenID(0), first.ID)

	second, err := reg.Mint(ctx, ownerB)
	require.NoError(t, err)
	assert.Equal(t, models.TokenID(1), second.ID)

	before, err := ledger.TotalMinted(ctx)
	require.NoError(t, err)

	_, err = reg.Mint(ctx, common.Address{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidRecipient))

	after, err := ledger.TotalMinted(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected mint must not consume an id")

	// The next successful mint returns 2, not 3.
	next, err := reg.Mint(ctx, ownerB)
	require.NoError(t, err)
	assert.Equal(t, models.TokenID(2), next.ID)
}

func TestOwnerOf_NeverMinted(t *testing.T) {
	reg, _ := newRegistry(t)

	_, err := reg.OwnerOf(context.Background(), models.TokenID(99))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

// TestMint_CollisionIsInvariantViolation exercises the defense-in-depth
// backstop: a ledger refusing a duplicate id indicates corrupted counter
// state and must surface as a fatal invariant violation.
func TestMint_CollisionIsInvariantViolation(t *testing.T) {
	reg := New(collidingLedger{})

	_, err := reg.Mint(context.Background(), ownerA)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestMint_EmitsAuditEvents(t *testing.T) {
	sink := &auditSink{}
	reg, _ := newRegistry(t, WithAuditPublisher(sink))
	ctx := context.Background()

	_, err := reg.Mint(ctx, ownerA)
	require.NoError(t, err)
	_, err = reg.Mint(ctx, common.Address{})
	require.Error(t, err)

	require.Len(t, sink.events, 2)
	assert.Equal(t, string(audit.EventWhaleMinted), sink.events[0].Action)
	require.NotNil(t, sink.events[0].TokenID)
	assert.Equal(t, uint64(0), *sink.events[0].TokenID)
	assert.Equal(t, ownerA.Hex(), sink.events[0].Owner)
	assert.Equal(t, string(audit.EventMintRejected), sink.events[1].Action)
}

func TestMint_AuditFailureDoesNotFailMint(t *testing.T) {
	sink := &auditSink{err: errors.New("bus down")}
	reg, _ := newRegistry(t, WithAuditPublisher(sink))

	_, err := reg.Mint(context.Background(), ownerA)
	require.NoError(t, err)
}

type collidingLedger struct{}

func (collidingLedger) AllocateAndRecord(context.Context, common.Address, time.Time) (models.TokenID, error) {
	return 0, sentinel.ErrConflict
}

func (collidingLedger) FindToken(context.Context, models.TokenID) (models.Token, error) {
	return models.Token{}, sentinel.ErrNotFound
}

func (collidingLedger) TotalMinted(context.Context) (uint64, error) {
	return 0, nil
}

type auditSink struct {
	events []audit.Event
	err    error
}

func (s *auditSink) Emit(_ context.Context, event audit.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}
