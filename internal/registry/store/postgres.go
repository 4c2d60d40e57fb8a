package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"whaled/internal/registry/models"
	"whaled/pkg/platform/sentinel"
)

const pgUniqueViolation = "23505"

// Postgres is the production ownership ledger. Allocation and ownership
// recording happen inside one transaction: the counter row is locked by the
// UPDATE, which serializes concurrent mints, and a rollback on any later
// failure means a rejected mint never consumes an id.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS whale_counter (
	singleton     boolean PRIMARY KEY DEFAULT TRUE CHECK (singleton),
	next_token_id bigint  NOT NULL CHECK (next_token_id >= 0)
);

INSERT INTO whale_counter (singleton, next_token_id)
VALUES (TRUE, 0)
ON CONFLICT DO NOTHING;

CREATE TABLE IF NOT EXISTS whale_tokens (
	token_id  bigint      PRIMARY KEY,
	owner     bytea       NOT NULL CHECK (octet_length(owner) = 20),
	minted_at timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS whale_tokens_owner_idx ON whale_tokens (owner);
`

// EnsureSchema creates the ledger tables and seeds the counter at zero.
// Idempotent; safe to run on every startup.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

func (s *Postgres) AllocateAndRecord(ctx context.Context, owner common.Address, mintedAt time.Time) (models.TokenID, error) {
	if owner == (common.Address{}) {
		return 0, sentinel.ErrInvalidState
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin mint tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// The UPDATE takes the counter row lock, so allocation is strictly
	// serialized across connections.
	var id int64
	err = tx.QueryRow(ctx,
		`UPDATE whale_counter SET next_token_id = next_token_id + 1 RETURNING next_token_id - 1`,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("allocate token id: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO whale_tokens (token_id, owner, minted_at) VALUES ($1, $2, $3)`,
		id, owner.Bytes(), mintedAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, fmt.Errorf("token id %d already owned: %w", id, sentinel.ErrConflict)
		}
		return 0, fmt.Errorf("record ownership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit mint tx: %w", err)
	}
	return models.TokenID(id), nil
}

func (s *Postgres) FindToken(ctx context.Context, id models.TokenID) (models.Token, error) {
	var (
		tokenID  int64
		owner    []byte
		mintedAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT token_id, owner, minted_at FROM whale_tokens WHERE token_id = $1`,
		int64(id),
	).Scan(&tokenID, &owner, &mintedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Token{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Token{}, fmt.Errorf("query token: %w", err)
	}
	return models.Token{
		ID:       models.TokenID(tokenID),
		Owner:    common.BytesToAddress(owner),
		MintedAt: mintedAt,
	}, nil
}

func (s *Postgres) TotalMinted(ctx context.Context) (uint64, error) {
	var next int64
	err := s.pool.QueryRow(ctx, `SELECT next_token_id FROM whale_counter`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("query counter: %w", err)
	}
	return uint64(next), nil
}
