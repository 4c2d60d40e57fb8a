package store

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"whaled/internal/registry/models"
	"whaled/pkg/platform/sentinel"
)

// Memory is a mutex-guarded in-process ownership ledger. It keeps unit tests
// and dev mode free of external dependencies while exercising the exact
// contract the postgres ledger implements.
type Memory struct {
	mu     sync.Mutex
	next   models.TokenID
	tokens map[models.TokenID]models.Token
}

func NewMemory() *Memory {
	return &Memory{tokens: make(map[models.TokenID]models.Token)}
}

// AllocateAndRecord allocates the next token id and records ownership as one
// atomic step. The counter only advances when the ownership record is
// accepted, so a rejected mint never consumes an id.
func (s *Memory) AllocateAndRecord(_ context.Context, owner common.Address, mintedAt time.Time) (models.TokenID, error) {
	if owner == (common.Address{}) {
		return 0, sentinel.ErrInvalidState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	if _, exists := s.tokens[id]; exists {
		// Counter-management bug; surfaced so the service can treat it as a
		// fatal invariant violation.
		return 0, sentinel.ErrConflict
	}
	s.tokens[id] = models.Token{ID: id, Owner: owner, MintedAt: mintedAt}
	s.next = id + 1
	return id, nil
}

func (s *Memory) FindToken(_ context.Context, id models.TokenID) (models.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token, ok := s.tokens[id]; ok {
		return token, nil
	}
	return models.Token{}, sentinel.ErrNotFound
}

func (s *Memory) TotalMinted(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(s.next), nil
}
