package handler

import (
	"time"

	"whaled/internal/registry/models"
)

// TokenResponse is the representation of a minted token.
type TokenResponse struct {
	TokenID  uint64    `json:"token_id"`
	Owner    string    `json:"owner"`
	MintedAt time.Time `json:"minted_at"`
}

// StatsResponse reports issuance totals.
type StatsResponse struct {
	TotalMinted uint64 `json:"total_minted"`
	NextTokenID uint64 `json:"next_token_id"`
}

// FromToken maps a domain token to its JSON representation.
func FromToken(t models.Token) TokenResponse {
	return TokenResponse{
		TokenID:  uint64(t.ID),
		Owner:    t.Owner.Hex(),
		MintedAt: t.MintedAt,
	}
}
