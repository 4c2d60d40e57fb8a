package models

import (
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	dErrors "whaled/pkg/domain-errors"
)

// TokenID identifies an issued whale token.
//
// Invariants:
//   - allocated strictly in increasing order starting at zero
//   - never reused, even if the deployment later grows a burn path
//   - every id ever handed to the ledger is < the counter's current value
type TokenID uint64

// Token is a minted whale token as recorded by the ownership ledger.
// Ownership at creation is immutable in this core; transfers are handled by
// the external token standard and are out of scope here.
type Token struct {
	ID       TokenID        `json:"token_id"`
	Owner    common.Address `json:"owner"`
	MintedAt time.Time      `json:"minted_at"`
}

// ParseTokenID parses a decimal token id from API input.
func ParseTokenID(raw string) (TokenID, error) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "token id must be a non-negative integer")
	}
	return TokenID(n), nil
}

// FormatTokenID renders a token id as its decimal string.
func FormatTokenID(id TokenID) string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseOwner parses a hex-encoded recipient address from API input.
// A malformed string and the zero address are both rejected: the zero address
// is the token standard's "invalid recipient" and must never consume a
// token id.
func ParseOwner(raw string) (common.Address, error) {
	if raw == "" {
		return common.Address{}, dErrors.New(dErrors.CodeBadRequest, "owner address is required")
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, dErrors.New(dErrors.CodeBadRequest, "owner must be a hex address")
	}
	addr := common.HexToAddress(raw)
	if err := ValidateRecipient(addr); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// ValidateRecipient rejects recipients the ownership ledger would refuse.
func ValidateRecipient(owner common.Address) error {
	if owner == (common.Address{}) {
		return dErrors.New(dErrors.CodeInvalidRecipient, "cannot mint to the zero address")
	}
	return nil
}
