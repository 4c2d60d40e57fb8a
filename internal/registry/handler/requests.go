package handler

import (
	"github.com/ethereum/go-ethereum/common"

	"whaled/internal/registry/models"
)

// MintRequest is the payload for POST /tokens/mint.
type MintRequest struct {
	Owner string `json:"owner"`
}

// Validate checks that the recipient address parses and is mintable.
func (r MintRequest) Validate() error {
	_, err := models.ParseOwner(r.Owner)
	return err
}

// ParsedOwner returns the recipient address. Only meaningful after Validate
// has passed.
func (r MintRequest) ParsedOwner() common.Address {
	owner, _ := models.ParseOwner(r.Owner)
	return owner
}
