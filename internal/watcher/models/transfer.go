package models

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Transfer is one observed ERC-20 Transfer log.
type Transfer struct {
	From   common.Address
	To     common.Address
	Value  *big.Int
	TxHash common.Hash
	Block  uint64
}

// Line renders the transfer the way the watch log captures it.
func (t Transfer) Line() string {
	return fmt.Sprintf("%s -> %s, value: %s", ShortAddr(t.From), ShortAddr(t.To), t.Value)
}

// WatchStatus is the externally visible state of the watch session.
type WatchStatus struct {
	Running   bool `json:"running"`
	PollCount int  `json:"poll_count"`
	PollLimit int  `json:"poll_limit"`
	// Degraded reports that the transfer source is failing repeatedly and the
	// session is running without fresh data.
	Degraded bool `json:"degraded"`
}

// ShortAddr abbreviates an address for log lines: 0x63A...568.
func ShortAddr(addr common.Address) string {
	hex := addr.Hex()
	return hex[:5] + "..." + hex[len(hex)-3:]
}
