package models

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "whaled/pkg/domain-errors"
)

func TestParseOwner(t *testing.T) {
	t.Run("accepts checksummed address", func(t *testing.T) {
		addr, err := ParseOwner("0x63A0bfd6a5cdCF446ae12135E2CD86b908659568")
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0x63A0bfd6a5cdCF446ae12135E2CD86b908659568"), addr)
	})

	t.Run("accepts lowercase address", func(t *testing.T) {
		_, err := ParseOwner("0x833589fcd6edb6e08f4c7c32d4f71b54bda02913")
		require.NoError(t, err)
	})

	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseOwner("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects malformed hex", func(t *testing.T) {
		_, err := ParseOwner("not-an-address")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects zero address as invalid recipient", func(t *testing.T) {
		_, err := ParseOwner("0x0000000000000000000000000000000000000000")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidRecipient))
	})
}

func TestValidateRecipient(t *testing.T) {
	assert.Error(t, ValidateRecipient(common.Address{}))
	assert.NoError(t, ValidateRecipient(common.HexToAddress("0xABCD000000000000000000000000000000000001")))
}
