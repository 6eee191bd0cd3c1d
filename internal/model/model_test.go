package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionTypeValid(t *testing.T) {
	assert.True(t, TypeEarn.Valid())
	assert.True(t, TypeRedeem.Valid())
	assert.True(t, TypeManualAdjust.Valid())

	assert.False(t, TransactionType("refund").Valid())
	assert.False(t, TransactionType("").Valid())
	assert.False(t, TransactionType("EARN").Valid())
}
