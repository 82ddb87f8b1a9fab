package blockchain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingTxRefThroughWrapping(t *testing.T) {
	sentinel := errors.New("prize payout failed")
	err := fmt.Errorf("%w: %w", sentinel, &PendingTransactionError{TxRef: "abc", Err: context.DeadlineExceeded})

	ref, ok := PendingTxRef(err)
	assert.True(t, ok)
	assert.Equal(t, "abc", ref)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, sentinel)

	_, ok = PendingTxRef(sentinel)
	assert.False(t, ok)
}
