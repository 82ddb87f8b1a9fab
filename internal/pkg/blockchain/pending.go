package blockchain

import (
	"errors"
	"fmt"
)

type TxStatus string

const (
	TxPending TxStatus = "pending"
	TxSealed  TxStatus = "sealed"
	TxFailed  TxStatus = "failed"
)

// PendingTransactionError reports a transaction that was submitted but not seen sealed
// before the caller stopped waiting. It may still seal.
type PendingTransactionError struct {
	TxRef string
	Err   error
}

func (e *PendingTransactionError) Error() string {
	return fmt.Sprintf("transaction %s still pending: %v", e.TxRef, e.Err)
}

func (e *PendingTransactionError) Unwrap() error {
	return e.Err
}

// PendingTxRef returns the reference of the pending transaction somewhere in err's chain.
func PendingTxRef(err error) (string, bool) {
	var pending *PendingTransactionError
	if errors.As(err, &pending) {
		return pending.TxRef, true
	}
	return "", false
}
