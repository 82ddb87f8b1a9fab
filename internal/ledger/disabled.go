package ledger

import (
	"context"
	"errors"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
)

var ErrLedgerDisabled = errors.New("ledger is not configured")

// Disabled stands in when no Flow account is configured. Tournaments still run without
// real value; every real value request fails.
type Disabled struct{}

func (Disabled) Transfer(context.Context, blockchain.Authorizer, string, model.Amount) (string, error) {
	return "", ErrLedgerDisabled
}

func (Disabled) Fund(context.Context, string, model.Amount) (string, error) {
	return "", ErrLedgerDisabled
}

func (Disabled) Balance(context.Context, string) (model.Amount, error) {
	return 0, ErrLedgerDisabled
}

func (Disabled) TransactionStatus(context.Context, string) (blockchain.TxStatus, error) {
	return "", ErrLedgerDisabled
}

func (Disabled) EscrowAddress() string {
	return ""
}
