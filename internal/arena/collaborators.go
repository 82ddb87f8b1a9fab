package arena

import (
	"context"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
)

// AgentDirectory resolves the agents that take part in tournaments.
type AgentDirectory interface {
	// Resolve returns an error wrapping model.ErrNotFound for unknown agents.
	Resolve(ctx context.Context, agentId string) (model.AgentIdentity, error)
	RecordOutcome(ctx context.Context, agentId string, won bool) error
	// Signer returns the authorizer able to move value out of the agent's wallet.
	Signer(ctx context.Context, agentId string) (blockchain.Authorizer, error)
}

// DecisionProvider picks a move for an agent. The returned move must be one of legalMoves.
type DecisionProvider interface {
	ChooseMove(ctx context.Context, agent model.AgentIdentity, gameLabel string, legalMoves []string) (string, error)
}

// Ledger moves value on chain and returns the transaction reference.
type Ledger interface {
	Transfer(ctx context.Context, from blockchain.Authorizer, toAddress string, amount model.Amount) (string, error)
	// Fund pays out of the platform escrow account.
	Fund(ctx context.Context, toAddress string, amount model.Amount) (string, error)
	Balance(ctx context.Context, address string) (model.Amount, error)
	// TransactionStatus looks up a transfer that was submitted but not seen sealed.
	TransactionStatus(ctx context.Context, txRef string) (blockchain.TxStatus, error)
	// EscrowAddress is the platform account entry fees are paid into.
	EscrowAddress() string
}

// EventPublisher fans arena events out to pub/sub and websocket listeners.
type EventPublisher interface {
	Publish(event Event)
}
