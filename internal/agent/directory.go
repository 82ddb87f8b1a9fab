package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
)

var ErrNoWallet = errors.New("agent has no wallet")

// Directory is the tournament engine's view of registered agents.
type Directory struct {
	repo Repository
}

func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) Resolve(ctx context.Context, agentId string) (model.AgentIdentity, error) {
	agent, err := d.repo.FindById(ctx, agentId)
	if err != nil {
		return model.AgentIdentity{}, err
	}
	return agent.Identity(), nil
}

func (d *Directory) RecordOutcome(ctx context.Context, agentId string, won bool) error {
	return d.repo.IncrementRecord(ctx, agentId, won)
}

func (d *Directory) Signer(ctx context.Context, agentId string) (blockchain.Authorizer, error) {
	agent, err := d.repo.FindById(ctx, agentId)
	if err != nil {
		return blockchain.Authorizer{}, err
	}
	if agent.WalletAddress == nil || agent.KmsResourceId == "" {
		return blockchain.Authorizer{}, fmt.Errorf("agent %s: %w", agentId, ErrNoWallet)
	}
	return blockchain.NewAuthorizer(agent.KmsResourceId, *agent.WalletAddress), nil
}
