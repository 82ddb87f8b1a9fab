package agent

import (
	"context"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/pubsub"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/utils"
	"github.com/rs/zerolog/log"
)

const AccountCreatedSubscription = "agora.flow.events.agent-account-created-sub"

var errMalformedMessage = errors.New("malformed message")

type AccountCreated struct {
	PublicKey string `json:"originatingPublicKey"`
	Address   string `json:"address"`
}

// Notifier pushes live updates to websocket listeners.
type Notifier interface {
	Publish(topic string, event any)
}

func AgentTopic(agentId string) string {
	return "agents/" + agentId
}

type accountContractBridge struct {
	repo           Repository
	publisher      pubsub.Publisher
	notifier       Notifier
	platform       blockchain.Authorizer
	initialFunding model.Amount
}

func (b *accountContractBridge) createAgentAccount(publicKey string) {
	payload := []any{
		publicKey,
		b.initialFunding.Display(),
	}
	authorizers := []blockchain.Authorizer{b.platform}
	cmd := blockchain.NewBlockchainCommand(blockchain.CommandCreateAgentAccount, payload, authorizers)
	b.publisher.Publish(cmd)
}

func (b *accountContractBridge) handleAgentAccountCreated(ctx context.Context, message *gcppubsub.Message) {
	log.Info().Msg("Received message payload " + string(message.Data))
	if err := b.applyAccountCreated(ctx, message.Data); err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, errMalformedMessage) {
			log.Warn().Err(err).Msg("Dropping AgentAccountCreated message")
			message.Ack()
			return
		}
		log.Warn().Err(err).Msg("Error while handling AgentAccountCreated")
		message.Nack()
		return
	}
	message.Ack()
}

func (b *accountContractBridge) applyAccountCreated(ctx context.Context, data []byte) error {
	created, err := utils.JsonDecodeByteStream[AccountCreated](data)
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformedMessage, err)
	}
	if created.PublicKey == "" || created.Address == "" {
		return fmt.Errorf("%w: key and address are required", errMalformedMessage)
	}

	agent, err := b.repo.AssignWallet(ctx, created.PublicKey, created.Address)
	if err != nil {
		return err
	}

	log.Info().Str("agentId", agent.Id).Str("address", created.Address).Msg("Agent wallet created")

	if b.notifier != nil {
		b.notifier.Publish(AgentTopic(agent.Id), map[string]any{
			"type":    "AGENT_ACCOUNT_CREATED",
			"payload": agent,
		})
	}
	return nil
}

// AccountCreatedHandler stores wallet addresses reported by the chain worker.
func AccountCreatedHandler(s *Service) pubsub.SubscriptionHandler {
	return pubsub.SubscriptionHandler{
		SubscriptionId: AccountCreatedSubscription,
		Handler:        s.bridge.handleAgentAccountCreated,
	}
}
