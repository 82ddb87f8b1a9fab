package arena

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/rs/zerolog/log"
)

type EntryCoordinator struct {
	store         Store
	agents        AgentDirectory
	ledger        Ledger
	locks         *keyedLock
	events        EventPublisher
	metrics       *Metrics
	ledgerTimeout time.Duration
	now           func() time.Time
}

type ParticipantJoinedPayload struct {
	Participant model.Participant `json:"participant"`
	AgentName   string            `json:"agentName"`
	PrizePool   model.Amount      `json:"prizePool"`
	Paid        bool              `json:"paid"`
}

// Join admits an agent into an open arena. With payWithRealValue the entry fee is moved
// from the agent's wallet to the platform escrow before the participant is inserted; the
// prize pool grows by exactly one entry fee per admission either way.
func (c *EntryCoordinator) Join(ctx context.Context, arenaId, agentId string, payWithRealValue bool) (model.Participant, error) {
	unlock, err := c.locks.Lock(ctx, arenaId)
	if err != nil {
		return model.Participant{}, err
	}
	defer unlock()

	participant, err := c.join(ctx, arenaId, agentId, payWithRealValue)
	if err != nil {
		c.metrics.admission(admissionResult(err))
		return model.Participant{}, err
	}
	c.metrics.admission("admitted")
	return participant, nil
}

func (c *EntryCoordinator) join(ctx context.Context, arenaId, agentId string, payWithRealValue bool) (model.Participant, error) {
	state, err := c.store.Load(ctx, arenaId)
	if err != nil {
		return model.Participant{}, err
	}
	if err := checkOpenSlot(&state); err != nil {
		return model.Participant{}, err
	}

	agent, err := c.agents.Resolve(ctx, agentId)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Participant{}, fmt.Errorf("%w: %s", ErrAgentNotFound, agentId)
		}
		return model.Participant{}, err
	}

	if state.isActive(agentId) {
		return model.Participant{}, fmt.Errorf("%w: %s", ErrAlreadyJoined, agentId)
	}

	fee := state.Arena.EntryFee
	var txRef *string
	if payWithRealValue && fee > 0 {
		ref, err := c.collectFee(ctx, agent, fee)
		if err != nil {
			log.Warn().Err(err).Str("arenaId", arenaId).Str("agentId", agentId).Msg("Entry fee payment failed")
			return model.Participant{}, err
		}
		txRef = &ref
	}

	participant := model.Participant{
		Id:         uuid.New().String(),
		ArenaId:    arenaId,
		AgentId:    agentId,
		EntryTxRef: txRef,
		TimeJoined: c.now(),
	}

	updated, err := c.store.Update(ctx, arenaId, func(s *ArenaState) error {
		if err := checkOpenSlot(s); err != nil {
			return err
		}
		if s.isActive(agentId) {
			return fmt.Errorf("%w: %s", ErrAlreadyJoined, agentId)
		}
		pool, ok := s.Arena.PrizePool.Add(s.Arena.EntryFee)
		if !ok {
			return fmt.Errorf("%w: prize pool of %s would overflow", ErrInvalidConfig, s.Arena.Id)
		}
		s.Participants = append(s.Participants, participant)
		s.Arena.PrizePool = pool
		return nil
	})
	if err != nil {
		if txRef != nil {
			c.refund(ctx, arenaId, agent, fee, *txRef)
		}
		return model.Participant{}, err
	}

	log.Info().
		Str("arenaId", arenaId).
		Str("agentId", agentId).
		Bool("paid", txRef != nil).
		Str("prizePool", updated.Arena.PrizePool.Display()).
		Msg("Agent joined arena")

	c.events.Publish(newEvent(EventParticipantJoined, arenaId, ParticipantJoinedPayload{
		Participant: participant,
		AgentName:   agent.Name,
		PrizePool:   updated.Arena.PrizePool,
		Paid:        txRef != nil,
	}))

	return participant, nil
}

func checkOpenSlot(s *ArenaState) error {
	if s.Arena.Status != model.ArenaOpen {
		return fmt.Errorf("%w: %s is %s", ErrArenaNotOpen, s.Arena.Id, s.Arena.Status)
	}
	if len(s.Active()) >= s.Arena.MaxParticipants {
		return fmt.Errorf("%w: %s", ErrArenaFull, s.Arena.Id)
	}
	return nil
}

func (c *EntryCoordinator) collectFee(ctx context.Context, agent model.AgentIdentity, fee model.Amount) (string, error) {
	if agent.WalletAddress == "" {
		return "", fmt.Errorf("%w: agent %s has no wallet yet", ErrPaymentFailed, agent.Id)
	}
	signer, err := c.agents.Signer(ctx, agent.Id)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}

	ledgerCtx, cancel := context.WithTimeout(ctx, c.ledgerTimeout)
	defer cancel()

	txRef, err := c.ledger.Transfer(ledgerCtx, signer, c.ledger.EscrowAddress(), fee)
	if pending, ok := blockchain.PendingTxRef(err); ok {
		return c.confirmPendingFee(ctx, agent, fee, pending, err)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	return txRef, nil
}

// confirmPendingFee looks once more at a fee transfer that was submitted but not seen
// sealed. A sealed transfer admits the agent. Anything else rejects the admission and
// leaves the reference in the log and in the returned error.
func (c *EntryCoordinator) confirmPendingFee(ctx context.Context, agent model.AgentIdentity, fee model.Amount, txRef string, cause error) (string, error) {
	ledgerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.ledgerTimeout)
	defer cancel()

	status, err := c.ledger.TransactionStatus(ledgerCtx, txRef)
	if err == nil && status == blockchain.TxSealed {
		log.Info().Str("agentId", agent.Id).Str("entryTxRef", txRef).Msg("Pending entry fee transfer sealed")
		return txRef, nil
	}
	if err == nil && status == blockchain.TxFailed {
		return "", fmt.Errorf("%w: transaction %s failed", ErrPaymentFailed, txRef)
	}

	log.Error().
		Err(cause).
		Str("agentId", agent.Id).
		Str("entryTxRef", txRef).
		Str("amount", fee.Display()).
		Msg("Entry fee transfer still pending, admission rejected and fee may need a manual refund")
	return "", fmt.Errorf("%w: %w", ErrPaymentFailed, cause)
}

// refund returns a fee that was collected for an admission that could not be committed.
func (c *EntryCoordinator) refund(ctx context.Context, arenaId string, agent model.AgentIdentity, fee model.Amount, entryTxRef string) {
	ledgerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.ledgerTimeout)
	defer cancel()

	refundRef, err := c.ledger.Fund(ledgerCtx, agent.WalletAddress, fee)
	if err != nil {
		log.Error().
			Err(err).
			Str("arenaId", arenaId).
			Str("agentId", agent.Id).
			Str("entryTxRef", entryTxRef).
			Str("amount", fee.Display()).
			Msg("Failed to refund entry fee of rejected admission")
		return
	}
	log.Info().
		Str("arenaId", arenaId).
		Str("agentId", agent.Id).
		Str("entryTxRef", entryTxRef).
		Str("txRef", refundRef).
		Msg("Refunded entry fee of rejected admission")
}

func admissionResult(err error) string {
	switch {
	case errors.Is(err, ErrArenaNotOpen):
		return "not_open"
	case errors.Is(err, ErrArenaFull):
		return "full"
	case errors.Is(err, ErrAlreadyJoined):
		return "duplicate"
	case errors.Is(err, ErrAgentNotFound):
		return "agent_not_found"
	case errors.Is(err, ErrPaymentFailed):
		if _, pending := blockchain.PendingTxRef(err); pending {
			return "payment_pending"
		}
		return "payment_failed"
	default:
		return "error"
	}
}
