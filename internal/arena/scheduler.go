package arena

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type TournamentScheduler struct {
	store         Store
	engine        *MatchEngine
	agents        AgentDirectory
	ledger        Ledger
	locks         *keyedLock
	rnd           Random
	events        EventPublisher
	metrics       *Metrics
	ledgerTimeout time.Duration
	roundPause    time.Duration
	now           func() time.Time
}

type Settlement struct {
	ArenaId            string       `json:"arenaId"`
	WinnerAgentId      *string      `json:"winnerAgentId"`
	PrizePool          model.Amount `json:"prizePool"`
	PayoutTxRef        *string      `json:"payoutTxRef,omitempty"`
	PayoutPendingTxRef *string      `json:"payoutPendingTxRef,omitempty"`
	ResultsRoot        *string      `json:"resultsRoot,omitempty"`
}

func settlementOf(arena model.Arena) Settlement {
	return Settlement{
		ArenaId:            arena.Id,
		WinnerAgentId:      arena.WinnerAgentId,
		PrizePool:          arena.PrizePool,
		PayoutTxRef:        arena.PayoutTxRef,
		PayoutPendingTxRef: arena.PayoutPendingTxRef,
		ResultsRoot:        arena.ResultsRoot,
	}
}

var errNotSealed = errors.New("not sealed yet")

type RoundResult struct {
	Round      int           `json:"round"`
	Matches    []model.Match `json:"matches"`
	ByeAgentId *string       `json:"byeAgentId,omitempty"`
	Resumed    bool          `json:"resumed"`
	Completed  bool          `json:"completed"`
	Settlement *Settlement   `json:"settlement,omitempty"`
}

func (s *TournamentScheduler) Start(ctx context.Context, arenaId string) (model.Arena, error) {
	unlock, err := s.locks.Lock(ctx, arenaId)
	if err != nil {
		return model.Arena{}, err
	}
	defer unlock()

	startedAt := s.now()
	updated, err := s.store.Update(ctx, arenaId, func(state *ArenaState) error {
		if state.Arena.Status != model.ArenaOpen {
			return fmt.Errorf("%w: %s is %s", ErrArenaNotOpen, arenaId, state.Arena.Status)
		}
		if len(state.Active()) < 2 {
			return fmt.Errorf("%w: %d joined", ErrInsufficientParticipants, len(state.Active()))
		}
		state.Arena.Status = model.ArenaInProgress
		state.Arena.TimeStarted = &startedAt
		return nil
	})
	if err != nil {
		return model.Arena{}, err
	}

	log.Info().Str("arenaId", arenaId).Int("participants", len(updated.Active())).Msg("Tournament started")
	return updated.Arena, nil
}

// RunRound advances the tournament by one step: it finishes the matches a previous call
// left unresolved, plays the next round, or completes the arena once at most one agent is
// left. A completed result may come with ErrPayoutFailed or ErrPayoutPending.
func (s *TournamentScheduler) RunRound(ctx context.Context, arenaId string, payoutWithRealValue bool) (RoundResult, error) {
	unlock, err := s.locks.Lock(ctx, arenaId)
	if err != nil {
		return RoundResult{}, err
	}
	defer unlock()

	state, err := s.store.Load(ctx, arenaId)
	if err != nil {
		return RoundResult{}, err
	}
	switch state.Arena.Status {
	case model.ArenaCompleted:
		return RoundResult{}, fmt.Errorf("%w: %s", ErrTournamentFinished, arenaId)
	case model.ArenaOpen:
		return RoundResult{}, fmt.Errorf("%w: %s", ErrArenaNotInProgress, arenaId)
	}

	if pending := state.Unresolved(); len(pending) > 0 {
		log.Info().Str("arenaId", arenaId).Int("round", pending[0].Round).Int("pending", len(pending)).Msg("Resuming unresolved matches")
		resolved, err := s.executeAll(ctx, arenaId, pending)
		return RoundResult{Round: pending[0].Round, Matches: resolved, Resumed: true}, err
	}

	active := state.Active()
	if len(active) <= 1 {
		settlement, err := s.complete(ctx, &state, payoutWithRealValue)
		if settlement == nil {
			return RoundResult{}, err
		}
		return RoundResult{Round: state.LatestRound(), Completed: true, Settlement: settlement}, err
	}

	return s.playNextRound(ctx, &state, active)
}

// RunToCompletion calls RunRound until the arena completes, pausing between rounds.
func (s *TournamentScheduler) RunToCompletion(ctx context.Context, arenaId string, payoutWithRealValue bool) (Settlement, error) {
	for {
		result, err := s.RunRound(ctx, arenaId, payoutWithRealValue)
		if result.Completed {
			return *result.Settlement, err
		}
		if err != nil {
			return Settlement{}, err
		}

		if s.roundPause > 0 {
			select {
			case <-ctx.Done():
				return Settlement{}, ctx.Err()
			case <-time.After(s.roundPause):
			}
		}
	}
}

func (s *TournamentScheduler) playNextRound(ctx context.Context, state *ArenaState, active []model.Participant) (RoundResult, error) {
	arenaId := state.Arena.Id
	round := state.LatestRound() + 1

	roster := slices.Clone(active)
	s.rnd.Shuffle(len(roster), func(i, j int) {
		roster[i], roster[j] = roster[j], roster[i]
	})

	createdAt := s.now()
	matches := make([]model.Match, 0, len(roster)/2)
	for i := 0; i+1 < len(roster); i += 2 {
		matches = append(matches, model.Match{
			Id:          uuid.New().String(),
			ArenaId:     arenaId,
			Round:       round,
			Agent1Id:    roster[i].AgentId,
			Agent2Id:    roster[i+1].AgentId,
			TimeCreated: createdAt,
		})
	}
	var bye *string
	if len(roster)%2 == 1 {
		bye = &roster[len(roster)-1].AgentId
	}

	_, err := s.store.Update(ctx, arenaId, func(st *ArenaState) error {
		if st.Arena.Status != model.ArenaInProgress {
			return fmt.Errorf("%w: %s", ErrArenaNotInProgress, arenaId)
		}
		if st.LatestRound() >= round || len(st.Unresolved()) > 0 {
			return fmt.Errorf("round %d of arena %s was already scheduled", round, arenaId)
		}
		for _, m := range matches {
			if !st.isActive(m.Agent1Id) || !st.isActive(m.Agent2Id) {
				return fmt.Errorf("round %d of arena %s pairs an eliminated agent", round, arenaId)
			}
		}
		st.Matches = append(st.Matches, matches...)
		return nil
	})
	if err != nil {
		return RoundResult{}, err
	}

	agentIds := make([]string, 0, len(roster))
	for _, p := range roster {
		agentIds = append(agentIds, p.AgentId)
	}
	log.Info().Str("arenaId", arenaId).Int("round", round).Int("pairs", len(matches)).Bool("bye", bye != nil).Msg("Round started")
	s.events.Publish(newEvent(EventRoundStarted, arenaId, RoundStartedPayload{
		Round:    round,
		Pairs:    len(matches),
		ByeId:    bye,
		AgentIds: agentIds,
	}))

	resolved, err := s.executeAll(ctx, arenaId, matches)
	return RoundResult{Round: round, Matches: resolved, ByeAgentId: bye}, err
}

// executeAll runs the matches of one round concurrently and waits for all of them. Pairs
// never share an agent. A failed match stays unresolved for the next call to pick up.
func (s *TournamentScheduler) executeAll(ctx context.Context, arenaId string, matches []model.Match) ([]model.Match, error) {
	resolved := make([]model.Match, len(matches))
	var g errgroup.Group
	for i, m := range matches {
		g.Go(func() error {
			r, err := s.engine.Execute(ctx, arenaId, m.Id)
			if err != nil {
				log.Warn().Err(err).Str("arenaId", arenaId).Str("matchId", m.Id).Int("round", m.Round).Msg("Match aborted")
				return err
			}
			resolved[i] = r
			return nil
		})
	}
	err := g.Wait()

	done := resolved[:0]
	for _, r := range resolved {
		if r.Id != "" {
			done = append(done, r)
		}
	}
	return done, err
}

// complete settles the prize and moves the arena to completed in one update. A failed
// payout still completes the arena; the returned settlement is then paired with
// ErrPayoutFailed, or ErrPayoutPending when the transaction may still seal.
func (s *TournamentScheduler) complete(ctx context.Context, state *ArenaState, payoutWithRealValue bool) (*Settlement, error) {
	arenaId := state.Arena.Id
	pool := state.Arena.PrizePool

	var winnerId *string
	if active := state.Active(); len(active) == 1 {
		winnerId = &active[0].AgentId
	}

	var payoutTxRef, pendingTxRef *string
	var payoutErr error
	if winnerId != nil && payoutWithRealValue && pool > 0 {
		ref, err := s.payout(ctx, *winnerId, pool)
		if err != nil {
			payoutErr = err
			if pending, ok := blockchain.PendingTxRef(err); ok {
				pendingTxRef = &pending
			}
		} else {
			payoutTxRef = &ref
		}
	}

	var resultsRoot *string
	if tree, err := blockchain.NewResultsTree(state.Matches); err == nil {
		root := tree.Root()
		resultsRoot = &root
	}

	endedAt := s.now()
	_, err := s.store.Update(ctx, arenaId, func(st *ArenaState) error {
		if st.Arena.Status != model.ArenaInProgress {
			return fmt.Errorf("%w: %s", ErrTournamentFinished, arenaId)
		}
		st.Arena.Status = model.ArenaCompleted
		st.Arena.WinnerAgentId = winnerId
		st.Arena.PayoutTxRef = payoutTxRef
		st.Arena.PayoutPendingTxRef = pendingTxRef
		st.Arena.ResultsRoot = resultsRoot
		st.Arena.TimeEnded = &endedAt
		return nil
	})
	if err != nil {
		if payoutTxRef != nil {
			log.Error().Err(err).Str("arenaId", arenaId).Str("txRef", *payoutTxRef).Msg("Prize was paid but arena completion could not be stored")
		}
		if pendingTxRef != nil {
			log.Error().Err(err).Str("arenaId", arenaId).Str("pendingTxRef", *pendingTxRef).Msg("Prize payout is pending but arena completion could not be stored")
		}
		return nil, err
	}

	settlement := &Settlement{
		ArenaId:            arenaId,
		WinnerAgentId:      winnerId,
		PrizePool:          pool,
		PayoutTxRef:        payoutTxRef,
		PayoutPendingTxRef: pendingTxRef,
		ResultsRoot:        resultsRoot,
	}

	logEvent := log.Info().Str("arenaId", arenaId).Str("prizePool", pool.Display())
	if winnerId != nil {
		logEvent = logEvent.Str("winnerId", *winnerId)
	}
	if payoutTxRef != nil {
		logEvent = logEvent.Str("txRef", *payoutTxRef)
	}
	if pendingTxRef != nil {
		logEvent = logEvent.Str("pendingTxRef", *pendingTxRef)
	}
	logEvent.Msg("Tournament completed")

	payload := TournamentCompletedPayload{
		WinnerAgentId:      winnerId,
		PrizePool:          pool.Display(),
		PayoutTxRef:        payoutTxRef,
		PayoutPendingTxRef: pendingTxRef,
		ResultsRoot:        resultsRoot,
	}
	if payoutErr != nil {
		payload.PayoutError = payoutErr.Error()
	}
	s.metrics.tournamentCompleted()
	s.events.Publish(newEvent(EventTournamentCompleted, arenaId, payload))

	return settlement, payoutErr
}

// Settle retries the payout of a completed arena whose prize was not paid. A payout
// still pending from an earlier attempt is looked up first and only a failed one is
// sent again.
func (s *TournamentScheduler) Settle(ctx context.Context, arenaId string) (Settlement, error) {
	unlock, err := s.locks.Lock(ctx, arenaId)
	if err != nil {
		return Settlement{}, err
	}
	defer unlock()

	state, err := s.store.Load(ctx, arenaId)
	if err != nil {
		return Settlement{}, err
	}
	arena := state.Arena
	switch {
	case arena.Status != model.ArenaCompleted:
		return Settlement{}, fmt.Errorf("%w: %s is %s", ErrArenaNotCompleted, arenaId, arena.Status)
	case arena.PayoutTxRef != nil:
		return Settlement{}, fmt.Errorf("%w: %s", ErrAlreadySettled, *arena.PayoutTxRef)
	case arena.WinnerAgentId == nil || arena.PrizePool == 0:
		return Settlement{}, fmt.Errorf("%w: %s", ErrNothingToSettle, arenaId)
	}

	if arena.PayoutPendingTxRef != nil {
		sealed, err := s.pendingPayoutSealed(ctx, arenaId, *arena.PayoutPendingTxRef)
		if err != nil {
			return Settlement{}, err
		}
		if sealed {
			return s.recordPayout(ctx, arenaId, *arena.PayoutPendingTxRef)
		}
	}

	ref, err := s.payout(ctx, *arena.WinnerAgentId, arena.PrizePool)
	if err != nil {
		if pending, ok := blockchain.PendingTxRef(err); ok {
			s.recordPendingPayout(ctx, arenaId, pending)
		}
		return Settlement{}, err
	}
	return s.recordPayout(ctx, arenaId, ref)
}

// pendingPayoutSealed reports whether the pending payout sealed. It returns false for a
// failed transaction and ErrPayoutPending while the outcome is unknown.
func (s *TournamentScheduler) pendingPayoutSealed(ctx context.Context, arenaId, txRef string) (bool, error) {
	ledgerCtx, cancel := context.WithTimeout(ctx, s.ledgerTimeout)
	defer cancel()

	status, err := s.ledger.TransactionStatus(ledgerCtx, txRef)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrPayoutPending, &blockchain.PendingTransactionError{TxRef: txRef, Err: err})
	}
	switch status {
	case blockchain.TxSealed:
		return true, nil
	case blockchain.TxFailed:
		log.Warn().Str("arenaId", arenaId).Str("pendingTxRef", txRef).Msg("Pending prize payout failed, paying again")
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", ErrPayoutPending, &blockchain.PendingTransactionError{TxRef: txRef, Err: errNotSealed})
	}
}

func (s *TournamentScheduler) recordPayout(ctx context.Context, arenaId, ref string) (Settlement, error) {
	updated, err := s.store.Update(ctx, arenaId, func(st *ArenaState) error {
		if st.Arena.PayoutTxRef != nil {
			return fmt.Errorf("%w: %s", ErrAlreadySettled, *st.Arena.PayoutTxRef)
		}
		st.Arena.PayoutTxRef = &ref
		st.Arena.PayoutPendingTxRef = nil
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("arenaId", arenaId).Str("txRef", ref).Msg("Prize was paid but payout reference could not be stored")
		return Settlement{}, err
	}

	log.Info().Str("arenaId", arenaId).Str("txRef", ref).Msg("Prize settled")
	return settlementOf(updated.Arena), nil
}

func (s *TournamentScheduler) recordPendingPayout(ctx context.Context, arenaId, ref string) {
	_, err := s.store.Update(ctx, arenaId, func(st *ArenaState) error {
		st.Arena.PayoutPendingTxRef = &ref
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("arenaId", arenaId).Str("pendingTxRef", ref).Msg("Prize payout is pending but its reference could not be stored")
	}
}

func (s *TournamentScheduler) payout(ctx context.Context, winnerId string, amount model.Amount) (string, error) {
	winner, err := s.agents.Resolve(ctx, winnerId)
	if err != nil {
		s.metrics.payout("failed")
		return "", fmt.Errorf("%w: %w", ErrPayoutFailed, err)
	}
	if winner.WalletAddress == "" {
		s.metrics.payout("failed")
		return "", fmt.Errorf("%w: winner %s has no wallet", ErrPayoutFailed, winnerId)
	}

	ledgerCtx, cancel := context.WithTimeout(ctx, s.ledgerTimeout)
	defer cancel()

	ref, err := s.ledger.Fund(ledgerCtx, winner.WalletAddress, amount)
	if pending, ok := blockchain.PendingTxRef(err); ok {
		s.metrics.payout("pending")
		log.Warn().Err(err).Str("winnerId", winnerId).Str("pendingTxRef", pending).Msg("Prize payout submitted but not sealed in time")
		return "", fmt.Errorf("%w: %w", ErrPayoutPending, err)
	}
	if err != nil {
		s.metrics.payout("failed")
		log.Warn().Err(err).Str("winnerId", winnerId).Str("amount", amount.Display()).Msg("Prize payout failed")
		return "", fmt.Errorf("%w: %w", ErrPayoutFailed, err)
	}
	s.metrics.payout("paid")
	return ref, nil
}

func isPayoutFailure(err error) bool {
	return errors.Is(err, ErrPayoutFailed) || errors.Is(err, ErrPayoutPending)
}
