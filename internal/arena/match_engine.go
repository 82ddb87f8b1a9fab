package arena

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MaxTieAttempts bounds how often a tied match is replayed before the coin flip decides it.
const MaxTieAttempts = 5

type MatchEngine struct {
	store           Store
	agents          AgentDirectory
	decisions       DecisionProvider
	ruleset         *Ruleset
	rnd             Random
	events          EventPublisher
	metrics         *Metrics
	decisionTimeout time.Duration
	now             func() time.Time
}

type MatchResolvedPayload struct {
	Match     model.Match `json:"match"`
	LoserId   string      `json:"loserAgentId"`
	GameLabel string      `json:"gameLabel"`
}

// Execute plays one pending match of the arena and commits the result. Nothing is written
// when an agent cannot be resolved, a decision fails or the match is already resolved.
func (e *MatchEngine) Execute(ctx context.Context, arenaId, matchId string) (model.Match, error) {
	state, err := e.store.Load(ctx, arenaId)
	if err != nil {
		return model.Match{}, err
	}
	idx := state.matchIndex(matchId)
	if idx < 0 {
		return model.Match{}, fmt.Errorf("%w: %s", ErrMatchNotFound, matchId)
	}
	match := state.Matches[idx]
	if match.IsResolved() {
		return model.Match{}, fmt.Errorf("%w: %s", ErrAlreadyResolved, matchId)
	}

	game, err := LookupGame(state.Arena.GameType)
	if err != nil {
		return model.Match{}, err
	}

	agent1, err := e.resolveAgent(ctx, match.Agent1Id)
	if err != nil {
		return model.Match{}, err
	}
	agent2, err := e.resolveAgent(ctx, match.Agent2Id)
	if err != nil {
		return model.Match{}, err
	}

	var (
		move1, move2 string
		outcome      = Tie
		attempts     int
		decidedBy    = model.DecidedByRules
	)
	for attempts = 1; attempts <= MaxTieAttempts; attempts++ {
		move1, move2, err = e.requestMoves(ctx, game, agent1, agent2)
		if err != nil {
			return model.Match{}, err
		}
		outcome, err = e.ruleset.Resolve(game.Type, move1, move2)
		if err != nil {
			return model.Match{}, err
		}
		if outcome != Tie {
			break
		}
		log.Debug().
			Str("arenaId", arenaId).
			Str("matchId", matchId).
			Int("attempt", attempts).
			Str("move1", move1).
			Str("move2", move2).
			Msg("Match attempt tied")
	}

	if outcome == Tie {
		attempts = MaxTieAttempts
		decidedBy = model.DecidedByTiebreak
		outcome = Side1
		if e.rnd.Intn(2) == 1 {
			outcome = Side2
		}
	}

	winnerId, loserId := agent1.Id, agent2.Id
	if outcome == Side2 {
		winnerId, loserId = agent2.Id, agent1.Id
	}

	completedAt := e.now()
	updated, err := e.store.Update(ctx, arenaId, func(s *ArenaState) error {
		i := s.matchIndex(matchId)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrMatchNotFound, matchId)
		}
		if s.Matches[i].IsResolved() {
			return fmt.Errorf("%w: %s", ErrAlreadyResolved, matchId)
		}
		if s.Arena.Status != model.ArenaInProgress {
			return fmt.Errorf("%w: %s", ErrArenaNotInProgress, arenaId)
		}

		m := &s.Matches[i]
		m.Agent1Move = &move1
		m.Agent2Move = &move2
		m.WinnerId = &winnerId
		m.DecidedBy = decidedBy
		m.Attempts = attempts
		m.TimeCompleted = &completedAt

		s.eliminate(loserId)
		return nil
	})
	if err != nil {
		return model.Match{}, err
	}
	resolved := updated.Matches[updated.matchIndex(matchId)]

	logEvent := log.Info()
	if decidedBy == model.DecidedByTiebreak {
		logEvent = log.Warn()
	}
	logEvent.
		Str("arenaId", arenaId).
		Str("matchId", matchId).
		Int("round", resolved.Round).
		Str("winnerId", winnerId).
		Str("decidedBy", string(decidedBy)).
		Int("attempts", attempts).
		Msg("Match resolved")

	e.recordOutcome(ctx, winnerId, true)
	e.recordOutcome(ctx, loserId, false)

	e.metrics.matchResolved(string(game.Type), string(decidedBy), attempts)
	e.events.Publish(newEvent(EventMatchResolved, arenaId, MatchResolvedPayload{
		Match:     resolved,
		LoserId:   loserId,
		GameLabel: game.Label,
	}))

	return resolved, nil
}

func (e *MatchEngine) resolveAgent(ctx context.Context, agentId string) (model.AgentIdentity, error) {
	agent, err := e.agents.Resolve(ctx, agentId)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.AgentIdentity{}, fmt.Errorf("%w: %s", ErrAgentNotFound, agentId)
		}
		return model.AgentIdentity{}, err
	}
	return agent, nil
}

// requestMoves asks both agents at once so neither sees the other's move first.
func (e *MatchEngine) requestMoves(ctx context.Context, game Game, agent1, agent2 model.AgentIdentity) (string, string, error) {
	moves := make([]string, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, agent := range []model.AgentIdentity{agent1, agent2} {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, e.decisionTimeout)
			defer cancel()

			move, err := e.decisions.ChooseMove(callCtx, agent, game.Label, slices.Clone(game.Moves))
			if err != nil {
				return fmt.Errorf("%w: agent %s: %w", ErrDecisionFailed, agent.Id, err)
			}
			if !game.IsLegal(move) {
				return fmt.Errorf("%w: agent %s chose %q", ErrIllegalMove, agent.Id, move)
			}
			moves[i] = move
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return moves[0], moves[1], nil
}

func (e *MatchEngine) recordOutcome(ctx context.Context, agentId string, won bool) {
	if err := e.agents.RecordOutcome(ctx, agentId, won); err != nil {
		log.Warn().Err(err).Str("agentId", agentId).Bool("won", won).Msg("Failed to record match outcome")
	}
}
