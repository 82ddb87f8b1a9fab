package arena

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteResolvesByRules(t *testing.T) {
	env := newTestEnv(t, []string{"a", "b"})
	env.decisions.script("a", "rock").script("b", "scissors")
	arena, match := env.startedArenaWithMatch(t, model.RockPaperScissors)

	resolved, err := env.manager.scheduler.engine.Execute(context.Background(), arena.Id, match.Id)
	require.NoError(t, err)

	require.NotNil(t, resolved.WinnerId)
	assert.Equal(t, "a", *resolved.WinnerId)
	assert.Equal(t, model.DecidedByRules, resolved.DecidedBy)
	assert.Equal(t, 1, resolved.Attempts)
	assert.Equal(t, "rock", *resolved.Agent1Move)
	assert.Equal(t, "scissors", *resolved.Agent2Move)
	assert.NotNil(t, resolved.TimeCompleted)

	state := env.state(t, arena.Id)
	active := state.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].AgentId)

	assert.Equal(t, []bool{true}, env.agents.outcomesOf("a"))
	assert.Equal(t, []bool{false}, env.agents.outcomesOf("b"))
	assert.Contains(t, env.events.types(), EventMatchResolved)
}

func TestExecuteFallsBackToTiebreakAfterMaxAttempts(t *testing.T) {
	// a single scripted draw: the tiebreak coin picks side 2
	env := newTestEnv(t, []string{"a", "b"}, withRandom(&scriptedRandom{values: []int{1}}))
	env.decisions.script("a", "rock").script("b", "rock")
	arena, match := env.startedArenaWithMatch(t, model.RockPaperScissors)

	resolved, err := env.manager.scheduler.engine.Execute(context.Background(), arena.Id, match.Id)
	require.NoError(t, err)

	require.NotNil(t, resolved.WinnerId)
	assert.Equal(t, "b", *resolved.WinnerId)
	assert.Equal(t, model.DecidedByTiebreak, resolved.DecidedBy)
	assert.Equal(t, MaxTieAttempts, resolved.Attempts)
	assert.Equal(t, MaxTieAttempts, env.decisions.callsOf("a"))
	assert.Equal(t, MaxTieAttempts, env.decisions.callsOf("b"))
}

func TestExecuteRecordsOnlyResolvingAttempt(t *testing.T) {
	env := newTestEnv(t, []string{"a", "b"})
	env.decisions.script("a", "rock", "paper").script("b", "rock", "rock")
	arena, match := env.startedArenaWithMatch(t, model.RockPaperScissors)

	resolved, err := env.manager.scheduler.engine.Execute(context.Background(), arena.Id, match.Id)
	require.NoError(t, err)

	assert.Equal(t, 2, resolved.Attempts)
	assert.Equal(t, "paper", *resolved.Agent1Move)
	assert.Equal(t, "rock", *resolved.Agent2Move)
	assert.Equal(t, "a", *resolved.WinnerId)
}

func TestExecuteRejectsResolvedMatch(t *testing.T) {
	env := newTestEnv(t, []string{"a", "b"})
	env.decisions.script("a", "paper").script("b", "rock")
	arena, match := env.startedArenaWithMatch(t, model.RockPaperScissors)
	engine := env.manager.scheduler.engine

	first, err := engine.Execute(context.Background(), arena.Id, match.Id)
	require.NoError(t, err)

	_, err = engine.Execute(context.Background(), arena.Id, match.Id)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	after := env.state(t, arena.Id)
	assert.Equal(t, first, after.Matches[0])
	assert.Len(t, env.agents.outcomesOf("a"), 1)
}

func TestExecuteUnknownAgentLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t, []string{"a", "b"})
	arena, match := env.startedArenaWithMatch(t, model.RockPaperScissors)
	delete(env.agents.agents, "b")

	_, err := env.manager.scheduler.engine.Execute(context.Background(), arena.Id, match.Id)
	assert.ErrorIs(t, err, ErrAgentNotFound)

	state := env.state(t, arena.Id)
	assert.False(t, state.Matches[0].IsResolved())
	assert.Len(t, state.Active(), 2)
	assert.Empty(t, env.agents.outcomesOf("a"))
	assert.Zero(t, env.decisions.callsOf("a"))
}

func TestExecuteDecisionFailureAborts(t *testing.T) {
	env := newTestEnv(t, []string{"a", "b"})
	env.decisions.fail("b", errors.New("model overloaded"))
	arena, match := env.startedArenaWithMatch(t, model.Strategy)

	_, err := env.manager.scheduler.engine.Execute(context.Background(), arena.Id, match.Id)
	assert.ErrorIs(t, err, ErrDecisionFailed)

	state := env.state(t, arena.Id)
	assert.False(t, state.Matches[0].IsResolved())
	assert.Len(t, state.Active(), 2)
}

func TestExecuteDecisionTimeout(t *testing.T) {
	env := newTestEnv(t, []string{"a", "b"}, withDecisionTimeout(20*time.Millisecond))
	env.decisions.block = true
	arena, match := env.startedArenaWithMatch(t, model.CoinFlip)

	_, err := env.manager.scheduler.engine.Execute(context.Background(), arena.Id, match.Id)
	assert.ErrorIs(t, err, ErrDecisionFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, env.state(t, arena.Id).Matches[0].IsResolved())
}

func TestExecuteRejectsIllegalMove(t *testing.T) {
	env := newTestEnv(t, []string{"a", "b"})
	env.decisions.script("a", "lizard")
	arena, match := env.startedArenaWithMatch(t, model.RockPaperScissors)

	_, err := env.manager.scheduler.engine.Execute(context.Background(), arena.Id, match.Id)
	assert.ErrorIs(t, err, ErrIllegalMove)
}

func TestExecuteUnknownMatch(t *testing.T) {
	env := newTestEnv(t, []string{"a", "b"})
	arena, _ := env.startedArenaWithMatch(t, model.RockPaperScissors)

	_, err := env.manager.scheduler.engine.Execute(context.Background(), arena.Id, "nope")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestExecuteCountsMetrics(t *testing.T) {
	env := newTestEnv(t, []string{"a", "b"})
	metrics := NewMetrics(prometheus.NewRegistry())
	env.manager.scheduler.engine.metrics = metrics
	env.decisions.script("a", "rock").script("b", "paper")
	arena, match := env.startedArenaWithMatch(t, model.RockPaperScissors)

	_, err := env.manager.scheduler.engine.Execute(context.Background(), arena.Id, match.Id)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.matchesResolved.WithLabelValues("rock_paper_scissors", "rules")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.matchesResolved.WithLabelValues("rock_paper_scissors", "tiebreak")))
}
