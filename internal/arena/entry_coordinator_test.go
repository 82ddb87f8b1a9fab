package arena

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinWithoutPaymentGrowsPool(t *testing.T) {
	env := newTestEnv(t, []string{"a", "b"})
	arena := env.createArena(t, model.CoinFlip, 10, 4)

	participant, err := env.manager.JoinArena(context.Background(), arena.Id, "a", false)
	require.NoError(t, err)
	assert.Equal(t, "a", participant.AgentId)
	assert.Nil(t, participant.EntryTxRef)

	env.join(t, arena.Id, "b")

	state := env.state(t, arena.Id)
	assert.Equal(t, model.Amount(20), state.Arena.PrizePool)
	assert.Len(t, state.Participants, 2)
	assert.Empty(t, env.ledger.transferCalls())
}

func TestJoinWithPaymentTransfersToEscrow(t *testing.T) {
	env := newTestEnv(t, []string{"a"})
	arena := env.createArena(t, model.CoinFlip, 25, 4)

	participant, err := env.manager.JoinArena(context.Background(), arena.Id, "a", true)
	require.NoError(t, err)

	require.NotNil(t, participant.EntryTxRef)
	assert.Equal(t, "tx-1", *participant.EntryTxRef)
	assert.Equal(t, []ledgerCall{{From: "0xa", To: "0xescrow", Amount: 25}}, env.ledger.transferCalls())
	assert.Equal(t, model.Amount(25), env.state(t, arena.Id).Arena.PrizePool)
}

func TestJoinFreeArenaSkipsLedger(t *testing.T) {
	env := newTestEnv(t, []string{"a"})
	arena := env.createArena(t, model.CoinFlip, 0, 4)

	participant, err := env.manager.JoinArena(context.Background(), arena.Id, "a", true)
	require.NoError(t, err)

	assert.Nil(t, participant.EntryTxRef)
	assert.Empty(t, env.ledger.transferCalls())
}

func TestJoinRejectsFullArena(t *testing.T) {
	env := newTestEnv(t, []string{"a", "b", "c"})
	arena := env.createArena(t, model.CoinFlip, 10, 2)
	env.join(t, arena.Id, "a", "b")

	_, err := env.manager.JoinArena(context.Background(), arena.Id, "c", false)
	assert.ErrorIs(t, err, ErrArenaFull)
	assert.Equal(t, model.Amount(20), env.state(t, arena.Id).Arena.PrizePool)
}

func TestJoinChecksCapacityBeforeAgent(t *testing.T) {
	env := newTestEnv(t, []string{"a", "b"})
	arena := env.createArena(t, model.CoinFlip, 0, 2)
	env.join(t, arena.Id, "a", "b")

	_, err := env.manager.JoinArena(context.Background(), arena.Id, "ghost", false)
	assert.ErrorIs(t, err, ErrArenaFull)
}

func TestJoinRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t, []string{"a"})
	arena := env.createArena(t, model.CoinFlip, 10, 4)
	env.join(t, arena.Id, "a")

	_, err := env.manager.JoinArena(context.Background(), arena.Id, "a", true)
	assert.ErrorIs(t, err, ErrAlreadyJoined)
	assert.Empty(t, env.ledger.transferCalls())
	assert.Equal(t, model.Amount(10), env.state(t, arena.Id).Arena.PrizePool)
}

func TestJoinRejectsInProgressArena(t *testing.T) {
	env := newTestEnv(t, []string{"a", "b", "c"})
	arena := env.createArena(t, model.CoinFlip, 0, 8)
	env.join(t, arena.Id, "a", "b")
	_, err := env.manager.StartArena(context.Background(), arena.Id)
	require.NoError(t, err)

	_, err = env.manager.JoinArena(context.Background(), arena.Id, "c", false)
	assert.ErrorIs(t, err, ErrArenaNotOpen)
}

func TestJoinUnknownAgentAndArena(t *testing.T) {
	env := newTestEnv(t, nil)
	arena := env.createArena(t, model.CoinFlip, 0, 4)

	_, err := env.manager.JoinArena(context.Background(), arena.Id, "ghost", false)
	assert.ErrorIs(t, err, ErrAgentNotFound)

	_, err = env.manager.JoinArena(context.Background(), "missing", "ghost", false)
	assert.ErrorIs(t, err, ErrArenaNotFound)
}

func TestJoinPaymentFailureAdmitsNobody(t *testing.T) {
	env := newTestEnv(t, []string{"a"})
	env.ledger.transferErr = errors.New("insufficient balance")
	arena := env.createArena(t, model.CoinFlip, 10, 4)

	_, err := env.manager.JoinArena(context.Background(), arena.Id, "a", true)
	assert.ErrorIs(t, err, ErrPaymentFailed)

	state := env.state(t, arena.Id)
	assert.Empty(t, state.Participants)
	assert.Equal(t, model.Amount(0), state.Arena.PrizePool)
	assert.Equal(t, model.ArenaOpen, state.Arena.Status)
}

func TestJoinWithPendingPaymentAdmitsNobody(t *testing.T) {
	env := newTestEnv(t, []string{"a"})
	env.ledger.setPending(true, false)
	arena := env.createArena(t, model.CoinFlip, 10, 4)

	_, err := env.manager.JoinArena(context.Background(), arena.Id, "a", true)
	assert.ErrorIs(t, err, ErrPaymentFailed)
	ref, ok := blockchain.PendingTxRef(err)
	require.True(t, ok)
	assert.Equal(t, "tx-1", ref)
	assert.Equal(t, "payment_pending", admissionResult(err))
	assert.Equal(t, 1, env.ledger.statusCalls)

	problem := toProblem(err)
	assert.Equal(t, "tx-1", problem.Problem.Params["pendingTxRef"])

	state := env.state(t, arena.Id)
	assert.Empty(t, state.Participants)
	assert.Equal(t, model.Amount(0), state.Arena.PrizePool)
	assert.Empty(t, env.ledger.fundCalls())
}

func TestJoinAdmitsWhenPendingPaymentSeals(t *testing.T) {
	env := newTestEnv(t, []string{"a"})
	env.ledger.setPending(true, false)
	env.ledger.setStatus("tx-1", blockchain.TxSealed)
	arena := env.createArena(t, model.CoinFlip, 10, 4)

	participant, err := env.manager.JoinArena(context.Background(), arena.Id, "a", true)
	require.NoError(t, err)
	require.NotNil(t, participant.EntryTxRef)
	assert.Equal(t, "tx-1", *participant.EntryTxRef)
	assert.Equal(t, model.Amount(10), env.state(t, arena.Id).Arena.PrizePool)
}

func TestJoinRejectsFailedPendingPayment(t *testing.T) {
	env := newTestEnv(t, []string{"a"})
	env.ledger.setPending(true, false)
	env.ledger.setStatus("tx-1", blockchain.TxFailed)
	arena := env.createArena(t, model.CoinFlip, 10, 4)

	_, err := env.manager.JoinArena(context.Background(), arena.Id, "a", true)
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.Equal(t, "payment_failed", admissionResult(err))
	assert.Empty(t, env.state(t, arena.Id).Participants)
}

func TestJoinRejectsPrizePoolOverflow(t *testing.T) {
	env := newTestEnv(t, []string{"a"})
	err := env.store.CreateArena(context.Background(), model.Arena{
		Id:              "overflow",
		Name:            "overflow",
		GameType:        model.CoinFlip,
		EntryFee:        10,
		PrizePool:       model.MaxAmount - 5,
		MaxParticipants: 4,
		Status:          model.ArenaOpen,
	})
	require.NoError(t, err)

	_, err = env.manager.JoinArena(context.Background(), "overflow", "a", false)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	state := env.state(t, "overflow")
	assert.Empty(t, state.Participants)
	assert.Equal(t, model.MaxAmount-5, state.Arena.PrizePool)
}

func TestJoinRefundsWhenCommitFails(t *testing.T) {
	store := &flakyStore{Store: NewMemoryStore()}
	env := newTestEnv(t, []string{"a"}, withStore(store))
	arena := env.createArena(t, model.CoinFlip, 10, 4)
	store.failUpdates = true

	_, err := env.manager.JoinArena(context.Background(), arena.Id, "a", true)
	assert.ErrorIs(t, err, errStoreDown)

	assert.Len(t, env.ledger.transferCalls(), 1)
	assert.Equal(t, []ledgerCall{{From: "0xescrow", To: "0xa", Amount: 10}}, env.ledger.fundCalls())
}

func TestConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	ids := make([]string, 12)
	for i := range ids {
		ids[i] = fmt.Sprintf("agent-%d", i)
	}
	env := newTestEnv(t, ids)
	arena := env.createArena(t, model.RockPaperScissors, 5, 4)

	var wg sync.WaitGroup
	results := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = env.manager.JoinArena(context.Background(), arena.Id, id, true)
		}()
	}
	wg.Wait()

	admitted := 0
	for _, err := range results {
		if err == nil {
			admitted++
			continue
		}
		assert.ErrorIs(t, err, ErrArenaFull)
	}
	assert.Equal(t, 4, admitted)

	state := env.state(t, arena.Id)
	assert.Len(t, state.Participants, 4)
	assert.Equal(t, model.Amount(20), state.Arena.PrizePool)
	assert.Len(t, env.ledger.transferCalls(), 4)
}
