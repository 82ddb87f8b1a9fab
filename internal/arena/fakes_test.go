package arena

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	mu       sync.Mutex
	agents   map[string]model.AgentIdentity
	outcomes map[string][]bool
}

func newFakeDirectory(ids ...string) *fakeDirectory {
	d := &fakeDirectory{
		agents:   map[string]model.AgentIdentity{},
		outcomes: map[string][]bool{},
	}
	for _, id := range ids {
		d.add(id)
	}
	return d
}

func (d *fakeDirectory) add(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.agents[id] = model.AgentIdentity{
		Id:            id,
		Name:          "Agent " + id,
		Personality:   "Cautious and analytical.",
		WalletAddress: "0x" + id,
	}
}

func (d *fakeDirectory) Resolve(_ context.Context, agentId string) (model.AgentIdentity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	agent, ok := d.agents[agentId]
	if !ok {
		return model.AgentIdentity{}, fmt.Errorf("agent %s: %w", agentId, model.ErrNotFound)
	}
	return agent, nil
}

func (d *fakeDirectory) RecordOutcome(_ context.Context, agentId string, won bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outcomes[agentId] = append(d.outcomes[agentId], won)
	return nil
}

func (d *fakeDirectory) Signer(_ context.Context, agentId string) (blockchain.Authorizer, error) {
	return blockchain.NewAuthorizer("kms/"+agentId, "0x"+agentId), nil
}

func (d *fakeDirectory) outcomesOf(agentId string) []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]bool(nil), d.outcomes[agentId]...)
}

// scriptedDecisions plays the queued moves of each agent in order, repeating the last one.
// Agents without a script play the first legal move.
type scriptedDecisions struct {
	mu    sync.Mutex
	moves map[string][]string
	errs  map[string]error
	calls map[string]int
	block bool
}

func newScriptedDecisions() *scriptedDecisions {
	return &scriptedDecisions{
		moves: map[string][]string{},
		errs:  map[string]error{},
		calls: map[string]int{},
	}
}

func (d *scriptedDecisions) script(agentId string, moves ...string) *scriptedDecisions {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.moves[agentId] = moves
	return d
}

func (d *scriptedDecisions) fail(agentId string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.errs, agentId)
		return
	}
	d.errs[agentId] = err
}

func (d *scriptedDecisions) callsOf(agentId string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[agentId]
}

func (d *scriptedDecisions) ChooseMove(ctx context.Context, agent model.AgentIdentity, _ string, legalMoves []string) (string, error) {
	d.mu.Lock()
	d.calls[agent.Id]++
	n := d.calls[agent.Id]
	queue := d.moves[agent.Id]
	err := d.errs[agent.Id]
	block := d.block
	d.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	if len(queue) == 0 {
		return legalMoves[0], nil
	}
	if n <= len(queue) {
		return queue[n-1], nil
	}
	return queue[len(queue)-1], nil
}

type ledgerCall struct {
	From   string
	To     string
	Amount model.Amount
}

// fakeLedger records transfers. In pending mode a call is submitted but times out, the way
// a transaction that misses its seal deadline does; its status stays pending until set.
type fakeLedger struct {
	mu               sync.Mutex
	transfers        []ledgerCall
	funds            []ledgerCall
	transferErr      error
	fundErr          error
	pendingTransfers bool
	pendingFunds     bool
	statuses         map[string]blockchain.TxStatus
	statusCalls      int
	seq              int
}

func (l *fakeLedger) Transfer(_ context.Context, from blockchain.Authorizer, to string, amount model.Amount) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.transferErr != nil {
		return "", l.transferErr
	}
	l.seq++
	l.transfers = append(l.transfers, ledgerCall{From: from.ResourceOwnerAddress, To: to, Amount: amount})
	return l.submitted(l.pendingTransfers)
}

func (l *fakeLedger) Fund(_ context.Context, to string, amount model.Amount) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fundErr != nil {
		return "", l.fundErr
	}
	l.seq++
	l.funds = append(l.funds, ledgerCall{From: l.EscrowAddress(), To: to, Amount: amount})
	return l.submitted(l.pendingFunds)
}

func (l *fakeLedger) submitted(pending bool) (string, error) {
	ref := fmt.Sprintf("tx-%d", l.seq)
	if pending {
		return "", &blockchain.PendingTransactionError{TxRef: ref, Err: context.DeadlineExceeded}
	}
	return ref, nil
}

func (l *fakeLedger) Balance(context.Context, string) (model.Amount, error) {
	return 0, nil
}

func (l *fakeLedger) TransactionStatus(_ context.Context, txRef string) (blockchain.TxStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statusCalls++
	if status, ok := l.statuses[txRef]; ok {
		return status, nil
	}
	return blockchain.TxPending, nil
}

func (l *fakeLedger) setPending(transfers, funds bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pendingTransfers = transfers
	l.pendingFunds = funds
}

func (l *fakeLedger) setStatus(txRef string, status blockchain.TxStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.statuses == nil {
		l.statuses = map[string]blockchain.TxStatus{}
	}
	l.statuses[txRef] = status
}

func (l *fakeLedger) EscrowAddress() string {
	return "0xescrow"
}

func (l *fakeLedger) setFundErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fundErr = err
}

func (l *fakeLedger) fundCalls() []ledgerCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ledgerCall(nil), l.funds...)
}

func (l *fakeLedger) transferCalls() []ledgerCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ledgerCall(nil), l.transfers...)
}

// scriptedRandom returns the queued values (modulo n) and then zeros. Shuffle keeps order.
type scriptedRandom struct {
	mu     sync.Mutex
	values []int
}

func (r *scriptedRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[0]
	r.values = r.values[1:]
	return v % n
}

func (r *scriptedRandom) Shuffle(int, func(i, j int)) {}

type recordingEvents struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingEvents) Publish(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEvents) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

// flakyStore fails every Update while failUpdates is set.
type flakyStore struct {
	Store
	mu          sync.Mutex
	failUpdates bool
}

var errStoreDown = errors.New("store unavailable")

func (s *flakyStore) Update(ctx context.Context, arenaId string, fn func(state *ArenaState) error) (ArenaState, error) {
	s.mu.Lock()
	fail := s.failUpdates
	s.mu.Unlock()
	if fail {
		return ArenaState{}, errStoreDown
	}
	return s.Store.Update(ctx, arenaId, fn)
}

type testEnv struct {
	manager   *Manager
	store     Store
	agents    *fakeDirectory
	decisions *scriptedDecisions
	ledger    *fakeLedger
	events    *recordingEvents
	rnd       Random
}

type envOption func(cfg *ManagerConfig)

func withRandom(rnd Random) envOption {
	return func(cfg *ManagerConfig) { cfg.Random = rnd }
}

func withStore(store Store) envOption {
	return func(cfg *ManagerConfig) { cfg.Store = store }
}

func withDecisionTimeout(d time.Duration) envOption {
	return func(cfg *ManagerConfig) { cfg.DecisionTimeout = d }
}

func newTestEnv(t *testing.T, agentIds []string, opts ...envOption) *testEnv {
	t.Helper()
	env := &testEnv{
		store:     NewMemoryStore(),
		agents:    newFakeDirectory(agentIds...),
		decisions: newScriptedDecisions(),
		ledger:    &fakeLedger{},
		events:    &recordingEvents{},
		rnd:       NewRandom(7),
	}
	cfg := ManagerConfig{
		Store:           env.store,
		Agents:          env.agents,
		Decisions:       env.decisions,
		Ledger:          env.ledger,
		Random:          env.rnd,
		Events:          env.events,
		DecisionTimeout: time.Second,
		LedgerTimeout:   time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	env.store = cfg.Store
	env.rnd = cfg.Random
	env.manager = NewManager(cfg)
	return env
}

func (env *testEnv) createArena(t *testing.T, gameType model.GameType, fee model.Amount, max int) model.Arena {
	t.Helper()
	arena, err := env.manager.CreateArena(context.Background(), CreateArenaConfig{
		Name:            "Test Arena",
		GameType:        gameType,
		EntryFee:        fee,
		MaxParticipants: max,
	})
	require.NoError(t, err)
	return arena
}

func (env *testEnv) join(t *testing.T, arenaId string, agentIds ...string) {
	t.Helper()
	for _, id := range agentIds {
		_, err := env.manager.JoinArena(context.Background(), arenaId, id, false)
		require.NoError(t, err)
	}
}

// startedArenaWithMatch returns an in progress arena between a and b with one pending match.
func (env *testEnv) startedArenaWithMatch(t *testing.T, gameType model.GameType) (model.Arena, model.Match) {
	t.Helper()
	arena := env.createArena(t, gameType, 0, 2)
	env.join(t, arena.Id, "a", "b")
	_, err := env.manager.StartArena(context.Background(), arena.Id)
	require.NoError(t, err)

	match := model.Match{Id: "m-1", ArenaId: arena.Id, Round: 1, Agent1Id: "a", Agent2Id: "b"}
	_, err = env.store.Update(context.Background(), arena.Id, func(s *ArenaState) error {
		s.Matches = append(s.Matches, match)
		return nil
	})
	require.NoError(t, err)
	return arena, match
}

func (env *testEnv) state(t *testing.T, arenaId string) ArenaState {
	t.Helper()
	state, err := env.store.Load(context.Background(), arenaId)
	require.NoError(t, err)
	return state
}
