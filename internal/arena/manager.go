package arena

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxParticipants = 8
	MaxParticipantsLimit   = 64
	maxNameLength          = 64
	openArenasLimit        = 100
)

type ManagerConfig struct {
	Store     Store
	Agents    AgentDirectory
	Decisions DecisionProvider
	Ledger    Ledger
	Random    Random
	Events    EventPublisher
	Metrics   *Metrics

	DecisionTimeout time.Duration
	LedgerTimeout   time.Duration
	RoundPause      time.Duration
	Now             func() time.Time
}

// Manager is the entry point into the tournament engine. It wires the coordinator,
// scheduler and match engine to one store and one set of per-arena locks.
type Manager struct {
	store     Store
	agents    AgentDirectory
	events    EventPublisher
	entries   *EntryCoordinator
	scheduler *TournamentScheduler
	now       func() time.Time
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Random == nil {
		cfg.Random = NewTimeSeededRandom()
	}
	if cfg.Events == nil {
		cfg.Events = noopEvents{}
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.DecisionTimeout <= 0 {
		cfg.DecisionTimeout = 20 * time.Second
	}
	if cfg.LedgerTimeout <= 0 {
		cfg.LedgerTimeout = 90 * time.Second
	}

	locks := newKeyedLock()
	engine := &MatchEngine{
		store:           cfg.Store,
		agents:          cfg.Agents,
		decisions:       cfg.Decisions,
		ruleset:         NewRuleset(cfg.Random),
		rnd:             cfg.Random,
		events:          cfg.Events,
		metrics:         cfg.Metrics,
		decisionTimeout: cfg.DecisionTimeout,
		now:             cfg.Now,
	}

	return &Manager{
		store:  cfg.Store,
		agents: cfg.Agents,
		events: cfg.Events,
		entries: &EntryCoordinator{
			store:         cfg.Store,
			agents:        cfg.Agents,
			ledger:        cfg.Ledger,
			locks:         locks,
			events:        cfg.Events,
			metrics:       cfg.Metrics,
			ledgerTimeout: cfg.LedgerTimeout,
			now:           cfg.Now,
		},
		scheduler: &TournamentScheduler{
			store:         cfg.Store,
			engine:        engine,
			agents:        cfg.Agents,
			ledger:        cfg.Ledger,
			locks:         locks,
			rnd:           cfg.Random,
			events:        cfg.Events,
			metrics:       cfg.Metrics,
			ledgerTimeout: cfg.LedgerTimeout,
			roundPause:    cfg.RoundPause,
			now:           cfg.Now,
		},
		now: cfg.Now,
	}
}

type CreateArenaConfig struct {
	Name            string
	GameType        model.GameType
	EntryFee        model.Amount
	MaxParticipants int
	CreatedBy       string
}

func (m *Manager) CreateArena(ctx context.Context, cfg CreateArenaConfig) (model.Arena, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" || len(name) > maxNameLength {
		return model.Arena{}, fmt.Errorf("%w: name must be 1 to %d characters", ErrInvalidConfig, maxNameLength)
	}
	if _, err := LookupGame(cfg.GameType); err != nil {
		return model.Arena{}, err
	}
	maxParticipants := cfg.MaxParticipants
	if maxParticipants == 0 {
		maxParticipants = DefaultMaxParticipants
	}
	if maxParticipants < 2 || maxParticipants > MaxParticipantsLimit {
		return model.Arena{}, fmt.Errorf("%w: max participants must be between 2 and %d", ErrInvalidConfig, MaxParticipantsLimit)
	}
	if cfg.EntryFee > model.MaxAmount/model.Amount(maxParticipants) {
		return model.Arena{}, fmt.Errorf("%w: entry fee times max participants exceeds %s", ErrInvalidConfig, model.MaxAmount.Display())
	}

	id := uuid.New().String()
	arena := model.Arena{
		Id:              id,
		Name:            name,
		Slug:            fmt.Sprintf("%s-%s", slug.Make(name), id[:8]),
		GameType:        cfg.GameType,
		EntryFee:        cfg.EntryFee,
		MaxParticipants: maxParticipants,
		Status:          model.ArenaOpen,
		CreatedBy:       cfg.CreatedBy,
		TimeCreated:     m.now(),
	}
	if err := m.store.CreateArena(ctx, arena); err != nil {
		return model.Arena{}, err
	}

	log.Info().
		Str("arenaId", arena.Id).
		Str("gameType", string(arena.GameType)).
		Str("entryFee", arena.EntryFee.Display()).
		Int("maxParticipants", arena.MaxParticipants).
		Msg("Arena created")
	m.events.Publish(newEvent(EventArenaCreated, arena.Id, arena))

	return arena, nil
}

func (m *Manager) JoinArena(ctx context.Context, arenaId, agentId string, payWithRealValue bool) (model.Participant, error) {
	return m.entries.Join(ctx, arenaId, agentId, payWithRealValue)
}

func (m *Manager) StartArena(ctx context.Context, arenaId string) (model.Arena, error) {
	return m.scheduler.Start(ctx, arenaId)
}

func (m *Manager) RunRound(ctx context.Context, arenaId string, payoutWithRealValue bool) (RoundResult, error) {
	return m.scheduler.RunRound(ctx, arenaId, payoutWithRealValue)
}

// RunFullTournament starts an open arena, or picks up one already in progress, and plays it
// to the end. The settlement is valid even when the error is ErrPayoutFailed or
// ErrPayoutPending.
func (m *Manager) RunFullTournament(ctx context.Context, arenaId string, payoutWithRealValue bool) (Settlement, error) {
	state, err := m.store.Load(ctx, arenaId)
	if err != nil {
		return Settlement{}, err
	}

	switch state.Arena.Status {
	case model.ArenaOpen:
		if _, err := m.scheduler.Start(ctx, arenaId); err != nil {
			return Settlement{}, err
		}
	case model.ArenaCompleted:
		return Settlement{}, fmt.Errorf("%w: %s", ErrTournamentFinished, arenaId)
	}

	return m.scheduler.RunToCompletion(ctx, arenaId, payoutWithRealValue)
}

func (m *Manager) SettlePayout(ctx context.Context, arenaId string) (Settlement, error) {
	return m.scheduler.Settle(ctx, arenaId)
}

func (m *Manager) GetArena(ctx context.Context, arenaId string) (model.Arena, error) {
	state, err := m.store.Load(ctx, arenaId)
	if err != nil {
		return model.Arena{}, err
	}
	return state.Arena, nil
}

func (m *Manager) ListOpenArenas(ctx context.Context) ([]model.Arena, error) {
	status := model.ArenaOpen
	arenas, _, err := m.store.ListArenas(ctx, ArenaFilter{Status: &status, Limit: openArenasLimit})
	return arenas, err
}

func (m *Manager) ListArenas(ctx context.Context, filter ArenaFilter) ([]model.Arena, int64, error) {
	return m.store.ListArenas(ctx, filter)
}

func (m *Manager) ListParticipants(ctx context.Context, arenaId string) ([]model.Participant, error) {
	state, err := m.store.Load(ctx, arenaId)
	if err != nil {
		return nil, err
	}
	return state.Active(), nil
}

type MatchView struct {
	model.Match
	Agent1Name string `json:"agent1Name"`
	Agent2Name string `json:"agent2Name"`
	WinnerName string `json:"winnerName,omitempty"`
}

// ListMatches returns the arena's matches in round order with the names of the agents.
func (m *Manager) ListMatches(ctx context.Context, arenaId string) ([]MatchView, error) {
	state, err := m.store.Load(ctx, arenaId)
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	nameOf := func(agentId string) string {
		if name, ok := names[agentId]; ok {
			return name
		}
		agent, err := m.agents.Resolve(ctx, agentId)
		if err != nil {
			log.Debug().Err(err).Str("agentId", agentId).Msg("Cannot resolve agent for match listing")
		}
		names[agentId] = agent.Name
		return agent.Name
	}

	views := make([]MatchView, 0, len(state.Matches))
	for _, match := range state.Matches {
		view := MatchView{
			Match:      match,
			Agent1Name: nameOf(match.Agent1Id),
			Agent2Name: nameOf(match.Agent2Id),
		}
		if match.WinnerId != nil {
			view.WinnerName = nameOf(*match.WinnerId)
		}
		views = append(views, view)
	}
	return views, nil
}
