package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kollektive-hackathon/agora-backend/internal/keymgmt"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/pubsub"
)

type memoryRepository struct {
	mu     sync.Mutex
	agents map[string]model.Agent
}

func newMemoryRepository(agents ...model.Agent) *memoryRepository {
	r := &memoryRepository{agents: map[string]model.Agent{}}
	for _, a := range agents {
		r.agents[a.Id] = a
	}
	return r
}

func (r *memoryRepository) Create(_ context.Context, agent *model.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.Id] = *agent
	return nil
}

func (r *memoryRepository) FindById(_ context.Context, id string) (model.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok {
		return model.Agent{}, fmt.Errorf("agent %s: %w", id, model.ErrNotFound)
	}
	return agent, nil
}

func (r *memoryRepository) sorted(less func(a, b model.Agent) bool) []model.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	agents := make([]model.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	sort.Slice(agents, func(i, j int) bool { return less(agents[i], agents[j]) })
	return agents
}

func (r *memoryRepository) FindAll(_ context.Context, offset, limit int) ([]model.Agent, int64, error) {
	agents := r.sorted(func(a, b model.Agent) bool { return a.Id < b.Id })
	total := int64(len(agents))
	if offset >= len(agents) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(agents) {
		end = len(agents)
	}
	return agents[offset:end], total, nil
}

func (r *memoryRepository) Leaderboard(_ context.Context, limit int) ([]model.Agent, error) {
	agents := r.sorted(func(a, b model.Agent) bool {
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.Wins-a.Losses != b.Wins-b.Losses {
			return a.Wins-a.Losses > b.Wins-b.Losses
		}
		return a.Name < b.Name
	})
	if len(agents) > limit {
		agents = agents[:limit]
	}
	return agents, nil
}

func (r *memoryRepository) AssignWallet(_ context.Context, publicKey, address string) (model.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.agents {
		if a.PublicKey != nil && *a.PublicKey == publicKey {
			a.WalletAddress = &address
			r.agents[id] = a
			return a, nil
		}
	}
	return model.Agent{}, fmt.Errorf("agent with key %s: %w", publicKey, model.ErrNotFound)
}

func (r *memoryRepository) IncrementRecord(_ context.Context, id string, won bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return fmt.Errorf("agent %s: %w", id, model.ErrNotFound)
	}
	if won {
		a.Wins++
	} else {
		a.Losses++
	}
	r.agents[id] = a
	return nil
}

type fakeKeys struct {
	count int
	err   error
}

func (f *fakeKeys) NewAgentKey(context.Context) (keymgmt.AgentKey, error) {
	if f.err != nil {
		return keymgmt.AgentKey{}, f.err
	}
	f.count++
	return keymgmt.AgentKey{
		PublicKey:  fmt.Sprintf("pub-%d", f.count),
		ResourceId: fmt.Sprintf("projects/p/locations/l/keyRings/r/cryptoKeys/k-%d/cryptoKeyVersions/1", f.count),
	}, nil
}

type fakeBalances map[string]model.Amount

var errChainDown = errors.New("access node unavailable")

func (f fakeBalances) Balance(_ context.Context, address string) (model.Amount, error) {
	balance, ok := f[address]
	if !ok {
		return 0, errChainDown
	}
	return balance, nil
}

type recordingPublisher struct {
	messages []pubsub.Publishable
}

func (r *recordingPublisher) Publish(message pubsub.Publishable) {
	r.messages = append(r.messages, message)
}

type recordingNotifier struct {
	topics []string
}

func (r *recordingNotifier) Publish(topic string, _ any) {
	r.topics = append(r.topics, topic)
}

type fixedRandom int

func (f fixedRandom) Intn(n int) int { return int(f) % n }

func strPtr(s string) *string { return &s }

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
