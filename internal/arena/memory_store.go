package arena

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
)

type memoryStore struct {
	mu     sync.Mutex
	arenas map[string]*ArenaState
}

// NewMemoryStore keeps arenas in process. Used in tests.
func NewMemoryStore() Store {
	return &memoryStore{arenas: map[string]*ArenaState{}}
}

func (s *memoryStore) CreateArena(_ context.Context, arena model.Arena) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.arenas[arena.Id]; exists {
		return fmt.Errorf("arena %s already exists", arena.Id)
	}
	s.arenas[arena.Id] = &ArenaState{Arena: arena}
	return nil
}

func (s *memoryStore) Load(_ context.Context, arenaId string) (ArenaState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.arenas[arenaId]
	if !ok {
		return ArenaState{}, fmt.Errorf("%w: %s", ErrArenaNotFound, arenaId)
	}
	return state.clone(), nil
}

func (s *memoryStore) Update(ctx context.Context, arenaId string, fn func(state *ArenaState) error) (ArenaState, error) {
	if err := ctx.Err(); err != nil {
		return ArenaState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.arenas[arenaId]
	if !ok {
		return ArenaState{}, fmt.Errorf("%w: %s", ErrArenaNotFound, arenaId)
	}

	next := current.clone()
	if err := fn(&next); err != nil {
		return ArenaState{}, err
	}
	s.arenas[arenaId] = &next
	return next.clone(), nil
}

func (s *memoryStore) ListArenas(_ context.Context, filter ArenaFilter) ([]model.Arena, int64, error) {
	s.mu.Lock()
	matching := make([]model.Arena, 0, len(s.arenas))
	for _, state := range s.arenas {
		if filter.Status != nil && state.Arena.Status != *filter.Status {
			continue
		}
		matching = append(matching, state.Arena)
	}
	s.mu.Unlock()

	sort.Slice(matching, func(i, j int) bool {
		if matching[i].TimeCreated.Equal(matching[j].TimeCreated) {
			return matching[i].Id < matching[j].Id
		}
		return matching[i].TimeCreated.After(matching[j].TimeCreated)
	})

	total := int64(len(matching))
	if filter.Offset >= len(matching) {
		return []model.Arena{}, total, nil
	}
	end := len(matching)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return matching[filter.Offset:end], total, nil
}
