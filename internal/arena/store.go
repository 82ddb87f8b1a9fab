package arena

import (
	"context"
	"slices"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
)

// ArenaState is an arena with the roster and match history it owns.
type ArenaState struct {
	Arena        model.Arena
	Participants []model.Participant
	Matches      []model.Match
}

func (s *ArenaState) clone() ArenaState {
	return ArenaState{
		Arena:        s.Arena,
		Participants: slices.Clone(s.Participants),
		Matches:      slices.Clone(s.Matches),
	}
}

func (s *ArenaState) Active() []model.Participant {
	active := make([]model.Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		if !p.Eliminated {
			active = append(active, p)
		}
	}
	return active
}

func (s *ArenaState) isActive(agentId string) bool {
	for _, p := range s.Participants {
		if p.AgentId == agentId && !p.Eliminated {
			return true
		}
	}
	return false
}

func (s *ArenaState) eliminate(agentId string) {
	for i := range s.Participants {
		if s.Participants[i].AgentId == agentId && !s.Participants[i].Eliminated {
			s.Participants[i].Eliminated = true
		}
	}
}

func (s *ArenaState) matchIndex(matchId string) int {
	for i, m := range s.Matches {
		if m.Id == matchId {
			return i
		}
	}
	return -1
}

func (s *ArenaState) LatestRound() int {
	latest := 0
	for _, m := range s.Matches {
		if m.Round > latest {
			latest = m.Round
		}
	}
	return latest
}

func (s *ArenaState) Unresolved() []model.Match {
	var pending []model.Match
	for _, m := range s.Matches {
		if !m.IsResolved() {
			pending = append(pending, m)
		}
	}
	return pending
}

type ArenaFilter struct {
	Status *model.ArenaStatus
	Offset int
	Limit  int
}

// Store persists arena state. Update is the only way to mutate an existing arena: fn runs
// against a private copy and its result is persisted as a whole, or not at all when fn fails.
type Store interface {
	CreateArena(ctx context.Context, arena model.Arena) error
	Load(ctx context.Context, arenaId string) (ArenaState, error)
	Update(ctx context.Context, arenaId string, fn func(state *ArenaState) error) (ArenaState, error)
	ListArenas(ctx context.Context, filter ArenaFilter) ([]model.Arena, int64, error)
}
