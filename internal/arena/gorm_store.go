package arena

import (
	"context"
	"errors"
	"fmt"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) CreateArena(ctx context.Context, arena model.Arena) error {
	return s.db.WithContext(ctx).Create(&arena).Error
}

func (s *gormStore) Load(ctx context.Context, arenaId string) (ArenaState, error) {
	return load(s.db.WithContext(ctx), arenaId, false)
}

// Update locks the arena row for the duration of fn so concurrent instances serialise on it.
func (s *gormStore) Update(ctx context.Context, arenaId string, fn func(state *ArenaState) error) (ArenaState, error) {
	var updated ArenaState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := load(tx, arenaId, true)
		if err != nil {
			return err
		}
		before := state.clone()

		if err := fn(&state); err != nil {
			return err
		}

		if err := tx.Save(&state.Arena).Error; err != nil {
			return err
		}
		if err := saveParticipants(tx, before.Participants, state.Participants); err != nil {
			return err
		}
		if err := saveMatches(tx, before.Matches, state.Matches); err != nil {
			return err
		}

		updated = state
		return nil
	})
	if err != nil {
		return ArenaState{}, err
	}
	return updated, nil
}

func (s *gormStore) ListArenas(ctx context.Context, filter ArenaFilter) ([]model.Arena, int64, error) {
	byStatus := func(db *gorm.DB) *gorm.DB {
		if filter.Status != nil {
			return db.Where("status = ?", *filter.Status)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Arena{}).Scopes(byStatus).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var arenas []model.Arena
	err := s.db.WithContext(ctx).
		Scopes(byStatus).
		Order("time_created DESC, id").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&arenas).
		Error
	if err != nil {
		return nil, 0, err
	}
	return arenas, total, nil
}

func load(db *gorm.DB, arenaId string, forUpdate bool) (ArenaState, error) {
	var state ArenaState

	query := db
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.Where("id = ?", arenaId).First(&state.Arena).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ArenaState{}, fmt.Errorf("%w: %s", ErrArenaNotFound, arenaId)
		}
		return ArenaState{}, err
	}

	if err := db.Where("arena_id = ?", arenaId).Order("time_joined, id").Find(&state.Participants).Error; err != nil {
		return ArenaState{}, err
	}
	if err := db.Where("arena_id = ?", arenaId).Order("round, id").Find(&state.Matches).Error; err != nil {
		return ArenaState{}, err
	}
	return state, nil
}

func saveParticipants(tx *gorm.DB, before, after []model.Participant) error {
	known := make(map[string]model.Participant, len(before))
	for _, p := range before {
		known[p.Id] = p
	}
	for i := range after {
		p := after[i]
		previous, exists := known[p.Id]
		if !exists {
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			continue
		}
		if previous.Eliminated != p.Eliminated {
			if err := tx.Model(&p).Update("eliminated", p.Eliminated).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func saveMatches(tx *gorm.DB, before, after []model.Match) error {
	known := make(map[string]bool, len(before))
	for _, m := range before {
		known[m.Id] = m.IsResolved()
	}

	var created []model.Match
	for i := range after {
		m := after[i]
		resolved, exists := known[m.Id]
		switch {
		case !exists:
			created = append(created, m)
		case !resolved && m.IsResolved():
			if err := tx.Save(&m).Error; err != nil {
				return err
			}
		}
	}
	if len(created) > 0 {
		return tx.Create(&created).Error
	}
	return nil
}
