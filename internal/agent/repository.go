package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, agent *model.Agent) error
	// FindById returns an error wrapping model.ErrNotFound for unknown ids.
	FindById(ctx context.Context, id string) (model.Agent, error)
	FindAll(ctx context.Context, offset, limit int) ([]model.Agent, int64, error)
	Leaderboard(ctx context.Context, limit int) ([]model.Agent, error)
	// AssignWallet stores the on-chain address of the account created for publicKey.
	AssignWallet(ctx context.Context, publicKey, address string) (model.Agent, error)
	IncrementRecord(ctx context.Context, id string, won bool) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, agent *model.Agent) error {
	return r.db.WithContext(ctx).Create(agent).Error
}

func (r *gormRepository) FindById(ctx context.Context, id string) (model.Agent, error) {
	var agent model.Agent
	err := r.db.WithContext(ctx).First(&agent, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Agent{}, fmt.Errorf("agent %s: %w", id, model.ErrNotFound)
	}
	return agent, err
}

func (r *gormRepository) FindAll(ctx context.Context, offset, limit int) ([]model.Agent, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Agent{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var agents []model.Agent
	err := r.db.WithContext(ctx).
		Order("time_created DESC, id").
		Offset(offset).
		Limit(limit).
		Find(&agents).Error
	return agents, total, err
}

func (r *gormRepository) Leaderboard(ctx context.Context, limit int) ([]model.Agent, error) {
	var agents []model.Agent
	err := r.db.WithContext(ctx).
		Order("wins DESC").
		Order("wins - losses DESC").
		Order("name").
		Limit(limit).
		Find(&agents).Error
	return agents, err
}

func (r *gormRepository) AssignWallet(ctx context.Context, publicKey, address string) (model.Agent, error) {
	var agent model.Agent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&agent, "public_key = ?", publicKey).Error; err != nil {
			return err
		}
		agent.WalletAddress = &address
		return tx.Model(&agent).Update("wallet_address", address).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Agent{}, fmt.Errorf("agent with key %s: %w", publicKey, model.ErrNotFound)
	}
	return agent, err
}

func (r *gormRepository) IncrementRecord(ctx context.Context, id string, won bool) error {
	column := "losses"
	if won {
		column = "wins"
	}

	result := r.db.WithContext(ctx).
		Model(&model.Agent{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("agent %s: %w", id, model.ErrNotFound)
	}
	return nil
}
