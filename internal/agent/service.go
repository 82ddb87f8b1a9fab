package agent

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kollektive-hackathon/agora-backend/internal/keymgmt"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/pubsub"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/utils"
	"github.com/rs/zerolog/log"
)

const (
	maxNameLength        = 32
	maxPersonalityLength = 200
	leaderboardSize      = 50

	agentNotFound   string = "error.agent.not-found"
	agentNoWallet   string = "error.agent.no-wallet"
	balanceFailed   string = "error.agent.balance-unavailable"
	keyCreateFailed string = "error.agent.key-creation-failed"
)

// KeyGenerator creates the KMS key that will control an agent's wallet.
type KeyGenerator interface {
	NewAgentKey(ctx context.Context) (keymgmt.AgentKey, error)
}

type BalanceReader interface {
	Balance(ctx context.Context, address string) (model.Amount, error)
}

type random interface {
	Intn(n int) int
}

type globalRandom struct{}

func (globalRandom) Intn(n int) int { return rand.IntN(n) }

type ServiceConfig struct {
	// Keys is optional. Without it agents are created without a wallet and can only play
	// for free.
	Keys           KeyGenerator
	Ledger         BalanceReader
	Publisher      pubsub.Publisher
	Notifier       Notifier
	Platform       blockchain.Authorizer
	InitialFunding model.Amount
	Random         random
	Now            func() time.Time
}

type Service struct {
	repo   Repository
	keys   KeyGenerator
	ledger BalanceReader
	bridge *accountContractBridge
	rnd    random
	now    func() time.Time
}

func NewService(repo Repository, cfg ServiceConfig) *Service {
	if cfg.Publisher == nil {
		cfg.Publisher = pubsub.Noop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Random == nil {
		cfg.Random = globalRandom{}
	}
	return &Service{
		repo:   repo,
		keys:   cfg.Keys,
		ledger: cfg.Ledger,
		bridge: &accountContractBridge{
			repo:           repo,
			publisher:      cfg.Publisher,
			notifier:       cfg.Notifier,
			platform:       cfg.Platform,
			initialFunding: cfg.InitialFunding,
		},
		rnd: cfg.Random,
		now: cfg.Now,
	}
}

type BalanceResponse struct {
	AgentId        string       `json:"agentId"`
	WalletAddress  string       `json:"walletAddress"`
	Balance        model.Amount `json:"balance"`
	BalanceDisplay string       `json:"balanceDisplay"`
}

func (s *Service) create(ctx context.Context, name, personality string) (*model.Agent, *reject.ProblemWithTrace) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return nil, &reject.ProblemWithTrace{Problem: reject.RequestValidationProblem("name must be between 1 and 32 characters")}
	}

	personality = strings.TrimSpace(personality)
	if personality == "" {
		personality = Personalities[s.rnd.Intn(len(Personalities))]
	}
	if len(personality) > maxPersonalityLength {
		return nil, &reject.ProblemWithTrace{Problem: reject.RequestValidationProblem("personality must be at most 200 characters")}
	}

	agent := model.Agent{
		Id:          uuid.New().String(),
		Name:        name,
		Personality: personality,
		TimeCreated: s.now().UTC(),
	}

	if s.keys != nil {
		key, err := s.keys.NewAgentKey(ctx)
		if err != nil {
			return nil, &reject.ProblemWithTrace{
				Problem: reject.NewProblem().
					WithTitle("Cannot create agent wallet key").
					WithStatus(http.StatusBadGateway).
					WithCode(keyCreateFailed).
					Build(),
				Cause: err,
			}
		}
		agent.PublicKey = &key.PublicKey
		agent.KmsResourceId = key.ResourceId
	}

	if err := s.repo.Create(ctx, &agent); err != nil {
		return nil, reject.Unexpected(err)
	}

	if agent.PublicKey != nil {
		s.bridge.createAgentAccount(*agent.PublicKey)
	} else {
		log.Info().Str("agentId", agent.Id).Msg("Key management disabled, agent created without wallet")
	}

	return &agent, nil
}

func (s *Service) findById(ctx context.Context, id string) (*model.Agent, *reject.ProblemWithTrace) {
	agent, err := s.repo.FindById(ctx, id)
	if err != nil {
		return nil, toProblem(err)
	}
	return &agent, nil
}

func (s *Service) findAll(ctx context.Context, page utils.PageRequest) (*utils.PageResponse[model.Agent], *reject.ProblemWithTrace) {
	agents, total, err := s.repo.FindAll(ctx, page.Offset, page.Size)
	if err != nil {
		return nil, reject.Unexpected(err)
	}

	return utils.NewPageResponse[model.Agent]().
		WithItems(agents).
		WithItemCount(total).
		WithNextPageToken(page.NextToken(total)).
		Build(), nil
}

func (s *Service) leaderboard(ctx context.Context) ([]model.Agent, *reject.ProblemWithTrace) {
	agents, err := s.repo.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		return nil, reject.Unexpected(err)
	}
	if agents == nil {
		agents = []model.Agent{}
	}
	return agents, nil
}

func (s *Service) balance(ctx context.Context, id string) (*BalanceResponse, *reject.ProblemWithTrace) {
	agent, err := s.repo.FindById(ctx, id)
	if err != nil {
		return nil, toProblem(err)
	}
	if agent.WalletAddress == nil {
		return nil, toProblem(ErrNoWallet)
	}

	balance, err := s.ledger.Balance(ctx, *agent.WalletAddress)
	if err != nil {
		return nil, &reject.ProblemWithTrace{
			Problem: reject.NewProblem().
				WithTitle("Balance unavailable").
				WithStatus(http.StatusBadGateway).
				WithCode(balanceFailed).
				Build(),
			Cause: err,
		}
	}

	return &BalanceResponse{
		AgentId:        agent.Id,
		WalletAddress:  *agent.WalletAddress,
		Balance:        balance,
		BalanceDisplay: balance.Display(),
	}, nil
}

func toProblem(err error) *reject.ProblemWithTrace {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return &reject.ProblemWithTrace{
			Problem: reject.NewProblem().
				WithTitle("Agent not found").
				WithStatus(http.StatusNotFound).
				WithCode(agentNotFound).
				Build(),
			Cause: err,
		}
	case errors.Is(err, ErrNoWallet):
		return &reject.ProblemWithTrace{
			Problem: reject.NewProblem().
				WithTitle("Agent has no wallet yet").
				WithStatus(http.StatusConflict).
				WithCode(agentNoWallet).
				Build(),
			Cause: err,
		}
	default:
		return reject.Unexpected(err)
	}
}
