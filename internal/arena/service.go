package arena

import (
	"context"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/utils"
)

type ArenaResponse struct {
	model.Arena
	GameLabel        string `json:"gameLabel"`
	EntryFeeDisplay  string `json:"entryFeeDisplay"`
	PrizePoolDisplay string `json:"prizePoolDisplay"`
}

func newArenaResponse(arena model.Arena) ArenaResponse {
	response := ArenaResponse{
		Arena:            arena,
		EntryFeeDisplay:  arena.EntryFee.Display(),
		PrizePoolDisplay: arena.PrizePool.Display(),
	}
	if game, err := LookupGame(arena.GameType); err == nil {
		response.GameLabel = game.Label
	}
	return response
}

type TournamentResponse struct {
	Settlement
	PrizePoolDisplay string `json:"prizePoolDisplay"`
	PayoutError      string `json:"payoutError,omitempty"`
}

type arenaService struct {
	manager *Manager
}

func (s *arenaService) create(ctx context.Context, cfg CreateArenaConfig) (*ArenaResponse, *reject.ProblemWithTrace) {
	arena, err := s.manager.CreateArena(ctx, cfg)
	if err != nil {
		return nil, toProblem(err)
	}
	response := newArenaResponse(arena)
	return &response, nil
}

func (s *arenaService) findById(ctx context.Context, arenaId string) (*ArenaResponse, *reject.ProblemWithTrace) {
	arena, err := s.manager.GetArena(ctx, arenaId)
	if err != nil {
		return nil, toProblem(err)
	}
	response := newArenaResponse(arena)
	return &response, nil
}

func (s *arenaService) findAll(ctx context.Context, status *model.ArenaStatus, page utils.PageRequest) (*utils.PageResponse[ArenaResponse], *reject.ProblemWithTrace) {
	arenas, total, err := s.manager.ListArenas(ctx, ArenaFilter{
		Status: status,
		Offset: page.Offset,
		Limit:  page.Size,
	})
	if err != nil {
		return nil, toProblem(err)
	}

	items := make([]ArenaResponse, 0, len(arenas))
	for _, a := range arenas {
		items = append(items, newArenaResponse(a))
	}

	return utils.NewPageResponse[ArenaResponse]().
		WithItems(items).
		WithItemCount(total).
		WithNextPageToken(page.NextToken(total)).
		Build(), nil
}

func (s *arenaService) findOpen(ctx context.Context) ([]ArenaResponse, *reject.ProblemWithTrace) {
	arenas, err := s.manager.ListOpenArenas(ctx)
	if err != nil {
		return nil, toProblem(err)
	}
	items := make([]ArenaResponse, 0, len(arenas))
	for _, a := range arenas {
		items = append(items, newArenaResponse(a))
	}
	return items, nil
}

func (s *arenaService) join(ctx context.Context, arenaId, agentId string, payWithRealValue bool) (*model.Participant, *reject.ProblemWithTrace) {
	participant, err := s.manager.JoinArena(ctx, arenaId, agentId, payWithRealValue)
	if err != nil {
		return nil, toProblem(err)
	}
	return &participant, nil
}

func (s *arenaService) participants(ctx context.Context, arenaId string) ([]model.Participant, *reject.ProblemWithTrace) {
	participants, err := s.manager.ListParticipants(ctx, arenaId)
	if err != nil {
		return nil, toProblem(err)
	}
	return participants, nil
}

func (s *arenaService) matches(ctx context.Context, arenaId string) ([]MatchView, *reject.ProblemWithTrace) {
	matches, err := s.manager.ListMatches(ctx, arenaId)
	if err != nil {
		return nil, toProblem(err)
	}
	return matches, nil
}

// runTournament reports a failed payout inside the response; the tournament result stands.
func (s *arenaService) runTournament(ctx context.Context, arenaId string, payoutWithRealValue bool) (*TournamentResponse, *reject.ProblemWithTrace) {
	settlement, err := s.manager.RunFullTournament(ctx, arenaId, payoutWithRealValue)
	if err != nil && !isPayoutFailure(err) {
		return nil, toProblem(err)
	}

	response := &TournamentResponse{
		Settlement:       settlement,
		PrizePoolDisplay: settlement.PrizePool.Display(),
	}
	if err != nil {
		response.PayoutError = err.Error()
	}
	return response, nil
}

func (s *arenaService) settle(ctx context.Context, arenaId string) (*TournamentResponse, *reject.ProblemWithTrace) {
	settlement, err := s.manager.SettlePayout(ctx, arenaId)
	if err != nil {
		return nil, toProblem(err)
	}
	return &TournamentResponse{
		Settlement:       settlement,
		PrizePoolDisplay: settlement.PrizePool.Display(),
	}, nil
}
