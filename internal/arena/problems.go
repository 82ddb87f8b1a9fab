package arena

import (
	"context"
	"errors"
	"net/http"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/reject"
)

type problemKind struct {
	err    error
	status int
	title  string
	code   string
}

var problemKinds = []problemKind{
	{ErrArenaNotFound, http.StatusNotFound, "Arena not found", "error.arena.not-found"},
	{ErrAgentNotFound, http.StatusNotFound, "Agent not found", "error.arena.agent-not-found"},
	{ErrMatchNotFound, http.StatusNotFound, "Match not found", "error.arena.match-not-found"},
	{ErrArenaNotOpen, http.StatusConflict, "Arena is not open", "error.arena.not-open"},
	{ErrArenaNotInProgress, http.StatusConflict, "Arena is not in progress", "error.arena.not-in-progress"},
	{ErrArenaNotCompleted, http.StatusConflict, "Arena is not completed", "error.arena.not-completed"},
	{ErrArenaFull, http.StatusConflict, "Arena is full", "error.arena.full"},
	{ErrAlreadyJoined, http.StatusConflict, "Agent already joined", "error.arena.already-joined"},
	{ErrInsufficientParticipants, http.StatusConflict, "Not enough participants", "error.arena.insufficient-participants"},
	{ErrAlreadyResolved, http.StatusConflict, "Match already resolved", "error.arena.match-already-resolved"},
	{ErrTournamentFinished, http.StatusConflict, "Tournament already finished", "error.arena.tournament-finished"},
	{ErrAlreadySettled, http.StatusConflict, "Prize already paid out", "error.arena.already-settled"},
	{ErrNothingToSettle, http.StatusConflict, "Nothing to settle", "error.arena.nothing-to-settle"},
	{ErrPayoutPending, http.StatusConflict, "Prize payout still pending", "error.arena.payout-pending"},
	{ErrUnknownGameType, http.StatusBadRequest, "Unknown game type", "error.arena.unknown-game-type"},
	{ErrInvalidConfig, http.StatusBadRequest, "Invalid arena configuration", "error.arena.invalid-config"},
	{ErrPaymentFailed, http.StatusPaymentRequired, "Entry fee payment failed", "error.arena.payment-failed"},
	{ErrPayoutFailed, http.StatusBadGateway, "Prize payout failed", "error.arena.payout-failed"},
	{ErrDecisionFailed, http.StatusBadGateway, "Agent decision failed", "error.arena.decision-failed"},
	{ErrIllegalMove, http.StatusBadGateway, "Agent chose an illegal move", "error.arena.illegal-move"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "Operation timed out", "error.arena.timeout"},
}

func toProblem(err error) *reject.ProblemWithTrace {
	for _, kind := range problemKinds {
		if errors.Is(err, kind.err) {
			problem := reject.NewProblem().
				WithTitle(kind.title).
				WithStatus(kind.status).
				WithCode(kind.code).
				WithDetail(err.Error())
			if ref, ok := blockchain.PendingTxRef(err); ok {
				problem = problem.WithParam("pendingTxRef", ref)
			}
			return &reject.ProblemWithTrace{
				Problem: problem.Build(),
				Cause:   err,
			}
		}
	}
	return reject.Unexpected(err)
}
