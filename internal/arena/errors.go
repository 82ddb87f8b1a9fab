package arena

import "errors"

var (
	ErrArenaNotFound            = errors.New("arena not found")
	ErrArenaNotOpen             = errors.New("arena is not open")
	ErrArenaNotInProgress       = errors.New("arena is not in progress")
	ErrArenaFull                = errors.New("arena is full")
	ErrAgentNotFound            = errors.New("agent not found")
	ErrAlreadyJoined            = errors.New("agent already joined arena")
	ErrPaymentFailed            = errors.New("entry fee payment failed")
	ErrInsufficientParticipants = errors.New("not enough participants to start")
	ErrAlreadyResolved          = errors.New("match already resolved")
	ErrMatchNotFound            = errors.New("match not found")
	ErrUnknownGameType          = errors.New("unknown game type")
	ErrIllegalMove              = errors.New("move is not legal for game")
	ErrDecisionFailed           = errors.New("agent decision failed")
	ErrInvalidConfig            = errors.New("invalid arena configuration")
	ErrPayoutFailed             = errors.New("prize payout failed")
	ErrPayoutPending            = errors.New("prize payout still pending")
	ErrTournamentFinished       = errors.New("tournament already finished")
	ErrArenaNotCompleted        = errors.New("arena is not completed")
	ErrAlreadySettled           = errors.New("prize already paid out")
	ErrNothingToSettle          = errors.New("arena has no payout to settle")
)
