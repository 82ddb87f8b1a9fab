package model

import "time"

type ArenaStatus string

const (
	ArenaOpen       ArenaStatus = "open"
	ArenaInProgress ArenaStatus = "in_progress"
	ArenaCompleted  ArenaStatus = "completed"
)

type GameType string

const (
	RockPaperScissors GameType = "rock_paper_scissors"
	CoinFlip          GameType = "coin_flip"
	NumberGuess       GameType = "number_guess"
	Strategy          GameType = "strategy"
)

type Arena struct {
	Id                 string      `gorm:"primaryKey" json:"id"`
	Name               string      `json:"name"`
	Slug               string      `gorm:"index" json:"slug"`
	GameType           GameType    `json:"gameType"`
	EntryFee           Amount      `json:"entryFee"`
	MaxParticipants    int         `json:"maxParticipants"`
	Status             ArenaStatus `gorm:"index" json:"status"`
	PrizePool          Amount      `json:"prizePool"`
	WinnerAgentId      *string     `json:"winnerAgentId,omitempty"`
	PayoutTxRef        *string     `json:"payoutTxRef,omitempty"`
	PayoutPendingTxRef *string     `json:"payoutPendingTxRef,omitempty"`
	ResultsRoot        *string     `json:"resultsRoot,omitempty"`
	CreatedBy          string      `json:"createdBy,omitempty"`
	TimeCreated        time.Time   `json:"timeCreated"`
	TimeStarted        *time.Time  `json:"timeStarted,omitempty"`
	TimeEnded          *time.Time  `json:"timeEnded,omitempty"`
}

func (Arena) TableName() string {
	return "arena"
}
