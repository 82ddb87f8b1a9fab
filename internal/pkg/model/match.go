package model

import "time"

type MatchDecision string

const (
	DecidedByRules    MatchDecision = "rules"
	DecidedByTiebreak MatchDecision = "tiebreak"
)

type Match struct {
	Id            string        `gorm:"primaryKey" json:"id"`
	ArenaId       string        `gorm:"index" json:"arenaId"`
	Round         int           `json:"round"`
	Agent1Id      string        `json:"agent1Id"`
	Agent2Id      string        `json:"agent2Id"`
	Agent1Move    *string       `json:"agent1Move,omitempty"`
	Agent2Move    *string       `json:"agent2Move,omitempty"`
	WinnerId      *string       `json:"winnerId,omitempty"`
	DecidedBy     MatchDecision `json:"decidedBy,omitempty"`
	Attempts      int           `json:"attempts"`
	TimeCreated   time.Time     `json:"timeCreated"`
	TimeCompleted *time.Time    `json:"timeCompleted,omitempty"`
}

func (Match) TableName() string {
	return "arena_match"
}

func (m Match) IsResolved() bool {
	return m.WinnerId != nil
}

// Loser returns the id of the side that did not win. Empty while unresolved.
func (m Match) Loser() string {
	if m.WinnerId == nil {
		return ""
	}
	if *m.WinnerId == m.Agent1Id {
		return m.Agent2Id
	}
	return m.Agent1Id
}
