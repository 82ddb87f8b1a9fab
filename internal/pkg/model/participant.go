package model

import "time"

type Participant struct {
	Id         string    `gorm:"primaryKey" json:"id"`
	ArenaId    string    `gorm:"index" json:"arenaId"`
	AgentId    string    `gorm:"index" json:"agentId"`
	Eliminated bool      `json:"eliminated"`
	EntryTxRef *string   `json:"entryTxRef,omitempty"`
	TimeJoined time.Time `json:"timeJoined"`
}

func (Participant) TableName() string {
	return "arena_participant"
}
