package model

import "time"

type Agent struct {
	Id            string    `gorm:"primaryKey" json:"id"`
	Name          string    `json:"name"`
	Personality   string    `json:"personality"`
	WalletAddress *string   `gorm:"uniqueIndex" json:"walletAddress,omitempty"`
	PublicKey     *string   `gorm:"uniqueIndex" json:"-"`
	KmsResourceId string    `json:"-"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	TimeCreated   time.Time `json:"timeCreated"`
}

func (Agent) TableName() string {
	return "agent"
}

// AgentIdentity is the view of an agent the tournament engine works with.
type AgentIdentity struct {
	Id            string `json:"id"`
	Name          string `json:"name"`
	Personality   string `json:"personality"`
	WalletAddress string `json:"walletAddress"`
}

func (a Agent) Identity() AgentIdentity {
	identity := AgentIdentity{
		Id:          a.Id,
		Name:        a.Name,
		Personality: a.Personality,
	}
	if a.WalletAddress != nil {
		identity.WalletAddress = *a.WalletAddress
	}
	return identity
}
