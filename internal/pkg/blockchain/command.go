package blockchain

import "github.com/google/uuid"

const CommandTopic = "agora.flow.commands"

const (
	CommandCreateAgentAccount = "CREATE_AGENT_ACCOUNT"
)

type Command struct {
	Id          string       `json:"id"`
	Type        string       `json:"type"`
	Payload     []any        `json:"payload"`
	Authorizers []Authorizer `json:"authorizers"`
}

func (bc Command) GetEventTopicName() string {
	return CommandTopic
}

func NewBlockchainCommand(commandType string, payload []any, authorizers []Authorizer) Command {
	return Command{
		Id:          uuid.New().String(),
		Type:        commandType,
		Payload:     payload,
		Authorizers: authorizers,
	}
}
