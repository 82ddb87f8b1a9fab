package pubsub

import (
	"context"

	"cloud.google.com/go/pubsub"
)

type Publishable interface {
	GetEventTopicName() string
}

type SubscriptionHandler struct {
	SubscriptionId string
	Handler        func(ctx context.Context, message *pubsub.Message)
}

// Publisher is what feature packages depend on so tests can swap the cloud client out.
type Publisher interface {
	Publish(message Publishable)
}
