package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
)

type Client struct {
	ctx    context.Context
	client *pubsub.Client

	topicsMutex sync.Mutex
	topics      map[string]*pubsub.Topic
}

func NewClient(ctx context.Context, projectID string) (*Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("pub sub missing projectID to initialize")
	}
	log.Info().Msg(fmt.Sprintf("Init pubsub with projectID: %s", projectID))

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		log.Error().Err(err).Msg("Error initializing pub sub connection")
		return nil, err
	}
	log.Info().Msg("Successful pubsub init")

	return &Client{
		ctx:    ctx,
		client: client,
		topics: map[string]*pubsub.Topic{},
	}, nil
}

// Subscribe blocks receiving messages until the client context is cancelled.
func (c *Client) Subscribe(subscriptionHandler SubscriptionHandler) {
	sub := c.client.Subscription(subscriptionHandler.SubscriptionId)
	err := sub.Receive(c.ctx, subscriptionHandler.Handler)
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Subscriber error for sub id %s", subscriptionHandler.SubscriptionId))
	}
}

func (c *Client) Publish(message Publishable) {
	t := c.getTopic(message.GetEventTopicName())
	if t == nil {
		return
	}

	data, err := EncodeMessage(message)
	if err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Failed to encode message for %s", message.GetEventTopicName()))
		return
	}

	result := t.Publish(c.ctx, &pubsub.Message{Data: data})

	go func(res *pubsub.PublishResult) {
		_, err := res.Get(c.ctx)
		if err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Failed to publish message for %s", message.GetEventTopicName()))
		}
	}(result)
}

func (c *Client) Close() {
	c.topicsMutex.Lock()
	for _, t := range c.topics {
		t.Stop()
	}
	c.topicsMutex.Unlock()

	if err := c.client.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing pub sub client")
	}
}

func (c *Client) getTopic(topicName string) *pubsub.Topic {
	c.topicsMutex.Lock()
	defer c.topicsMutex.Unlock()

	if t, ok := c.topics[topicName]; ok {
		return t
	}

	t := c.client.Topic(topicName)
	exists, err := t.Exists(c.ctx)
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Cant check topic %s", topicName))
		return nil
	}
	if !exists {
		log.Info().Msg(fmt.Sprintf("Topic %s does not exist. Creating new", topicName))
		t, err = c.client.CreateTopic(c.ctx, topicName)
		if err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Cant create topic %s", topicName))
			return nil
		}
	}
	c.topics[topicName] = t
	return t
}

func EncodeMessage(message any) ([]byte, error) {
	switch m := message.(type) {
	case string:
		return []byte(m), nil
	default:
		return json.Marshal(message)
	}
}

// Noop drops every message. Used when no project is configured.
type Noop struct{}

func (Noop) Publish(message Publishable) {
	log.Debug().Str("topic", message.GetEventTopicName()).Msg("Pub sub disabled, dropping message")
}
