package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/ksuid"
	log "github.com/sirupsen/logrus"
)

// DefaultChannel is the pub/sub channel used when none is configured
const DefaultChannel = "binaryprefs:changes"

type envelope struct {
	Origin string  `json:"origin"`
	Events []Event `json:"events"`
}

// RedisBridge delivers events locally and publishes them on a Redis channel
// so listeners in other processes see them too. Events published by this
// bridge are not delivered twice.
type RedisBridge struct {
	local   *LocalBridge
	client  redis.UniversalClient
	pubsub  *redis.PubSub
	channel string
	origin  string
	logger  log.FieldLogger
	wg      sync.WaitGroup
	once    sync.Once
}

var _ Bridge = (*RedisBridge)(nil)

// NewRedisBridge subscribes to channel and starts delivering remote events.
// It returns once the subscription is confirmed by the server.
func NewRedisBridge(ctx context.Context, client redis.UniversalClient, channel string, logger log.FieldLogger) (*RedisBridge, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		discard := log.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("events: subscribe %s: %w", channel, err)
	}

	b := &RedisBridge{
		local:   NewLocalBridge(),
		client:  client,
		pubsub:  pubsub,
		channel: channel,
		origin:  ksuid.New().String(),
		logger:  logger.WithField("channel", channel),
	}
	b.wg.Add(1)
	go b.receive()
	return b, nil
}

func (b *RedisBridge) receive() {
	defer b.wg.Done()
	for msg := range b.pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			b.logger.WithError(err).Warn("dropping malformed change message")
			continue
		}
		if env.Origin == b.origin {
			continue
		}
		for i := range env.Events {
			env.Events[i].Remote = true
		}
		if err := b.local.Notify(context.Background(), env.Events); err != nil {
			b.logger.WithError(err).Warn("failed to deliver remote changes")
		}
	}
}

func (b *RedisBridge) Subscribe(store string, l Listener) func() {
	return b.local.Subscribe(store, l)
}

// Notify delivers events locally, then publishes them
func (b *RedisBridge) Notify(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := b.local.Notify(ctx, events); err != nil {
		return err
	}
	payload, err := json.Marshal(envelope{Origin: b.origin, Events: events})
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("events: publish to %s: %w", b.channel, err)
	}
	return nil
}

// Close stops receiving remote events. The client stays open.
func (b *RedisBridge) Close() error {
	var err error
	b.once.Do(func() {
		err = b.pubsub.Close()
		b.wg.Wait()
		b.local.Close()
	})
	return err
}
