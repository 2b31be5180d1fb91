package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mateusmacedo/togobus-bff/pkg/application"
	"github.com/mateusmacedo/togobus-bff/pkg/domain"
)

// EventBus publishes events as JSON messages on a topic named after the event and
// delivers them to handlers through a subscription. Any watermill Pub/Sub works:
// gochannel in process, Redis streams or Kafka.
type EventBus[E domain.Event[D], D any] struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	handlers   map[string][]application.EventHandler[E, D]
	mu         sync.RWMutex
	logger     application.AppLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEventBus[E domain.Event[D], D any](publisher message.Publisher, subscriber message.Subscriber, logger application.AppLogger) *EventBus[E, D] {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBus[E, D]{
		publisher:  publisher,
		subscriber: subscriber,
		handlers:   make(map[string][]application.EventHandler[E, D]),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// RegisterHandler subscribes on the first handler for an event name. The
// subscription is made before returning so no event published afterwards is missed.
func (bus *EventBus[E, D]) RegisterHandler(eventName string, handler application.EventHandler[E, D]) {
	bus.mu.Lock()
	_, subscribed := bus.handlers[eventName]
	bus.handlers[eventName] = append(bus.handlers[eventName], handler)
	bus.mu.Unlock()

	if subscribed {
		return
	}

	messages, err := bus.subscriber.Subscribe(bus.ctx, eventName)
	if err != nil {
		application.LogError(bus.ctx, bus.logger, "error subscribing to event", err, map[string]interface{}{
			"event_name": eventName,
		})
		return
	}

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		for msg := range messages {
			bus.deliver(eventName, msg)
		}
	}()
}

func (bus *EventBus[E, D]) deliver(eventName string, msg *message.Message) {
	ctx := bus.ctx
	var payload D
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		application.LogError(ctx, bus.logger, "error unmarshalling event payload", err, map[string]interface{}{
			"event_name": eventName,
			"message_id": msg.UUID,
		})
		// A payload that cannot be decoded never will be; drop it.
		msg.Ack()
		return
	}

	event, ok := interface{}(&dynamicEvent[D]{eventName: eventName, payload: payload}).(E)
	if !ok {
		application.LogError(ctx, bus.logger, "error casting event", nil, map[string]interface{}{
			"event_name": eventName,
		})
		msg.Ack()
		return
	}

	bus.mu.RLock()
	handlers := append([]application.EventHandler[E, D](nil), bus.handlers[eventName]...)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			application.LogError(ctx, bus.logger, "error handling event", err, map[string]interface{}{
				"event_name": eventName,
				"message_id": msg.UUID,
			})
			msg.Nack()
			return
		}
	}

	application.LogDebug(ctx, bus.logger, "event handled", map[string]interface{}{
		"event_name": eventName,
		"message_id": msg.UUID,
	})
	msg.Ack()
}

func (bus *EventBus[E, D]) Publish(ctx context.Context, event E) error {
	payload, err := application.MarshalPayload(event.Payload())
	if err != nil {
		application.LogError(ctx, bus.logger, "error marshalling event payload", err, map[string]interface{}{
			"event_name": event.EventName(),
		})
		return fmt.Errorf("marshal %s: %w", event.EventName(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := bus.publisher.Publish(event.EventName(), msg); err != nil {
		application.LogError(ctx, bus.logger, "error publishing event", err, map[string]interface{}{
			"event_name": event.EventName(),
		})
		return fmt.Errorf("publish %s: %w", event.EventName(), err)
	}

	application.LogDebug(ctx, bus.logger, "event published", map[string]interface{}{
		"event_name": event.EventName(),
		"message_id": msg.UUID,
	})
	return nil
}

// Close stops the subscriptions and waits for in-flight deliveries.
func (bus *EventBus[E, D]) Close() error {
	bus.cancel()
	err := bus.subscriber.Close()
	bus.wg.Wait()
	return err
}

type dynamicEvent[D any] struct {
	eventName string
	payload   D
}

func (e *dynamicEvent[D]) EventName() string {
	return e.eventName
}

func (e *dynamicEvent[D]) Payload() D {
	return e.payload
}
