package application

import (
	"context"

	"github.com/mateusmacedo/togobus-bff/pkg/domain"
)

// CommandHandler handles one named command.
type CommandHandler[C domain.Command[T], T any] interface {
	Handle(ctx context.Context, command C) error
}

// CommandBus routes commands to the handler registered under their name.
type CommandBus[C domain.Command[T], T any] interface {
	RegisterHandler(commandName string, handler CommandHandler[C, T])
	Dispatch(ctx context.Context, command C) error
}

// QueryHandler answers one named query.
type QueryHandler[Q domain.Query[T], T any, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

// QueryBus routes queries to the handler registered under their name.
type QueryBus[Q domain.Query[D], D any, R any] interface {
	RegisterHandler(queryName string, handler QueryHandler[Q, D, R])
	Dispatch(ctx context.Context, query Q) (R, error)
}

type EventHandler[E domain.Event[T], T any] interface {
	Handle(ctx context.Context, event E) error
}

type EventBus[E domain.Event[D], D any] interface {
	RegisterHandler(eventName string, handler EventHandler[E, D])
	Publish(ctx context.Context, event E) error
}

// CommandHandlerFunc adapts a plain function to CommandHandler.
type CommandHandlerFunc[T any] func(ctx context.Context, payload T) error

func (f CommandHandlerFunc[T]) Handle(ctx context.Context, command domain.Command[T]) error {
	return f(ctx, command.Payload())
}

// QueryHandlerFunc adapts a plain function to QueryHandler.
type QueryHandlerFunc[T any, R any] func(ctx context.Context, payload T) (R, error)

func (f QueryHandlerFunc[T, R]) Handle(ctx context.Context, query domain.Query[T]) (R, error) {
	return f(ctx, query.Payload())
}

// EventHandlerFunc adapts a plain function to EventHandler.
type EventHandlerFunc[T any] func(ctx context.Context, payload T) error

func (f EventHandlerFunc[T]) Handle(ctx context.Context, event domain.Event[T]) error {
	return f(ctx, event.Payload())
}
