package domain

// Command is a request to change state, routed by name.
type Command[T any] interface {
	CommandName() string
	Payload() T
}

// Query is a read request, routed by name.
type Query[T any] interface {
	QueryName() string
	Payload() T
}

// Event is a fact that already happened.
type Event[T any] interface {
	EventName() string
	Payload() T
}

// IDGenerator produces identifiers for new aggregates.
type IDGenerator[T comparable] func() T
