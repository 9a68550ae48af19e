package queries

import (
	"context"
	"errors"
	"fmt"
)

// Query is a read request. Key selects the handler.
type Query interface {
	Key() string
}

type Handler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

type Bus interface {
	Ask(ctx context.Context, query Query) (any, error)
}

// BusFunc lets a closure stand in for a Bus.
type BusFunc func(ctx context.Context, query Query) (any, error)

func (f BusFunc) Ask(ctx context.Context, query Query) (any, error) {
	return f(ctx, query)
}

var (
	ErrHandlerNotFound = errors.New("queries: handler not found")
	ErrInvalidQuery    = errors.New("queries: invalid query for handler")
	ErrResultType      = errors.New("queries: result type mismatch")
	ErrNilBus          = errors.New("queries: nil bus")
)

// Ask runs query through bus and narrows the answer to R.
func Ask[Q Query, R any](ctx context.Context, bus Bus, query Q) (R, error) {
	var zero R
	if bus == nil {
		return zero, ErrNilBus
	}
	res, err := bus.Ask(ctx, query)
	if err != nil || res == nil {
		return zero, err
	}
	answer, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s answered %T", ErrResultType, query.Key(), res)
	}
	return answer, nil
}
