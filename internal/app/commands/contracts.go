package commands

import (
	"context"
	"errors"
	"fmt"
)

// Command is a write intent. Key selects exactly one registered handler.
type Command interface {
	Key() string
}

type Handler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

// Bus is the untyped surface that middleware wraps.
type Bus interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

// BusFunc lets a closure stand in for a Bus, which is how middleware layers are built.
type BusFunc func(ctx context.Context, cmd Command) (any, error)

func (f BusFunc) Dispatch(ctx context.Context, cmd Command) (any, error) {
	return f(ctx, cmd)
}

type handlerFunc[C Command, R any] func(ctx context.Context, cmd C) (R, error)

func (f handlerFunc[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	return f(ctx, cmd)
}

// HandleFunc wraps fn as a Handler.
func HandleFunc[C Command, R any](fn func(ctx context.Context, cmd C) (R, error)) Handler[C, R] {
	return handlerFunc[C, R](fn)
}

var (
	ErrHandlerNotFound = errors.New("commands: handler not found")
	ErrInvalidCommand  = errors.New("commands: invalid command for handler")
	ErrResultType      = errors.New("commands: result type mismatch")
	ErrNilBus          = errors.New("commands: nil bus")
)

// Dispatch sends cmd through bus and narrows the result to R.
func Dispatch[C Command, R any](ctx context.Context, bus Bus, cmd C) (R, error) {
	if bus == nil {
		var zero R
		return zero, ErrNilBus
	}
	res, err := bus.Dispatch(ctx, cmd)
	return narrow[R](cmd.Key(), res, err)
}

func narrow[R any](key string, res any, err error) (R, error) {
	var zero R
	if err != nil || res == nil {
		return zero, err
	}
	if v, ok := res.(R); ok {
		return v, nil
	}
	return zero, fmt.Errorf("%w: %s returned %T", ErrResultType, key, res)
}
