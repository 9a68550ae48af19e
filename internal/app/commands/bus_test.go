package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoCommand struct{ Value string }

func (echoCommand) Key() string { return "test.echo" }

type otherCommand struct{}

func (otherCommand) Key() string { return "test.other" }

func TestDispatchRoutesToTypedHandler(t *testing.T) {
	bus := NewInMemoryBus()
	Register[echoCommand, string](bus, HandleFunc(func(_ context.Context, cmd echoCommand) (string, error) {
		return "echo:" + cmd.Value, nil
	}))

	out, err := Dispatch[echoCommand, string](context.Background(), bus, echoCommand{Value: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", out)
}

func TestDispatchErrors(t *testing.T) {
	bus := NewInMemoryBus()
	Register[echoCommand, string](bus, HandleFunc(func(context.Context, echoCommand) (string, error) {
		return "x", nil
	}))

	_, err := Dispatch[otherCommand, string](context.Background(), bus, otherCommand{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Dispatch[echoCommand, int](context.Background(), bus, echoCommand{})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = Dispatch[echoCommand, string](context.Background(), nil, echoCommand{})
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestRegisterTwicePanics(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandleFunc(func(context.Context, echoCommand) (string, error) { return "", nil })
	Register[echoCommand, string](bus, h)
	assert.Panics(t, func() { Register[echoCommand, string](bus, h) })
}
