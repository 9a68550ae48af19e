package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"availsync/internal/app/commands"
)

type fakeStore struct {
	mu      sync.Mutex
	items   map[string]IdempotencyRecord
	saveErr error
}

func newFakeStore() *fakeStore { return &fakeStore{items: map[string]IdempotencyRecord{}} }

func (s *fakeStore) Reserve(_ context.Context, key string, at time.Time) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.items[key]; ok {
		return rec, false, nil
	}
	s.items[key] = IdempotencyRecord{Key: key, Pending: true, OccurredAt: at}
	return IdempotencyRecord{}, true, nil
}

func (s *fakeStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.items[rec.Key] = rec
	return nil
}

func (s *fakeStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items[key].Pending {
		delete(s.items, key)
	}
	return nil
}

func (s *fakeStore) record(key string) (IdempotencyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	return rec, ok
}

type result struct {
	N int `json:"n"`
}

type idemCommand struct{ key string }

func (idemCommand) Key() string              { return "test.idem" }
func (c idemCommand) IdempotencyKey() string { return c.key }
func (idemCommand) ResultPrototype() any     { return &result{} }

var (
	errPermanent = errors.New("permanent")
	errTransient = errors.New("transient")
)

type testErrCodec struct{}

func (testErrCodec) Encode(err error) (string, []byte, bool) {
	if errors.Is(err, errPermanent) {
		return "permanent", nil, true
	}
	return "", nil, false
}

func (testErrCodec) Decode(code string, _ []byte, message string) error {
	if code == "permanent" {
		return errPermanent
	}
	return errors.New(message)
}

type countingBus struct {
	calls int
	err   error
}

func (b *countingBus) Dispatch(context.Context, commands.Command) (any, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return &result{N: b.calls}, nil
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Idempotency(newFakeStore(), nil, testErrCodec{}, discardLogger()))

	first, err := bus.Dispatch(context.Background(), idemCommand{key: "k1"})
	require.NoError(t, err)
	second, err := bus.Dispatch(context.Background(), idemCommand{key: "k1"})
	require.NoError(t, err)

	assert.Equal(t, 1, base.calls)
	assert.Equal(t, first, second)

	_, err = bus.Dispatch(context.Background(), idemCommand{})
	require.NoError(t, err)
	assert.Equal(t, 2, base.calls, "empty key bypasses the store")
}

func TestIdempotencyCachesOnlyEncodableErrors(t *testing.T) {
	base := &countingBus{err: errPermanent}
	bus := ChainCommands(base, Idempotency(newFakeStore(), nil, testErrCodec{}, discardLogger()))

	_, err := bus.Dispatch(context.Background(), idemCommand{key: "p"})
	require.ErrorIs(t, err, errPermanent)
	_, err = bus.Dispatch(context.Background(), idemCommand{key: "p"})
	require.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, base.calls)

	base.err = errTransient
	_, err = bus.Dispatch(context.Background(), idemCommand{key: "t"})
	require.ErrorIs(t, err, errTransient)
	_, err = bus.Dispatch(context.Background(), idemCommand{key: "t"})
	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, base.calls)
}

// gatedBus holds every dispatch until release is closed.
type gatedBus struct {
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func newGatedBus() *gatedBus {
	return &gatedBus{entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (b *gatedBus) Dispatch(context.Context, commands.Command) (any, error) {
	b.mu.Lock()
	b.calls++
	n := b.calls
	b.mu.Unlock()
	b.entered <- struct{}{}
	<-b.release
	return &result{N: n}, nil
}

func TestIdempotencyConcurrentSameKeyRunsOnce(t *testing.T) {
	base := newGatedBus()
	bus := ChainCommands(base, Idempotency(newFakeStore(), nil, testErrCodec{}, discardLogger()))

	type outcome struct {
		res any
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := bus.Dispatch(context.Background(), idemCommand{key: "same"})
		first <- outcome{res, err}
	}()
	<-base.entered

	_, err := bus.Dispatch(context.Background(), idemCommand{key: "same"})
	require.ErrorIs(t, err, ErrIdempotencyInProgress)

	close(base.release)
	got := <-first
	require.NoError(t, got.err)

	replayed, err := bus.Dispatch(context.Background(), idemCommand{key: "same"})
	require.NoError(t, err)
	assert.Equal(t, got.res, replayed)
	assert.Equal(t, 1, base.calls)
}

func TestIdempotencySaveFailureAfterCommitIsNotAFailure(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("idempotency store down")
	base := &countingBus{}
	bus := ChainCommands(base, Idempotency(store, nil, testErrCodec{}, discardLogger()))

	res, err := bus.Dispatch(context.Background(), idemCommand{key: "k"})
	require.NoError(t, err)
	assert.Equal(t, &result{N: 1}, res)

	_, err = bus.Dispatch(context.Background(), idemCommand{key: "k"})
	assert.ErrorIs(t, err, ErrIdempotencyInProgress, "an unrecorded commit keeps its key reserved")
	assert.Equal(t, 1, base.calls)
}

func TestIdempotencyReleasesKeyOnUncachedFailure(t *testing.T) {
	store := newFakeStore()
	base := &countingBus{err: errTransient}
	bus := ChainCommands(base, Idempotency(store, nil, testErrCodec{}, discardLogger()))

	_, err := bus.Dispatch(context.Background(), idemCommand{key: "k"})
	require.ErrorIs(t, err, errTransient)
	_, found := store.record("k")
	assert.False(t, found)

	base.err = errPermanent
	store.saveErr = errors.New("idempotency store down")
	_, err = bus.Dispatch(context.Background(), idemCommand{key: "k"})
	require.ErrorIs(t, err, errPermanent)
	_, found = store.record("k")
	assert.False(t, found, "a rejection that could not be recorded may run again")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthorizationRequiresPrincipal(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Authorization(RequirePrincipal{}))

	_, err := bus.Dispatch(context.Background(), idemCommand{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = bus.Dispatch(WithPrincipal(context.Background(), "kafka"), idemCommand{})
	assert.NoError(t, err)
	assert.Equal(t, 1, base.calls)
}

type rejectAll struct{}

func (rejectAll) Validate(context.Context, any) error { return ErrValidation }

func TestChainOrderOutermostFirst(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Authorization(RequirePrincipal{}), Validation(rejectAll{}))

	_, err := bus.Dispatch(context.Background(), idemCommand{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = bus.Dispatch(WithPrincipal(context.Background(), "api"), idemCommand{})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, base.calls)
}
