package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"availsync/internal/app/commands"
)

// IdempotentCommand must be implemented by commands that want idempotency guarantees.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // should match the handler result type
}

// IdempotencyRecord is the remembered outcome of one key. A Pending record marks a
// command that has been admitted but not yet settled.
type IdempotencyRecord struct {
	Key         string
	Pending     bool
	Payload     []byte
	Error       string
	ErrorCode   string
	ErrorDetail []byte
	OccurredAt  time.Time
}

// IdempotencyStore claims keys with insert-if-absent semantics.
//
// Reserve stores a pending record for key unless one exists. It reports claimed=true
// when the caller now owns the key; otherwise it returns the stored record, which may
// still be pending. Save replaces the reservation with the settled outcome. Release
// drops a pending reservation so the key can run again.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string, at time.Time) (existing IdempotencyRecord, claimed bool, err error)
	Save(ctx context.Context, rec IdempotencyRecord) error
	Release(ctx context.Context, key string) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

// ErrorCodec decides which failures are remembered and how they are replayed.
// Encode returns ok=false for errors that should not be cached (transient failures),
// so a retry with the same key runs the command again. detail carries whatever
// Decode needs to rebuild the original error value.
type ErrorCodec interface {
	Encode(err error) (code string, detail []byte, ok bool)
	Decode(code string, detail []byte, message string) error
}

var (
	// ErrIdempotencyInProgress is returned to a caller whose key is held by a command
	// that has not settled yet.
	ErrIdempotencyInProgress = errors.New("middleware: idempotency key in progress")

	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
)

// Idempotency runs each keyed command at most once. Once the wrapped bus has
// succeeded, bookkeeping failures are logged and never reported as a command failure:
// the caller must not retry work that already committed.
func Idempotency(store IdempotencyStore, codec ResultCodec, errCodec ErrorCodec, logger *slog.Logger) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := idCmd.IdempotencyKey()
			now := time.Now().UTC()
			existing, claimed, err := store.Reserve(ctx, key, now)
			if err != nil {
				return nil, err
			}
			if !claimed {
				if existing.Pending {
					return nil, fmt.Errorf("%w: %s", ErrIdempotencyInProgress, key)
				}
				return replay(existing, idCmd, codec, errCodec)
			}

			log := logger.With("command", cmd.Key(), "idempotency_key", key)
			settle := context.WithoutCancel(ctx)
			result, err := next.Dispatch(ctx, cmd)
			record := IdempotencyRecord{Key: key, OccurredAt: now}
			if err != nil {
				var code string
				var detail []byte
				cache := false
				if errCodec != nil {
					code, detail, cache = errCodec.Encode(err)
				}
				if cache {
					record.Error = err.Error()
					record.ErrorCode = code
					record.ErrorDetail = detail
					saveErr := store.Save(settle, record)
					if saveErr == nil {
						return nil, err
					}
					log.Warn("idempotency record not saved", "error", saveErr)
				}
				if relErr := store.Release(settle, key); relErr != nil {
					log.Error("idempotency key release failed", "error", relErr)
				}
				return nil, err
			}

			if result != nil {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					log.Error("idempotency result not encodable", "error", encErr)
				}
				record.Payload = payload
			}
			if saveErr := store.Save(settle, record); saveErr != nil {
				// The key stays reserved, so a retry is refused instead of applied twice.
				log.Error("idempotency record not saved after commit", "error", saveErr)
			}
			return result, nil
		})
	}
}

func replay(rec IdempotencyRecord, cmd IdempotentCommand, codec ResultCodec, errCodec ErrorCodec) (any, error) {
	if rec.Error != "" {
		if errCodec != nil {
			return nil, errCodec.Decode(rec.ErrorCode, rec.ErrorDetail, rec.Error)
		}
		return nil, errors.New(rec.Error)
	}
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	return proto, nil
}
