package availability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"availsync/internal/app/outbox"
	"availsync/internal/app/txqueue"
	domainavailability "availsync/internal/domain/availability"
	"availsync/internal/domain/shared/events"
)

// Transaction outcomes reported to Recorder.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

var ErrStoreMissing = errors.New("availability: store not configured")

// StoreError wraps a failure of the availability store. The original error stays
// reachable through errors.Is and errors.As.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "availability store " + e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

// Recorder receives transaction metrics.
type Recorder interface {
	TransactionSettled(outcome string, elapsed time.Duration)
	QueueDepth(depth int)
}

// Updater serializes fetch, validate, apply and persist cycles against one store.
// Calls on the same Updater take effect in the order they were made. Use a single
// Updater per availability document.
type Updater struct {
	HotelID string
	Store   domainavailability.Store
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Metrics Recorder
	Tracer  trace.Tracer
	Now     func() time.Time

	queue txqueue.Queue
}

// UpdateAvailability consumes one unit per listed room type for every night in
// [arrival, departure). It returns once this update has been persisted or rejected.
func (u *Updater) UpdateAvailability(ctx context.Context, roomTypeIDs []string, arrival, departure string) error {
	if u.Store == nil {
		return ErrStoreMissing
	}
	start := time.Now()
	update, err := domainavailability.NewUpdate(roomTypeIDs, arrival, departure)
	if err != nil {
		u.observe(OutcomeRejected, time.Since(start))
		u.logger().WarnContext(ctx, "availability update rejected", "hotel_id", u.HotelID, "arrival", arrival, "departure", departure, "error", err)
		return err
	}

	ctx, span := u.tracer().Start(ctx, "availability.update", trace.WithAttributes(
		attribute.String("hotel.id", u.HotelID),
		attribute.StringSlice("room_type.ids", update.RoomTypeIDs),
		attribute.String("stay.arrival", update.Stay.Arrival()),
		attribute.String("stay.departure", update.Stay.Departure()),
	))
	defer span.End()

	err = u.queue.Do(ctx, func(ctx context.Context) error {
		u.reportDepth()
		return u.transact(ctx, update)
	})
	u.reportDepth()
	u.settle(ctx, update, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Snapshot reads the current document inside the queue, after every earlier update has settled.
func (u *Updater) Snapshot(ctx context.Context) (domainavailability.Snapshot, error) {
	if u.Store == nil {
		return nil, ErrStoreMissing
	}
	var out domainavailability.Snapshot
	err := u.queue.Do(ctx, func(ctx context.Context) error {
		s, err := u.Store.Fetch(ctx)
		if err != nil {
			return &StoreError{Op: "fetch", Err: err}
		}
		out = s
		return nil
	})
	return out, err
}

func (u *Updater) transact(ctx context.Context, update domainavailability.Update) error {
	snapshot, err := u.Store.Fetch(ctx)
	if err != nil {
		return &StoreError{Op: "fetch", Err: err}
	}
	if err := domainavailability.CheckRestrictions(snapshot, update); err != nil {
		return err
	}
	next, err := domainavailability.ApplyUpdate(snapshot, update)
	if err != nil {
		return err
	}
	if err := u.Store.Persist(ctx, next); err != nil {
		return &StoreError{Op: "persist", Err: err}
	}
	return nil
}

func (u *Updater) settle(ctx context.Context, update domainavailability.Update, err error, elapsed time.Duration) {
	log := u.logger().With(
		"hotel_id", u.HotelID,
		"room_types", update.RoomTypeIDs,
		"arrival", update.Stay.Arrival(),
		"departure", update.Stay.Departure(),
		"duration", elapsed,
	)
	outcome := Outcome(err)
	u.observe(outcome, elapsed)

	now := u.now()
	switch outcome {
	case OutcomeCommitted:
		log.InfoContext(ctx, "availability update committed")
		u.record(ctx, domainavailability.UpdatedEvent(u.HotelID, update, now))
	case OutcomeRejected:
		log.WarnContext(ctx, "availability update rejected", "error", err)
		u.record(ctx, domainavailability.UpdateRejectedEvent(u.HotelID, update, err, now))
	case OutcomeCancelled:
		log.WarnContext(ctx, "availability update cancelled", "error", err)
	default:
		log.ErrorContext(ctx, "availability update failed", "error", err)
	}
}

func (u *Updater) record(ctx context.Context, ev events.DomainEvent) {
	if u.Outbox == nil {
		return
	}
	// The transaction has already settled; the caller's cancellation must not drop the event.
	ctx = context.WithoutCancel(ctx)
	if err := outbox.RecordDomainEvents(ctx, u.Outbox, u.Encoder, ev); err != nil {
		u.logger().ErrorContext(ctx, "availability event not recorded", "event", ev.EventName(), "error", err)
	}
}

// Outcome classifies the result of an update.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCommitted
	case errors.Is(err, domainavailability.ErrInvalidUpdate), errors.Is(err, domainavailability.ErrRestrictionsViolated):
		return OutcomeRejected
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}

func (u *Updater) observe(outcome string, elapsed time.Duration) {
	if u.Metrics != nil {
		u.Metrics.TransactionSettled(outcome, elapsed)
	}
}

func (u *Updater) reportDepth() {
	if u.Metrics != nil {
		u.Metrics.QueueDepth(u.queue.Depth())
	}
}

func (u *Updater) logger() *slog.Logger {
	if u.Logger != nil {
		return u.Logger
	}
	return slog.Default()
}

func (u *Updater) tracer() trace.Tracer {
	if u.Tracer != nil {
		return u.Tracer
	}
	return otel.Tracer("availsync/availability")
}

func (u *Updater) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}
