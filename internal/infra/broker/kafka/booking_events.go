package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"availsync/internal/app/commands"
	"availsync/internal/app/dto"
	availabilityhandlers "availsync/internal/app/handlers/availability"
	"availsync/internal/app/middleware"
	domainavailability "availsync/internal/domain/availability"
	"availsync/internal/infra/obs"
)

// PrincipalBookingEvents is the principal attached to commands coming from the broker.
const PrincipalBookingEvents = "kafka"

// Booking event results reported to BookingEventRecorder.
const (
	ResultApplied   = "applied"
	ResultDuplicate = "duplicate"
	ResultRejected  = "rejected"
	ResultMalformed = "malformed"
	ResultFailed    = "failed"
)

// BookingEvent is the message published by the booking side for every confirmed booking.
type BookingEvent struct {
	ID          string   `json:"id"`
	RoomTypeIDs []string `json:"room_type_ids"`
	Arrival     string   `json:"arrival"`
	Departure   string   `json:"departure"`
}

// Inbox deduplicates deliveries by event id.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type BookingEventRecorder interface {
	BookingEvent(result string)
}

// BookingEventHandler turns booking events into availability update commands.
type BookingEventHandler struct {
	Bus     commands.Bus
	Inbox   Inbox
	Logger  *slog.Logger
	Metrics BookingEventRecorder
}

// Handle returns an error only when the update may succeed on redelivery.
func (h *BookingEventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	log := h.logger().With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

	var ev BookingEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		log.Error("dropping undecodable booking event", "error", err)
		h.observe(ResultMalformed)
		return nil
	}
	if ev.ID == "" {
		ev.ID = fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}
	log = log.With("event_id", ev.ID)

	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, ev.ID)
		if err != nil {
			h.observe(ResultFailed)
			return fmt.Errorf("kafka: inbox lookup %s: %w", ev.ID, err)
		}
		if seen {
			log.Debug("skipping duplicate booking event")
			h.observe(ResultDuplicate)
			return nil
		}
	}

	ctx = middleware.WithPrincipal(ctx, PrincipalBookingEvents)
	ctx = obs.WithRequestID(ctx, ev.ID)
	_, err := commands.Dispatch[availabilityhandlers.UpdateAvailabilityCommand, *dto.UpdateResult](ctx, h.Bus, availabilityhandlers.UpdateAvailabilityCommand{
		RoomTypeIDs:     ev.RoomTypeIDs,
		Arrival:         ev.Arrival,
		Departure:       ev.Departure,
		IdempotencyKeyV: "booking-event:" + ev.ID,
	})
	switch {
	case err == nil:
		h.observe(ResultApplied)
		return nil
	case errors.Is(err, middleware.ErrIdempotencyInProgress):
		// Another delivery holds this event, or it committed without being recorded.
		log.Info("booking event already in flight", "error", err)
		h.observe(ResultDuplicate)
		return nil
	case isRejection(err):
		log.Warn("booking event rejected", "room_types", ev.RoomTypeIDs, "arrival", ev.Arrival, "departure", ev.Departure, "error", err)
		h.observe(ResultRejected)
		return nil
	default:
		h.observe(ResultFailed)
		if h.Inbox != nil {
			if ferr := h.Inbox.Forget(context.WithoutCancel(ctx), ev.ID); ferr != nil {
				log.Error("inbox release failed", "error", ferr)
			}
		}
		return err
	}
}

func isRejection(err error) bool {
	return errors.Is(err, domainavailability.ErrInvalidUpdate) ||
		errors.Is(err, domainavailability.ErrRestrictionsViolated) ||
		errors.Is(err, middleware.ErrValidation)
}

func (h *BookingEventHandler) observe(result string) {
	if h.Metrics != nil {
		h.Metrics.BookingEvent(result)
	}
}

func (h *BookingEventHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ MessageHandler = (*BookingEventHandler)(nil)
