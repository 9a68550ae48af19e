package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "availsync/internal/app/outbox"
	infraoutbox "availsync/internal/infra/outbox"
)

// Outbox keeps unpublished events in insertion order and serves them to the relay
// worker. Messages leave the outbox once they are marked sent.
type Outbox struct {
	mu       sync.Mutex
	messages []*infraoutbox.Message
	byID     map[string]*infraoutbox.Message
	now      func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{byID: make(map[string]*infraoutbox.Message), now: time.Now}
}

func (o *Outbox) Add(_ context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	msg := &infraoutbox.Message{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     append([]byte(nil), record.Payload...),
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       infraoutbox.StateNew,
		NextAttempt: o.now(),
	}
	o.messages = append(o.messages, msg)
	o.byID[msg.ID] = msg
	return nil
}

func (o *Outbox) Claim(_ context.Context, workerID string) (*infraoutbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for _, msg := range o.messages {
		if msg.State != infraoutbox.StateNew && msg.State != infraoutbox.StateFailed {
			continue
		}
		if msg.NextAttempt.After(now) {
			continue
		}
		msg.State = infraoutbox.StateClaimed
		msg.ClaimedBy = workerID
		msg.ClaimedAt = now
		cp := *msg
		return &cp, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.byID[id]; !ok {
		return nil
	}
	delete(o.byID, id)
	kept := o.messages[:0]
	for _, msg := range o.messages {
		if msg.ID != id {
			kept = append(kept, msg)
		}
	}
	for i := len(kept); i < len(o.messages); i++ {
		o.messages[i] = nil
	}
	o.messages = kept
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if msg := o.byID[id]; msg != nil {
		msg.State = infraoutbox.StateFailed
		msg.NextAttempt = next
		msg.LastError = errMsg
		msg.Attempts++
	}
	return nil
}

// Messages returns copies of the messages still waiting to be published.
func (o *Outbox) Messages() []infraoutbox.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]infraoutbox.Message, 0, len(o.messages))
	for _, msg := range o.messages {
		out = append(out, *msg)
	}
	return out
}

var (
	_ appoutbox.Outbox   = (*Outbox)(nil)
	_ infraoutbox.Source = (*Outbox)(nil)
)
