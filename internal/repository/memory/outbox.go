package memory

import (
	"context"
	"sort"

	"freelancehub/pkg/mq"
	"freelancehub/pkg/outbox"
)

type outboxWriter struct{ s *Store }

func (w outboxWriter) Append(_ context.Context, aggregateType string, aggregateID int64, evt mq.Event) error {
	e, err := outbox.FromEnvelope(aggregateType, aggregateID, evt)
	if err != nil {
		return err
	}
	defer w.s.lock()()
	e.ID = w.s.d.nextID()
	e.CreatedAt = w.s.now()
	e.UpdatedAt = e.CreatedAt
	w.s.d.outbox[e.ID] = *e
	return nil
}

func (s *Store) outboxEvents(limit int, keep func(outbox.Event) bool) []*outbox.Event {
	defer s.lock()()
	var out []*outbox.Event
	for _, e := range s.d.outbox {
		if keep(e) {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) GetPendingEvents(_ context.Context, limit int) ([]*outbox.Event, error) {
	now := s.now()
	return s.outboxEvents(limit, func(e outbox.Event) bool {
		return e.Status == outbox.StatusPending && (e.NextRetryAt == nil || !e.NextRetryAt.After(now))
	}), nil
}

func (s *Store) GetFailedEvents(_ context.Context, limit int) ([]*outbox.Event, error) {
	return s.outboxEvents(limit, func(e outbox.Event) bool { return e.Status == outbox.StatusFailed }), nil
}

func (s *Store) GetEventByID(_ context.Context, eventID int64) (*outbox.Event, error) {
	defer s.lock()()
	e, ok := s.d.outbox[eventID]
	if !ok {
		return nil, outbox.ErrEventNotFound
	}
	return &e, nil
}

func (s *Store) MarkAsSent(_ context.Context, eventID int64) error {
	defer s.lock()()
	e, ok := s.d.outbox[eventID]
	if !ok {
		return outbox.ErrEventNotFound
	}
	e.Status = outbox.StatusSent
	e.NextRetryAt = nil
	e.UpdatedAt = s.now()
	s.d.outbox[eventID] = e
	return nil
}

func (s *Store) MarkAsFailed(_ context.Context, eventID int64, maxRetries int) error {
	defer s.lock()()
	e, ok := s.d.outbox[eventID]
	if !ok {
		return outbox.ErrEventNotFound
	}
	e.RetryCount++
	e.UpdatedAt = s.now()
	if e.RetryCount >= maxRetries {
		e.Status = outbox.StatusFailed
		e.NextRetryAt = nil
	} else {
		e.Status = outbox.StatusPending
		next := e.UpdatedAt.Add(outbox.NextRetryDelay(e.RetryCount))
		e.NextRetryAt = &next
	}
	s.d.outbox[eventID] = e
	return nil
}
