package memory

import (
	"context"
	"sort"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
)

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *model.Notification) error {
	defer r.s.lock()()
	if n.EventID != "" {
		for _, existing := range r.s.d.notifications {
			if existing.EventID == n.EventID && existing.RecipientID == n.RecipientID {
				n.ID = existing.ID
				n.CreatedAt = existing.CreatedAt
				return nil
			}
		}
	}
	n.ID = r.s.d.nextID()
	n.CreatedAt = r.s.now()
	r.s.d.notifications[n.ID] = *n
	return nil
}

func (r notificationRepo) ListByRecipient(_ context.Context, recipientID int64, unreadOnly bool, offset, limit int) ([]model.Notification, int, error) {
	defer r.s.lock()()
	out := []model.Notification{}
	for _, n := range r.s.d.notifications {
		if n.RecipientID != recipientID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, offset, limit), len(out), nil
}

func (r notificationRepo) CountUnread(_ context.Context, recipientID int64) (int, error) {
	defer r.s.lock()()
	count := 0
	for _, n := range r.s.d.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id, recipientID int64) error {
	defer r.s.lock()()
	n, ok := r.s.d.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return repository.ErrNotFound
	}
	n.IsRead = true
	r.s.d.notifications[id] = n
	return nil
}

func (r notificationRepo) MarkAllRead(_ context.Context, recipientID int64) (int64, error) {
	defer r.s.lock()()
	var changed int64
	for id, n := range r.s.d.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			r.s.d.notifications[id] = n
			changed++
		}
	}
	return changed, nil
}
