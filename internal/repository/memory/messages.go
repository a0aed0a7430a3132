package memory

import (
	"context"
	"sort"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
)

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, m *model.Message) error {
	defer r.s.lock()()
	m.ID = r.s.d.nextID()
	m.CreatedAt = r.s.now()
	r.s.d.messages[m.ID] = *m
	return nil
}

func (r messageRepo) ListConversation(_ context.Context, a, b int64, afterID int64) ([]model.Message, error) {
	defer r.s.lock()()
	out := []model.Message{}
	for _, m := range r.s.d.messages {
		if m.ID <= afterID {
			continue
		}
		if (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r messageRepo) MarkConversationRead(_ context.Context, recipientID, senderID int64) error {
	defer r.s.lock()()
	for id, m := range r.s.d.messages {
		if m.RecipientID == recipientID && m.SenderID == senderID && !m.IsRead {
			m.IsRead = true
			r.s.d.messages[id] = m
		}
	}
	return nil
}

func (r messageRepo) LatestPerPeer(_ context.Context, userID int64) ([]model.Message, error) {
	defer r.s.lock()()
	latest := make(map[int64]model.Message)
	for _, m := range r.s.d.messages {
		if m.SenderID != userID && m.RecipientID != userID {
			continue
		}
		peer := m.Peer(userID)
		if cur, ok := latest[peer]; !ok || m.ID > cur.ID {
			latest[peer] = m
		}
	}
	out := make([]model.Message, 0, len(latest))
	for _, m := range latest {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type bookmarkRepo struct{ s *Store }

func (r bookmarkRepo) Add(_ context.Context, userID, jobID int64) error {
	defer r.s.lock()()
	if _, ok := r.s.d.jobs[jobID]; !ok {
		return repository.ErrNotFound
	}
	key := bookmarkKey{userID: userID, jobID: jobID}
	if _, ok := r.s.d.bookmarks[key]; ok {
		return nil
	}
	r.s.d.bookmarks[key] = model.Bookmark{UserID: userID, JobID: jobID, CreatedAt: r.s.now()}
	return nil
}

func (r bookmarkRepo) Remove(_ context.Context, userID, jobID int64) error {
	defer r.s.lock()()
	delete(r.s.d.bookmarks, bookmarkKey{userID: userID, jobID: jobID})
	return nil
}

func (r bookmarkRepo) ListByUser(_ context.Context, userID int64) ([]model.Bookmark, error) {
	defer r.s.lock()()
	out := []model.Bookmark{}
	for k, b := range r.s.d.bookmarks {
		if k.userID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].JobID > out[j].JobID
	})
	return out, nil
}

