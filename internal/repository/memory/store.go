// Package memory is an in-process Store used for local development and tests.
// All repositories share one mutex; InTx holds it for the whole transaction and
// restores a snapshot when fn fails.
package memory

import (
	"context"
	"sync"
	"time"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
	"freelancehub/pkg/outbox"
)

type bookmarkKey struct {
	userID int64
	jobID  int64
}

type data struct {
	seq           int64
	users         map[int64]model.User
	jobs          map[int64]model.Job
	applications  map[int64]model.Application
	proposals     map[int64]model.Proposal
	contracts     map[int64]model.Contract
	milestones    map[int64]model.Milestone
	notifications map[int64]model.Notification
	messages      map[int64]model.Message
	bookmarks     map[bookmarkKey]model.Bookmark
	outbox        map[int64]outbox.Event
}

func newData() *data {
	return &data{
		users:         make(map[int64]model.User),
		jobs:          make(map[int64]model.Job),
		applications:  make(map[int64]model.Application),
		proposals:     make(map[int64]model.Proposal),
		contracts:     make(map[int64]model.Contract),
		milestones:    make(map[int64]model.Milestone),
		notifications: make(map[int64]model.Notification),
		messages:      make(map[int64]model.Message),
		bookmarks:     make(map[bookmarkKey]model.Bookmark),
		outbox:        make(map[int64]outbox.Event),
	}
}

// clone is shallow per map; stored values are never mutated in place.
func (d *data) clone() *data {
	return &data{
		seq:           d.seq,
		users:         copyMap(d.users),
		jobs:          copyMap(d.jobs),
		applications:  copyMap(d.applications),
		proposals:     copyMap(d.proposals),
		contracts:     copyMap(d.contracts),
		milestones:    copyMap(d.milestones),
		notifications: copyMap(d.notifications),
		messages:      copyMap(d.messages),
		bookmarks:     copyMap(d.bookmarks),
		outbox:        copyMap(d.outbox),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *data) nextID() int64 {
	d.seq++
	return d.seq
}

type Store struct {
	mu   *sync.Mutex
	d    *data
	inTx bool
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)
var _ outbox.Store = (*Store)(nil)

func New() *Store {
	return &Store{mu: &sync.Mutex{}, d: newData(), now: time.Now}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	tx := &Store{mu: s.mu, d: s.d, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.d = *snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Jobs() repository.JobRepository                   { return jobRepo{s} }
func (s *Store) Proposals() repository.ProposalRepository         { return proposalRepo{s} }
func (s *Store) Contracts() repository.ContractRepository         { return contractRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }
func (s *Store) Messages() repository.MessageRepository           { return messageRepo{s} }
func (s *Store) Bookmarks() repository.BookmarkRepository         { return bookmarkRepo{s} }
func (s *Store) Outbox() repository.OutboxWriter                  { return outboxWriter{s} }

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
