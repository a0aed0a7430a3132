package repository

import (
	"context"
	"errors"
	"time"

	"freelancehub/internal/model"
	"freelancehub/pkg/mq"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("version conflict")
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the unit of work over every repository. Inside InTx, the Store passed to
// fn is bound to one transaction; returning an error rolls everything back.
type Store interface {
	Users() UserRepository
	Jobs() JobRepository
	Proposals() ProposalRepository
	Contracts() ContractRepository
	Notifications() NotificationRepository
	Messages() MessageRepository
	Bookmarks() BookmarkRepository
	Outbox() OutboxWriter

	InTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
	SetVerified(ctx context.Context, id int64) error
}

type JobRepository interface {
	Create(ctx context.Context, j *model.Job) error
	GetByID(ctx context.Context, id int64) (*model.Job, error)
	Update(ctx context.Context, j *model.Job) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	// Delete removes the job with its applications and bookmarks.
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, f model.JobFilter) ([]model.Job, int, error)
	ListByClient(ctx context.Context, clientID int64) ([]model.Job, error)

	AddApplication(ctx context.Context, a *model.Application) error
	ListApplications(ctx context.Context, jobID int64, offset, limit int) ([]model.Application, int, error)
	UpdateApplicationStatus(ctx context.Context, proposalID int64, status string) error
}

type ProposalRepository interface {
	Create(ctx context.Context, p *model.Proposal) error
	GetByID(ctx context.Context, id int64) (*model.Proposal, error)
	ListByFreelancer(ctx context.Context, freelancerID int64) ([]model.Proposal, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	DeleteByJob(ctx context.Context, jobID int64) (int64, error)
}

type ContractRepository interface {
	// Create inserts the contract and its milestones, filling in ids and versions.
	Create(ctx context.Context, c *model.Contract) error
	GetByID(ctx context.Context, id int64) (*model.Contract, error)
	// GetByIDForUpdate locks the contract row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Contract, error)
	GetByProposalID(ctx context.Context, proposalID int64) (*model.Contract, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Contract, error)
	CountByJob(ctx context.Context, jobID int64) (int, error)
	// Update writes the contract's own fields when c.Version matches, then bumps c.Version.
	Update(ctx context.Context, c *model.Contract) error
	AddMilestone(ctx context.Context, m *model.Milestone) error
	// UpdateMilestone writes status and submissions when m.Version matches, then bumps m.Version.
	UpdateMilestone(ctx context.Context, m *model.Milestone) error
}

type NotificationRepository interface {
	// Create is idempotent on a non-empty EventID.
	Create(ctx context.Context, n *model.Notification) error
	ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool, offset, limit int) ([]model.Notification, int, error)
	CountUnread(ctx context.Context, recipientID int64) (int, error)
	MarkRead(ctx context.Context, id, recipientID int64) error
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) error
	// ListConversation returns messages between a and b with id > afterID, in insertion order.
	ListConversation(ctx context.Context, a, b int64, afterID int64) ([]model.Message, error)
	MarkConversationRead(ctx context.Context, recipientID, senderID int64) error
	// LatestPerPeer returns the newest message of each of userID's conversations, newest first.
	LatestPerPeer(ctx context.Context, userID int64) ([]model.Message, error)
}

type BookmarkRepository interface {
	Add(ctx context.Context, userID, jobID int64) error
	Remove(ctx context.Context, userID, jobID int64) error
	ListByUser(ctx context.Context, userID int64) ([]model.Bookmark, error)
}

// OutboxWriter records an event in the same transaction as the change it describes.
type OutboxWriter interface {
	Append(ctx context.Context, aggregateType string, aggregateID int64, evt mq.Event) error
}

// VerificationTokens issues and redeems single-use email verification tokens.
type VerificationTokens interface {
	Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error)
	// Consume returns ErrNotFound for unknown or expired tokens.
	Consume(ctx context.Context, token string) (int64, error)
}
