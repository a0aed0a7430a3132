package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/model"
	"freelancehub/internal/repository"
	"freelancehub/internal/storage"
	"freelancehub/pkg/metrics"
	"freelancehub/pkg/rbac"
)

type ContractService struct {
	store  repository.Store
	files  storage.Storage
	logger *zap.Logger
	now    func() time.Time
}

func NewContractService(store repository.Store, files storage.Storage, logger *zap.Logger) *ContractService {
	return &ContractService{store: store, files: files, logger: logger, now: time.Now}
}

type MilestoneInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	DueDate     string  `json:"due_date"`
}

func (in MilestoneInput) build() (model.Milestone, error) {
	title := strings.TrimSpace(in.Title)
	desc := strings.TrimSpace(in.Description)
	if title == "" || desc == "" || in.DueDate == "" {
		return model.Milestone{}, invalid("milestone title, description, amount and due_date are required")
	}
	if in.Amount <= 0 {
		return model.Milestone{}, invalid("milestone amount must be positive")
	}
	due, err := parseDueDate(in.DueDate)
	if err != nil {
		return model.Milestone{}, invalid("invalid due_date %q", in.DueDate)
	}
	return model.Milestone{
		Title:       title,
		Description: desc,
		Amount:      in.Amount,
		DueDate:     due,
		Status:      model.MilestoneStatusPending,
	}, nil
}

func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

type ContractInput struct {
	Title       string           `json:"title"`
	Scope       string           `json:"scope"`
	Terms       string           `json:"terms"`
	TotalAmount float64          `json:"total_amount"`
	Milestones  []MilestoneInput `json:"milestones"`
}

func (in ContractInput) build() (*model.Contract, error) {
	c := &model.Contract{
		Title:       strings.TrimSpace(in.Title),
		Scope:       strings.TrimSpace(in.Scope),
		Terms:       strings.TrimSpace(in.Terms),
		TotalAmount: in.TotalAmount,
		Status:      model.ContractStatusDraft,
	}
	if c.Title == "" || c.Scope == "" || c.Terms == "" {
		return nil, invalid("title, scope, terms, total_amount and milestones are required")
	}
	if c.TotalAmount <= 0 {
		return nil, invalid("total_amount must be positive")
	}
	if len(in.Milestones) == 0 {
		return nil, invalid("at least one milestone is required")
	}
	for _, mi := range in.Milestones {
		m, err := mi.build()
		if err != nil {
			return nil, err
		}
		c.Milestones = append(c.Milestones, m)
	}
	return c, nil
}

// FileUpload is one uploaded file of a work submission.
type FileUpload struct {
	Filename string
	Mimetype string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

func contractNotify(c *model.Contract, recipient, sender int64, msg string) mqcontracts.Notify {
	return mqcontracts.Notify{
		RecipientID: recipient,
		SenderID:    sender,
		JobID:       c.JobID,
		ProposalID:  c.ProposalID,
		ContractID:  c.ID,
		Message:     msg,
	}
}

// Create turns an accepted bid into a contract. The contract, proposal, application
// and job updates commit together with the contract.created event.
func (s *ContractService) Create(ctx context.Context, caller rbac.Caller, proposalID int64, in ContractInput) (*model.Contract, error) {
	if err := requirePermission(caller, rbac.PermissionManageContract); err != nil {
		return nil, err
	}
	c, err := in.build()
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		p, err := tx.Proposals().GetByID(ctx, proposalID)
		if err != nil {
			return fromRepo(err, "proposal")
		}
		job, err := tx.Jobs().GetByID(ctx, p.JobID)
		if err != nil {
			return fromRepo(err, "job")
		}
		if err := authorize(rbac.Require(caller, job, rbac.RelationClient)); err != nil {
			return err
		}
		if _, err := tx.Contracts().GetByProposalID(ctx, p.ID); err == nil {
			return conflict("a contract already exists for this proposal")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		c.JobID = job.ID
		c.ProposalID = p.ID
		c.ClientID = job.ClientID
		c.FreelancerID = p.FreelancerID
		if err := tx.Contracts().Create(ctx, c); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict("a contract already exists for this proposal")
			}
			return err
		}
		if err := tx.Proposals().UpdateStatus(ctx, p.ID, model.ProposalStatusAccepted); err != nil {
			return err
		}
		if err := tx.Jobs().UpdateApplicationStatus(ctx, p.ID, model.ProposalStatusAccepted); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := tx.Jobs().UpdateStatus(ctx, job.ID, model.JobStatusInProgress); err != nil {
			return err
		}

		return recordEvent(ctx, tx, "contract", c.ID, mqcontracts.EventContractCreated, mqcontracts.ContractCreatedPayload{
			Notify:         contractNotify(c, c.FreelancerID, caller.ID, fmt.Sprintf("A contract was created for %q", c.Title)),
			TotalAmount:    c.TotalAmount,
			MilestoneCount: len(c.Milestones),
		})
	})
	if err != nil {
		return nil, fromRepo(err, "contract")
	}

	metrics.IncrementContractTransition("created")
	s.logger.Info("Contract created",
		zap.Int64("contract_id", c.ID),
		zap.Int64("proposal_id", proposalID),
		zap.Int("milestones", len(c.Milestones)),
	)
	return c, nil
}

func (s *ContractService) Get(ctx context.Context, caller rbac.Caller, id int64) (*model.Contract, error) {
	c, err := s.store.Contracts().GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "contract")
	}
	if err := authorize(rbac.Require(caller, c, rbac.RelationParticipant)); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ContractService) ListMine(ctx context.Context, caller rbac.Caller) ([]model.Contract, error) {
	return s.store.Contracts().ListByUser(ctx, caller.ID)
}

// mutate runs fn against the locked contract inside a transaction. fn must check its
// own preconditions; relation is verified before fn runs.
func (s *ContractService) mutate(ctx context.Context, caller rbac.Caller, id int64, relation rbac.Relation, fn func(tx repository.Store, c *model.Contract) error) (*model.Contract, error) {
	var out *model.Contract
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		c, err := tx.Contracts().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(rbac.Require(caller, c, relation)); err != nil {
			return err
		}
		if err := fn(tx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, fromRepo(err, "contract")
	}
	return out, nil
}

// FundEscrow sets the escrow balance to amount; it does not accumulate.
func (s *ContractService) FundEscrow(ctx context.Context, caller rbac.Caller, id int64, amount float64) (*model.Contract, error) {
	if amount <= 0 {
		return nil, invalid("amount must be positive")
	}
	c, err := s.mutate(ctx, caller, id, rbac.RelationClient, func(tx repository.Store, c *model.Contract) error {
		if c.Status != model.ContractStatusDraft && c.Status != model.ContractStatusFunded {
			return precondition("contract is %s and can no longer be funded", c.Status)
		}
		c.EscrowBalance = amount
		c.Status = model.ContractStatusFunded
		return tx.Contracts().Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncrementContractTransition("funded")
	metrics.AddEscrow("in", amount)
	s.logger.Info("Escrow funded", zap.Int64("contract_id", id), zap.Float64("amount", amount))
	return c, nil
}

func (s *ContractService) Activate(ctx context.Context, caller rbac.Caller, id int64) (*model.Contract, error) {
	c, err := s.mutate(ctx, caller, id, rbac.RelationClient, func(tx repository.Store, c *model.Contract) error {
		if c.Status != model.ContractStatusFunded {
			return precondition("contract must be funded before activation")
		}
		now := s.now()
		c.Status = model.ContractStatusActive
		c.StartDate = &now
		return tx.Contracts().Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncrementContractTransition("activated")
	s.logger.Info("Contract activated", zap.Int64("contract_id", id))
	return c, nil
}

func (s *ContractService) AddMilestone(ctx context.Context, caller rbac.Caller, id int64, in MilestoneInput) (*model.Milestone, error) {
	m, err := in.build()
	if err != nil {
		return nil, err
	}
	_, err = s.mutate(ctx, caller, id, rbac.RelationClient, func(tx repository.Store, c *model.Contract) error {
		if c.Closed() {
			return precondition("cannot add milestones to a %s contract", c.Status)
		}
		m.ContractID = c.ID
		return tx.Contracts().AddMilestone(ctx, &m)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Milestone added", zap.Int64("contract_id", id), zap.Int64("milestone_id", m.ID))
	return &m, nil
}

func milestoneOf(c *model.Contract, milestoneID int64) (*model.Milestone, error) {
	m := c.Milestone(milestoneID)
	if m == nil {
		return nil, notFound("milestone not found")
	}
	return m, nil
}

// SubmitWork stores the uploaded files and makes them the milestone's current
// submission. Files that fail to save are dropped from the submission.
func (s *ContractService) SubmitWork(ctx context.Context, caller rbac.Caller, contractID, milestoneID int64, uploads []FileUpload, comments string) (*model.Milestone, error) {
	c, err := s.store.Contracts().GetByID(ctx, contractID)
	if err != nil {
		return nil, fromRepo(err, "contract")
	}
	if err := authorize(rbac.Require(caller, c, rbac.RelationFreelancer)); err != nil {
		return nil, err
	}
	m, err := milestoneOf(c, milestoneID)
	if err != nil {
		return nil, err
	}
	if m.Status == model.MilestoneStatusPaid {
		return nil, precondition("milestone is already paid")
	}

	files := s.saveUploads(ctx, contractID, milestoneID, uploads)

	var out *model.Milestone
	_, err = s.mutate(ctx, caller, contractID, rbac.RelationFreelancer, func(tx repository.Store, c *model.Contract) error {
		m, err := milestoneOf(c, milestoneID)
		if err != nil {
			return err
		}
		if m.Status == model.MilestoneStatusPaid {
			return precondition("milestone is already paid")
		}
		if m.CurrentSubmission != nil {
			m.SubmissionHistory = append(m.SubmissionHistory, *m.CurrentSubmission)
		}
		m.CurrentSubmission = &model.Submission{
			Files:       files,
			Comments:    strings.TrimSpace(comments),
			SubmittedAt: s.now(),
			Status:      model.SubmissionStatusPending,
		}
		m.Status = model.MilestoneStatusSubmitted
		if err := tx.Contracts().UpdateMilestone(ctx, m); err != nil {
			return err
		}
		out = m

		return recordEvent(ctx, tx, "contract", c.ID, mqcontracts.EventMilestoneSubmitted, mqcontracts.MilestoneSubmittedPayload{
			Notify:      contractNotify(c, c.ClientID, caller.ID, fmt.Sprintf("Work was submitted for milestone %q", m.Title)),
			MilestoneID: m.ID,
			FileCount:   len(files),
		})
	})
	if err != nil {
		s.discard(files)
		return nil, err
	}

	metrics.IncrementContractTransition("submitted")
	s.logger.Info("Work submitted",
		zap.Int64("contract_id", contractID),
		zap.Int64("milestone_id", milestoneID),
		zap.Int("files", len(files)),
		zap.Int("dropped", len(uploads)-len(files)),
	)
	return out, nil
}

func (s *ContractService) saveUploads(ctx context.Context, contractID, milestoneID int64, uploads []FileUpload) []model.SubmissionFile {
	files := make([]model.SubmissionFile, 0, len(uploads))
	for _, up := range uploads {
		url, err := s.saveUpload(ctx, up)
		if err != nil {
			s.logger.Warn("Dropping file from submission",
				zap.Int64("contract_id", contractID),
				zap.Int64("milestone_id", milestoneID),
				zap.String("filename", up.Filename),
				zap.Error(err),
			)
			continue
		}
		files = append(files, model.SubmissionFile{
			ID:       newFileID(),
			Filename: up.Filename,
			URL:      url,
			Mimetype: up.Mimetype,
			Size:     up.Size,
		})
	}
	return files
}

func (s *ContractService) saveUpload(ctx context.Context, up FileUpload) (string, error) {
	if up.Open == nil {
		return "", errors.New("no content")
	}
	r, err := up.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	return s.files.Save(ctx, up.Filename, up.Mimetype, r)
}

func newFileID() string { return uuid.NewString() }

// discard removes files saved for a submission that was never recorded.
func (s *ContractService) discard(files []model.SubmissionFile) {
	for _, f := range files {
		if err := s.files.Delete(context.Background(), f.URL); err != nil {
			s.logger.Warn("Failed to remove orphaned upload", zap.String("url", f.URL), zap.Error(err))
		}
	}
}

type ReviewInput struct {
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
}

// ReviewSubmission stamps the client's decision on the current submission and moves
// it to history either way.
func (s *ContractService) ReviewSubmission(ctx context.Context, caller rbac.Caller, contractID, milestoneID int64, in ReviewInput) (*model.Milestone, error) {
	var milestoneStatus string
	switch in.Status {
	case model.SubmissionStatusApproved:
		milestoneStatus = model.MilestoneStatusCompleted
	case model.SubmissionStatusChangesRequested:
		milestoneStatus = model.MilestoneStatusChangesRequested
	default:
		return nil, invalid("status must be approved or changes_requested")
	}

	var out *model.Milestone
	_, err := s.mutate(ctx, caller, contractID, rbac.RelationClient, func(tx repository.Store, c *model.Contract) error {
		m, err := milestoneOf(c, milestoneID)
		if err != nil {
			return err
		}
		if m.CurrentSubmission == nil {
			return precondition("milestone has no submission to review")
		}
		now := s.now()
		sub := *m.CurrentSubmission
		sub.Status = in.Status
		sub.ClientFeedback = strings.TrimSpace(in.Feedback)
		sub.FeedbackAt = &now
		m.SubmissionHistory = append(m.SubmissionHistory, sub)
		m.CurrentSubmission = nil
		m.Status = milestoneStatus
		if err := tx.Contracts().UpdateMilestone(ctx, m); err != nil {
			return err
		}
		out = m

		return recordEvent(ctx, tx, "contract", c.ID, mqcontracts.EventMilestoneReviewed, mqcontracts.MilestoneReviewedPayload{
			Notify:      contractNotify(c, c.FreelancerID, caller.ID, fmt.Sprintf("Your submission for %q was reviewed: %s", m.Title, in.Status)),
			MilestoneID: m.ID,
			Status:      in.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.IncrementContractTransition("reviewed_" + in.Status)
	s.logger.Info("Submission reviewed",
		zap.Int64("contract_id", contractID),
		zap.Int64("milestone_id", milestoneID),
		zap.String("status", in.Status),
	)
	return out, nil
}

// ReleasePayment moves a completed milestone's amount out of escrow.
func (s *ContractService) ReleasePayment(ctx context.Context, caller rbac.Caller, contractID, milestoneID int64) (*model.Contract, error) {
	var amount float64
	c, err := s.mutate(ctx, caller, contractID, rbac.RelationClient, func(tx repository.Store, c *model.Contract) error {
		m, err := milestoneOf(c, milestoneID)
		if err != nil {
			return err
		}
		if m.Status != model.MilestoneStatusCompleted {
			return precondition("milestone must be completed before payment")
		}
		if c.EscrowBalance < m.Amount {
			return precondition("escrow balance %.2f is below milestone amount %.2f", c.EscrowBalance, m.Amount)
		}

		m.Status = model.MilestoneStatusPaid
		if err := tx.Contracts().UpdateMilestone(ctx, m); err != nil {
			return err
		}
		c.EscrowBalance -= m.Amount
		if err := tx.Contracts().Update(ctx, c); err != nil {
			return err
		}
		amount = m.Amount

		return recordEvent(ctx, tx, "contract", c.ID, mqcontracts.EventPaymentReleased, mqcontracts.PaymentReleasedPayload{
			Notify:        contractNotify(c, c.FreelancerID, caller.ID, fmt.Sprintf("Payment of %.2f released for %q", m.Amount, m.Title)),
			MilestoneID:   m.ID,
			Amount:        m.Amount,
			EscrowBalance: c.EscrowBalance,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.IncrementContractTransition("paid")
	metrics.AddEscrow("out", amount)
	s.logger.Info("Payment released",
		zap.Int64("contract_id", contractID),
		zap.Int64("milestone_id", milestoneID),
		zap.Float64("amount", amount),
		zap.Float64("escrow_balance", c.EscrowBalance),
	)
	return c, nil
}

// Complete closes a contract once every milestone is paid, and completes its job.
func (s *ContractService) Complete(ctx context.Context, caller rbac.Caller, id int64) (*model.Contract, error) {
	c, err := s.mutate(ctx, caller, id, rbac.RelationClient, func(tx repository.Store, c *model.Contract) error {
		if c.Status == model.ContractStatusCompleted {
			return precondition("contract is already completed")
		}
		for _, m := range c.Milestones {
			if m.Status != model.MilestoneStatusPaid {
				return precondition("all milestones must be paid before completion")
			}
		}
		now := s.now()
		c.Status = model.ContractStatusCompleted
		c.EndDate = &now
		if err := tx.Contracts().Update(ctx, c); err != nil {
			return err
		}
		if err := tx.Jobs().UpdateStatus(ctx, c.JobID, model.JobStatusCompleted); err != nil {
			return err
		}
		return recordEvent(ctx, tx, "contract", c.ID, mqcontracts.EventContractCompleted, mqcontracts.ContractCompletedPayload{
			Notify: contractNotify(c, c.FreelancerID, caller.ID, fmt.Sprintf("Contract %q was completed", c.Title)),
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.IncrementContractTransition("completed")
	s.logger.Info("Contract completed", zap.Int64("contract_id", id))
	return c, nil
}

// Download opens a submitted file, looking in the current submission and then history.
func (s *ContractService) Download(ctx context.Context, caller rbac.Caller, contractID, milestoneID int64, fileID string) (*model.SubmissionFile, io.ReadCloser, error) {
	c, err := s.Get(ctx, caller, contractID)
	if err != nil {
		return nil, nil, err
	}
	m, err := milestoneOf(c, milestoneID)
	if err != nil {
		return nil, nil, err
	}
	f, ok := m.FindFile(fileID)
	if !ok {
		return nil, nil, notFound("file not found")
	}
	r, err := s.files.Open(ctx, f.URL)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, notFound("file content is missing")
		}
		return nil, nil, fmt.Errorf("open %s: %w", f.URL, err)
	}
	return f, r, nil
}
