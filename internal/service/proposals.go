package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/model"
	"freelancehub/internal/repository"
	"freelancehub/pkg/rbac"
)

type ProposalService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewProposalService(store repository.Store, logger *zap.Logger) *ProposalService {
	return &ProposalService{store: store, logger: logger}
}

type ApplyInput struct {
	CoverLetter       string      `json:"cover_letter"`
	BidAmount         model.Money `json:"bid_amount"`
	EstimatedDuration string      `json:"estimated_duration"`
}

func (in *ApplyInput) validate() error {
	in.CoverLetter = strings.TrimSpace(in.CoverLetter)
	in.EstimatedDuration = strings.TrimSpace(in.EstimatedDuration)
	if in.CoverLetter == "" || in.EstimatedDuration == "" {
		return invalid("cover_letter and estimated_duration are required")
	}
	if in.BidAmount.Amount <= 0 {
		return invalid("bid_amount.amount must be positive")
	}
	if in.BidAmount.Currency == "" {
		in.BidAmount.Currency = defaultCurrency
	}
	return nil
}

// Apply creates the proposal and the job's application entry together.
func (s *ProposalService) Apply(ctx context.Context, caller rbac.Caller, jobID int64, in ApplyInput) (*model.Proposal, error) {
	if err := requirePermission(caller, rbac.PermissionCreateProposal); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &model.Proposal{
		JobID:             jobID,
		FreelancerID:      caller.ID,
		CoverLetter:       in.CoverLetter,
		BidAmount:         in.BidAmount,
		EstimatedDuration: in.EstimatedDuration,
		Status:            model.ProposalStatusPending,
	}

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		job, err := tx.Jobs().GetByID(ctx, jobID)
		if err != nil {
			return fromRepo(err, "job")
		}
		if job.Status != model.JobStatusOpen {
			return precondition("job is not open for applications")
		}
		if job.ClientID == caller.ID {
			return forbidden("cannot apply to your own job")
		}

		if err := tx.Proposals().Create(ctx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict("you have already applied to this job")
			}
			return err
		}
		err = tx.Jobs().AddApplication(ctx, &model.Application{
			JobID:             jobID,
			FreelancerID:      caller.ID,
			ProposalID:        p.ID,
			ProposalText:      p.CoverLetter,
			ProposedBudget:    p.BidAmount.Amount,
			EstimatedDuration: p.EstimatedDuration,
			Status:            model.ProposalStatusPending,
		})
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict("you have already applied to this job")
			}
			return err
		}

		return recordEvent(ctx, tx, "proposal", p.ID, mqcontracts.EventProposalSubmitted, mqcontracts.ProposalSubmittedPayload{
			Notify: mqcontracts.Notify{
				RecipientID: job.ClientID,
				SenderID:    caller.ID,
				JobID:       job.ID,
				ProposalID:  p.ID,
				Message:     fmt.Sprintf("New proposal received for %q", job.Title),
			},
			FreelancerID: caller.ID,
			BidAmount:    p.BidAmount.Amount,
			Currency:     p.BidAmount.Currency,
		})
	})
	if err != nil {
		return nil, fromRepo(err, "proposal")
	}

	s.logger.Info("Proposal submitted",
		zap.Int64("proposal_id", p.ID),
		zap.Int64("job_id", jobID),
		zap.Int64("freelancer_id", caller.ID),
	)
	return p, nil
}

func (s *ProposalService) clientJob(ctx context.Context, caller rbac.Caller, jobID int64) (*model.Job, error) {
	job, err := s.store.Jobs().GetByID(ctx, jobID)
	if err != nil {
		return nil, fromRepo(err, "job")
	}
	if err := authorize(rbac.Require(caller, job, rbac.RelationClient)); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *ProposalService) ListJobApplications(ctx context.Context, caller rbac.Caller, jobID int64, page, limit int) ([]model.Application, Page, error) {
	p := newPage(page, limit)
	if _, err := s.clientJob(ctx, caller, jobID); err != nil {
		return nil, p, err
	}
	apps, total, err := s.store.Jobs().ListApplications(ctx, jobID, p.Offset(), p.Limit)
	if err != nil {
		return nil, p, err
	}
	p.Total = total
	return apps, p, nil
}

// UpdateStatus is the job client's decision on a proposal; it is mirrored onto the application entry.
func (s *ProposalService) UpdateStatus(ctx context.Context, caller rbac.Caller, proposalID int64, status string) (*model.Proposal, error) {
	if !model.Contains(model.ProposalStatuses, status) {
		return nil, invalid("invalid status %q", status)
	}

	p, err := s.store.Proposals().GetByID(ctx, proposalID)
	if err != nil {
		return nil, fromRepo(err, "proposal")
	}
	job, err := s.clientJob(ctx, caller, p.JobID)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Proposals().UpdateStatus(ctx, p.ID, status); err != nil {
			return err
		}
		if err := tx.Jobs().UpdateApplicationStatus(ctx, p.ID, status); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return recordEvent(ctx, tx, "proposal", p.ID, mqcontracts.EventProposalStatusChanged, mqcontracts.ProposalStatusChangedPayload{
			Notify: mqcontracts.Notify{
				RecipientID: p.FreelancerID,
				SenderID:    caller.ID,
				JobID:       job.ID,
				ProposalID:  p.ID,
				Message:     fmt.Sprintf("Your proposal for %q is now %s", job.Title, status),
			},
			Status: status,
		})
	})
	if err != nil {
		return nil, fromRepo(err, "proposal")
	}

	p.Status = status
	s.logger.Info("Proposal status changed", zap.Int64("proposal_id", p.ID), zap.String("status", status))
	return p, nil
}

func (s *ProposalService) Mine(ctx context.Context, caller rbac.Caller) ([]model.Proposal, error) {
	return s.store.Proposals().ListByFreelancer(ctx, caller.ID)
}

// Get is visible to the freelancer who wrote the proposal and to the job's client.
func (s *ProposalService) Get(ctx context.Context, caller rbac.Caller, id int64) (*model.Proposal, error) {
	p, err := s.store.Proposals().GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "proposal")
	}
	if rbac.Require(caller, p, rbac.RelationOwner).Allowed {
		return p, nil
	}
	if _, err := s.clientJob(ctx, caller, p.JobID); err != nil {
		return nil, err
	}
	return p, nil
}
