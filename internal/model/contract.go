package model

import (
	"time"

	"freelancehub/pkg/rbac"
)

const (
	ContractStatusDraft     = "draft"
	ContractStatusFunded    = "funded"
	ContractStatusActive    = "active"
	ContractStatusCompleted = "completed"
	ContractStatusClosed    = "closed"
	ContractStatusCancelled = "cancelled"
)

const (
	MilestoneStatusPending          = "pending"
	MilestoneStatusFunded           = "funded"
	MilestoneStatusInProgress       = "in_progress"
	MilestoneStatusSubmitted        = "submitted"
	MilestoneStatusChangesRequested = "changes_requested"
	MilestoneStatusCompleted        = "completed"
	MilestoneStatusPaid             = "paid"
)

const (
	SubmissionStatusPending          = "pending"
	SubmissionStatusApproved         = "approved"
	SubmissionStatusChangesRequested = "changes_requested"
)

type Contract struct {
	ID            int64       `json:"id"`
	JobID         int64       `json:"job_id"`
	ProposalID    int64       `json:"proposal_id"`
	ClientID      int64       `json:"client_id"`
	FreelancerID  int64       `json:"freelancer_id"`
	Title         string      `json:"title"`
	Scope         string      `json:"scope"`
	Terms         string      `json:"terms"`
	TotalAmount   float64     `json:"total_amount"`
	Status        string      `json:"status"`
	EscrowBalance float64     `json:"escrow_balance"`
	StartDate     *time.Time  `json:"start_date,omitempty"`
	EndDate       *time.Time  `json:"end_date,omitempty"`
	Milestones    []Milestone `json:"milestones"`
	Version       int64       `json:"version"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (c *Contract) Parties() rbac.Parties {
	return rbac.Parties{Owner: c.ClientID, Client: c.ClientID, Freelancer: c.FreelancerID}
}

// Milestone returns a pointer into c.Milestones, or nil.
func (c *Contract) Milestone(id int64) *Milestone {
	for i := range c.Milestones {
		if c.Milestones[i].ID == id {
			return &c.Milestones[i]
		}
	}
	return nil
}

// Closed reports whether the contract no longer accepts new milestones.
func (c *Contract) Closed() bool {
	switch c.Status {
	case ContractStatusCompleted, ContractStatusClosed, ContractStatusCancelled:
		return true
	}
	return false
}

type Milestone struct {
	ID                int64        `json:"id"`
	ContractID        int64        `json:"contract_id"`
	Position          int          `json:"position"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	Amount            float64      `json:"amount"`
	DueDate           time.Time    `json:"due_date"`
	Status            string       `json:"status"`
	CurrentSubmission *Submission  `json:"current_submission"`
	SubmissionHistory []Submission `json:"submission_history"`
	Version           int64        `json:"version"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// FindFile looks in the current submission first, then history, newest first.
func (m *Milestone) FindFile(fileID string) (*SubmissionFile, bool) {
	if m.CurrentSubmission != nil {
		if f, ok := m.CurrentSubmission.file(fileID); ok {
			return f, true
		}
	}
	for i := len(m.SubmissionHistory) - 1; i >= 0; i-- {
		if f, ok := m.SubmissionHistory[i].file(fileID); ok {
			return f, true
		}
	}
	return nil, false
}

type Submission struct {
	Files          []SubmissionFile `json:"files"`
	Comments       string           `json:"comments"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	Status         string           `json:"status"`
	ClientFeedback string           `json:"client_feedback,omitempty"`
	FeedbackAt     *time.Time       `json:"feedback_at,omitempty"`
}

func (s *Submission) file(id string) (*SubmissionFile, bool) {
	for i := range s.Files {
		if s.Files[i].ID == id {
			return &s.Files[i], true
		}
	}
	return nil, false
}

type SubmissionFile struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Mimetype string `json:"mimetype"`
	Size     int64  `json:"size"`
}
