package model

import (
	"time"

	"freelancehub/pkg/rbac"
)

const (
	ProposalStatusPending      = "pending"
	ProposalStatusAccepted     = "accepted"
	ProposalStatusDeclined     = "declined"
	ProposalStatusInterviewing = "interviewing"
)

var ProposalStatuses = []string{ProposalStatusPending, ProposalStatusAccepted, ProposalStatusDeclined, ProposalStatusInterviewing}

type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type Proposal struct {
	ID                int64     `json:"id"`
	JobID             int64     `json:"job_id"`
	FreelancerID      int64     `json:"freelancer_id"`
	CoverLetter       string    `json:"cover_letter"`
	BidAmount         Money     `json:"bid_amount"`
	EstimatedDuration string    `json:"estimated_duration"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (p *Proposal) Parties() rbac.Parties {
	return rbac.Parties{Owner: p.FreelancerID, Freelancer: p.FreelancerID}
}
