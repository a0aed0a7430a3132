package model

import "time"

const (
	NotificationProposalReceived   = "proposal_received"
	NotificationProposalStatus     = "proposal_status"
	NotificationContractCreated    = "contract_created"
	NotificationMilestoneSubmitted = "milestone_submitted"
	NotificationSubmissionReviewed = "submission_reviewed"
	NotificationPaymentReleased    = "payment_released"
	NotificationContractCompleted  = "contract_completed"
	NotificationNewMessage         = "new_message"
)

type Notification struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipient_id"`
	SenderID    int64     `json:"sender_id"`
	Type        string    `json:"type"`
	JobID       *int64    `json:"job_id,omitempty"`
	ProposalID  *int64    `json:"proposal_id,omitempty"`
	ContractID  *int64    `json:"contract_id,omitempty"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	EventID     string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
