package mq

// Event types; each is also the routing key on the events exchange.
const (
	EventUserRegistered        = "user.registered"
	EventProposalSubmitted     = "proposal.submitted"
	EventProposalStatusChanged = "proposal.status_changed"
	EventContractCreated       = "contract.created"
	EventMilestoneSubmitted    = "milestone.submitted"
	EventMilestoneReviewed     = "milestone.reviewed"
	EventPaymentReleased       = "payment.released"
	EventContractCompleted     = "contract.completed"
	EventMessageSent           = "message.sent"
)

// NotificationEvents lists the events the worker turns into in-app notifications.
var NotificationEvents = []string{
	EventProposalSubmitted,
	EventProposalStatusChanged,
	EventContractCreated,
	EventMilestoneSubmitted,
	EventMilestoneReviewed,
	EventPaymentReleased,
	EventContractCompleted,
	EventMessageSent,
}

// Notify is embedded in every payload that ends up as a notification.
type Notify struct {
	RecipientID int64  `json:"recipient_id"`
	SenderID    int64  `json:"sender_id"`
	JobID       int64  `json:"job_id,omitempty"`
	ProposalID  int64  `json:"proposal_id,omitempty"`
	ContractID  int64  `json:"contract_id,omitempty"`
	Message     string `json:"message"`
}

type UserRegisteredPayload struct {
	UserID            int64  `json:"user_id"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	VerificationToken string `json:"verification_token"`
}

type ProposalSubmittedPayload struct {
	Notify
	FreelancerID int64   `json:"freelancer_id"`
	BidAmount    float64 `json:"bid_amount"`
	Currency     string  `json:"currency"`
}

type ProposalStatusChangedPayload struct {
	Notify
	Status string `json:"status"`
}

type ContractCreatedPayload struct {
	Notify
	TotalAmount    float64 `json:"total_amount"`
	MilestoneCount int     `json:"milestone_count"`
}

type MilestoneSubmittedPayload struct {
	Notify
	MilestoneID int64 `json:"milestone_id"`
	FileCount   int   `json:"file_count"`
}

type MilestoneReviewedPayload struct {
	Notify
	MilestoneID int64  `json:"milestone_id"`
	Status      string `json:"status"` // approved / changes_requested
}

type PaymentReleasedPayload struct {
	Notify
	MilestoneID   int64   `json:"milestone_id"`
	Amount        float64 `json:"amount"`
	EscrowBalance float64 `json:"escrow_balance"`
}

type ContractCompletedPayload struct {
	Notify
}

type MessageSentPayload struct {
	Notify
	MessageID int64 `json:"message_id"`
}
