package model

import "time"

type Message struct {
	ID          int64     `json:"id"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	JobID       *int64    `json:"job_id,omitempty"`
	Body        string    `json:"body"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Peer returns the other side of the conversation from userID's point of view.
func (m *Message) Peer(userID int64) int64 {
	if m.SenderID == userID {
		return m.RecipientID
	}
	return m.SenderID
}

type Bookmark struct {
	UserID    int64     `json:"user_id"`
	JobID     int64     `json:"job_id"`
	CreatedAt time.Time `json:"created_at"`
}
