package postgres

import (
	"context"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
)

type notificationRepo struct{ q querier }

func (r notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	query := `
        INSERT INTO notifications (recipient_id, sender_id, type, job_id, proposal_id, contract_id, message, event_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
        ON CONFLICT (event_id, recipient_id) DO UPDATE SET event_id = EXCLUDED.event_id
        RETURNING id, created_at
    `
	err := r.q.QueryRow(ctx, query,
		n.RecipientID,
		n.SenderID,
		n.Type,
		n.JobID,
		n.ProposalID,
		n.ContractID,
		n.Message,
		n.EventID,
	).Scan(&n.ID, &n.CreatedAt)
	return mapErr(err)
}

func (r notificationRepo) ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool, offset, limit int) ([]model.Notification, int, error) {
	var total int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND (NOT $2 OR NOT is_read)`,
		recipientID, unreadOnly).Scan(&total)
	if err != nil {
		return nil, 0, mapErr(err)
	}

	query := `
        SELECT id, recipient_id, sender_id, type, job_id, proposal_id, contract_id, message, is_read,
               COALESCE(event_id, ''), created_at
        FROM notifications
        WHERE recipient_id = $1 AND (NOT $2 OR NOT is_read)
        ORDER BY id DESC
        LIMIT $3 OFFSET $4
    `
	rows, err := r.q.Query(ctx, query, recipientID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.SenderID,
			&n.Type,
			&n.JobID,
			&n.ProposalID,
			&n.ContractID,
			&n.Message,
			&n.IsRead,
			&n.EventID,
			&n.CreatedAt,
		); err != nil {
			return nil, 0, mapErr(err)
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (r notificationRepo) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`, recipientID).Scan(&n)
	return n, mapErr(err)
}

func (r notificationRepo) MarkRead(ctx context.Context, id, recipientID int64) error {
	return expectOne(r.q.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`, id, recipientID))
}

func (r notificationRepo) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND NOT is_read`, recipientID)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

var _ repository.NotificationRepository = notificationRepo{}
