package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"freelancehub/internal/model"
)

type messageRepo struct{ q querier }

const messageColumns = `id, sender_id, recipient_id, job_id, body, is_read, created_at`

func collectMessages(rows pgx.Rows, err error) ([]model.Message, error) {
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.JobID, &m.Body, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r messageRepo) Create(ctx context.Context, m *model.Message) error {
	query := `
        INSERT INTO messages (sender_id, recipient_id, job_id, body)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	return mapErr(r.q.QueryRow(ctx, query, m.SenderID, m.RecipientID, m.JobID, m.Body).Scan(&m.ID, &m.CreatedAt))
}

func (r messageRepo) ListConversation(ctx context.Context, a, b int64, afterID int64) ([]model.Message, error) {
	query := `
        SELECT ` + messageColumns + `
        FROM messages
        WHERE ((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))
          AND id > $3
        ORDER BY id ASC
    `
	return collectMessages(r.q.Query(ctx, query, a, b, afterID))
}

func (r messageRepo) MarkConversationRead(ctx context.Context, recipientID, senderID int64) error {
	_, err := r.q.Exec(ctx,
		`UPDATE messages SET is_read = TRUE WHERE recipient_id = $1 AND sender_id = $2 AND NOT is_read`,
		recipientID, senderID)
	return mapErr(err)
}

func (r messageRepo) LatestPerPeer(ctx context.Context, userID int64) ([]model.Message, error) {
	query := `
        SELECT ` + messageColumns + ` FROM (
            SELECT DISTINCT ON (CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END) *
            FROM messages
            WHERE sender_id = $1 OR recipient_id = $1
            ORDER BY CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END, id DESC
        ) latest
        ORDER BY id DESC
    `
	return collectMessages(r.q.Query(ctx, query, userID))
}

type bookmarkRepo struct{ q querier }

func (r bookmarkRepo) Add(ctx context.Context, userID, jobID int64) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO bookmarks (user_id, job_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, jobID)
	return mapErr(err)
}

func (r bookmarkRepo) Remove(ctx context.Context, userID, jobID int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM bookmarks WHERE user_id = $1 AND job_id = $2`, userID, jobID)
	return mapErr(err)
}

func (r bookmarkRepo) ListByUser(ctx context.Context, userID int64) ([]model.Bookmark, error) {
	rows, err := r.q.Query(ctx,
		`SELECT user_id, job_id, created_at FROM bookmarks WHERE user_id = $1 ORDER BY created_at DESC, job_id DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []model.Bookmark{}
	for rows.Next() {
		var b model.Bookmark
		if err := rows.Scan(&b.UserID, &b.JobID, &b.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
