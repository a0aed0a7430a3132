package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"freelancehub/internal/model"
)

type proposalRepo struct{ q querier }

const proposalColumns = `id, job_id, freelancer_id, cover_letter, bid_amount, bid_currency,
        estimated_duration, status, created_at, updated_at`

func scanProposal(row pgx.Row) (*model.Proposal, error) {
	var p model.Proposal
	err := row.Scan(
		&p.ID,
		&p.JobID,
		&p.FreelancerID,
		&p.CoverLetter,
		&p.BidAmount.Amount,
		&p.BidAmount.Currency,
		&p.EstimatedDuration,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r proposalRepo) Create(ctx context.Context, p *model.Proposal) error {
	query := `
        INSERT INTO proposals (job_id, freelancer_id, cover_letter, bid_amount, bid_currency, estimated_duration, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at
    `
	err := r.q.QueryRow(ctx, query,
		p.JobID,
		p.FreelancerID,
		p.CoverLetter,
		p.BidAmount.Amount,
		p.BidAmount.Currency,
		p.EstimatedDuration,
		p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return mapErr(err)
}

func (r proposalRepo) GetByID(ctx context.Context, id int64) (*model.Proposal, error) {
	return scanProposal(r.q.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
}

func (r proposalRepo) ListByFreelancer(ctx context.Context, freelancerID int64) ([]model.Proposal, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE freelancer_id = $1 ORDER BY id DESC`, freelancerID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []model.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r proposalRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	return expectOne(r.q.Exec(ctx, `UPDATE proposals SET status = $2, updated_at = NOW() WHERE id = $1`, id, status))
}

func (r proposalRepo) DeleteByJob(ctx context.Context, jobID int64) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM proposals WHERE job_id = $1`, jobID)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}
