package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
)

type contractRepo struct{ q querier }

const contractColumns = `id, job_id, proposal_id, client_id, freelancer_id, title, scope, terms, total_amount,
        status, escrow_balance, start_date, end_date, version, created_at, updated_at`

const milestoneColumns = `id, contract_id, position, title, description, amount, due_date, status,
        current_submission, submission_history, version, created_at, updated_at`

func scanContract(row pgx.Row) (*model.Contract, error) {
	var c model.Contract
	err := row.Scan(
		&c.ID,
		&c.JobID,
		&c.ProposalID,
		&c.ClientID,
		&c.FreelancerID,
		&c.Title,
		&c.Scope,
		&c.Terms,
		&c.TotalAmount,
		&c.Status,
		&c.EscrowBalance,
		&c.StartDate,
		&c.EndDate,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func scanMilestone(row pgx.Row) (*model.Milestone, error) {
	var m model.Milestone
	err := row.Scan(
		&m.ID,
		&m.ContractID,
		&m.Position,
		&m.Title,
		&m.Description,
		&m.Amount,
		&m.DueDate,
		&m.Status,
		&m.CurrentSubmission,
		&m.SubmissionHistory,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

func (r contractRepo) loadMilestones(ctx context.Context, c *model.Contract) error {
	rows, err := r.q.Query(ctx,
		`SELECT `+milestoneColumns+` FROM milestones WHERE contract_id = $1 ORDER BY position ASC`, c.ID)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()

	c.Milestones = []model.Milestone{}
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return err
		}
		c.Milestones = append(c.Milestones, *m)
	}
	return rows.Err()
}

func (r contractRepo) get(ctx context.Context, query string, arg any) (*model.Contract, error) {
	c, err := scanContract(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	if err := r.loadMilestones(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Create must run inside a transaction so the contract and milestones land together.
func (r contractRepo) Create(ctx context.Context, c *model.Contract) error {
	query := `
        INSERT INTO contracts (job_id, proposal_id, client_id, freelancer_id, title, scope, terms,
                               total_amount, status, escrow_balance)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, version, created_at, updated_at
    `
	err := r.q.QueryRow(ctx, query,
		c.JobID,
		c.ProposalID,
		c.ClientID,
		c.FreelancerID,
		c.Title,
		c.Scope,
		c.Terms,
		c.TotalAmount,
		c.Status,
		c.EscrowBalance,
	).Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}

	for i := range c.Milestones {
		m := &c.Milestones[i]
		m.ContractID = c.ID
		m.Position = i
		if err := r.insertMilestone(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r contractRepo) insertMilestone(ctx context.Context, m *model.Milestone) error {
	if m.SubmissionHistory == nil {
		m.SubmissionHistory = []model.Submission{}
	}
	query := `
        INSERT INTO milestones (contract_id, position, title, description, amount, due_date, status,
                                current_submission, submission_history)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, version, created_at, updated_at
    `
	err := r.q.QueryRow(ctx, query,
		m.ContractID,
		m.Position,
		m.Title,
		m.Description,
		m.Amount,
		m.DueDate,
		m.Status,
		m.CurrentSubmission,
		m.SubmissionHistory,
	).Scan(&m.ID, &m.Version, &m.CreatedAt, &m.UpdatedAt)
	return mapErr(err)
}

func (r contractRepo) GetByID(ctx context.Context, id int64) (*model.Contract, error) {
	return r.get(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
}

func (r contractRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Contract, error) {
	return r.get(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1 FOR UPDATE`, id)
}

func (r contractRepo) GetByProposalID(ctx context.Context, proposalID int64) (*model.Contract, error) {
	return r.get(ctx, `SELECT `+contractColumns+` FROM contracts WHERE proposal_id = $1`, proposalID)
}

func (r contractRepo) ListByUser(ctx context.Context, userID int64) ([]model.Contract, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE client_id = $1 OR freelancer_id = $1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}

	var contracts []model.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}

	// a tx connection runs one query at a time, so milestones load after rows are closed
	for i := range contracts {
		if err := r.loadMilestones(ctx, &contracts[i]); err != nil {
			return nil, err
		}
	}
	if contracts == nil {
		contracts = []model.Contract{}
	}
	return contracts, nil
}

func (r contractRepo) CountByJob(ctx context.Context, jobID int64) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM contracts WHERE job_id = $1`, jobID).Scan(&n)
	return n, mapErr(err)
}

func (r contractRepo) Update(ctx context.Context, c *model.Contract) error {
	query := `
        UPDATE contracts
        SET status = $3, escrow_balance = $4, start_date = $5, end_date = $6,
            version = version + 1, updated_at = NOW()
        WHERE id = $1 AND version = $2
        RETURNING version, updated_at
    `
	err := r.q.QueryRow(ctx, query, c.ID, c.Version, c.Status, c.EscrowBalance, c.StartDate, c.EndDate).
		Scan(&c.Version, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.conflictOrMissing(ctx, `SELECT 1 FROM contracts WHERE id = $1`, c.ID)
	}
	return mapErr(err)
}

func (r contractRepo) AddMilestone(ctx context.Context, m *model.Milestone) error {
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM milestones WHERE contract_id = $1`, m.ContractID).
		Scan(&m.Position)
	if err != nil {
		return mapErr(err)
	}
	return r.insertMilestone(ctx, m)
}

func (r contractRepo) UpdateMilestone(ctx context.Context, m *model.Milestone) error {
	if m.SubmissionHistory == nil {
		m.SubmissionHistory = []model.Submission{}
	}
	query := `
        UPDATE milestones
        SET status = $3, current_submission = $4, submission_history = $5,
            version = version + 1, updated_at = NOW()
        WHERE id = $1 AND version = $2
        RETURNING version, updated_at
    `
	err := r.q.QueryRow(ctx, query, m.ID, m.Version, m.Status, m.CurrentSubmission, m.SubmissionHistory).
		Scan(&m.Version, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.conflictOrMissing(ctx, `SELECT 1 FROM milestones WHERE id = $1`, m.ID)
	}
	return mapErr(err)
}

// conflictOrMissing tells a stale version apart from a deleted row.
func (r contractRepo) conflictOrMissing(ctx context.Context, query string, id int64) error {
	var one int
	if err := r.q.QueryRow(ctx, query, id).Scan(&one); err != nil {
		return mapErr(err)
	}
	return repository.ErrConflict
}
