package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"freelancehub/internal/model"
)

type jobRepo struct{ q querier }

const jobColumns = `j.id, j.client_id, j.title, j.description, j.category, j.skills_required,
        j.budget_min, j.budget_max, j.currency, j.budget_type, j.timeline, j.experience_level,
        j.status, j.location, j.created_at, j.updated_at,
        (SELECT COUNT(*) FROM job_applications a WHERE a.job_id = j.id)`

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	err := row.Scan(
		&j.ID,
		&j.ClientID,
		&j.Title,
		&j.Description,
		&j.Category,
		&j.SkillsRequired,
		&j.Budget.Min,
		&j.Budget.Max,
		&j.Budget.Currency,
		&j.BudgetType,
		&j.Timeline,
		&j.ExperienceLevel,
		&j.Status,
		&j.Location,
		&j.CreatedAt,
		&j.UpdatedAt,
		&j.ApplicationCount,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &j, nil
}

func collectJobs(rows pgx.Rows, err error) ([]model.Job, error) {
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (r jobRepo) Create(ctx context.Context, j *model.Job) error {
	query := `
        INSERT INTO jobs (client_id, title, description, category, skills_required, budget_min, budget_max,
                          currency, budget_type, timeline, experience_level, status, location)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id, created_at, updated_at
    `
	err := r.q.QueryRow(ctx, query,
		j.ClientID,
		j.Title,
		j.Description,
		j.Category,
		j.SkillsRequired,
		j.Budget.Min,
		j.Budget.Max,
		j.Budget.Currency,
		j.BudgetType,
		j.Timeline,
		j.ExperienceLevel,
		j.Status,
		j.Location,
	).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	return mapErr(err)
}

func (r jobRepo) GetByID(ctx context.Context, id int64) (*model.Job, error) {
	return scanJob(r.q.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs j WHERE j.id = $1`, id))
}

func (r jobRepo) Update(ctx context.Context, j *model.Job) error {
	query := `
        UPDATE jobs
        SET title = $2, description = $3, category = $4, skills_required = $5, budget_min = $6,
            budget_max = $7, currency = $8, budget_type = $9, timeline = $10, experience_level = $11,
            location = $12, updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `
	err := r.q.QueryRow(ctx, query,
		j.ID,
		j.Title,
		j.Description,
		j.Category,
		j.SkillsRequired,
		j.Budget.Min,
		j.Budget.Max,
		j.Budget.Currency,
		j.BudgetType,
		j.Timeline,
		j.ExperienceLevel,
		j.Location,
	).Scan(&j.UpdatedAt)
	return mapErr(err)
}

func (r jobRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	return expectOne(r.q.Exec(ctx, `UPDATE jobs SET status = $2, updated_at = NOW() WHERE id = $1`, id, status))
}

// Delete relies on ON DELETE CASCADE for applications and bookmarks.
func (r jobRepo) Delete(ctx context.Context, id int64) error {
	return expectOne(r.q.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id))
}

// likeEscaper makes user input match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

var jobOrder = map[string]string{
	model.SortNewest:     "j.created_at DESC, j.id DESC",
	model.SortOldest:     "j.created_at ASC, j.id ASC",
	model.SortBudgetHigh: "j.budget_max DESC, j.id DESC",
	model.SortBudgetLow:  "j.budget_min ASC, j.id DESC",
}

func buildJobWhere(f model.JobFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("j.status = $%d", f.Status)
	}
	if f.Category != "" {
		add("j.category = $%d", f.Category)
	}
	if f.BudgetType != "" {
		add("j.budget_type = $%d", f.BudgetType)
	}
	if f.ExperienceLevel != "" {
		add("j.experience_level = $%d", f.ExperienceLevel)
	}
	if f.Timeline != "" {
		add("j.timeline = $%d", f.Timeline)
	}
	if f.MinBudget != nil {
		add("j.budget_max >= $%d", *f.MinBudget)
	}
	if f.MaxBudget != nil {
		add("j.budget_min <= $%d", *f.MaxBudget)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+likeEscaper.Replace(q)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(j.title ILIKE $%d ESCAPE '\' OR j.description ILIKE $%d ESCAPE '\')`, n, n))
	}
	if len(f.Skills) > 0 {
		add("j.skills_required && $%d", f.Skills)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r jobRepo) Search(ctx context.Context, f model.JobFilter) ([]model.Job, int, error) {
	where, args := buildJobWhere(f)

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM jobs j`+where, args...).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	order, ok := jobOrder[f.Sort]
	if !ok {
		order = jobOrder[model.SortNewest]
	}
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM jobs j%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		jobColumns, where, order, len(args)-1, len(args))

	jobs, err := collectJobs(r.q.Query(ctx, query, args...))
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (r jobRepo) ListByClient(ctx context.Context, clientID int64) ([]model.Job, error) {
	return collectJobs(r.q.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs j WHERE j.client_id = $1 ORDER BY j.created_at DESC, j.id DESC`, clientID))
}

func (r jobRepo) AddApplication(ctx context.Context, a *model.Application) error {
	query := `
        INSERT INTO job_applications (job_id, freelancer_id, proposal_id, proposal_text, proposed_budget,
                                      estimated_duration, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, applied_at
    `
	err := r.q.QueryRow(ctx, query,
		a.JobID,
		a.FreelancerID,
		nullableID(a.ProposalID),
		a.ProposalText,
		a.ProposedBudget,
		a.EstimatedDuration,
		a.Status,
	).Scan(&a.ID, &a.AppliedAt)
	return mapErr(err)
}

func (r jobRepo) ListApplications(ctx context.Context, jobID int64, offset, limit int) ([]model.Application, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM job_applications WHERE job_id = $1`, jobID).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	query := `
        SELECT id, job_id, freelancer_id, COALESCE(proposal_id, 0), proposal_text, proposed_budget,
               estimated_duration, status, applied_at
        FROM job_applications
        WHERE job_id = $1
        ORDER BY applied_at ASC, id ASC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.q.Query(ctx, query, jobID, limit, offset)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	apps := []model.Application{}
	for rows.Next() {
		var a model.Application
		if err := rows.Scan(
			&a.ID,
			&a.JobID,
			&a.FreelancerID,
			&a.ProposalID,
			&a.ProposalText,
			&a.ProposedBudget,
			&a.EstimatedDuration,
			&a.Status,
			&a.AppliedAt,
		); err != nil {
			return nil, 0, mapErr(err)
		}
		apps = append(apps, a)
	}
	return apps, total, rows.Err()
}

func (r jobRepo) UpdateApplicationStatus(ctx context.Context, proposalID int64, status string) error {
	return expectOne(r.q.Exec(ctx, `UPDATE job_applications SET status = $2 WHERE proposal_id = $1`, proposalID, status))
}
