package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
)

func TestBuildJobWhere(t *testing.T) {
	min := 100.0
	where, args := buildJobWhere(model.JobFilter{
		Status:    model.JobStatusOpen,
		Query:     "golang",
		Skills:    []string{"go"},
		MinBudget: &min,
	})

	assert.Equal(t,
		` WHERE j.status = $1 AND j.budget_max >= $2 AND (j.title ILIKE $3 ESCAPE '\' OR j.description ILIKE $3 ESCAPE '\') AND j.skills_required && $4`,
		where)
	assert.Equal(t, []any{model.JobStatusOpen, 100.0, "%golang%", []string{"go"}}, args)

	where, args = buildJobWhere(model.JobFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildJobWhereMatchesWildcardsLiterally(t *testing.T) {
	_, args := buildJobWhere(model.JobFilter{Query: `100%_off\`})
	assert.Equal(t, []any{`%100\%\_off\\%`}, args)
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(pgx.ErrNoRows), repository.ErrNotFound)
	assert.ErrorIs(t, mapErr(fmt.Errorf("scan: %w", pgx.ErrNoRows)), repository.ErrNotFound)

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "proposals_job_id_freelancer_id_key"}
	assert.ErrorIs(t, mapErr(dup), repository.ErrDuplicate)

	fk := &pgconn.PgError{Code: "23503"}
	assert.ErrorIs(t, mapErr(fk), repository.ErrNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, mapErr(other))
}

func TestSchemaIsEmbedded(t *testing.T) {
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS outbox_events")
	assert.Contains(t, schema, "UNIQUE (job_id, freelancer_id)")
}
