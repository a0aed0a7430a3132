package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
)

func TestCreateJobValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*JobInput)
	}{
		{"min above max", func(in *JobInput) { in.Budget = model.Budget{Min: 600, Max: 500} }},
		{"negative budget", func(in *JobInput) { in.Budget = model.Budget{Min: -1, Max: 10} }},
		{"unknown category", func(in *JobInput) { in.Category = "knitting" }},
		{"unknown timeline", func(in *JobInput) { in.Timeline = "someday" }},
		{"unknown experience", func(in *JobInput) { in.ExperienceLevel = "guru" }},
		{"unknown budget type", func(in *JobInput) { in.BudgetType = "barter" }},
		{"missing title", func(in *JobInput) { in.Title = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validJob()
			tt.mutate(&in)
			_, err := f.jobs.Create(f.ctx, f.client, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateJobDefaults(t *testing.T) {
	f := newFixture(t)

	in := validJob()
	in.SkillsRequired = []string{" go ", "", "sql"}
	j, err := f.jobs.Create(f.ctx, f.client, in)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusOpen, j.Status)
	assert.Equal(t, "USD", j.Budget.Currency)
	assert.Equal(t, []string{"go", "sql"}, j.SkillsRequired)
	assert.Equal(t, f.client.ID, j.ClientID)

	_, err = f.jobs.Create(f.ctx, f.freelancer, validJob())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestOnlyOwnerChangesJob(t *testing.T) {
	f := newFixture(t)
	j := f.postJob(t)

	_, err := f.jobs.UpdateStatus(f.ctx, f.stranger, j.ID, model.JobStatusClosed)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.jobs.UpdateStatus(f.ctx, f.freelancer, j.ID, model.JobStatusClosed)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.jobs.UpdateStatus(f.ctx, f.client, j.ID, "archived")
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := f.jobs.UpdateStatus(f.ctx, f.client, j.ID, model.JobStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusClosed, updated.Status)

	in := validJob()
	in.Budget = model.Budget{Min: 900, Max: 10}
	_, err = f.jobs.Update(f.ctx, f.client, j.ID, in)
	assert.ErrorIs(t, err, ErrValidation)

	in = validJob()
	in.Title = "Rebuild the landing page"
	_, err = f.jobs.Update(f.ctx, f.stranger, j.ID, in)
	assert.ErrorIs(t, err, ErrForbidden)
	updated, err = f.jobs.Update(f.ctx, f.client, j.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Rebuild the landing page", updated.Title)

	err = f.jobs.Delete(f.ctx, f.stranger, j.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteJobRemovesProposals(t *testing.T) {
	f := newFixture(t)
	j := f.postJob(t)
	p := f.apply(t, j.ID, 200)
	require.NoError(t, f.bookmarks.Add(f.ctx, f.freelancer, j.ID))

	require.NoError(t, f.jobs.Delete(f.ctx, f.client, j.ID))

	_, err := f.store.Proposals().GetByID(f.ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.jobs.Get(f.ctx, j.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	marked, err := f.bookmarks.List(f.ctx, f.freelancer)
	require.NoError(t, err)
	assert.Empty(t, marked)
}

func TestDeleteJobWithContractRefused(t *testing.T) {
	f := newFixture(t)
	c := f.newContract(t, 100)

	err := f.jobs.Delete(f.ctx, f.client, c.JobID)
	assert.ErrorIs(t, err, ErrPrecondition)

	_, err = f.proposals.Get(f.ctx, f.freelancer, c.ProposalID)
	assert.NoError(t, err)
}

func TestSearchJobs(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		f.postJob(t)
	}
	closed := f.postJob(t)
	_, err := f.jobs.UpdateStatus(f.ctx, f.client, closed.ID, model.JobStatusClosed)
	require.NoError(t, err)

	jobs, page, err := f.jobs.Search(f.ctx, SearchInput{Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, jobs, 5)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 3, page.TotalPages())
	assert.True(t, page.HasNext())
	assert.True(t, page.HasPrev())

	jobs, page, err = f.jobs.Search(f.ctx, SearchInput{Status: model.JobStatusClosed})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, closed.ID, jobs[0].ID)
	assert.Equal(t, 10, page.Limit)

	_, _, err = f.jobs.Search(f.ctx, SearchInput{Status: "bogus"})
	assert.ErrorIs(t, err, ErrValidation)

	lo, hi := 500.0, 100.0
	_, _, err = f.jobs.Search(f.ctx, SearchInput{MinBudget: &lo, MaxBudget: &hi})
	assert.ErrorIs(t, err, ErrValidation)

	mine, err := f.jobs.Mine(f.ctx, f.client)
	require.NoError(t, err)
	assert.Len(t, mine, 13)
}

func TestNewPageBounds(t *testing.T) {
	p := newPage(0, 0)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, 0, p.TotalPages())
	assert.False(t, p.HasNext())

	p = newPage(3, 1000)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, 200, p.Offset())
}

func TestSkillsMatchRegardlessOfCase(t *testing.T) {
	f := newFixture(t)

	in := validJob()
	in.SkillsRequired = []string{"Go", " PostgreSQL ", "go"}
	j, err := f.jobs.Create(f.ctx, f.client, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "postgresql"}, j.SkillsRequired)

	jobs, page, err := f.jobs.Search(f.ctx, SearchInput{Skills: []string{"GO"}})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, jobs, 1)
	assert.Equal(t, j.ID, jobs[0].ID)

	jobs, _, err = f.jobs.Search(f.ctx, SearchInput{Skills: []string{"rust"}})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}
