package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/model"
)

func TestApply(t *testing.T) {
	f := newFixture(t)
	j := f.postJob(t)

	p := f.apply(t, j.ID, 250)
	assert.Equal(t, model.ProposalStatusPending, p.Status)
	assert.Equal(t, "USD", p.BidAmount.Currency)
	assert.Equal(t, []string{mqcontracts.EventProposalSubmitted}, f.routingKeys(t))

	_, err := f.proposals.Apply(f.ctx, f.freelancer, j.ID, ApplyInput{
		CoverLetter:       "again",
		BidAmount:         model.Money{Amount: 200},
		EstimatedDuration: "2 weeks",
	})
	assert.ErrorIs(t, err, ErrConflict)

	apps, page, err := f.proposals.ListJobApplications(f.ctx, f.client, j.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, p.ID, apps[0].ProposalID)
	assert.Equal(t, 250.0, apps[0].ProposedBudget)

	_, _, err = f.proposals.ListJobApplications(f.ctx, f.stranger, j.ID, 1, 10)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestApplyPreconditions(t *testing.T) {
	f := newFixture(t)
	j := f.postJob(t)
	in := ApplyInput{CoverLetter: "hi", BidAmount: model.Money{Amount: 100}, EstimatedDuration: "1 week"}

	_, err := f.proposals.Apply(f.ctx, f.client, j.ID, in)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.proposals.Apply(f.ctx, f.freelancer, 9999, in)
	assert.ErrorIs(t, err, ErrNotFound)

	bad := in
	bad.BidAmount.Amount = 0
	_, err = f.proposals.Apply(f.ctx, f.freelancer, j.ID, bad)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.jobs.UpdateStatus(f.ctx, f.client, j.ID, model.JobStatusClosed)
	require.NoError(t, err)
	_, err = f.proposals.Apply(f.ctx, f.freelancer, j.ID, in)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestUpdateProposalStatus(t *testing.T) {
	f := newFixture(t)
	j := f.postJob(t)
	p := f.apply(t, j.ID, 100)

	_, err := f.proposals.UpdateStatus(f.ctx, f.freelancer, p.ID, model.ProposalStatusAccepted)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.proposals.UpdateStatus(f.ctx, f.client, p.ID, "maybe")
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := f.proposals.UpdateStatus(f.ctx, f.client, p.ID, model.ProposalStatusInterviewing)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusInterviewing, updated.Status)

	apps, _, err := f.proposals.ListJobApplications(f.ctx, f.client, j.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusInterviewing, apps[0].Status)

	mine, err := f.proposals.Mine(f.ctx, f.freelancer)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, model.ProposalStatusInterviewing, mine[0].Status)
}

func TestGetProposalVisibility(t *testing.T) {
	f := newFixture(t)
	j := f.postJob(t)
	p := f.apply(t, j.ID, 100)

	_, err := f.proposals.Get(f.ctx, f.freelancer, p.ID)
	assert.NoError(t, err)
	_, err = f.proposals.Get(f.ctx, f.client, p.ID)
	assert.NoError(t, err)
	_, err = f.proposals.Get(f.ctx, f.stranger, p.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.proposals.Get(f.ctx, f.client, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}
