package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freelancehub/internal/model"
	"freelancehub/internal/repository/memory"
	"freelancehub/internal/storage"
	"freelancehub/pkg/config"
	"freelancehub/pkg/rbac"
)

type fixture struct {
	ctx   context.Context
	store *memory.Store
	files *storage.FileStore

	auth          *AuthService
	users         *UserService
	jobs          *JobService
	proposals     *ProposalService
	contracts     *ContractService
	notifications *NotificationService
	messages      *MessageService
	bookmarks     *BookmarkService

	client     rbac.Caller
	freelancer rbac.Caller
	stranger   rbac.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := memory.New()
	files := storage.New(afero.NewMemMapFs(), "/uploads", 1<<20, logger)

	f := &fixture{
		ctx:           context.Background(),
		store:         store,
		files:         files,
		auth:          NewAuthService(store, memory.NewVerificationTokens(), config.JWTConfig{Secret: "test", TTL: time.Hour}, logger),
		users:         NewUserService(store, logger),
		jobs:          NewJobService(store, logger),
		proposals:     NewProposalService(store, logger),
		contracts:     NewContractService(store, files, logger),
		notifications: NewNotificationService(store, logger),
		messages:      NewMessageService(store, logger),
		bookmarks:     NewBookmarkService(store, logger),
	}
	f.client = f.addUser(t, "client@example.com", model.RoleClient)
	f.freelancer = f.addUser(t, "dev@example.com", model.RoleFreelancer)
	f.stranger = f.addUser(t, "other@example.com", model.RoleClient)
	return f
}

func (f *fixture) addUser(t *testing.T, email, role string) rbac.Caller {
	t.Helper()
	u := &model.User{Email: email, Name: strings.Split(email, "@")[0], Role: role, Verified: true}
	require.NoError(t, f.store.Users().Create(f.ctx, u))
	return rbac.Caller{ID: u.ID, Role: role, Verified: true}
}

func validJob() JobInput {
	return JobInput{
		Title:           "Build a landing page",
		Description:     "Responsive marketing site",
		Category:        "web-development",
		SkillsRequired:  []string{"html", "css"},
		Budget:          model.Budget{Min: 100, Max: 500},
		BudgetType:      model.BudgetTypeFixed,
		Timeline:        "1-2-weeks",
		ExperienceLevel: "entry",
	}
}

func (f *fixture) postJob(t *testing.T) *model.Job {
	t.Helper()
	j, err := f.jobs.Create(f.ctx, f.client, validJob())
	require.NoError(t, err)
	return j
}

func (f *fixture) apply(t *testing.T, jobID int64, bid float64) *model.Proposal {
	t.Helper()
	p, err := f.proposals.Apply(f.ctx, f.freelancer, jobID, ApplyInput{
		CoverLetter:       "I can do this",
		BidAmount:         model.Money{Amount: bid},
		EstimatedDuration: "1 week",
	})
	require.NoError(t, err)
	return p
}

func contractInput(amounts ...float64) ContractInput {
	in := ContractInput{Title: "Landing page", Scope: "Design and build", Terms: "Net 7"}
	for _, a := range amounts {
		in.TotalAmount += a
		in.Milestones = append(in.Milestones, MilestoneInput{
			Title:       "Delivery",
			Description: "Ship it",
			Amount:      a,
			DueDate:     "2026-12-01",
		})
	}
	return in
}

// newContract posts a job, applies and creates a contract with the given milestone amounts.
func (f *fixture) newContract(t *testing.T, amounts ...float64) *model.Contract {
	t.Helper()
	job := f.postJob(t)
	p := f.apply(t, job.ID, amounts[0])
	c, err := f.contracts.Create(f.ctx, f.client, p.ID, contractInput(amounts...))
	require.NoError(t, err)
	return c
}

func upload(name, body string) FileUpload {
	return FileUpload{
		Filename: name,
		Mimetype: "text/plain",
		Size:     int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func brokenUpload(name string) FileUpload {
	return FileUpload{
		Filename: name,
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("disk on fire")
		},
	}
}

// approveMilestone runs submit then approve on milestone m of contract c.
func (f *fixture) approveMilestone(t *testing.T, contractID, milestoneID int64) {
	t.Helper()
	_, err := f.contracts.SubmitWork(f.ctx, f.freelancer, contractID, milestoneID, []FileUpload{upload("work.txt", "v1")}, "done")
	require.NoError(t, err)
	_, err = f.contracts.ReviewSubmission(f.ctx, f.client, contractID, milestoneID, ReviewInput{Status: model.SubmissionStatusApproved})
	require.NoError(t, err)
}

func (f *fixture) routingKeys(t *testing.T) []string {
	t.Helper()
	events, err := f.store.GetPendingEvents(f.ctx, 1000)
	require.NoError(t, err)
	keys := make([]string, 0, len(events))
	for _, e := range events {
		keys = append(keys, e.RoutingKey)
	}
	return keys
}
