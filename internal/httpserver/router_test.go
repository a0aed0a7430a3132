package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/handler"
	"freelancehub/internal/model"
	"freelancehub/internal/repository/memory"
	"freelancehub/internal/service"
	"freelancehub/internal/storage"
	"freelancehub/pkg/config"
	"freelancehub/pkg/mq"
	"freelancehub/pkg/outbox"
	"freelancehub/pkg/util"
)

const cookieName = "session"

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	engine *gin.Engine
	store  *memory.Store
}

func newTestServer(t *testing.T, ready ...Pinger) *testServer {
	t.Helper()
	return newTestServerWithJWT(t, config.JWTConfig{Secret: "test", TTL: time.Hour, CookieName: cookieName}, ready...)
}

func newTestServerWithJWT(t *testing.T, jwtCfg config.JWTConfig, ready ...Pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	store := memory.New()
	files := storage.New(afero.NewMemMapFs(), "/uploads", 1<<20, logger)

	auth := service.NewAuthService(store, memory.NewVerificationTokens(), jwtCfg, logger)
	proposals := service.NewProposalService(store, logger)
	replay := outbox.NewReplayService(store, noopPublisher{}, logger)

	h := Handlers{
		Auth:          handler.NewAuthHandler(auth, jwtCfg, logger),
		Users:         handler.NewUserHandler(service.NewUserService(store, logger), logger),
		Jobs:          handler.NewJobHandler(service.NewJobService(store, logger), proposals, logger),
		Proposals:     handler.NewProposalHandler(proposals, logger),
		Contracts:     handler.NewContractHandler(service.NewContractService(store, files, logger), logger),
		Notifications: handler.NewNotificationHandler(service.NewNotificationService(store, logger), logger),
		Messages:      handler.NewMessageHandler(service.NewMessageService(store, logger), logger),
		Bookmarks:     handler.NewBookmarkHandler(service.NewBookmarkService(store, logger), logger),
		Admin:         handler.NewAdminHandler(replay, logger),
	}
	engine := NewRouter(h, auth, Options{CookieName: cookieName, MaxUploadBytes: 1 << 20}, ready, logger)
	return &testServer{engine: engine, store: store}
}

type noopPublisher struct{}

func (noopPublisher) PublishWithContext(context.Context, string, any) error { return nil }

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	out := map[string]any{}
	if ct := w.Header().Get("Content-Type"); len(ct) >= 16 && ct[:16] == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

// signup registers through the API and logs in, returning the bearer token.
func (s *testServer) signup(t *testing.T, email, role string) string {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "correct-horse", "name": "Test User", "role": role,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code)
	return body["token"].(string)
}

// verificationToken reads the token carried by the newest pending user.registered event.
func (s *testServer) verificationToken(t *testing.T) string {
	t.Helper()
	events, err := s.store.GetPendingEvents(context.Background(), 100)
	require.NoError(t, err)
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].RoutingKey != mqcontracts.EventUserRegistered {
			continue
		}
		var evt mq.Event
		require.NoError(t, json.Unmarshal(events[i].Payload, &evt))
		var payload mqcontracts.UserRegisteredPayload
		require.NoError(t, json.Unmarshal(evt.Data, &payload))
		return payload.VerificationToken
	}
	t.Fatal("no user.registered event recorded")
	return ""
}

func jobBody(title string) map[string]any {
	return map[string]any{
		"title":            title,
		"description":      "Responsive marketing site",
		"category":         "web-development",
		"skills_required":  []string{"html", "css"},
		"budget":           map[string]any{"min": 100, "max": 500},
		"budget_type":      model.BudgetTypeFixed,
		"timeline":         "1-2-weeks",
		"experience_level": "entry",
	}
}

func id(v any) int64 {
	return int64(v.(map[string]any)["id"].(float64))
}

func TestHealthAndReadiness(t *testing.T) {
	healthy := true
	srv := newTestServer(t, pingerFunc(func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("db down")
	}))

	w, body := srv.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	w, _ = srv.do(t, http.MethodHead, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = srv.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", body["status"])

	healthy = false
	w, body = srv.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "not_ready", body["status"])

	w, _ = srv.do(t, http.MethodGet, "/healthz", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestAuthCookieAndProtectedRoutes(t *testing.T) {
	srv := newTestServer(t)

	w, body := srv.do(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, body["success"])

	w, _ = srv.do(t, http.MethodGet, "/api/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	srv.signup(t, "client@example.com", model.RoleClient)

	w, _ = srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "client@example.com", "password": "correct-horse", "name": "Again", "role": model.RoleClient,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "client@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "client@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(session)
	w, body = srv.serve(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	user := body["user"].(map[string]any)
	assert.Equal(t, "client@example.com", user["email"])
	_, leaked := user["password_hash"]
	assert.False(t, leaked)
}

func TestJobSearchPagination(t *testing.T) {
	srv := newTestServer(t)
	client := srv.signup(t, "client@example.com", model.RoleClient)
	freelancer := srv.signup(t, "dev@example.com", model.RoleFreelancer)

	for i := 0; i < 3; i++ {
		w, _ := srv.do(t, http.MethodPost, "/api/jobs", client, jobBody(fmt.Sprintf("Job %d", i)))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, _ := srv.do(t, http.MethodPost, "/api/jobs", freelancer, jobBody("Not allowed"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = srv.do(t, http.MethodPost, "/api/jobs", client, map[string]any{"title": "missing fields"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := srv.do(t, http.MethodGet, "/api/jobs?limit=2&page=1", freelancer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["jobs"], 2)
	p := body["pagination"].(map[string]any)
	assert.Equal(t, float64(3), p["totalJobs"])
	assert.Equal(t, float64(2), p["totalPages"])
	assert.Equal(t, true, p["hasNextPage"])
	assert.Equal(t, false, p["hasPrevPage"])

	w, _ = srv.do(t, http.MethodGet, "/api/jobs?minBudget=abc", freelancer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = srv.do(t, http.MethodGet, "/api/jobs/abc", freelancer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = srv.do(t, http.MethodGet, "/api/jobs/9999", freelancer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutesRequireReplayPermission(t *testing.T) {
	srv := newTestServer(t)
	client := srv.signup(t, "client@example.com", model.RoleClient)

	w, _ := srv.do(t, http.MethodPost, "/admin/outbox/replay-failed", client, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	hash, err := util.HashPassword("correct-horse")
	require.NoError(t, err)
	require.NoError(t, srv.store.Users().Create(context.Background(), &model.User{
		Email: "admin@example.com", PasswordHash: hash, Name: "Admin", Role: model.RoleAdmin, Verified: true,
	}))
	w, body := srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code)
	admin := body["token"].(string)

	w, body = srv.do(t, http.MethodPost, "/admin/outbox/replay-failed", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["success_count"])

	w, _ = srv.do(t, http.MethodPost, "/admin/outbox/replay?id=9999", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = srv.do(t, http.MethodPost, "/admin/outbox/replay", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContractSubmitAndDownloadOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := srv.signup(t, "client@example.com", model.RoleClient)
	freelancer := srv.signup(t, "dev@example.com", model.RoleFreelancer)

	_, body := srv.do(t, http.MethodPost, "/api/jobs", client, jobBody("Landing page"))
	jobID := id(body["job"])

	w, body := srv.do(t, http.MethodPost, fmt.Sprintf("/api/jobs/%d/apply", jobID), freelancer, map[string]any{
		"cover_letter": "I can do this", "bid_amount": map[string]any{"amount": 300}, "estimated_duration": "1 week",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	proposalID := id(body["proposal"])

	w, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/jobs/%d/apply", jobID), freelancer, map[string]any{
		"cover_letter": "again", "bid_amount": map[string]any{"amount": 300}, "estimated_duration": "1 week",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = srv.do(t, http.MethodPost, fmt.Sprintf("/api/contracts/proposals/%d", proposalID), client, map[string]any{
		"title": "Landing page", "scope": "Design and build", "terms": "Net 7", "total_amount": 300,
		"milestones": []map[string]any{{"title": "Delivery", "description": "Ship it", "amount": 300, "due_date": "2026-12-01"}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	contract := body["contract"].(map[string]any)
	contractID := int64(contract["id"].(float64))
	milestoneID := id(contract["milestones"].([]any)[0])

	w, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/contracts/%d/fund", contractID), freelancer, map[string]any{"amount": 300})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/contracts/%d/fund", contractID), client, map[string]any{"amount": 300})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/contracts/%d/activate", contractID), client, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("files", "design notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("comments", "first cut"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/contracts/%d/milestones/%d/submit", contractID, milestoneID), &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+freelancer)
	w, body = srv.serve(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	milestone := body["milestone"].(map[string]any)
	assert.Equal(t, model.MilestoneStatusSubmitted, milestone["status"])
	submission := milestone["current_submission"].(map[string]any)
	assert.Equal(t, "first cut", submission["comments"])
	fileID := submission["files"].([]any)[0].(map[string]any)["id"].(string)

	downloadPath := fmt.Sprintf("/api/contracts/%d/milestones/%d/files/%s", contractID, milestoneID, fileID)
	w, _ = srv.do(t, http.MethodGet, downloadPath, client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	assert.Equal(t, `attachment; filename="design notes.txt"`, w.Header().Get("Content-Disposition"))

	outsider := srv.signup(t, "other@example.com", model.RoleClient)
	w, _ = srv.do(t, http.MethodGet, downloadPath, outsider, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/contracts/%d/milestones/%d/release", contractID, milestoneID), client, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/contracts/%d/milestones/%d/review", contractID, milestoneID), client,
		map[string]string{"status": model.SubmissionStatusApproved})
	require.Equal(t, http.StatusOK, w.Code)
	w, body = srv.do(t, http.MethodPost, fmt.Sprintf("/api/contracts/%d/milestones/%d/release", contractID, milestoneID), client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["contract"].(map[string]any)["escrow_balance"])

	w, body = srv.do(t, http.MethodPost, fmt.Sprintf("/api/contracts/%d/complete", contractID), client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.ContractStatusCompleted, body["contract"].(map[string]any)["status"])
}

func TestUnverifiedCallersAreRejectedWhenVerificationIsRequired(t *testing.T) {
	srv := newTestServerWithJWT(t, config.JWTConfig{
		Secret: "test", TTL: time.Hour, CookieName: cookieName, RequireVerified: true,
	})

	token := srv.signup(t, "unverified@example.com", model.RoleClient)
	w, body := srv.do(t, http.MethodPost, "/api/jobs", token, jobBody("Landing page"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, body["success"])

	w, _ = srv.do(t, http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = srv.do(t, http.MethodGet, "/api/auth/verify?token="+srv.verificationToken(t), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, body = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "unverified@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code)
	verified := body["token"].(string)

	w, _ = srv.do(t, http.MethodPost, "/api/jobs", verified, jobBody("Landing page"))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func oversizedSubmission(t *testing.T, token string) *http.Request {
	t.Helper()
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("files", "huge.bin")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 3<<20))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/contracts/1/milestones/1/submit", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestSubmitRejectsOversizedBody(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t, "big@example.com", model.RoleFreelancer)

	w, body := srv.serve(t, oversizedSubmission(t, token))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, false, body["success"])

	// no Content-Length: the limit trips while the form is parsed
	req := oversizedSubmission(t, token)
	req.ContentLength = -1
	w, _ = srv.serve(t, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
