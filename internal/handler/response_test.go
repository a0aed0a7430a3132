package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freelancehub/internal/service"
	"freelancehub/pkg/rbac"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&service.Error{Kind: service.ErrValidation, Msg: "bad"}, http.StatusBadRequest},
		{&service.Error{Kind: service.ErrPrecondition, Msg: "not yet"}, http.StatusBadRequest},
		{&service.Error{Kind: service.ErrUnauthorized, Msg: "who"}, http.StatusUnauthorized},
		{&service.Error{Kind: service.ErrForbidden, Msg: "no"}, http.StatusForbidden},
		{&service.Error{Kind: service.ErrNotFound, Msg: "gone"}, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", &service.Error{Kind: service.ErrConflict, Msg: "dup"}), http.StatusConflict},
		{errors.New("db exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func newContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	c, w := newContext(t)
	respondError(c, zap.NewNop(), errors.New("pq: connection refused to 10.0.0.3"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "internal server error", body["error"])

	c, w = newContext(t)
	respondError(c, zap.NewNop(), &service.Error{Kind: service.ErrNotFound, Msg: "job not found"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "job not found", decode(t, w)["error"])
}

func TestPagination(t *testing.T) {
	got := pagination(service.Page{Number: 2, Limit: 10, Total: 25}, "totalJobs")
	assert.Equal(t, 2, got["currentPage"])
	assert.Equal(t, 3, got["totalPages"])
	assert.Equal(t, 25, got["totalJobs"])
	assert.Equal(t, true, got["hasNextPage"])
	assert.Equal(t, true, got["hasPrevPage"])
}

func TestCallerRequiresAuthentication(t *testing.T) {
	c, w := newContext(t)
	_, ok := caller(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, _ = newContext(t)
	SetCaller(c, rbac.Caller{ID: 7, Role: rbac.RoleClient})
	who, ok := caller(c)
	require.True(t, ok)
	assert.Equal(t, int64(7), who.ID)
}

func TestPathID(t *testing.T) {
	c, w := newContext(t)
	c.Params = gin.Params{{Key: "id", Value: "-3"}}
	_, ok := pathID(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, _ = newContext(t)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	id, ok := pathID(c, "id")
	require.True(t, ok)
	assert.Equal(t, int64(42), id)
}
