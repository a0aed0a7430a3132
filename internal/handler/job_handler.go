package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelancehub/internal/service"
)

type JobHandler struct {
	jobs      *service.JobService
	proposals *service.ProposalService
	logger    *zap.Logger
}

func NewJobHandler(jobs *service.JobService, proposals *service.ProposalService, logger *zap.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, proposals: proposals, logger: logger}
}

func queryFloat(c *gin.Context, name string) (*float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid "+name)
		return nil, false
	}
	return &v, true
}

// querySkills accepts both skills=a,b and repeated skills=a&skills=b.
func querySkills(c *gin.Context) []string {
	var out []string
	for _, v := range c.QueryArray("skills") {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Search handles GET /api/jobs
func (h *JobHandler) Search(c *gin.Context) {
	minBudget, ok := queryFloat(c, "minBudget")
	if !ok {
		return
	}
	maxBudget, ok := queryFloat(c, "maxBudget")
	if !ok {
		return
	}

	jobs, page, err := h.jobs.Search(c.Request.Context(), service.SearchInput{
		Query:           c.Query("q"),
		Category:        c.Query("category"),
		BudgetType:      c.Query("budgetType"),
		ExperienceLevel: c.Query("experienceLevel"),
		Timeline:        c.Query("timeline"),
		Skills:          querySkills(c),
		MinBudget:       minBudget,
		MaxBudget:       maxBudget,
		Status:          c.Query("status"),
		Sort:            c.Query("sort"),
		Page:            queryInt(c, "page", 1),
		Limit:           queryInt(c, "limit", 10),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"jobs": jobs, "pagination": pagination(page, "totalJobs")})
}

func (h *JobHandler) Create(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var req service.JobInput
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.jobs.Create(c.Request.Context(), who, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusCreated, gin.H{"message": "job created", "job": job})
}

func (h *JobHandler) Mine(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	jobs, err := h.jobs.Mine(c.Request.Context(), who)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"jobs": jobs})
}

func (h *JobHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"job": job})
}

func (h *JobHandler) Update(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.JobInput
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.jobs.Update(c.Request.Context(), who, id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "job updated", "job": job})
}

// UpdateStatus handles PATCH /api/jobs/:id/status
func (h *JobHandler) UpdateStatus(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.jobs.UpdateStatus(c.Request.Context(), who, id, req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "job status updated", "job": job})
}

func (h *JobHandler) Delete(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.jobs.Delete(c.Request.Context(), who, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "job deleted"})
}

// Apply handles POST /api/jobs/:id/apply
func (h *JobHandler) Apply(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ApplyInput
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.proposals.Apply(c.Request.Context(), who, id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusCreated, gin.H{"message": "application submitted", "proposal": p})
}

// Applications handles GET /api/jobs/:id/applications
func (h *JobHandler) Applications(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	apps, page, err := h.proposals.ListJobApplications(c.Request.Context(), who, id, queryInt(c, "page", 1), queryInt(c, "limit", 10))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"applications": apps, "pagination": pagination(page, "totalApplications")})
}
