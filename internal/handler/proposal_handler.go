package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelancehub/internal/service"
)

type ProposalHandler struct {
	proposals *service.ProposalService
	logger    *zap.Logger
}

func NewProposalHandler(proposals *service.ProposalService, logger *zap.Logger) *ProposalHandler {
	return &ProposalHandler{proposals: proposals, logger: logger}
}

func (h *ProposalHandler) Mine(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	proposals, err := h.proposals.Mine(c.Request.Context(), who)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"proposals": proposals})
}

func (h *ProposalHandler) Get(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.proposals.Get(c.Request.Context(), who, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"proposal": p})
}

// UpdateStatus handles PATCH /api/proposals/:id/status
func (h *ProposalHandler) UpdateStatus(c *gin.Context) {
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
	p, err := h.proposals.UpdateStatus(c.Request.Context(), who, id, req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "proposal status updated", "proposal": p})
}
