package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelancehub/internal/service"
)

type ContractHandler struct {
	contracts *service.ContractService
	logger    *zap.Logger
}

func NewContractHandler(contracts *service.ContractService, logger *zap.Logger) *ContractHandler {
	return &ContractHandler{contracts: contracts, logger: logger}
}

// Create handles POST /api/contracts/proposals/:proposalId
func (h *ContractHandler) Create(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	proposalID, ok := pathID(c, "proposalId")
	if !ok {
		return
	}
	var req service.ContractInput
	if !bindJSON(c, &req) {
		return
	}
	contract, err := h.contracts.Create(c.Request.Context(), who, proposalID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusCreated, gin.H{"message": "contract created", "contract": contract})
}

func (h *ContractHandler) List(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	contracts, err := h.contracts.ListMine(c.Request.Context(), who)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"contracts": contracts})
}

func (h *ContractHandler) Get(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	contract, err := h.contracts.Get(c.Request.Context(), who, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"contract": contract})
}

// Fund handles POST /api/contracts/:id/fund
func (h *ContractHandler) Fund(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Amount float64 `json:"amount"`
	}
	if !bindJSON(c, &req) {
		return
	}
	contract, err := h.contracts.FundEscrow(c.Request.Context(), who, id, req.Amount)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "escrow funded", "contract": contract})
}

func (h *ContractHandler) Activate(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	contract, err := h.contracts.Activate(c.Request.Context(), who, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "contract activated", "contract": contract})
}

func (h *ContractHandler) Complete(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	contract, err := h.contracts.Complete(c.Request.Context(), who, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "contract completed", "contract": contract})
}

// AddMilestone handles POST /api/contracts/:id/milestones
func (h *ContractHandler) AddMilestone(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.MilestoneInput
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.contracts.AddMilestone(c.Request.Context(), who, id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusCreated, gin.H{"message": "milestone added", "milestone": m})
}

// Submit handles the multipart POST .../milestones/:milestoneId/submit with files[] and comments.
func (h *ContractHandler) Submit(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	milestoneID, ok := pathID(c, "milestoneId")
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		if tooLarge(err) {
			fail(c, http.StatusRequestEntityTooLarge, "submission exceeds the upload limit")
			return
		}
		fail(c, http.StatusBadRequest, "expected multipart form")
		return
	}

	var uploads []service.FileUpload
	for _, key := range []string{"files", "files[]"} {
		for _, fh := range form.File[key] {
			mimetype := fh.Header.Get("Content-Type")
			if mimetype == "" {
				mimetype = "application/octet-stream"
			}
			uploads = append(uploads, service.FileUpload{
				Filename: fh.Filename,
				Mimetype: mimetype,
				Size:     fh.Size,
				Open: func() (io.ReadCloser, error) {
					f, err := fh.Open()
					if err != nil {
						return nil, err
					}
					return f, nil
				},
			})
		}
	}

	m, err := h.contracts.SubmitWork(c.Request.Context(), who, id, milestoneID, uploads, c.PostForm("comments"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "work submitted", "milestone": m})
}

// Review handles POST .../milestones/:milestoneId/review
func (h *ContractHandler) Review(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	milestoneID, ok := pathID(c, "milestoneId")
	if !ok {
		return
	}
	var req service.ReviewInput
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.contracts.ReviewSubmission(c.Request.Context(), who, id, milestoneID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "submission reviewed", "milestone": m})
}

// Release handles POST .../milestones/:milestoneId/release
func (h *ContractHandler) Release(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	milestoneID, ok := pathID(c, "milestoneId")
	if !ok {
		return
	}
	contract, err := h.contracts.ReleasePayment(c.Request.Context(), who, id, milestoneID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "payment released", "contract": contract})
}

// Download streams GET .../milestones/:milestoneId/files/:fileId as an attachment.
func (h *ContractHandler) Download(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	milestoneID, ok := pathID(c, "milestoneId")
	if !ok {
		return
	}
	file, r, err := h.contracts.Download(c.Request.Context(), who, id, milestoneID, c.Param("fileId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer r.Close()

	mimetype := file.Mimetype
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, file.Size, mimetype, r, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}),
	})
}

// tooLarge reports whether err came from an http.MaxBytesReader; multipart does not
// always keep the wrapped error.
func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}
