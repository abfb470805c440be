package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ishpreet160/CertFlow/internal/dto"
	"github.com/ishpreet160/CertFlow/internal/middleware"
	"github.com/ishpreet160/CertFlow/internal/service"
)

// TCILHandler serves the organization-wide reference certificates.
type TCILHandler struct {
	svc      service.ReferenceService
	maxBytes int64
}

func NewTCILHandler(svc service.ReferenceService, maxUploadBytes int64) *TCILHandler {
	return &TCILHandler{svc: svc, maxBytes: maxUploadBytes}
}

// Upload godoc
// @Summary Publish a reference certificate (PDF only)
// @Tags tcil
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param name formData string true "Name"
// @Param valid_from formData string true "YYYY-MM-DD or DD-MM-YYYY"
// @Param valid_till formData string true "YYYY-MM-DD or DD-MM-YYYY"
// @Param pdf formData file true "PDF file"
// @Success 201 {object} dto.ReferenceResponse
// @Router /v1/tcil/upload [post]
func (h *TCILHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	var form dto.ReferenceForm
	if !bindFormAndValidate(c, &form) {
		return
	}
	file, closer, err := uploadedFile(c, "pdf", false)
	if err != nil {
		respondError(c, err)
		return
	}
	defer closer.Close()

	resp, err := h.svc.Create(c.Request.Context(), middleware.MustClaims(c), form, *file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *TCILHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context(), middleware.MustClaims(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TCILHandler) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.MustClaims(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TCILHandler) Preview(c *gin.Context) { h.file(c, true) }

func (h *TCILHandler) Download(c *gin.Context) { h.file(c, false) }

func (h *TCILHandler) file(c *gin.Context, inline bool) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	f, err := h.svc.OpenFile(c.Request.Context(), middleware.MustClaims(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	serveFile(c, f, inline)
}
