package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/dto"
	"github.com/ishpreet160/CertFlow/internal/lifecycle"
	"github.com/ishpreet160/CertFlow/internal/middleware"
	"github.com/ishpreet160/CertFlow/internal/service"
)

// multipartOverhead is the room left for form fields on top of the file limit.
const multipartOverhead = 1 << 20

type CertificatesHandler struct {
	svc      service.CertificateService
	maxBytes int64
}

func NewCertificatesHandler(svc service.CertificateService, maxUploadBytes int64) *CertificatesHandler {
	return &CertificatesHandler{svc: svc, maxBytes: maxUploadBytes}
}

func (h *CertificatesHandler) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
}

// Create godoc
// @Summary Submit a certificate for review
// @Tags certificates
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param client formData string true "Client"
// @Param file formData file true "Certificate file"
// @Success 201 {object} dto.CertificateResponse
// @Failure 403 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/certificates [post]
func (h *CertificatesHandler) Create(c *gin.Context) {
	h.limitBody(c)
	var form dto.CertificateForm
	if !bindFormAndValidate(c, &form) {
		return
	}
	file, closer, err := uploadedFile(c, "file", false)
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

func statusFilter(c *gin.Context) (*lifecycle.Status, bool) {
	raw := c.Query("status")
	if raw == "" {
		return nil, true
	}
	st, err := lifecycle.ParseStatus(raw)
	if err != nil {
		respondError(c, apierror.Validation("status must be pending, approved or rejected"))
		return nil, false
	}
	return &st, true
}

// ListOwn godoc
// @Summary Caller's own certificates
// @Tags certificates
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending | approved | rejected"
// @Success 200 {array} dto.CertificateResponse
// @Router /v1/certificates [get]
func (h *CertificatesHandler) ListOwn(c *gin.Context) {
	status, ok := statusFilter(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListOwn(c.Request.Context(), middleware.MustClaims(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListAll godoc
// @Summary Certificates visible to a reviewer (team for managers, everything for admins)
// @Tags certificates
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending | approved | rejected"
// @Success 200 {array} dto.CertificateResponse
// @Router /v1/certificates/all [get]
func (h *CertificatesHandler) ListAll(c *gin.Context) {
	status, ok := statusFilter(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListTeam(c.Request.Context(), middleware.MustClaims(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CertificatesHandler) ListPending(c *gin.Context) {
	resp, err := h.svc.ListPending(c.Request.Context(), middleware.MustClaims(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CertificatesHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), middleware.MustClaims(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Edit godoc
// @Summary Edit a pending or rejected certificate (resubmits a rejected one)
// @Tags certificates
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Certificate ID"
// @Param file formData file false "Replacement file"
// @Success 200 {object} dto.CertificateResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/certificates/{id} [put]
func (h *CertificatesHandler) Edit(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	h.limitBody(c)
	var form dto.CertificateEditForm
	if !bindFormAndValidate(c, &form) {
		return
	}
	file, closer, err := uploadedFile(c, "file", true)
	if err != nil {
		respondError(c, err)
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	resp, err := h.svc.Edit(c.Request.Context(), middleware.MustClaims(c), id, form, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateStatus godoc
// @Summary Approve or reject a pending certificate
// @Tags certificates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Certificate ID"
// @Param body body dto.StatusUpdateRequest true "approved | rejected"
// @Success 200 {object} dto.CertificateResponse
// @Failure 400 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/certificates/{id}/status [put]
func (h *CertificatesHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.StatusUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Review(c.Request.Context(), middleware.MustClaims(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CertificatesHandler) Delete(c *gin.Context) {
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

// Preview streams the file inline.
func (h *CertificatesHandler) Preview(c *gin.Context) { h.file(c, true) }

// Download streams the file as an attachment.
func (h *CertificatesHandler) Download(c *gin.Context) { h.file(c, false) }

func (h *CertificatesHandler) file(c *gin.Context, inline bool) {
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

// Export godoc
// @Summary PDF register of the certificates visible to the caller
// @Tags certificates
// @Produce application/pdf
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /v1/certificates/export [get]
func (h *CertificatesHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.svc.Export(c.Request.Context(), middleware.MustClaims(c), &buf); err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("certificates-%s.pdf", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
