package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ishpreet160/CertFlow/internal/dto"
	"github.com/ishpreet160/CertFlow/internal/middleware"
	"github.com/ishpreet160/CertFlow/internal/service"
)

type UsersHandler struct{ svc service.UserService }

func NewUsersHandler(svc service.UserService) *UsersHandler { return &UsersHandler{svc: svc} }

// Create godoc
// @Summary Create a manager (admins) or employee (managers and admins)
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateUserRequest true "New user"
// @Success 201 {object} dto.UserResponse
// @Router /v1/users [post]
func (h *UsersHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateUser(c.Request.Context(), middleware.MustClaims(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Managers godoc
// @Summary Users that can be picked as a manager
// @Tags users
// @Produce json
// @Success 200 {array} dto.ManagerOption
// @Router /v1/users/managers [get]
func (h *UsersHandler) Managers(c *gin.Context) {
	resp, err := h.svc.ListEligibleManagers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UsersHandler) Team(c *gin.Context) {
	resp, err := h.svc.Team(c.Request.Context(), middleware.MustClaims(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UsersHandler) AssignManager(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.AssignManagerRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AssignManager(c.Request.Context(), middleware.MustClaims(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UsersHandler) Deactivate(c *gin.Context) { h.setActive(c, false) }

func (h *UsersHandler) Activate(c *gin.Context) { h.setActive(c, true) }

func (h *UsersHandler) setActive(c *gin.Context, active bool) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.SetActive(c.Request.Context(), middleware.MustClaims(c), id, active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
