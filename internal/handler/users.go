package handler

import (
	"net/http"

	"github.com/7666638403/rajgarande/internal/apierror"
	"github.com/7666638403/rajgarande/internal/dto"
	"github.com/7666638403/rajgarande/internal/service"

	"github.com/gin-gonic/gin"
)

type UsersHandler struct{ svc service.AuthService }

func NewUsersHandler(svc service.AuthService) *UsersHandler { return &UsersHandler{svc: svc} }

// Create godoc
// @Summary      Create a staff account
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateUserRequest true "New user"
// @Success      201  {object} dto.UserResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/users [post]
func (h *UsersHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateUser(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List staff accounts
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array} dto.UserResponse
// @Router       /v1/users [get]
func (h *UsersHandler) List(c *gin.Context) {
	resp, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to list users"))
		return
	}
	c.JSON(http.StatusOK, resp)
}
