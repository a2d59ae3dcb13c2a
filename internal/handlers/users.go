package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drravalement/site/internal/api"
	"drravalement/site/internal/apperr"
	"drravalement/site/internal/models"
	"drravalement/site/internal/service"
)

func (h HandlerSet) ListUsers(c *gin.Context) {
	limit, offset := pagination(c)
	users, total, err := h.userService.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]api.User, 0, len(users))
	for _, u := range users {
		items = append(items, api.FromUser(u))
	}
	c.JSON(http.StatusOK, api.UserList{Items: items, Total: total})
}

func (h HandlerSet) CreateUser(c *gin.Context) {
	var req api.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.ErrValidation.WithMessage("email and password are required"))
		return
	}

	user, err := h.userService.Create(c.Request.Context(), service.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     models.UserRole(req.Role),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": api.FromUser(user)})
}

func (h HandlerSet) UpdateUserRole(c *gin.Context) {
	var req api.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.ErrValidation.WithMessage("role is required"))
		return
	}
	actor := currentUser(c)
	if err := h.userService.UpdateRole(c.Request.Context(), actor.ID, c.Param("id"), models.UserRole(req.Role)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) UpdateUserStatus(c *gin.Context) {
	var req api.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.ErrValidation.WithMessage("status is required"))
		return
	}
	actor := currentUser(c)
	if err := h.userService.UpdateStatus(c.Request.Context(), actor.ID, c.Param("id"), models.UserStatus(req.Status)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	actor := currentUser(c)
	if err := h.userService.Delete(c.Request.Context(), actor.ID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
