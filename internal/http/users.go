package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"blog-server/internal/service"
)

func (h *Handler) registerUser(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.Password2,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": fmt.Sprintf("New user %s registered.", user.Email)})
}

func (h *Handler) loginUser(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: res.Token, ID: res.ID, Name: res.Name})
}

func (h *Handler) logoutUser(c *gin.Context) {
	if err := h.users.Logout(c.Request.Context(), c.GetString(ctxTokenID), tokenExpiry(c)); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) changeAvatar(c *gin.Context) {
	avatar, release, err := formUpload(c, "avatar")
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer release()

	user, warnings, err := h.users.ChangeAvatar(c.Request.Context(), callerID(c), avatar)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := userToResponse(*user)
	resp.Warnings = warnings
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) editUser(c *gin.Context) {
	var req editUserRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.users.EditUser(c.Request.Context(), callerID(c), service.EditUserInput{
		Name:               req.Name,
		Email:              req.Email,
		CurrentPassword:    req.CurrentPassword,
		NewPassword:        req.NewPassword,
		ConfirmNewPassword: req.ConfirmNewPassword,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) getAuthors(c *gin.Context) {
	authors, err := h.users.ListAuthors(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := make([]UserResponse, len(authors))
	for i := range authors {
		resp[i] = userToResponse(authors[i])
	}
	c.JSON(http.StatusOK, resp)
}
