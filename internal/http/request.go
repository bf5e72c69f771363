package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"blog-server/internal/service"
)

type postForm struct {
	Title       string `form:"title" json:"title"`
	Category    string `form:"category" json:"category"`
	Description string `form:"description" json:"description"`
}

type registerRequest struct {
	Name      string `form:"name" json:"name"`
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
	Password2 string `form:"password2" json:"password2"`
}

type loginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

type editUserRequest struct {
	Name               string `form:"name" json:"name"`
	Email              string `form:"email" json:"email"`
	CurrentPassword    string `form:"currentPassword" json:"currentPassword"`
	NewPassword        string `form:"newPassword" json:"newPassword"`
	ConfirmNewPassword string `form:"confirmNewPassword" json:"confirmNewPassword"`
}

// bind decodes the body according to its content type. Field presence is left
// to the services, which own the user-facing messages.
func bind(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 && c.ContentType() == "" {
		return true
	}
	if err := c.ShouldBind(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		_ = c.Error(&service.Error{Kind: service.KindValidation, Message: "Invalid request body.", Err: err})
		return false
	}
	return true
}

// formUpload opens the named multipart file. A request without that file
// yields a nil upload and a no-op release func.
func formUpload(c *gin.Context, field string) (*service.Upload, func(), error) {
	noop := func() {}

	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, &service.Error{Kind: service.KindValidation, Message: "Couldn't read uploaded file.", Err: err}
	}

	file, err := header.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("open upload %s: %w", field, err)
	}
	return &service.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	}, func() { _ = file.Close() }, nil
}

func callerID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func tokenExpiry(c *gin.Context) time.Time {
	if v, ok := c.Get(ctxTokenExp); ok {
		if exp, ok := v.(time.Time); ok {
			return exp
		}
	}
	return time.Time{}
}
