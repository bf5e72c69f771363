package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blog-server/internal/service"
)

const (
	ctxUserID   = "user_id"
	ctxUserName = "user_name"
	ctxTokenID  = "token_id"
	ctxTokenExp = "token_exp"
)

// requireAuth resolves the caller from the bearer token.
func (h *Handler) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized. No token."})
		return
	}

	claims, err := h.tokens.Parse(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized. Invalid token."})
		return
	}

	if h.revoker != nil && claims.ID != "" {
		revoked, err := h.revoker.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized. Invalid token."})
			return
		}
	}

	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxUserName, claims.Name)
	c.Set(ctxTokenID, claims.ID)
	if claims.ExpiresAt != nil {
		c.Set(ctxTokenExp, claims.ExpiresAt.Time)
	}
	c.Next()
}

// errorResponder renders the last error a handler recorded with c.Error.
func errorResponder(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, message := errorStatus(err)
		if status >= http.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			}).Error("request failed")
		}
		c.JSON(status, gin.H{"message": message})
	}
}

func errorStatus(err error) (int, string) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		return http.StatusInternalServerError, "An unknown error occurred."
	}

	switch svcErr.Kind {
	case service.KindValidation, service.KindAuth, service.KindForbidden:
		return http.StatusUnprocessableEntity, svcErr.Message
	case service.KindNotFound:
		return http.StatusNotFound, svcErr.Message
	default:
		return http.StatusInternalServerError, svcErr.Message
	}
}

func requestLogger(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request")
			return
		}
		entry.Info("request")
	}
}
