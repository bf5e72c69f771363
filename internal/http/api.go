package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blog-server/internal/auth"
	"blog-server/internal/service"
	"blog-server/internal/storage"
)

// uploadURLExpiry bounds presigned links handed out for remote uploads.
const uploadURLExpiry = 15 * time.Minute

// TokenParser verifies bearer tokens on protected routes.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	posts   service.PostService
	users   service.UserService
	store   storage.Service
	tokens  TokenParser
	revoker auth.Revoker
	log     *logrus.Entry
}

// NewHandler builds the API handler. revoker is optional; without it tokens
// cannot be logged out and the logout route is not registered.
func NewHandler(
	posts service.PostService,
	users service.UserService,
	store storage.Service,
	tokens TokenParser,
	revoker auth.Revoker,
	logger *logrus.Logger,
) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		posts:   posts,
		users:   users,
		store:   store,
		tokens:  tokens,
		revoker: revoker,
		log:     logger.WithField("component", "http"),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.log), corsMiddleware(), errorResponder(h.log))
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Couldn't find this route."})
	})

	if local, ok := h.store.(*storage.LocalService); ok {
		router.Static("/uploads", local.Dir())
	} else {
		router.GET("/uploads/:name", h.redirectUpload)
	}

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		posts := api.Group("/posts")
		posts.POST("", h.requireAuth, h.createPost)
		posts.GET("", h.getPosts)
		posts.GET("/:id", h.getPost)
		posts.GET("/categories/:category", h.getPostsByCategory)
		posts.GET("/users/:id", h.getPostsByUser)
		posts.PATCH("/:id", h.requireAuth, h.editPost)
		posts.DELETE("/:id", h.requireAuth, h.deletePost)

		users := api.Group("/users")
		users.POST("/register", h.registerUser)
		users.POST("/login", h.loginUser)
		users.POST("/change-avatar", h.requireAuth, h.changeAvatar)
		users.POST("/edit-user", h.requireAuth, h.editUser)
		users.PATCH("/edit-user", h.requireAuth, h.editUser)
		users.POST("/authors", h.getAuthors)
		users.GET("/authors", h.getAuthors)
		if h.revoker != nil {
			users.POST("/logout", h.requireAuth, h.logoutUser)
		}
		users.POST("/:id", h.requireAuth, h.getUser)
		users.GET("/:id", h.getUser)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// redirectUpload sends clients to a short-lived link when uploads live in a
// remote bucket.
func (h *Handler) redirectUpload(c *gin.Context) {
	key := c.Param("name")
	if !storage.ValidKey(key) {
		c.JSON(http.StatusNotFound, gin.H{"message": "File not found."})
		return
	}

	exists, err := h.store.Exists(c.Request.Context(), key)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"message": "File not found."})
		return
	}

	url, err := h.store.URL(c.Request.Context(), key, uploadURLExpiry)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Redirect(http.StatusFound, url)
}
