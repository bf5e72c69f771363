package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"blog-server/internal/service"
)

func (h *Handler) createPost(c *gin.Context) {
	var form postForm
	if !bind(c, &form) {
		return
	}

	thumbnail, release, err := formUpload(c, "thumbnail")
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer release()

	post, err := h.posts.CreatePost(c.Request.Context(), service.CreatePostInput{
		Title:       form.Title,
		Category:    form.Category,
		Description: form.Description,
		Thumbnail:   thumbnail,
		CreatorID:   callerID(c),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, postToResponse(*post))
}

func (h *Handler) getPosts(c *gin.Context) {
	posts, err := h.posts.GetPosts(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, postsToResponse(posts))
}

func (h *Handler) getPost(c *gin.Context) {
	post, err := h.posts.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) getPostsByCategory(c *gin.Context) {
	posts, err := h.posts.GetPostsByCategory(c.Request.Context(), c.Param("category"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, postsToResponse(posts))
}

func (h *Handler) getPostsByUser(c *gin.Context) {
	posts, err := h.posts.GetPostsByUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, postsToResponse(posts))
}

func (h *Handler) editPost(c *gin.Context) {
	var form postForm
	if !bind(c, &form) {
		return
	}

	thumbnail, release, err := formUpload(c, "thumbnail")
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer release()

	post, warnings, err := h.posts.EditPost(c.Request.Context(), service.EditPostInput{
		ID:          c.Param("id"),
		Title:       form.Title,
		Category:    form.Category,
		Description: form.Description,
		Thumbnail:   thumbnail,
		CallerID:    callerID(c),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := postToResponse(*post)
	resp.Warnings = warnings
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) deletePost(c *gin.Context) {
	id := c.Param("id")
	warnings, err := h.posts.DeletePost(c.Request.Context(), id, callerID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := gin.H{"message": fmt.Sprintf("Post %s deleted successfully.", id)}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}
