package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-admin/internal/domain"
	"storefront-admin/internal/service"
)

type postRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *string `json:"price"`
	Image       *string `json:"image"`
	Contact     *string `json:"contact"`
	Category    *string `json:"category"`
}

// PostResponse mirrors the id as _id for clients written against the
// original document-store API.
type PostResponse struct {
	ID          int64  `json:"id"`
	LegacyID    string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	Contact     string `json:"contact"`
	Category    string `json:"category"`
	IsActive    bool   `json:"isActive"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func (h *Handler) listPublicPosts(c *gin.Context) {
	posts, err := h.posts.ListPublic(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, postsToResponse(posts))
}

func (h *Handler) listAllPosts(c *gin.Context) {
	posts, err := h.posts.ListAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, postsToResponse(posts))
}

func (h *Handler) createPost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	post, err := h.posts.CreatePost(c.Request.Context(), service.PostInput{
		Title:       deref(req.Title),
		Description: deref(req.Description),
		Price:       deref(req.Price),
		Image:       deref(req.Image),
		Contact:     deref(req.Contact),
		Category:    deref(req.Category),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, postToResponse(*post))
}

func (h *Handler) updatePost(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	post, err := h.posts.UpdatePost(c.Request.Context(), id, service.PostPatch{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Contact:     req.Contact,
		Category:    req.Category,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) togglePost(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}

	post, err := h.posts.TogglePost(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) deletePost(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}

	post, err := h.posts.DeletePost(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := gin.H{"message": "Post deleted successfully", "deleted": post.ID}
	if warnings := h.releaseImage(c.Request.Context(), post); len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

// releaseImage removes an uploaded image the deleted post pointed at. Images
// hosted elsewhere are left alone and failures only produce warnings.
func (h *Handler) releaseImage(ctx context.Context, post *domain.Post) []string {
	if h.images == nil || post.Image == "" {
		return nil
	}
	key, ok := h.images.KeyFromURL(post.Image)
	if !ok {
		return nil
	}

	remoteCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := h.images.DeleteObject(remoteCtx, key); err != nil {
		h.log.WithError(err).WithField("key", key).Warn("delete post image")
		return []string{fmt.Sprintf("delete image: %v", err)}
	}
	return nil
}

func parsePostID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid post id"})
		return 0, false
	}
	return id, true
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func postsToResponse(posts []domain.Post) []PostResponse {
	resp := make([]PostResponse, len(posts))
	for i := range posts {
		resp[i] = postToResponse(posts[i])
	}
	return resp
}

func postToResponse(post domain.Post) PostResponse {
	return PostResponse{
		ID:          post.ID,
		LegacyID:    strconv.FormatInt(post.ID, 10),
		Title:       post.Title,
		Description: post.Description,
		Price:       post.Price,
		Image:       post.Image,
		Contact:     post.Contact,
		Category:    post.Category,
		IsActive:    post.IsActive,
		CreatedAt:   post.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   post.UpdatedAt.Format(time.RFC3339),
	}
}
