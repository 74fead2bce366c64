package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront-admin/internal/service"
	"storefront-admin/internal/storage"
)

const defaultMaxUploadBytes = 5 << 20

// Config carries the transport level knobs of the API.
type Config struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	Metrics        *Metrics
	Logger         logrus.FieldLogger
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	admins service.AdminService
	posts  service.PostService
	images storage.Service
	cfg    Config
	log    logrus.FieldLogger
}

// NewHandler builds the API handler. images may be nil, in which case the
// upload routes answer 503.
func NewHandler(admins service.AdminService, posts service.PostService, images storage.Service, cfg Config) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		admins: admins,
		posts:  posts,
		images: images,
		cfg:    cfg,
		log:    log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.log), h.cfg.Metrics.Middleware(), corsMiddleware(h.cfg.AllowedOrigins))

	if h.cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.cfg.Metrics.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		authGroup := api.Group("/auth")
		authGroup.GET("/check-setup", h.checkSetup)
		authGroup.POST("/login", h.login)
		authGroup.GET("/verify", h.requireAdmin(), h.verify)
		authGroup.POST("/complete-setup", h.completeSetup)
		authGroup.POST("/setup", h.legacySetup)

		posts := api.Group("/posts")
		posts.GET("", h.listPublicPosts)
		posts.GET("/admin", h.requireAdmin(), h.listAllPosts)
		posts.POST("", h.requireAdmin(), h.createPost)
		posts.PUT("/:id", h.requireAdmin(), h.updatePost)
		posts.DELETE("/:id", h.requireAdmin(), h.deletePost)
		posts.PATCH("/:id/toggle", h.requireAdmin(), h.togglePost)

		uploads := api.Group("/uploads", h.requireAdmin())
		uploads.POST("/images", h.uploadImage)
		uploads.GET("/images", h.listImages)
	}
}

func corsMiddleware(allowed []string) gin.HandlerFunc {
	wildcard := false
	origins := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			wildcard = true
		}
		origins[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if wildcard {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if _, ok := origins[origin]; ok && origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// writeError maps domain errors to status codes. Clients read the message
// field, so every error body carries one.
func (h *Handler) writeError(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "Server error"

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, service.ErrInvalidToken):
		status, message = http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, service.ErrUnauthenticated):
		status, message = http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, service.ErrInvalidSetupToken):
		status, message = http.StatusUnauthorized, "Invalid setup token"
	case errors.Is(err, service.ErrMissingField), errors.Is(err, service.ErrInvalidInput):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrAlreadySetup):
		status, message = http.StatusConflict, "Admin already fully configured"
	case errors.Is(err, service.ErrPostNotFound):
		status, message = http.StatusNotFound, "Post not found"
	case errors.Is(err, storage.ErrNotConfigured):
		status, message = http.StatusServiceUnavailable, "Image storage not configured"
	default:
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}

	c.AbortWithStatusJSON(status, gin.H{"message": message})
}
