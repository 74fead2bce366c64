package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-admin/internal/service"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type completeSetupRequest struct {
	NewUsername string `json:"newUsername"`
	NewPassword string `json:"newPassword"`
}

type legacySetupRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	SetupToken string `json:"setupToken"`
}

type AdminResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsSetup  bool   `json:"isSetup"`
}

type SessionResponse struct {
	Message   string        `json:"message"`
	Token     string        `json:"token"`
	ExpiresAt string        `json:"expiresAt"`
	Admin     AdminResponse `json:"admin"`
}

type DefaultCredentialsResponse struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SetupStatusResponse struct {
	SetupComplete      bool                        `json:"setupComplete"`
	DefaultCredentials *DefaultCredentialsResponse `json:"defaultCredentials"`
}

type VerifyResponse struct {
	Valid      bool          `json:"valid"`
	NeedsSetup bool          `json:"needsSetup"`
	Admin      AdminResponse `json:"admin"`
}

func (h *Handler) checkSetup(c *gin.Context) {
	status, err := h.admins.CheckSetupStatus(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := SetupStatusResponse{SetupComplete: status.SetupComplete}
	if status.DefaultCredentials != nil {
		resp.DefaultCredentials = &DefaultCredentialsResponse{
			Username: status.DefaultCredentials.Username,
			Password: status.DefaultCredentials.Password,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	session, err := h.admins.Login(c.Request.Context(), req.Username, req.Password)
	h.cfg.Metrics.observeAuth("login", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse("Login successful", session))
}

func (h *Handler) verify(c *gin.Context) {
	admin, ok := currentAdmin(c)
	if !ok {
		h.writeError(c, service.ErrInvalidToken)
		return
	}
	c.JSON(http.StatusOK, VerifyResponse{
		Valid:      true,
		NeedsSetup: admin.NeedsSetup(),
		Admin:      adminToResponse(admin),
	})
}

// completeSetup sits outside requireAdmin; CompleteRotation verifies the
// token itself.
func (h *Handler) completeSetup(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		abortNoToken(c)
		return
	}

	var req completeSetupRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	session, err := h.admins.CompleteRotation(c.Request.Context(), token, req.NewUsername, req.NewPassword)
	h.cfg.Metrics.observeAuth("rotation", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse("Setup completed successfully", session))
}

func (h *Handler) legacySetup(c *gin.Context) {
	var req legacySetupRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	session, err := h.admins.LegacySetup(c.Request.Context(), req.Username, req.Password, req.SetupToken)
	h.cfg.Metrics.observeAuth("legacy_setup", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionToResponse("Admin setup successful", session))
}

// bindOptionalJSON decodes the body, treating an empty body as an empty
// object so field validation stays with the service.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return false
	}
	return true
}

func adminToResponse(admin service.AdminView) AdminResponse {
	return AdminResponse{
		ID:       admin.ID,
		Username: admin.Username,
		IsSetup:  admin.IsSetup,
	}
}

func sessionToResponse(message string, session *service.Session) SessionResponse {
	return SessionResponse{
		Message:   message,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		Admin:     adminToResponse(session.Admin),
	}
}
