package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reloadggg/chatbot-rag/internal/ai"
	"github.com/reloadggg/chatbot-rag/internal/auth"
	"github.com/reloadggg/chatbot-rag/internal/common"
	"github.com/reloadggg/chatbot-rag/internal/httpapi/middleware"
)

const (
	loginAttemptWindow = 5 * time.Minute
	loginAttemptLimit  = 10
)

func (h *Handler) AuthStatus(c *gin.Context) {
	common.OK(c, gin.H{
		"system_mode_enabled": h.Auth.IsSystemModeEnabled(),
		"guest_mode_enabled":  true,
	})
}

type systemLoginReq struct {
	Password string `json:"password" binding:"required"`
}

func (h *Handler) SystemLogin(c *gin.Context) {
	var req systemLoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if h.Redis != nil {
		attempts, err := h.Redis.RegisterLoginAttempt(c.Request.Context(), c.ClientIP(), loginAttemptWindow)
		if err != nil {
			log.Printf("login throttle unavailable: %v", err)
		} else if attempts > loginAttemptLimit {
			common.Fail(c, http.StatusTooManyRequests, 42901, "too many login attempts")
			return
		}
	}

	if !h.Auth.ValidateSystemPassword(req.Password) {
		common.Fail(c, http.StatusUnauthorized, 40102, "invalid password")
		return
	}

	if h.Redis != nil {
		_ = h.Redis.ResetLoginAttempts(c.Request.Context(), c.ClientIP())
	}

	token, err := h.Auth.IssueSystemToken()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to sign token")
		return
	}

	common.OK(c, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user_type":    auth.UserTypeSystem,
	})
}

type guestLoginReq struct {
	SessionID string            `json:"session_id"`
	APIConfig ai.ProviderConfig `json:"api_config"`
	TTLHours  int               `json:"ttl_hours"`
}

func (h *Handler) GuestLogin(c *gin.Context) {
	var req guestLoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if errs := req.APIConfig.Validate(); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    10010,
			"message": "invalid api config",
			"data":    gin.H{"errors": errs},
		})
		return
	}

	creds, err := h.Auth.IssueGuestToken(c.Request.Context(), req.SessionID, req.APIConfig, req.TTLHours)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to create guest session")
		return
	}

	common.OK(c, creds)
}

// AuthConfig reports the principal's effective provider config with the API
// keys reduced to presence flags.
func (h *Handler) AuthConfig(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	cfg, err := h.Auth.ResolveEffectiveConfig(c.Request.Context(), claims)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to resolve config")
		return
	}

	common.OK(c, gin.H{
		"user_type":             claims.UserType,
		"session_id":            claims.SessionID,
		"llm_provider":          cfg.LLMProvider,
		"llm_model":             cfg.LLMModel,
		"llm_base_url":          cfg.LLMBaseURL,
		"has_llm_api_key":       cfg.LLMAPIKey != "",
		"embedding_provider":    cfg.EmbeddingProvider,
		"embedding_model":       cfg.EmbeddingModel,
		"embedding_base_url":    cfg.EmbeddingBaseURL,
		"has_embedding_api_key": cfg.EmbeddingAPIKey != "",
	})
}

// Logout deletes the guest session backing the presented token. System
// tokens carry no server-side state; logout is a no-op for them.
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	if claims.UserType == auth.UserTypeGuest && claims.SessionID != "" {
		if err := h.Auth.DeleteGuestSession(c.Request.Context(), claims.SessionID); err != nil {
			common.Fail(c, http.StatusInternalServerError, 50004, "failed to delete session")
			return
		}
	}
	common.OK(c, gin.H{"logged_out": true})
}
