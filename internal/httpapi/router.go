package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reloadggg/chatbot-rag/internal/common"
	"github.com/reloadggg/chatbot-rag/internal/httpapi/handlers"
	"github.com/reloadggg/chatbot-rag/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/healthz", h.Healthz)

	// login surface
	r.GET("/auth/status", h.AuthStatus)
	r.POST("/auth/system-login", h.SystemLogin)
	r.POST("/auth/guest-login", h.GuestLogin)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(h.Auth))

	authGroup.GET("/auth/config", h.AuthConfig)
	authGroup.POST("/auth/logout", h.Logout)

	authGroup.GET("/providers", h.ListProviders)

	authGroup.GET("/conversations", h.ListConversations)
	authGroup.GET("/conversations/:session_id/messages", h.GetConversationMessages)
	authGroup.POST("/conversations/:session_id/messages", h.AppendConversationMessage)
	authGroup.PUT("/conversations/:session_id/title", h.RenameConversation)
	authGroup.DELETE("/conversations/:session_id", h.DeleteConversation)

	authGroup.POST("/query", h.Query)
	authGroup.POST("/query/jobs", h.CreateQueryJob)
	authGroup.GET("/query/jobs/:job_id", h.GetQueryJob)

	return r
}
