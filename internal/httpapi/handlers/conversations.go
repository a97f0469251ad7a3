package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reloadggg/chatbot-rag/internal/auth"
	"github.com/reloadggg/chatbot-rag/internal/chat"
	"github.com/reloadggg/chatbot-rag/internal/common"
	"github.com/reloadggg/chatbot-rag/internal/httpapi/middleware"
)

func (h *Handler) ListConversations(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	// Guests only ever see their own conversation.
	if claims.UserType == auth.UserTypeGuest {
		conversations := []chat.Conversation{}
		if claims.SessionID != "" {
			conv, err := h.Conversations.Get(c.Request.Context(), claims.SessionID)
			if err != nil {
				common.Fail(c, http.StatusInternalServerError, 50010, "failed to list conversations")
				return
			}
			if conv != nil {
				conversations = append(conversations, *conv)
			}
		}
		common.OK(c, gin.H{"conversations": conversations})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	conversations, err := h.Conversations.List(c.Request.Context(), c.Query("user_type"), limit)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50010, "failed to list conversations")
		return
	}
	common.OK(c, gin.H{"conversations": conversations})
}

func (h *Handler) GetConversationMessages(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sessionID := c.Param("session_id")
	if !authorizeSession(claims, sessionID) {
		forbidden(c)
		return
	}

	messages, err := h.Conversations.GetMessages(c.Request.Context(), sessionID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50011, "failed to load messages")
		return
	}
	common.OK(c, gin.H{"session_id": sessionID, "messages": messages})
}

type appendMessageReq struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h *Handler) AppendConversationMessage(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sessionID := c.Param("session_id")
	if !authorizeSession(claims, sessionID) {
		forbidden(c)
		return
	}

	var req appendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}
	if req.Role != "user" && req.Role != "assistant" {
		common.Fail(c, http.StatusBadRequest, 10011, "role must be user or assistant")
		return
	}

	msg, err := h.Conversations.AppendMessage(c.Request.Context(), sessionID, req.Role, req.Content, claims.UserType)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50012, "failed to append message")
		return
	}
	if msg == nil {
		// blank after trimming: accepted but stored nothing
		common.OK(c, gin.H{"stored": false})
		return
	}
	common.OK(c, gin.H{"stored": true, "message": msg})
}

type renameReq struct {
	Title string `json:"title"`
}

func (h *Handler) RenameConversation(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sessionID := c.Param("session_id")
	if !authorizeSession(claims, sessionID) {
		forbidden(c)
		return
	}

	var req renameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	conv, err := h.Conversations.Get(c.Request.Context(), sessionID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50013, "failed to rename conversation")
		return
	}
	if conv == nil {
		common.Fail(c, http.StatusNotFound, 40402, "conversation not found")
		return
	}

	if err := h.Conversations.Rename(c.Request.Context(), sessionID, req.Title); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50013, "failed to rename conversation")
		return
	}
	common.OK(c, gin.H{"session_id": sessionID})
}

func (h *Handler) DeleteConversation(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sessionID := c.Param("session_id")
	if !authorizeSession(claims, sessionID) {
		forbidden(c)
		return
	}

	conv, err := h.Conversations.Get(c.Request.Context(), sessionID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50014, "failed to delete conversation")
		return
	}
	if conv == nil {
		common.Fail(c, http.StatusNotFound, 40402, "conversation not found")
		return
	}

	if err := h.Conversations.Delete(c.Request.Context(), sessionID); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50014, "failed to delete conversation")
		return
	}
	common.OK(c, gin.H{"session_id": sessionID, "deleted": true})
}
