package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reloadggg/chatbot-rag/internal/chat"
	"github.com/reloadggg/chatbot-rag/internal/common"
	"github.com/reloadggg/chatbot-rag/internal/httpapi/middleware"
	"github.com/reloadggg/chatbot-rag/internal/session"
)

type queryReq struct {
	SessionID string `json:"session_id" binding:"required"`
	Question  string `json:"question" binding:"required"`
}

func (h *Handler) Query(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req queryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if !authorizeSession(claims, req.SessionID) {
		forbidden(c)
		return
	}

	cfg, err := h.Auth.ResolveEffectiveConfig(c.Request.Context(), claims)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to resolve config")
		return
	}

	answer, msgID, err := h.ChatSvc.Answer(c.Request.Context(), req.SessionID, claims.UserType, req.Question, cfg)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyQuestion) {
			common.Fail(c, http.StatusBadRequest, 10012, "question is empty")
			return
		}
		log.Printf("query failed session=%s: %v", req.SessionID, err)
		common.Fail(c, http.StatusBadGateway, 50201, "query failed")
		return
	}

	common.OK(c, gin.H{
		"session_id": req.SessionID,
		"answer":     answer,
		"message_id": msgID,
	})
}

type createQueryJobReq struct {
	SessionID      string `json:"session_id" binding:"required"`
	Question       string `json:"question" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (h *Handler) CreateQueryJob(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	if h.Jobs == nil {
		common.Fail(c, http.StatusServiceUnavailable, 50301, "async queries disabled")
		return
	}

	var req createQueryJobReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if !authorizeSession(claims, req.SessionID) {
		forbidden(c)
		return
	}

	cfg, err := h.Auth.ResolveEffectiveConfig(c.Request.Context(), claims)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to resolve config")
		return
	}
	rawCfg, err := json.Marshal(cfg)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50020, "failed to create job")
		return
	}

	jobID, err := session.NewID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50020, "failed to create job")
		return
	}

	job := &chat.QueryJob{
		ID:        jobID,
		SessionID: req.SessionID,
		UserType:  claims.UserType,
		Question:  req.Question,
		APIConfig: string(rawCfg),
		Status:    chat.JobQueued,
	}
	if req.IdempotencyKey != "" {
		job.IdempotencyKey = &req.IdempotencyKey
	}

	job, created, err := h.Conversations.CreateJobOrGetExisting(c.Request.Context(), job)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50020, "failed to create job")
		return
	}

	if created {
		if err := h.Jobs.PublishJob(c.Request.Context(), job.ID); err != nil {
			_ = h.Conversations.MarkJobFailed(c.Request.Context(), job.ID, "publish failed")
			common.Fail(c, http.StatusInternalServerError, 50021, "failed to enqueue job")
			return
		}
	}

	common.OK(c, gin.H{"job_id": job.ID, "status": job.Status})
}

func (h *Handler) GetQueryJob(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	job, err := h.Conversations.GetJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		common.Fail(c, http.StatusNotFound, 40403, "job not found")
		return
	}
	if !authorizeSession(claims, job.SessionID) {
		forbidden(c)
		return
	}

	common.OK(c, job)
}
