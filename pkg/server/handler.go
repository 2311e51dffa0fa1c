package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mikeboe/search-agent/pkg/database"
	"github.com/mikeboe/search-agent/pkg/pipeline"
	"github.com/mikeboe/search-agent/pkg/preflight"
)

// SessionCookie carries the opaque session identifier.
const SessionCookie = "ASA_SESSION"

const sessionMaxAge = 60 * 60 * 24 * 7

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(sessionMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/research", h.research)

		api.GET("/settings", h.getSettings)
		api.POST("/settings", h.saveSettings)
		api.POST("/test-settings", h.testSettings)

		api.GET("/runs", h.listRuns)
		api.GET("/runs/:id", h.getRun)
		api.GET("/runs/:id/logs", h.getRunLogs)
		api.DELETE("/runs", h.clearRuns)

		api.POST("/runs/:id/share", h.shareRun)
		api.GET("/share/:id", h.getSharedRun)
	}
}

// sessionMiddleware ensures every request carries a session id, issuing a
// cookie on first contact.
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookie)
		if err != nil || sessionID == "" {
			sessionID = newID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, sessionID, sessionMaxAge, "/", "", false, true)
		}
		c.Set("session_id", sessionID)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString("session_id")
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

type ResearchRequest struct {
	Question                string `json:"question" binding:"required"`
	OpenAIAPIKey            string `json:"openai_api_key"`
	BrightDataAPIKey        string `json:"brightdata_api_key"`
	RedditDatasetID         string `json:"reddit_dataset_id"`
	RedditCommentsDatasetID string `json:"reddit_comments_dataset_id"`
}

func (h *Handler) research(c *gin.Context) {
	var req ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sid := sessionID(c)
	creds := h.Service.resolveCredentials(sid, req)

	pf := h.Service.Preflight.Run(c.Request.Context(), preflight.Params{
		OpenAIAPIKey:            creds.OpenAIAPIKey,
		BrightDataAPIKey:        creds.BrightDataAPIKey,
		RedditDatasetID:         creds.RedditDatasetID,
		RedditCommentsDatasetID: creds.RedditCommentsDatasetID,
	})
	if !pf.OK {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Preflight failed: " + pf.Summary()})
		return
	}

	runID := newID()
	state, err := h.Service.run(c.Request.Context(), req.Question, pipeline.Config{
		BrightDataAPIKey:        creds.BrightDataAPIKey,
		RedditDatasetID:         creds.RedditDatasetID,
		RedditCommentsDatasetID: creds.RedditCommentsDatasetID,
	}, creds.OpenAIAPIKey, runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// The state marshals with absent fields omitted; the same payload is
	// persisted and returned.
	result, err := json.Marshal(state)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.Service.Store.SaveRun(c.Request.Context(), sid, runID, req.Question, result); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", result)
}

type SettingsPayload struct {
	OpenAIAPIKey            *string `json:"openai_api_key"`
	BrightDataAPIKey        *string `json:"brightdata_api_key"`
	RedditDatasetID         *string `json:"reddit_dataset_id"`
	RedditCommentsDatasetID *string `json:"reddit_comments_dataset_id"`
}

// SettingsMeta never echoes stored secrets, only their presence.
type SettingsMeta struct {
	HasOpenAIAPIKey         bool   `json:"has_openai_api_key"`
	HasBrightDataAPIKey     bool   `json:"has_brightdata_api_key"`
	RedditDatasetID         string `json:"reddit_dataset_id,omitempty"`
	RedditCommentsDatasetID string `json:"reddit_comments_dataset_id,omitempty"`
}

func settingsMeta(s Settings) SettingsMeta {
	return SettingsMeta{
		HasOpenAIAPIKey:         s.OpenAIAPIKey != "",
		HasBrightDataAPIKey:     s.BrightDataAPIKey != "",
		RedditDatasetID:         s.RedditDatasetID,
		RedditCommentsDatasetID: s.RedditCommentsDatasetID,
	}
}

func (h *Handler) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, settingsMeta(h.Service.GetSettings(sessionID(c))))
}

func (h *Handler) saveSettings(c *gin.Context) {
	var payload SettingsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated := h.Service.UpdateSettings(sessionID(c),
		payload.OpenAIAPIKey, payload.BrightDataAPIKey,
		payload.RedditDatasetID, payload.RedditCommentsDatasetID)
	c.JSON(http.StatusOK, settingsMeta(updated))
}

type TestSettingsResponse struct {
	OK                      bool   `json:"ok"`
	OpenAIOK                bool   `json:"openai_ok"`
	BrightDataOK            bool   `json:"brightdata_ok"`
	RedditDatasetOK         bool   `json:"reddit_dataset_ok"`
	RedditCommentsDatasetOK bool   `json:"reddit_comments_dataset_ok"`
	Message                 string `json:"message,omitempty"`
}

func (h *Handler) testSettings(c *gin.Context) {
	var payload SettingsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := h.Service.GetSettings(sessionID(c))
	pf := h.Service.Preflight.Run(c.Request.Context(), preflight.Params{
		OpenAIAPIKey:            firstNonEmpty(deref(payload.OpenAIAPIKey), session.OpenAIAPIKey, h.Service.Cfg.OpenAIAPIKey),
		BrightDataAPIKey:        firstNonEmpty(deref(payload.BrightDataAPIKey), session.BrightDataAPIKey, h.Service.Cfg.BrightDataAPIKey),
		RedditDatasetID:         firstNonEmpty(deref(payload.RedditDatasetID), session.RedditDatasetID, h.Service.Cfg.RedditDatasetID),
		RedditCommentsDatasetID: firstNonEmpty(deref(payload.RedditCommentsDatasetID), session.RedditCommentsDatasetID, h.Service.Cfg.RedditCommentsDatasetID),
	})

	c.JSON(http.StatusOK, TestSettingsResponse{
		OK:                      pf.OK,
		OpenAIOK:                pf.OpenAI.OK,
		BrightDataOK:            pf.BrightData.OK,
		RedditDatasetOK:         pf.RedditDataset.OK,
		RedditCommentsDatasetOK: pf.RedditCommentsDataset.OK,
		Message:                 pf.Summary(),
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *Handler) listRuns(c *gin.Context) {
	runs, err := h.Service.Store.ListRuns(c.Request.Context(), sessionID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []database.RunMeta{}
	}
	c.JSON(http.StatusOK, runs)
}

func (h *Handler) getRun(c *gin.Context) {
	r, err := h.Service.Store.GetRun(c.Request.Context(), sessionID(c), c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) getRunLogs(c *gin.Context) {
	logs, err := h.Service.Store.GetRunLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []database.LogEntry{}
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) clearRuns(c *gin.Context) {
	if err := h.Service.Store.ClearRuns(c.Request.Context(), sessionID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type ShareResponse struct {
	ShareID string `json:"share_id"`
	URL     string `json:"url"`
}

func (h *Handler) shareRun(c *gin.Context) {
	runID := c.Param("id")
	if _, err := h.Service.Store.GetRun(c.Request.Context(), sessionID(c), runID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	shareID := newID()
	if err := h.Service.Store.CreateShare(c.Request.Context(), runID, shareID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	c.JSON(http.StatusOK, ShareResponse{
		ShareID: shareID,
		URL:     scheme + "://" + c.Request.Host + "/api/share/" + shareID,
	})
}

// getSharedRun exposes a run through its share id without session binding.
func (h *Handler) getSharedRun(c *gin.Context) {
	r, err := h.Service.Store.GetShared(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shared run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r)
}
