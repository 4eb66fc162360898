package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smart-trendz/trendz/internal/artifact"
	"github.com/smart-trendz/trendz/internal/leaderboard"
	"github.com/smart-trendz/trendz/internal/orchestrator"
	"github.com/smart-trendz/trendz/internal/profile"
	"github.com/smart-trendz/trendz/internal/session"
	"github.com/smart-trendz/trendz/models"
)

// Handler exposes the generation pipeline over HTTP.
type Handler struct {
	Orch      *orchestrator.Orchestrator
	Profiles  *profile.Manager
	Artifacts *artifact.Store
}

func (h *Handler) Register(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/auth/login", h.login)
	api.POST("/reports", h.generateReport)
	api.GET("/reports/:filename", h.getReport)
	api.POST("/posts", h.generatePost)
	api.POST("/videos", h.recommendVideos)
	api.POST("/chat", h.chat)
	api.DELETE("/chat/:id", h.closeChat)
	api.POST("/leaderboard", h.leaderboard)

	e.GET("/leaderboard/:filename", h.serveLeaderboard)
}

func (h *Handler) login(c echo.Context) error {
	var req struct {
		UserID   string `json:"user_id"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and password required")
	}
	if !h.Profiles.Authenticate(req.UserID, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "user_id": req.UserID})
}

func (h *Handler) generateReport(c echo.Context) error {
	var req struct {
		UserID string `json:"user_id"`
		Force  bool   `json:"force"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}

	start := time.Now()
	job, err := h.Orch.GenerateReport(c.Request().Context(), req.UserID, req.Force)
	if err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "unknown user")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	generationDuration.WithLabelValues(string(job.Kind)).Observe(time.Since(start).Seconds())
	jobsTotal.WithLabelValues(string(job.Kind), string(job.Status)).Inc()
	return c.JSON(http.StatusOK, job)
}

// getReport serves a previously generated report artifact. Users can only
// read reports published under their own name prefix.
func (h *Handler) getReport(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}
	name := c.Param("filename")
	if !strings.HasPrefix(name, userID+"_report_") {
		return echo.NewHTTPError(http.StatusForbidden, "not your report")
	}
	raw, err := h.Artifacts.Get(name)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "report not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (h *Handler) generatePost(c echo.Context) error {
	var req struct {
		UserID string `json:"user_id"`
		Option string `json:"option"`
		Topic  string `json:"topic"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}

	start := time.Now()
	job, err := h.Orch.GeneratePost(c.Request().Context(), req.UserID, req.Option, req.Topic)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrProfileNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "unknown user")
		case errors.Is(err, orchestrator.ErrUnknownPostOption):
			return echo.NewHTTPError(http.StatusBadRequest, "option must be from_report or custom_topic")
		case errors.Is(err, orchestrator.ErrNoReport):
			return echo.NewHTTPError(http.StatusConflict, "generate a report first")
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	generationDuration.WithLabelValues(string(job.Kind)).Observe(time.Since(start).Seconds())
	jobsTotal.WithLabelValues(string(job.Kind), string(job.Status)).Inc()
	return c.JSON(http.StatusOK, job)
}

func (h *Handler) recommendVideos(c echo.Context) error {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}

	videos, keywords, err := h.Orch.RecommendVideos(c.Request().Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrVideosDisabled):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "video recommendations not configured")
		case errors.Is(err, models.ErrProfileNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "unknown user")
		default:
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"videos":   videos,
		"keywords": keywords,
	})
}

func (h *Handler) chat(c echo.Context) error {
	var req struct {
		UserID    string `json:"user_id"`
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and message required")
	}

	sessionID, reply, err := h.Orch.ChatTurn(c.Request().Context(), req.UserID, req.SessionID, req.Message)
	if err != nil {
		chatTurnsTotal.WithLabelValues("error").Inc()
		switch {
		case errors.Is(err, models.ErrProfileNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "unknown user")
		case errors.Is(err, session.ErrOutOfTurn):
			return echo.NewHTTPError(http.StatusConflict, "previous turn still pending")
		default:
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
	}
	chatTurnsTotal.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, map[string]string{
		"session_id": sessionID,
		"reply":      reply,
	})
}

func (h *Handler) closeChat(c echo.Context) error {
	h.Orch.CloseChat(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) leaderboard(c echo.Context) error {
	job := h.Orch.Leaderboard(c.Request().Context())
	jobsTotal.WithLabelValues(string(job.Kind), string(job.Status)).Inc()
	return c.JSON(http.StatusOK, job)
}

func (h *Handler) serveLeaderboard(c echo.Context) error {
	name := c.Param("filename")
	if !leaderboard.ValidFilename(name) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid leaderboard filename")
	}
	page, err := h.Artifacts.Get(name)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "leaderboard not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.HTMLBlob(http.StatusOK, page)
}
