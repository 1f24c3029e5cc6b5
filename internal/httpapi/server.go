// Package httpapi provides the HTTP API for scribed.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/scribelabs/scribed/internal/config"
	"github.com/scribelabs/scribed/internal/outline"
	"github.com/scribelabs/scribed/internal/pipeline"
	"github.com/scribelabs/scribed/internal/session"
)

// streamInterval is how often the SSE progress stream re-emits status.
const streamInterval = time.Second

// Server exposes the pipeline and session store over HTTP.
type Server struct {
	echo     *echo.Echo
	store    *session.Store
	pipeline *pipeline.Service
	config   *config.Config
	logger   *zap.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(store *session.Store, pl *pipeline.Service, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if pl == nil {
		return nil, fmt.Errorf("pipeline service is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:     e,
		store:    store,
		pipeline: pl,
		config:   cfg,
		logger:   logger,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/sessions", s.handleSubmit)
	v1.DELETE("/sessions/:id", s.handleReset)
	v1.GET("/sessions/:id/progress", s.handleProgress)
	v1.GET("/sessions/:id/progress/stream", s.handleProgressStream)
	v1.GET("/sessions/:id/artifacts/:name", s.handleArtifact)
	v1.GET("/sessions/:id/outline", s.handleGetOutline)
	v1.PUT("/sessions/:id/outline", s.handlePutOutline)
	v1.POST("/sessions/:id/outline/regenerate", s.handleRegenerateOutline)
	v1.POST("/sessions/:id/draft", s.handleDraft)
	v1.POST("/sessions/:id/redraft", s.handleRedraft)
	v1.GET("/sessions/:id/article", s.handleGetArticle)
	v1.PUT("/sessions/:id/article", s.handlePutArticle)
	v1.GET("/sessions/:id/article/download", s.handleDownload)
	v1.GET("/sessions/:id/article/preview", s.handlePreview)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleSubmit(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	params := session.Params{
		RepoURL:                req.RepoURL,
		TargetAudience:         req.TargetAudience,
		Tone:                   req.Tone,
		AdditionalInstructions: req.AdditionalInstructions,
		Language:               req.Language,
	}
	if params.TargetAudience == "" {
		params.TargetAudience = s.config.Pipeline.TargetAudience
	}
	if params.Tone == "" {
		params.Tone = s.config.Pipeline.Tone
	}
	if params.Language == "" {
		params.Language = s.config.Pipeline.Language
	}

	workDir := req.UploadDir
	if workDir == "" {
		if req.RepoURL == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "provide upload_dir or repo_url")
		}
		dir, err := os.MkdirTemp("", "scribed-*")
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "could not create work directory")
		}
		workDir = dir
	}

	id, err := s.pipeline.Submit(workDir, params)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusAccepted, SubmitResponse{SessionID: id})
}

func (s *Server) handleReset(c echo.Context) error {
	id := c.Param("id")
	if !s.store.Exists(id) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	s.store.Reset(id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleProgress(c echo.Context) error {
	history, status, ok := s.store.Progress(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, ProgressResponse{History: history, Status: status})
}

// handleProgressStream re-emits the progress history as server-sent
// events until a terminal status is observed or the client goes away.
// The worker is never blocked by a slow consumer; each tick reads a
// fresh snapshot from the store.
func (s *Server) handleProgressStream(c echo.Context) error {
	id := c.Param("id")
	if !s.store.Exists(id) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		history, status, ok := s.store.Progress(id)
		if !ok {
			// Session was reset mid-stream.
			return nil
		}

		payload, err := json.Marshal(ProgressResponse{History: history, Status: status})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(res, "data: %s\n\n", payload); err != nil {
			return nil
		}
		res.Flush()

		if pipeline.IsTerminal(status) {
			return nil
		}

		select {
		case <-c.Request().Context().Done():
			return nil
		case <-ticker.C:
		}
	}
}

var artifactNames = map[string]session.Artifact{
	"tree":     session.ArtifactTree,
	"roles":    session.ArtifactRoles,
	"analysis": session.ArtifactAnalysis,
	"files":    session.ArtifactFiles,
}

func (s *Server) handleArtifact(c echo.Context) error {
	name, ok := artifactNames[c.Param("name")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown artifact")
	}
	content, ok := s.store.Get(c.Param("id"), name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "artifact not available")
	}
	return c.JSON(http.StatusOK, ArtifactResponse{Name: string(name), Content: content})
}

func (s *Server) handleGetOutline(c echo.Context) error {
	raw, ok := s.store.Get(c.Param("id"), session.ArtifactOutline)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "outline not available")
	}
	_, parseErr := outline.Parse(raw)
	return c.JSON(http.StatusOK, OutlineResponse{Outline: raw, Valid: parseErr == nil})
}

func (s *Server) handlePutOutline(c echo.Context) error {
	id := c.Param("id")
	if !s.store.Exists(id) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	var req OutlineUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	// Stored verbatim; generation is bypassed entirely.
	s.store.Put(id, session.ArtifactOutline, req.Outline)
	s.store.AppendProgress(id, "outline replaced by edit")
	return c.JSON(http.StatusOK, AckResponse{Status: "outline updated"})
}

func (s *Server) handleRegenerateOutline(c echo.Context) error {
	if err := s.pipeline.RegenerateOutline(c.Param("id")); err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusAccepted, AckResponse{Status: "outline regeneration started"})
}

func (s *Server) handleDraft(c echo.Context) error {
	if err := s.pipeline.Draft(c.Param("id")); err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusAccepted, AckResponse{Status: "drafting started"})
}

func (s *Server) handleRedraft(c echo.Context) error {
	if err := s.pipeline.Redraft(c.Param("id")); err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusAccepted, AckResponse{Status: "re-drafting started"})
}

func (s *Server) handleGetArticle(c echo.Context) error {
	id := c.Param("id")
	article, ok := s.store.Get(id, session.ArtifactArticle)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "article not available")
	}
	return c.JSON(http.StatusOK, ArticleResponse{Article: article, Truncated: s.store.Truncated(id)})
}

func (s *Server) handlePutArticle(c echo.Context) error {
	id := c.Param("id")
	if !s.store.Exists(id) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	var req ArticleUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	s.store.Put(id, session.ArtifactArticle, req.Article)
	s.store.SetTruncated(id, false)
	s.store.AppendProgress(id, "article replaced by edit")
	return c.JSON(http.StatusOK, AckResponse{Status: "article updated"})
}

func (s *Server) handleDownload(c echo.Context) error {
	article, ok := s.store.Get(c.Param("id"), session.ArtifactArticle)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "article not available")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="article.md"`)
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(article))
}

func (s *Server) handlePreview(c echo.Context) error {
	article, ok := s.store.Get(c.Param("id"), session.ArtifactArticle)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "article not available")
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(article), &buf); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not render article")
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// mapError converts pipeline errors to HTTP errors.
func (s *Server) mapError(err error) error {
	switch {
	case errors.Is(err, pipeline.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, pipeline.ErrBusy):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, pipeline.ErrNotReady):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			s.config.Server.ShutdownTimeout.Duration(),
		)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
