package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/casestore"
	"github.com/disc-herniation-assistant/internal/domain"
	"github.com/disc-herniation-assistant/internal/middleware"
	"github.com/disc-herniation-assistant/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	session       *service.Session
	store         domain.CaseStore
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, session *service.Session, store domain.CaseStore, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware())
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	server := &Server{
		configManager: configManager,
		session:       session,
		store:         store,
		logger:        logger,
		router:        router,
	}

	server.setupRoutes()

	return server
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, domain.NewAPIError(domain.ErrCodeNotFound, "route not found", "", correlationID(c)))
	})

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/patients/:name/intake", s.handleIntake)
		v1.POST("/patients/:name/chat", s.handleChat)
		v1.GET("/patients/:name", s.handleGetPatient)
		v1.GET("/patients/:name/transcript", s.handleTranscript)
		v1.GET("/patients/:name/ws", s.handleChatSocket)
		v1.GET("/export", s.handleExport)
	}
}

// IntakeRequest is the body of an intake submission.
type IntakeRequest struct {
	Symptoms       string `json:"symptoms"`
	MedicalHistory string `json:"medical_history"`
	Exams          string `json:"exams"`
}

// ChatRequest is the body of a chat turn.
type ChatRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   s.configManager.GetConfig().MCP.ServerVersion,
	})
}

func (s *Server) handleIntake(c *gin.Context) {
	var req IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}

	analysis, err := s.session.SubmitIntake(c.Request.Context(), c.Param("name"), req.Symptoms, req.MedicalHistory, req.Exams)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}

	answer, err := s.session.SubmitChatTurn(c.Request.Context(), c.Param("name"), req.Question)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (s *Server) handleGetPatient(c *gin.Context) {
	rec, err := s.session.GetDisplayRecord(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if rec == nil {
		s.writeError(c, domain.ErrPatientNotFound)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleTranscript(c *gin.Context) {
	transcript, err := s.session.Transcript(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transcript)
}

func (s *Server) handleExport(c *gin.Context) {
	var buf bytes.Buffer
	n, err := casestore.Export(c.Request.Context(), s.store, &buf)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="pacientes.json"`)
	c.Header("X-Record-Count", fmt.Sprintf("%d", n))
	c.Data(http.StatusOK, "application/json; charset=utf-8", buf.Bytes())
}

func (s *Server) writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrCodeValidation, "invalid request body", err.Error(), correlationID(c)))
}

// writeError maps a workflow error onto its HTTP status and APIError body.
// Internal failures are logged but never echoed to the client.
func (s *Server) writeError(c *gin.Context, err error) {
	status, apiErr := s.describeError(c, err)

	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"code":           apiErr.Code,
			"correlation_id": apiErr.RequestID,
		}).Error("Request failed")
	}

	c.JSON(status, apiErr)
}

func (s *Server) describeError(c *gin.Context, err error) (int, *domain.APIError) {
	code := domain.ErrorCode(err)
	status, message, details := http.StatusInternalServerError, "internal error", ""

	switch code {
	case domain.ErrCodeValidation:
		status, message, details = http.StatusBadRequest, "invalid input", err.Error()
	case domain.ErrCodeNotFound:
		status, message = http.StatusNotFound, "patient not found"
	case domain.ErrCodeDataCorruption:
		message = "case store is unreadable"
	case domain.ErrCodeGeneration:
		status, message = http.StatusBadGateway, "generative backend unavailable"
	case domain.ErrCodeTimeout:
		status, message = http.StatusGatewayTimeout, "request timed out"
	}

	return status, domain.NewAPIError(code, message, details, correlationID(c))
}

func correlationID(c *gin.Context) string {
	return c.GetString(middleware.CorrelationIDKey)
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Correlation-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
