package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/domain"
	"github.com/disc-herniation-assistant/internal/service"
)

// Server exposes the patient workflow as MCP tools
type Server struct {
	mcpServer *mcp.Server
	session   *service.Session
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance with every tool registered
func NewServer(cfg domain.MCPConfig, session *service.Session, logger *logrus.Logger) *Server {
	serverInfo := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}

	server := &Server{
		mcpServer: mcp.NewServer(serverInfo, nil),
		session:   session,
		logger:    logger,
	}
	server.registerTools()

	return server
}

// Start serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Start(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Run serves MCP over the given transport.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("Starting MCP server")

	if err := s.mcpServer.Run(ctx, transport); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	s.logger.Info("MCP server stopped")
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolSubmitIntake,
		Description: "Record a patient's symptoms, medical history and exam notes, and return an analysis of how to proceed.",
	}, s.handleSubmitIntake)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolAskQuestion,
		Description: "Answer a patient's question from the knowledge bases or, failing that, from the patient's case and prior conversation.",
	}, s.handleAskQuestion)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolGetPatientRecord,
		Description: "Return the stored case record of a patient as JSON.",
	}, s.handleGetPatientRecord)

	s.logger.WithField("tool_count", 3).Debug("Registered MCP tools")
}
