// Package mcp provides an MCP (Model Context Protocol) server over stored
// churn predictions.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/churnsense/pkg/storage"
	"github.com/papercomputeco/churnsense/pkg/utils"
)

type Config struct {
	// Driver serves the stored predictions
	Driver storage.Driver

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured slog logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the prediction tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "churnsense",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Driver == nil {
		return nil, errors.New("storage driver is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        listPredictionsToolName,
		Description: listPredictionsDescription,
	}, s.handleListPredictions)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        getPredictionToolName,
		Description: getPredictionDescription,
	}, s.handleGetPrediction)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        insightsToolName,
		Description: insightsDescription,
	}, s.handleInsights)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server, or nil when the
// server is a noop.
func (s *Server) Handler() http.Handler {
	if s.handler == nil {
		return nil
	}
	return s.handler
}
