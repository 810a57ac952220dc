// Package mcpadapter exposes the retrieval pipeline over the Model
// Context Protocol so agent hosts can call it as a tool. The transport
// is stdio: protocol frames own stdout, logs must go elsewhere.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
	"github.com/kirillkom/hybrid-retriever/internal/core/ports"
)

const serverVersion = "1.0.0"

type Server struct {
	retrieval ports.RetrievalService
	reader    ports.DocumentReader
	mcpServer *server.MCPServer
}

func NewServer(retrieval ports.RetrievalService, reader ports.DocumentReader) *Server {
	s := &Server{
		retrieval: retrieval,
		reader:    reader,
		mcpServer: server.NewMCPServer(
			"hybrid-retriever",
			serverVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}

	s.mcpServer.AddTool(
		mcp.NewTool("retrieve",
			mcp.WithDescription("Run the hybrid retrieval pipeline for a natural-language query and return ranked passages with their execution trace."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("The natural-language query to retrieve passages for."),
			),
			mcp.WithNumber("top_k",
				mcp.Description("How many passages to return (1-20, default 5)."),
				mcp.Min(1),
				mcp.Max(20),
			),
		),
		s.handleRetrieve,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("lookup_document",
			mcp.WithDescription("Look up an ingested document's metadata and processing state by its id."),
			mcp.WithString("document_id",
				mcp.Required(),
				mcp.Description("The document id returned at upload time."),
			),
		),
		s.handleLookupDocument,
	)

	return s
}

// ServeStdio blocks, speaking MCP over stdin/stdout until the client
// disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

type retrieveToolResult struct {
	Results    []domain.RankedResult   `json:"results"`
	Outcome    domain.RetrievalOutcome `json:"outcome"`
	Attempts   int                     `json:"attempts"`
	FinalQuery string                  `json:"final_query"`
	Steps      []domain.TraceStep      `json:"steps"`
}

func (s *Server) handleRetrieve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK := request.GetInt("top_k", 0)

	result, err := s.retrieval.Execute(ctx, query, topK)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	payload, err := json.Marshal(retrieveToolResult{
		Results:    result.Results,
		Outcome:    result.Outcome,
		Attempts:   result.Attempts,
		FinalQuery: result.FinalQuery,
		Steps:      result.Steps,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal retrieve result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleLookupDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.reader.GetByID(ctx, documentID)
	if err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("document %s not found", documentID)), nil
		}
		return nil, fmt.Errorf("lookup document: %w", err)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
