package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/chatcontext-mcp/internal/culture"
	"github.com/dshills/chatcontext-mcp/internal/retriever"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodePathNotFound       = -32001 // A path to index does not exist
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Nothing indexed yet
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// maxReportedErrors caps the per-file errors echoed back to the client
const maxReportedErrors = 5

// handleSearchConversations handles the search_conversations tool invocation
func (s *Server) handleSearchConversations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", s.retriever.K())
	if limit < 1 || limit > retriever.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", retriever.MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	minRelevance := getFloatDefault(args, "min_relevance", -1)
	if minRelevance < -1 || minRelevance > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "min_relevance must be between -1 and 1", map[string]interface{}{
			"param": "min_relevance",
			"value": minRelevance,
		})
	}

	resp, err := s.retriever.Search(ctx, retriever.SearchRequest{
		Query:        query,
		Limit:        limit,
		Source:       getStringDefault(args, "source", ""),
		MinRelevance: minRelevance,
		UseCache:     true,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]interface{}{
			"rank":            r.Rank,
			"relevance_score": r.RelevanceScore,
			"source":          r.Source,
			"content":         r.Content,
		})
	}

	s.logger.Debug("searched conversations",
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Bool("cache_hit", resp.CacheHit))

	response := map[string]interface{}{
		"query":       query,
		"results":     results,
		"count":       len(results),
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetCompanyCulture handles the get_company_culture tool invocation
func (s *Server) handleGetCompanyCulture(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.CompanyCulture(ctx)
	switch {
	case errors.Is(err, ErrNothingIndexed), errors.Is(err, culture.ErrNoConversations):
		return nil, newMCPError(ErrorCodeNotIndexed, "no conversations indexed. Use index_conversations first.", nil)
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "failed to summarize culture", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(summary), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection := s.retriever.Collection()

	status, err := s.storage.GetStatus(ctx, collection.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":  status.DocumentsCount > 0,
		"indexing": s.indexLock.Held(),
		"collection": map[string]interface{}{
			"name":      collection.Name,
			"dimension": collection.Dimension,
		},
		"statistics": map[string]interface{}{
			"files_indexed":  status.SourcesCount,
			"chunks_count":   status.DocumentsCount,
			"schema_version": status.SchemaVersion,
		},
		"embedding": map[string]interface{}{
			"provider":  s.embedder.Provider(),
			"model":     s.embedder.Model(),
			"dimension": s.embedder.Dimension(),
		},
		"generation": map[string]interface{}{
			"model": s.generator.Model(),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexConversations handles the index_conversations tool invocation
func (s *Server) handleIndexConversations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	paths, err := getStringSlice(args, "paths")
	if err != nil || len(paths) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "paths parameter is required", map[string]interface{}{
			"param":  "paths",
			"reason": "missing, empty or not a list of strings",
		})
	}

	for _, p := range paths {
		if err := validatePath(p); err != nil {
			code := ErrorCodeInvalidParams
			if errors.Is(err, ErrPathNotFound) {
				code = ErrorCodePathNotFound
			}
			return nil, newMCPError(code, "invalid path", map[string]interface{}{
				"param":  "paths",
				"path":   p,
				"reason": err.Error(),
			})
		}
	}

	stats, err := s.Index(ctx, paths)
	if errors.Is(err, ErrIndexingInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "another indexing operation is running", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":        stats.FilesIndexed > 0,
		"files_indexed":  stats.FilesIndexed,
		"files_skipped":  stats.FilesSkipped,
		"files_failed":   stats.FilesFailed,
		"chunks_created": stats.ChunksCreated,
		"chunks_added":   stats.ChunksAdded,
		"chunks_removed": stats.ChunksRemoved,
		"empty_windows":  stats.EmptyWindows,
		"duration_ms":    stats.Duration.Milliseconds(),
	}

	if errorCount := len(stats.ErrorMessages); errorCount > 0 {
		if errorCount > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListTeamMembers handles the list_team_members tool invocation
func (s *Server) handleListTeamMembers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	members := s.config.TeamMembers
	if members == nil {
		members = []string{}
	}
	response := map[string]interface{}{
		"team_members": members,
		"count":        len(members),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that a path to index is absolute and readable
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotFound
		}
		return ErrPathNotReadable
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	switch val := args[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a list of strings. JSON decoding yields []interface{}.
func getStringSlice(args map[string]interface{}, key string) ([]string, error) {
	switch val := args[key].(type) {
	case []string:
		return val, nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, v := range val {
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%s: element %v is not a string", key, v)
			}
			out = append(out, str)
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%s: expected a list, got %T", key, val)
	}
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
)
