package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/chatcontext-mcp/internal/retriever"
)

// searchConversationsTool returns the tool definition for search_conversations
func searchConversationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_conversations",
		Description: "Search the indexed team chat logs for the conversation windows most relevant to a question",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Question or topic to look for",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of conversation windows to return (defaults to the configured k)",
					"minimum":     1,
					"maximum":     retriever.MaxLimit,
				},
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Only return windows cut from this chat log path",
				},
				"min_relevance": map[string]interface{}{
					"type":        "number",
					"description": "Minimum cosine similarity (-1.0 to 1.0)",
					"minimum":     -1.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getCompanyCultureTool returns the tool definition for get_company_culture
func getCompanyCultureTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_company_culture",
		Description: "Summarize the company culture seen at the start of each indexed chat log",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report indexed files, stored chunks and the active embedding model",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// indexConversationsTool returns the tool definition for index_conversations
func indexConversationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_conversations",
		Description: "Index chat log files, or directories of .txt logs, to make them searchable",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"paths": map[string]interface{}{
					"type":        "array",
					"description": "Chat log files or directories to index",
					"items": map[string]interface{}{
						"type": "string",
					},
					"minItems": 1,
				},
			},
			Required: []string{"paths"},
		},
	}
}

// listTeamMembersTool returns the tool definition for list_team_members
func listTeamMembersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_team_members",
		Description: "List the configured team members",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
