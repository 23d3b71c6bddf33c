// Package mcp implements the Model Context Protocol (MCP) server for chatcontext.
//
// The server exposes the indexed team chat logs to AI assistants through five tools:
//   - search_conversations: find the conversation windows most relevant to a question
//   - get_company_culture: one paragraph summary of the team culture
//   - get_status: indexed files, stored chunks and the active models
//   - index_conversations: add chat logs or directories of logs
//   - list_team_members: the configured team roster
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries the protocol, so all logging goes to stderr.
//
// # Basic Usage
//
//	chatcontext serve --config chatcontext.yaml
//
// On startup the server indexes every file listed under data.files. Further
// logs can be added at runtime with index_conversations.
//
// # Tool: search_conversations
//
//	Request:
//	{
//	  "name": "search_conversations",
//	  "arguments": {
//	    "query": "when is the retro?",
//	    "limit": 3
//	  }
//	}
//
//	Response:
//	{
//	  "query": "when is the retro?",
//	  "count": 1,
//	  "cache_hit": false,
//	  "results": [
//	    {
//	      "rank": 1,
//	      "relevance_score": 0.61,
//	      "source": "/logs/team.txt",
//	      "content": "[14/1/25, 16:40:00] Marta: retro notes are in the doc\n..."
//	    }
//	  ]
//	}
//
// # Tool: get_company_culture
//
// Previews the first day of every indexed log and asks the generation model for a
// summary. The summary is cached until another file is indexed.
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "chatcontext": {
//	      "command": "/usr/local/bin/chatcontext",
//	      "args": ["serve", "--config", "/etc/chatcontext.yaml"],
//	      "env": {
//	        "OPENAI_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// Tool failures are returned as *MCPError values carrying a JSON-RPC code:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (storage, embedding, generation)
//   - -32001: Path not found
//   - -32002: Indexing in progress
//   - -32003: Nothing indexed
//   - -32004: Empty query
package mcp
