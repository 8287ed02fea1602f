// Package mcpserver exposes visibility analysis as an MCP tool over stdio.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with the analyze_transcript tool registered.
func New(r Runner, defaults Defaults) *server.MCPServer {
	s := server.NewMCPServer(
		"visibility-cli",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	tool := NewAnalyzeTool(r, defaults)
	s.AddTool(tool.Definition(), tool.Handle)
	return s
}

// Serve runs s on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `Use analyze_transcript to measure how visible an AI provider is in a customer story.
The tool masks the provider's names, derives narrative pillars, asks models two questions per
pillar and reports how often the provider is still inferred. Results follow the selling_points
JSON shape with coverage and confidence scores between 0 and 1.`
