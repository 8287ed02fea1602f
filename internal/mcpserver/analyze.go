package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/pipeline"
)

// Runner executes one analysis.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)
}

// Defaults apply when a tool call omits an argument.
type Defaults struct {
	Mode model.Mode
}

// AnalyzeTool handles the analyze_transcript MCP tool.
type AnalyzeTool struct {
	runner   Runner
	defaults Defaults
}

// NewAnalyzeTool creates an AnalyzeTool.
func NewAnalyzeTool(r Runner, defaults Defaults) *AnalyzeTool {
	return &AnalyzeTool{runner: r, defaults: defaults}
}

// Definition returns the MCP tool definition for analyze_transcript.
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_transcript",
		mcp.WithDescription(
			"Mask an AI provider in a customer story transcript, ask language models clarifying "+
				"questions about it and score how often the provider is still inferred.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Full transcript or blog post text"),
		),
		mcp.WithString("provider_name",
			mcp.Description("Canonical AI provider name (default from config)"),
		),
		mcp.WithString("provider_aliases",
			mcp.Description("Comma-separated aliases to mask (default from config)"),
		),
		mcp.WithString("story_id",
			mcp.Description("Story identifier to echo back (default derived from the text)"),
		),
		mcp.WithString("mode",
			mcp.Description("Answer mode: stub or live"),
			mcp.Enum(string(model.ModeStub), string(model.ModeLive)),
		),
	)
}

// Handle processes the analyze_transcript tool call. Failures are reported
// as tool errors so the client can show them.
func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}

	mode := t.defaults.Mode
	if raw := strings.ToLower(strings.TrimSpace(req.GetString("mode", ""))); raw != "" {
		m, err := model.ParseMode(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		mode = m
	}

	aliases, err := config.ParseList(req.GetString("provider_aliases", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid provider_aliases: %v", err)), nil
	}

	out, err := t.runner.Run(ctx, pipeline.Request{
		Text:            text,
		StoryID:         req.GetString("story_id", ""),
		ProviderName:    req.GetString("provider_name", ""),
		ProviderAliases: aliases,
		Mode:            mode,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	data, err := json.MarshalIndent(out.Payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
