package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mathblast/mathblast/internal/problem"
	"github.com/mathblast/mathblast/internal/profile"
)

const leaderboardURI = "mathblast://leaderboard"

// MCPProfiles is the part of the profile store the MCP tools read.
type MCPProfiles interface {
	Get(name string) (profile.Profile, error)
	Leaderboard(limit int) ([]profile.Profile, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Profiles MCPProfiles
	Version  string
}

// NewMCPServer creates an MCP server exposing problem generation, answer
// checking and profile statistics.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"mathblast",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("MathBlast: generate practice arithmetic problems, check answers and look up player progress."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_problem",
			mcp.WithDescription("Generate an arithmetic problem for a game level. The answer is included."),
			mcp.WithNumber("level", mcp.Description("Game level, 1-50 (default 1). Division starts at 3, square roots at 7.")),
			mcp.WithNumber("multiplier", mcp.Description("Operand size multiplier, (0, 10] (default 1)")),
		),
		mcpGenerateProblem(),
	)

	s.AddTool(
		mcp.NewTool("check_answer",
			mcp.WithDescription("Check an answer against the expected value. Numeric answers within 0.01 are accepted."),
			mcp.WithString("problem", mcp.Description("Problem text, for the reply only")),
			mcp.WithString("expected", mcp.Description("Expected answer"), mcp.Required()),
			mcp.WithString("answer", mcp.Description("Answer to check"), mcp.Required()),
		),
		mcpCheckAnswer(),
	)

	s.AddTool(
		mcp.NewTool("leaderboard",
			mcp.WithDescription("Top players by highest level, then total correct answers."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of players (default 10)")),
		),
		mcpLeaderboard(deps),
	)

	s.AddTool(
		mcp.NewTool("profile_stats",
			mcp.WithDescription("Statistics for one player profile."),
			mcp.WithString("name", mcp.Description("Profile name"), mcp.Required()),
		),
		mcpProfileStats(deps),
	)

	s.AddResource(
		mcp.NewResource(
			leaderboardURI,
			"Leaderboard",
			mcp.WithResourceDescription("Top 10 players as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceLeaderboard(deps),
	)

	return s
}

func mcpGenerateProblem() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		level := req.GetInt("level", 1)
		mult := req.GetFloat("multiplier", 1)
		level, mult, err := problemOptions(strconv.Itoa(level), strconv.FormatFloat(mult, 'f', -1, 64))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		b, err := json.Marshal(problem.Generate(newRand(), level, mult))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal problem: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCheckAnswer() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		expected, err := req.RequireString("expected")
		if err != nil {
			return mcpError("expected is required"), nil
		}
		answer, err := req.RequireString("answer")
		if err != nil {
			return mcpError("answer is required"), nil
		}
		text := req.GetString("problem", "")

		prefix := ""
		if text != "" {
			prefix = text + " "
		}
		if problem.Check(problem.Problem{Text: text, Answer: expected}, answer) {
			return mcpText(prefix + "Correct!"), nil
		}
		return mcpText(fmt.Sprintf("%sIncorrect: the answer is %s.", prefix, expected)), nil
	}
}

type leaderboardEntry struct {
	Rank     int     `json:"rank"`
	Name     string  `json:"name"`
	Avatar   string  `json:"avatar"`
	Level    int     `json:"level"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

func leaderboardJSON(deps MCPDeps, limit int) (string, error) {
	list, err := deps.Profiles.Leaderboard(limit)
	if err != nil {
		return "", fmt.Errorf("failed to load leaderboard: %w", err)
	}
	entries := make([]leaderboardEntry, len(list))
	for i, p := range list {
		entries[i] = leaderboardEntry{
			Rank:     i + 1,
			Name:     p.Name,
			Avatar:   p.Avatar,
			Level:    p.Level,
			Correct:  p.Correct,
			Accuracy: p.Accuracy(),
		}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to marshal leaderboard: %w", err)
	}
	return string(b), nil
}

func mcpLeaderboard(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}
		text, err := leaderboardJSON(deps, limit)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(text), nil
	}
}

func mcpProfileStats(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		p, err := deps.Profiles.Get(name)
		if errors.Is(err, profile.ErrNotFound) {
			return mcpError(fmt.Sprintf("profile %q not found", name)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load profile: %v", err)), nil
		}

		b, err := json.Marshal(viewOf(p))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal profile: %v", err)), nil
		}
		return mcpText(profile.Summarize(p) + "\n" + string(b)), nil
	}
}

func mcpResourceLeaderboard(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := leaderboardJSON(deps, 10)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
