package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kayz/inkwright/internal/project"
	"github.com/kayz/inkwright/internal/prompt"
	"github.com/kayz/inkwright/internal/summarize"
)

// Tools exposes the project over MCP so an external assistant can browse
// chapters, render prompts, and trigger summarization runs.
type Tools struct {
	projects *project.Store
	scenes   *project.ContextProvider
	registry *prompt.Registry
	renderer *prompt.Renderer
	orch     *summarize.Orchestrator
}

// New creates the tool set.
func New(projects *project.Store, scenes *project.ContextProvider, registry *prompt.Registry, orch *summarize.Orchestrator) *Tools {
	return &Tools{
		projects: projects,
		scenes:   scenes,
		registry: registry,
		renderer: prompt.NewRenderer(registry),
		orch:     orch,
	}
}

// Register adds every tool to the MCP server.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("list_chapters",
		mcp.WithDescription("List all chapters with scene and summary counts"),
	), t.ListChapters)

	s.AddTool(mcp.NewTool("show_scene",
		mcp.WithDescription("Show one scene's body, summary, and narrative settings"),
		mcp.WithString("scene_id", mcp.Required(), mcp.Description("Scene id")),
	), t.ShowScene)

	s.AddTool(mcp.NewTool("render_prompt",
		mcp.WithDescription("Render a prompt template against project variables, optionally scoped to a scene"),
		mcp.WithString("template", mcp.Required(), mcp.Description("Template text with {{ variable }} placeholders")),
		mcp.WithString("scene_id", mcp.Description("Scene id to overlay scene variables")),
	), t.RenderPrompt)

	s.AddTool(mcp.NewTool("summarize_chapter",
		mcp.WithDescription("Run batch summarization over a chapter's scenes"),
		mcp.WithString("chapter", mcp.Required(), mcp.Description("Chapter id or exact name")),
		mcp.WithString("policy", mcp.Description("skip-if-non-empty (default) or overwrite-all")),
	), t.SummarizeChapter)

	s.AddTool(mcp.NewTool("chapter_summary",
		mcp.WithDescription("Return the chapter summary derived from its scene summaries"),
		mcp.WithString("chapter", mcp.Required(), mcp.Description("Chapter id or exact name")),
	), t.ChapterSummary)
}

// ListChapters returns all chapters with per-chapter progress counts.
func (t *Tools) ListChapters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chapters, err := t.projects.ListChapters()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list chapters: %v", err)), nil
	}

	type view struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Position   int    `json:"position"`
		Scenes     int    `json:"scenes"`
		Summarized int    `json:"summarized"`
	}
	views := make([]view, 0, len(chapters))
	for _, ch := range chapters {
		scenes, err := t.projects.LoadChapterScenes(ch.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load scenes: %v", err)), nil
		}
		v := view{ID: ch.ID, Name: ch.Name, Position: ch.Position, Scenes: len(scenes)}
		for _, sc := range scenes {
			if strings.TrimSpace(sc.Summary) != "" {
				v.Summarized++
			}
		}
		views = append(views, v)
	}

	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode chapters: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ShowScene returns one scene as JSON.
func (t *Tools) ShowScene(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := req.Params.Arguments["scene_id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("scene_id is required"), nil
	}

	sc, err := t.projects.LoadScene(id)
	if errors.Is(err, project.ErrSceneNotFound) {
		return mcp.NewToolResultError("scene not found"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load scene: %v", err)), nil
	}

	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode scene: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// RenderPrompt renders a template against the global snapshot, optionally
// overlaid with one scene's variables.
func (t *Tools) RenderPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	template, ok := req.Params.Arguments["template"].(string)
	if !ok || template == "" {
		return mcp.NewToolResultError("template is required"), nil
	}

	renderCtx := t.registry.Snapshot()
	if sceneID, ok := req.Params.Arguments["scene_id"].(string); ok && sceneID != "" {
		vars, err := t.scenes.SceneVariables(sceneID)
		if errors.Is(err, project.ErrSceneNotFound) {
			return mcp.NewToolResultError("scene not found"), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to build scene variables: %v", err)), nil
		}
		for k, v := range vars {
			renderCtx[k] = v
		}
	}

	return mcp.NewToolResultText(t.renderer.Render(template, renderCtx)), nil
}

// SummarizeChapter runs a batch synchronously and reports the outcome. MCP
// calls carry their own deadline, so the run is bounded by ctx.
func (t *Tools) SummarizeChapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, ok := req.Params.Arguments["chapter"].(string)
	if !ok || ref == "" {
		return mcp.NewToolResultError("chapter is required"), nil
	}

	ch, err := t.projects.FindChapter(ref)
	if errors.Is(err, project.ErrChapterNotFound) {
		return mcp.NewToolResultError("chapter not found"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to find chapter: %v", err)), nil
	}

	policyStr, _ := req.Params.Arguments["policy"].(string)
	policy, err := summarize.ParsePolicy(policyStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := t.orch.Run(ctx, ch.ID, policy)
	if errors.Is(err, summarize.ErrRunActive) {
		return mcp.NewToolResultError("a summarization run is already active"), nil
	}
	if errors.Is(err, summarize.ErrNoScenes) {
		return mcp.NewToolResultError("chapter has no scenes"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s %s: %d summarized, %d skipped, %d failed",
		report.RunID, report.State,
		len(report.Processed),
		len(report.SkippedExisting)+len(report.SkippedEmpty),
		len(report.Failures))
	for _, f := range report.Failures {
		fmt.Fprintf(&b, "\n  %s: %v", f.SceneName, f.Err)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ChapterSummary returns the derived chapter summary.
func (t *Tools) ChapterSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, ok := req.Params.Arguments["chapter"].(string)
	if !ok || ref == "" {
		return mcp.NewToolResultError("chapter is required"), nil
	}

	ch, err := t.projects.FindChapter(ref)
	if errors.Is(err, project.ErrChapterNotFound) {
		return mcp.NewToolResultError("chapter not found"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to find chapter: %v", err)), nil
	}

	summary, err := t.projects.ChapterSummary(ch.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build summary: %v", err)), nil
	}
	if summary == "" {
		return mcp.NewToolResultText("(no scene summaries yet)"), nil
	}
	return mcp.NewToolResultText(summary), nil
}
