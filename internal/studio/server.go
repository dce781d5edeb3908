package studio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kayz/inkwright/internal/logger"
	"github.com/kayz/inkwright/internal/project"
	"github.com/kayz/inkwright/internal/prompt"
	"github.com/kayz/inkwright/internal/summarize"
)

// Server is the local HTTP surface a desktop shell talks to: project
// browsing, prompt rendering, batch summarization control, and a websocket
// feed of run progress.
type Server struct {
	projects  *project.Store
	scenes    *project.ContextProvider
	registry  *prompt.Registry
	renderer  *prompt.Renderer
	orch      *summarize.Orchestrator
	hub       *Hub
	startedAt time.Time
}

// NewServer wires the studio endpoints over the given collaborators.
func NewServer(projects *project.Store, scenes *project.ContextProvider, registry *prompt.Registry, orch *summarize.Orchestrator, hub *Hub) *Server {
	return &Server{
		projects:  projects,
		scenes:    scenes,
		registry:  registry,
		renderer:  prompt.NewRenderer(registry),
		orch:      orch,
		hub:       hub,
		startedAt: time.Now().UTC(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/chapters", s.handleChapters)
	mux.HandleFunc("/api/chapters/summary", s.handleChapterSummary)
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/summarize", s.handleSummarize)
	mux.HandleFunc("/api/summarize/stop", s.handleStop)
	mux.HandleFunc("/ws/runs", s.hub.ServeWS)
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"state":      s.orch.State().String(),
		"clients":    s.hub.ClientCount(),
		"started_at": s.startedAt.Format(time.RFC3339),
		"uptime_sec": int(time.Since(s.startedAt).Seconds()),
	})
}

type chapterView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
	Scenes     int    `json:"scenes"`
	Summarized int    `json:"summarized"`
}

func (s *Server) handleChapters(w http.ResponseWriter, _ *http.Request) {
	chapters, err := s.projects.ListChapters()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	views := make([]chapterView, 0, len(chapters))
	for _, ch := range chapters {
		scenes, err := s.projects.LoadChapterScenes(ch.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		v := chapterView{ID: ch.ID, Name: ch.Name, Position: ch.Position, Scenes: len(scenes)}
		for _, sc := range scenes {
			if strings.TrimSpace(sc.Summary) != "" {
				v.Summarized++
			}
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleChapterSummary(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSpace(r.URL.Query().Get("chapter"))
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "chapter is required"})
		return
	}
	ch, err := s.projects.FindChapter(ref)
	if errors.Is(err, project.ErrChapterNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chapter not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	summary, err := s.projects.ChapterSummary(ch.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"chapter": ch.Name, "summary": summary})
}

type renderRequest struct {
	Template string            `json:"template"`
	SceneID  string            `json:"scene_id,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if req.Template == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "template is required"})
		return
	}

	renderCtx := s.registry.Snapshot()
	if req.SceneID != "" {
		vars, err := s.scenes.SceneVariables(req.SceneID)
		if errors.Is(err, project.ErrSceneNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "scene not found"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		for k, v := range vars {
			renderCtx[k] = v
		}
	}
	for k, v := range req.Extra {
		renderCtx[k] = v
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": s.renderer.Render(req.Template, renderCtx)})
}

type summarizeRequest struct {
	Chapter string `json:"chapter"`
	Policy  string `json:"policy,omitempty"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	ch, err := s.projects.FindChapter(strings.TrimSpace(req.Chapter))
	if errors.Is(err, project.ErrChapterNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chapter not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	policy, err := summarize.ParsePolicy(req.Policy)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if st := s.orch.State(); st != summarize.StateIdle {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a run is already active", "state": st.String()})
		return
	}

	go func() {
		report, err := s.orch.Run(context.Background(), ch.ID, policy)
		if errors.Is(err, summarize.ErrRunActive) {
			return
		}
		if err != nil {
			logger.Errorf("summarization run failed: %v", err)
			return
		}
		logger.Infof("run %s: %d summarized", report.RunID, len(report.Processed))
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"chapter": ch.Name,
		"policy":  policy.String(),
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	s.orch.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"state": s.orch.State().String()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
