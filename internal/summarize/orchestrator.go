package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kayz/inkwright/internal/llm"
	"github.com/kayz/inkwright/internal/logger"
	"github.com/kayz/inkwright/internal/project"
	"github.com/kayz/inkwright/internal/prompt"
)

var (
	// ErrRunActive is returned when a batch run is requested while another is
	// in flight; one open completion stream at a time, in chapter order.
	ErrRunActive = errors.New("a summarization run is already active")
	// ErrNoScenes is the structural failure: the chapter cannot be enumerated
	// into any scenes at all.
	ErrNoScenes = errors.New("chapter has no scenes")
)

// State is the orchestrator's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateCollecting
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Policy controls how scenes that already carry a summary are treated.
type Policy int

const (
	PolicySkipNonEmpty Policy = iota
	PolicyOverwriteAll
)

// ParsePolicy converts the wire/CLI spelling of a policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "skip-if-non-empty", "skip", "":
		return PolicySkipNonEmpty, nil
	case "overwrite-all", "overwrite":
		return PolicyOverwriteAll, nil
	}
	return PolicySkipNonEmpty, fmt.Errorf("unknown policy: %q", s)
}

func (p Policy) String() string {
	if p == PolicyOverwriteAll {
		return "overwrite-all"
	}
	return "skip-if-non-empty"
}

// Event is a progress notification emitted during a run.
type Event struct {
	Kind      string `json:"kind"` // run_started, scene_started, chunk, scene_completed, scene_skipped, scene_failed, run_finished
	RunID     string `json:"run_id"`
	SceneID   string `json:"scene_id,omitempty"`
	SceneName string `json:"scene_name,omitempty"`
	Index     int    `json:"index,omitempty"`
	Total     int    `json:"total,omitempty"`
	Text      string `json:"text,omitempty"`
	Reason    string `json:"reason,omitempty"`
	State     string `json:"state,omitempty"`
}

// SceneFailure records a scene-local failure inside an otherwise live run.
type SceneFailure struct {
	SceneID   string
	SceneName string
	Err       error
}

// Report is the outcome of one batch run.
type Report struct {
	RunID           string
	State           State
	Processed       []string
	SkippedExisting []string
	SkippedEmpty    []string
	Failures        []SceneFailure
	Duration        time.Duration
}

// Options configures an Orchestrator.
type Options struct {
	Template    string
	Model       string
	MaxTokens   int
	Temperature float32
	OnEvent     func(Event)
}

// Orchestrator drives batch scene summarization: for each target scene it
// builds a scene-scoped render context, renders the prompt, streams the
// completion, and persists the finished summary before advancing. Failures
// and cancellation are contained so already-persisted summaries survive.
type Orchestrator struct {
	store    *project.Store
	provider llm.Provider
	scenes   *project.ContextProvider
	registry *prompt.Registry
	renderer *prompt.Renderer
	opts     Options

	runMu sync.Mutex
	state atomic.Int32
	stop  atomic.Bool
}

// New creates an orchestrator over the given collaborators.
func New(store *project.Store, provider llm.Provider, scenes *project.ContextProvider, registry *prompt.Registry, opts Options) *Orchestrator {
	return &Orchestrator{
		store:    store,
		provider: provider,
		scenes:   scenes,
		registry: registry,
		renderer: prompt.NewRenderer(registry),
		opts:     opts,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Stop requests cooperative cancellation. It is checked between scenes and at
// every chunk boundary; the scene in flight when the signal lands is
// discarded, everything persisted before it is kept.
func (o *Orchestrator) Stop() {
	o.stop.Store(true)
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}

func (o *Orchestrator) stopped(ctx context.Context) bool {
	return o.stop.Load() || ctx.Err() != nil
}

func (o *Orchestrator) emit(ev Event) {
	if o.opts.OnEvent != nil {
		o.opts.OnEvent(ev)
	}
}

// Run executes one batch over the chapter's scenes. Only one run may be
// active at a time.
func (o *Orchestrator) Run(ctx context.Context, chapterID string, policy Policy) (*Report, error) {
	if !o.runMu.TryLock() {
		return nil, ErrRunActive
	}
	defer o.runMu.Unlock()
	defer o.setState(StateIdle)

	o.stop.Store(false)
	o.setState(StateCollecting)
	started := time.Now()

	report := &Report{RunID: uuid.NewString()}

	scenes, err := o.store.LoadChapterScenes(chapterID)
	if err != nil {
		o.setState(StateFailed)
		report.State = StateFailed
		return report, fmt.Errorf("collect scenes: %w", err)
	}
	if len(scenes) == 0 {
		o.setState(StateFailed)
		report.State = StateFailed
		return report, ErrNoScenes
	}

	var targets []*project.Scene
	for _, sc := range scenes {
		if policy == PolicySkipNonEmpty && strings.TrimSpace(sc.Summary) != "" {
			report.SkippedExisting = append(report.SkippedExisting, sc.ID)
			continue
		}
		targets = append(targets, sc)
	}
	if len(targets) == 0 {
		o.setState(StateCompleted)
		report.State = StateCompleted
		report.Duration = time.Since(started)
		return report, nil
	}

	snapshot := o.registry.Snapshot()
	o.setState(StateRunning)
	o.emit(Event{Kind: "run_started", RunID: report.RunID, Total: len(targets)})

	for i, target := range targets {
		if o.stopped(ctx) {
			return o.finish(report, StateCancelled, started)
		}

		// Reload for a fresh body: rendering scene N+1 may depend on edits
		// and summaries persisted while processing scene N.
		sc, err := o.store.LoadScene(target.ID)
		if err != nil {
			report.Failures = append(report.Failures, SceneFailure{SceneID: target.ID, SceneName: target.Name, Err: err})
			o.emit(o.sceneEvent("scene_failed", report.RunID, target, i, len(targets), err.Error()))
			continue
		}
		if strings.TrimSpace(sc.Body) == "" {
			report.SkippedEmpty = append(report.SkippedEmpty, sc.ID)
			o.emit(o.sceneEvent("scene_skipped", report.RunID, sc, i, len(targets), "empty body"))
			continue
		}

		summary, outcome, err := o.summarizeScene(ctx, report.RunID, sc, i, len(targets), snapshot)
		switch outcome {
		case sceneCancelled:
			// Discard the in-flight accumulator; prior persists stand.
			return o.finish(report, StateCancelled, started)
		case sceneFailed:
			logger.Errorf("scene %q failed: %v", sc.Name, err)
			report.Failures = append(report.Failures, SceneFailure{SceneID: sc.ID, SceneName: sc.Name, Err: err})
			o.emit(o.sceneEvent("scene_failed", report.RunID, sc, i, len(targets), err.Error()))
			continue
		}

		// Persist before advancing; the next scene's render may depend on it.
		if err := o.store.SaveSummary(sc.ID, summary); err != nil {
			report.Failures = append(report.Failures, SceneFailure{SceneID: sc.ID, SceneName: sc.Name, Err: err})
			o.emit(o.sceneEvent("scene_failed", report.RunID, sc, i, len(targets), err.Error()))
			continue
		}
		report.Processed = append(report.Processed, sc.ID)
		o.emit(o.sceneEvent("scene_completed", report.RunID, sc, i, len(targets), ""))
	}

	return o.finish(report, StateCompleted, started)
}

type sceneOutcome int

const (
	sceneDone sceneOutcome = iota
	sceneFailed
	sceneCancelled
)

func (o *Orchestrator) summarizeScene(ctx context.Context, runID string, sc *project.Scene, index, total int, snapshot map[string]string) (string, sceneOutcome, error) {
	vars, err := o.scenes.SceneVariables(sc.ID)
	if err != nil {
		return "", sceneFailed, fmt.Errorf("scene variables: %w", err)
	}
	renderCtx := mergeContext(snapshot, vars)
	promptText := o.renderer.Render(o.opts.Template, renderCtx)

	o.emit(o.sceneEvent("scene_started", runID, sc, index, total, ""))

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := o.provider.Stream(streamCtx, llm.Request{
		Prompt:      promptText,
		Model:       o.opts.Model,
		MaxTokens:   o.opts.MaxTokens,
		Temperature: o.opts.Temperature,
	})
	if err != nil {
		return "", sceneFailed, fmt.Errorf("open stream: %w", err)
	}

	var buf strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			return "", sceneFailed, chunk.Err
		}
		if chunk.Done {
			break
		}
		buf.WriteString(chunk.Text)
		o.emit(Event{Kind: "chunk", RunID: runID, SceneID: sc.ID, SceneName: sc.Name, Index: index, Total: total, Text: chunk.Text})
		if o.stopped(ctx) {
			return "", sceneCancelled, nil
		}
	}
	return strings.TrimSpace(buf.String()), sceneDone, nil
}

func (o *Orchestrator) finish(report *Report, terminal State, started time.Time) (*Report, error) {
	o.setState(terminal)
	report.State = terminal
	report.Duration = time.Since(started)
	o.emit(Event{Kind: "run_finished", RunID: report.RunID, State: terminal.String()})
	logger.Infof("run %s finished: %s (%d summarized, %d skipped, %d failed)",
		report.RunID, terminal, len(report.Processed),
		len(report.SkippedExisting)+len(report.SkippedEmpty), len(report.Failures))
	return report, nil
}

func (o *Orchestrator) sceneEvent(kind, runID string, sc *project.Scene, index, total int, reason string) Event {
	return Event{
		Kind:      kind,
		RunID:     runID,
		SceneID:   sc.ID,
		SceneName: sc.Name,
		Index:     index,
		Total:     total,
		Reason:    reason,
	}
}

// mergeContext overlays maps left to right without mutating any input.
func mergeContext(base map[string]string, overlays ...map[string]string) map[string]string {
	out := make(map[string]string, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, m := range overlays {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
