package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kayz/inkwright/internal/llm"
	"github.com/kayz/inkwright/internal/project"
	"github.com/kayz/inkwright/internal/summarize"
)

var testDefaults = project.Defaults{
	POV:          "Third Person Limited",
	POVCharacter: "Character",
	Tense:        "Present Tense",
}

type staticProvider struct{ text string }

func (p *staticProvider) Name() string { return "static" }

func (p *staticProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	out := make(chan llm.Chunk, 2)
	out <- llm.Chunk{Text: p.text}
	out <- llm.Chunk{Done: true}
	close(out)
	return out, nil
}

type testStudio struct {
	srv     *httptest.Server
	store   *project.Store
	chapter *project.Chapter
	sceneID string
	hub     *Hub
}

func newTestStudio(t *testing.T) *testStudio {
	t.Helper()
	store, err := project.NewStore(filepath.Join(t.TempDir(), "project.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ch, _ := store.CreateChapter("Chapter One")
	sc, _ := store.CreateScene(ch.ID, "Opening", "the body of the opening scene")

	scenes := project.NewContextProvider(store, testDefaults)
	registry := project.BuildRegistry("Nightfall", testDefaults)
	hub := NewHub()
	orch := summarize.New(store, &staticProvider{text: "a summary"}, scenes, registry, summarize.Options{
		Template: "Summarize: {{ story_so_far }}",
		OnEvent:  hub.Broadcast,
	})

	server := NewServer(store, scenes, registry, orch, hub)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)

	return &testStudio{srv: srv, store: store, chapter: ch, sceneID: sc.ID, hub: hub}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestStudio(t)

	var status map[string]any
	if code := getJSON(t, ts.srv.URL+"/api/status", &status); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if status["ok"] != true || status["state"] != "idle" {
		t.Fatalf("status payload: %v", status)
	}
}

func TestChaptersEndpointCountsSummaries(t *testing.T) {
	ts := newTestStudio(t)
	ts.store.SaveSummary(ts.sceneID, "done")

	var chapters []chapterView
	if code := getJSON(t, ts.srv.URL+"/api/chapters", &chapters); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if len(chapters) != 1 {
		t.Fatalf("chapters: %v", chapters)
	}
	if chapters[0].Scenes != 1 || chapters[0].Summarized != 1 {
		t.Fatalf("chapter view: %+v", chapters[0])
	}
}

func TestRenderEndpoint(t *testing.T) {
	ts := newTestStudio(t)

	var out map[string]string
	code := postJSON(t, ts.srv.URL+"/api/render", renderRequest{
		Template: "POV {{ pov }}: {{ story_so_far }} and {{ missing }}",
		SceneID:  ts.sceneID,
	}, &out)
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	want := "POV Third Person Limited: the body of the opening scene and {ERROR: 'missing' not found}"
	if out["text"] != want {
		t.Fatalf("rendered = %q", out["text"])
	}
}

func TestRenderEndpointUnknownScene(t *testing.T) {
	ts := newTestStudio(t)

	code := postJSON(t, ts.srv.URL+"/api/render", renderRequest{
		Template: "x",
		SceneID:  "nope",
	}, nil)
	if code != http.StatusNotFound {
		t.Fatalf("status code = %d", code)
	}
}

func TestSummarizeEndpointRunsChapter(t *testing.T) {
	ts := newTestStudio(t)

	code := postJSON(t, ts.srv.URL+"/api/summarize", summarizeRequest{Chapter: "Chapter One"}, nil)
	if code != http.StatusAccepted {
		t.Fatalf("status code = %d", code)
	}

	waitFor(t, func() bool {
		sc, err := ts.store.LoadScene(ts.sceneID)
		return err == nil && sc.Summary == "a summary"
	})
}

func TestSummarizeEndpointUnknownChapter(t *testing.T) {
	ts := newTestStudio(t)

	code := postJSON(t, ts.srv.URL+"/api/summarize", summarizeRequest{Chapter: "Chapter Nine"}, nil)
	if code != http.StatusNotFound {
		t.Fatalf("status code = %d", code)
	}
}

func TestWebsocketReceivesRunEvents(t *testing.T) {
	ts := newTestStudio(t)

	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws/runs"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The upgrade response races with hub registration; wait until the
	// client is visible before starting the run.
	waitFor(t, func() bool { return ts.hub.ClientCount() == 1 })

	if code := postJSON(t, ts.srv.URL+"/api/summarize", summarizeRequest{Chapter: "Chapter One"}, nil); code != http.StatusAccepted {
		t.Fatalf("status code = %d", code)
	}

	var kinds []string
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		var ev summarize.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event (got %v): %v", kinds, err)
		}
		kinds = append(kinds, ev.Kind)
		if ev.Kind == "run_finished" {
			if ev.State != "completed" {
				t.Fatalf("terminal state = %q", ev.State)
			}
			break
		}
	}
	if kinds[0] != "run_started" {
		t.Fatalf("event kinds: %v", kinds)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}
