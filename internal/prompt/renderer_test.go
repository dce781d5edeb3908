package prompt

import (
	"errors"
	"strings"
	"testing"
)

func TestRenderSubstitutesKnownAndMarksUnknown(t *testing.T) {
	r := NewRenderer(nil)
	ctx := map[string]string{
		"pov":   "Third Person",
		"tense": "Past Tense",
	}
	got := r.Render("Write in {{ pov }} from {{ badVar }}'s perspective using {{ tense }}.", ctx)
	want := "Write in Third Person from {ERROR: 'badVar' not found}'s perspective using Past Tense."
	if got != want {
		t.Fatalf("render mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestRenderNeverFailsOnBrokenTemplates(t *testing.T) {
	r := NewRenderer(NewRegistry())
	cases := []string{
		"",
		"{{",
		"{{ unclosed",
		"{% if %}",
		"{% endif %}",
		"{% for x %}body{% endfor %}",
		"{% if a %}no endif",
		"text {{ weird.expr }} more",
		"{% unknown tag %}",
	}
	for _, tmpl := range cases {
		got := r.Render(tmpl, map[string]string{"a": "yes"})
		_ = got // must not panic; content checked per-case below where it matters
	}
}

func TestRenderLeavesSingleBraceFormVerbatim(t *testing.T) {
	r := NewRenderer(nil)
	got := r.Render("legacy {pov} stays, {{ pov }} resolves", map[string]string{"pov": "First Person"})
	want := "legacy {pov} stays, First Person resolves"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderConditionals(t *testing.T) {
	r := NewRenderer(nil)
	tmpl := "{% if pov_character %}by {{ pov_character }}{% else %}anonymous{% endif %}"

	got := r.Render(tmpl, map[string]string{"pov_character": "Mara"})
	if got != "by Mara" {
		t.Fatalf("truthy branch: got %q", got)
	}

	got = r.Render(tmpl, map[string]string{"pov_character": ""})
	if got != "anonymous" {
		t.Fatalf("falsy branch: got %q", got)
	}

	got = r.Render(tmpl, map[string]string{})
	if got != "anonymous" {
		t.Fatalf("missing variable treated as false: got %q", got)
	}

	got = r.Render("{% if not done %}pending{% endif %}", map[string]string{"done": "false"})
	if got != "pending" {
		t.Fatalf("negated condition: got %q", got)
	}
}

func TestRenderLoops(t *testing.T) {
	r := NewRenderer(nil)
	ctx := map[string]string{"beats": "arrival\n\nconfrontation\nescape"}
	got := r.Render("{% for beat in beats %}- {{ beat }}\n{% endfor %}", ctx)
	want := "- arrival\n- confrontation\n- escape\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	if got := r.Render("{% for b in missing %}x{% endfor %}", nil); got != "" {
		t.Fatalf("missing list should iterate zero times, got %q", got)
	}
}

func TestRenderCallBindings(t *testing.T) {
	reg := NewRegistry()
	reg.Register("repeat", Call([]ArgKind{ArgString, ArgInt}, func(args []Value) (string, error) {
		return strings.Repeat(args[0].Str, args[1].Int), nil
	}))
	r := NewRenderer(reg)

	if got := r.Render(`{{ repeat("ab", 3) }}`, nil); got != "ababab" {
		t.Fatalf("call: got %q", got)
	}

	// Wrong arity and wrong kinds degrade to the marker, not an error.
	if got := r.Render(`{{ repeat("ab") }}`, nil); got != "{ERROR: 'repeat' not found}" {
		t.Fatalf("arity mismatch: got %q", got)
	}
	if got := r.Render(`{{ repeat(3, "ab") }}`, nil); got != "{ERROR: 'repeat' not found}" {
		t.Fatalf("kind mismatch: got %q", got)
	}
	if got := r.Render(`{{ nosuch(1) }}`, nil); got != "{ERROR: 'nosuch' not found}" {
		t.Fatalf("unknown call: got %q", got)
	}
}

func TestRegistryIsolatesProducerFailures(t *testing.T) {
	reg := NewRegistry()
	reg.Register("good", Constant("fine"))
	reg.Register("boom", Thunk(func() (string, error) {
		return "", errors.New("collector exploded")
	}))

	snap := reg.Snapshot()
	if snap["good"] != "fine" {
		t.Fatalf("snapshot lost healthy binding: %#v", snap)
	}
	if v, ok := snap["boom"]; !ok || v != "" {
		t.Fatalf("failed binding should snapshot as empty, got %q (ok=%v)", v, ok)
	}

	r := NewRenderer(reg)
	got := r.Render("{{ good }} and {{ boom }}", snap)
	if got != "fine and " {
		t.Fatalf("got %q", got)
	}
}

func TestRegistryLastWriteWins(t *testing.T) {
	reg := NewRegistry()
	reg.Register("name", Constant("first"))
	reg.Register("name", Constant("second"))
	v, ok := reg.Resolve("name", nil)
	if !ok || v != "second" {
		t.Fatalf("got %q ok=%v", v, ok)
	}
}

func TestSnapshotSkipsCallBindings(t *testing.T) {
	reg := NewRegistry()
	reg.Register("wordsBefore", Call([]ArgKind{ArgInt, ArgBool}, func([]Value) (string, error) {
		return "never", nil
	}))
	reg.Register("pov", Constant("Third Person"))

	snap := reg.Snapshot()
	if _, ok := snap["wordsBefore"]; ok {
		t.Fatalf("call bindings must not appear in snapshot: %#v", snap)
	}
	if snap["pov"] != "Third Person" {
		t.Fatalf("missing constant in snapshot: %#v", snap)
	}
}
