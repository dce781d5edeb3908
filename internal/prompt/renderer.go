package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Renderer substitutes variable references, conditionals and loops in a
// template. Rendering always succeeds as a whole: every reference that cannot
// be resolved degrades to an inline error marker instead of aborting, so a
// partially broken template still yields a usable, diagnosable prompt.
//
// Reference syntax is double-delimited: {{ name }} interpolation,
// {{ name(200, true) }} calls against the registry, and {% if %} / {% for %}
// blocks. The legacy single-brace form {name} is not evaluated and passes
// through verbatim.
type Renderer struct {
	reg *Registry
}

// NewRenderer creates a renderer; reg may be nil, in which case every call
// expression resolves to an error marker.
func NewRenderer(reg *Registry) *Renderer {
	return &Renderer{reg: reg}
}

// Render produces the final text for template against ctx. It is a pure
// function of its inputs and safe to call concurrently with distinct contexts.
func (r *Renderer) Render(template string, ctx map[string]string) string {
	nodes := parseTemplate(template)
	var sb strings.Builder
	sb.Grow(len(template))
	r.renderNodes(nodes, ctx, &sb)
	return sb.String()
}

// errorMarker is the deterministic, greppable marker substituted for any
// unresolvable reference.
func errorMarker(name string) string {
	return fmt.Sprintf("{ERROR: '%s' not found}", name)
}

var (
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	callPattern  = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*\((.*)\)$`)
	intPattern   = regexp.MustCompile(`^-?\d+$`)
)

func (r *Renderer) renderNodes(nodes []node, ctx map[string]string, sb *strings.Builder) {
	for _, n := range nodes {
		switch n := n.(type) {
		case textNode:
			sb.WriteString(string(n))
		case exprNode:
			sb.WriteString(r.evalExpr(string(n), ctx))
		case ifNode:
			if truthy(ctx[n.cond]) != n.negate {
				r.renderNodes(n.body, ctx, sb)
			} else {
				r.renderNodes(n.elseBody, ctx, sb)
			}
		case forNode:
			for _, item := range splitItems(ctx[n.list]) {
				child := overlay(ctx, n.loopVar, item)
				r.renderNodes(n.body, child, sb)
			}
		}
	}
}

func (r *Renderer) evalExpr(expr string, ctx map[string]string) string {
	if m := callPattern.FindStringSubmatch(expr); m != nil {
		name, rawArgs := m[1], m[2]
		if r.reg == nil {
			return errorMarker(name)
		}
		args, err := parseArgs(rawArgs)
		if err != nil {
			return errorMarker(name)
		}
		v, ok := r.reg.Resolve(name, args)
		if !ok {
			return errorMarker(name)
		}
		return v
	}
	if identPattern.MatchString(expr) {
		if v, ok := ctx[expr]; ok {
			return v
		}
	}
	return errorMarker(expr)
}

// truthy reports whether a resolved string counts as true in a conditional.
func truthy(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v != "" && v != "false" && v != "0"
}

// splitItems turns a resolved value into loop items, one per non-blank line.
func splitItems(v string) []string {
	var items []string
	for _, line := range strings.Split(v, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

func overlay(ctx map[string]string, name, value string) map[string]string {
	child := make(map[string]string, len(ctx)+1)
	for k, v := range ctx {
		child[k] = v
	}
	child[name] = value
	return child
}

// parseArgs parses a call argument list of integer, boolean and quoted string
// literals.
func parseArgs(raw string) ([]Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts, err := splitArgs(raw)
	if err != nil {
		return nil, err
	}
	args := make([]Value, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch {
		case intPattern.MatchString(p):
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("bad integer literal %q", p)
			}
			args = append(args, IntValue(n))
		case strings.EqualFold(p, "true"), strings.EqualFold(p, "false"):
			args = append(args, BoolValue(strings.EqualFold(p, "true")))
		case len(p) >= 2 && (p[0] == '"' || p[0] == '\'') && p[len(p)-1] == p[0]:
			args = append(args, StringValue(p[1:len(p)-1]))
		default:
			return nil, fmt.Errorf("bad argument literal %q", p)
		}
	}
	return args, nil
}

// splitArgs splits on commas outside quoted strings.
func splitArgs(raw string) ([]string, error) {
	var parts []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
			cur.WriteByte(c)
		case c == ',':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated string literal")
	}
	parts = append(parts, cur.String())
	return parts, nil
}
