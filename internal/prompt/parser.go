package prompt

import "strings"

// Template AST. Parsing is forgiving by design: structurally broken block
// tags fall back to literal text so a render can never fail outright.

type node interface{}

type textNode string

// exprNode holds the trimmed inner expression of a {{ ... }} reference.
type exprNode string

type ifNode struct {
	cond     string
	negate   bool
	body     []node
	elseBody []node
}

type forNode struct {
	loopVar string
	list    string
	body    []node
}

type tokenKind int

const (
	tokText tokenKind = iota
	tokExpr
	tokTag
)

type token struct {
	kind  tokenKind
	raw   string // full source text including delimiters
	inner string // trimmed content between delimiters
}

func lex(s string) []token {
	var toks []token
	for len(s) > 0 {
		open := strings.IndexByte(s, '{')
		if open < 0 || open == len(s)-1 {
			toks = append(toks, token{kind: tokText, raw: s})
			break
		}
		var closeDelim string
		var kind tokenKind
		switch s[open+1] {
		case '{':
			closeDelim, kind = "}}", tokExpr
		case '%':
			closeDelim, kind = "%}", tokTag
		default:
			// Single-brace legacy form or plain text; keep the brace verbatim.
			toks = append(toks, token{kind: tokText, raw: s[:open+1]})
			s = s[open+1:]
			continue
		}
		if open > 0 {
			toks = append(toks, token{kind: tokText, raw: s[:open]})
		}
		rest := s[open:]
		end := strings.Index(rest[2:], closeDelim)
		if end < 0 {
			// Unterminated delimiter: leave it as literal text.
			toks = append(toks, token{kind: tokText, raw: rest})
			break
		}
		raw := rest[:end+2+len(closeDelim)]
		toks = append(toks, token{
			kind:  kind,
			raw:   raw,
			inner: strings.TrimSpace(rest[2 : end+2]),
		})
		s = rest[len(raw):]
	}
	return toks
}

func parseTemplate(s string) []node {
	p := &parser{toks: lex(s)}
	nodes, _ := p.parseUntil(nil)
	return nodes
}

type parser struct {
	toks []token
	pos  int
}

// parseUntil parses nodes until one of the stop tags is reached (the stop tag
// itself is not consumed) or input is exhausted. Returns the stop tag name,
// or "" when input ran out.
func (p *parser) parseUntil(stops map[string]bool) ([]node, string) {
	var nodes []node
	for p.pos < len(p.toks) {
		t := p.toks[p.pos]
		switch t.kind {
		case tokText:
			nodes = append(nodes, textNode(t.raw))
			p.pos++
		case tokExpr:
			nodes = append(nodes, exprNode(t.inner))
			p.pos++
		case tokTag:
			name := tagName(t.inner)
			if stops != nil && stops[name] {
				return nodes, name
			}
			switch name {
			case "if":
				p.pos++
				nodes = append(nodes, p.parseIf(t))
			case "for":
				p.pos++
				nodes = append(nodes, p.parseFor(t))
			default:
				// Stray else/endif/endfor or an unknown tag: literal text.
				nodes = append(nodes, textNode(t.raw))
				p.pos++
			}
		}
	}
	return nodes, ""
}

func (p *parser) parseIf(open token) node {
	cond := strings.TrimSpace(strings.TrimPrefix(open.inner, "if"))
	negate := false
	if rest, ok := strings.CutPrefix(cond, "not "); ok {
		negate = true
		cond = strings.TrimSpace(rest)
	}
	if !identPattern.MatchString(cond) {
		// Unparseable condition: keep the tag verbatim and continue.
		return textNode(open.raw)
	}

	body, stop := p.parseUntil(map[string]bool{"else": true, "endif": true})
	n := ifNode{cond: cond, negate: negate, body: body}
	if stop == "else" {
		p.pos++
		n.elseBody, stop = p.parseUntil(map[string]bool{"endif": true})
	}
	if stop == "endif" {
		p.pos++
	}
	return n
}

func (p *parser) parseFor(open token) node {
	fields := strings.Fields(open.inner)
	if len(fields) != 4 || fields[0] != "for" || fields[2] != "in" ||
		!identPattern.MatchString(fields[1]) || !identPattern.MatchString(fields[3]) {
		return textNode(open.raw)
	}

	body, stop := p.parseUntil(map[string]bool{"endfor": true})
	if stop == "endfor" {
		p.pos++
	}
	return forNode{loopVar: fields[1], list: fields[3], body: body}
}

func tagName(inner string) string {
	if i := strings.IndexByte(inner, ' '); i >= 0 {
		return inner[:i]
	}
	return inner
}
