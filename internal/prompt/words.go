package prompt

import (
	"regexp"
	"strings"
	"unicode"
)

// CursorContext describes the active editor text and selection. When there is
// no selection, SelStart and SelEnd are both the caret offset (bytes).
type CursorContext struct {
	Text     string
	SelStart int
	SelEnd   int
}

var wordPattern = regexp.MustCompile(`\w+`)

// closing quote characters that may trail sentence-terminal punctuation
const closingQuotes = `"'”’»)`

// WordsBefore returns up to n words immediately preceding the selection start
// (or caret). When fullSentence is set and the window begins mid-sentence, the
// leading partial sentence is dropped so the result starts at a sentence
// boundary; when the window contains no boundary at all the result is empty.
func WordsBefore(cur CursorContext, n int, fullSentence bool) string {
	if n <= 0 {
		return ""
	}
	pos := cur.SelStart
	if cur.SelEnd < pos {
		pos = cur.SelEnd
	}
	pos = clampOffset(cur.Text, pos)

	spans := wordPattern.FindAllStringIndex(cur.Text, -1)
	candidates := spans[:0:0]
	for _, s := range spans {
		if s[1] <= pos {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	if len(candidates) > n {
		candidates = candidates[len(candidates)-n:]
	}
	extracted := cur.Text[candidates[0][0]:pos]

	if fullSentence && !boundaryBefore(cur.Text, candidates[0][0]) {
		extracted = dropLeadingPartialSentence(extracted)
	}
	return strings.TrimSpace(extracted)
}

// WordsAfter is the symmetric counterpart, operating after the selection end
// and trimming a trailing partial sentence when requested.
func WordsAfter(cur CursorContext, n int, fullSentence bool) string {
	if n <= 0 {
		return ""
	}
	pos := cur.SelEnd
	if cur.SelStart > pos {
		pos = cur.SelStart
	}
	pos = clampOffset(cur.Text, pos)

	spans := wordPattern.FindAllStringIndex(cur.Text, -1)
	candidates := spans[:0:0]
	for _, s := range spans {
		if s[0] >= pos {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	end := candidates[len(candidates)-1][1]
	extracted := cur.Text[pos:end]

	if fullSentence && !boundaryAfter(cur.Text, end) {
		extracted = dropTrailingPartialSentence(extracted)
	}
	return strings.TrimSpace(extracted)
}

// RegisterCursorBindings installs the wordsBefore/wordsAfter call bindings
// backed by source. A nil cursor context resolves to the empty string.
func RegisterCursorBindings(r *Registry, source func() *CursorContext) {
	sig := []ArgKind{ArgInt, ArgBool}
	r.Register("wordsBefore", Call(sig, func(args []Value) (string, error) {
		cur := source()
		if cur == nil {
			return "", nil
		}
		return WordsBefore(*cur, args[0].Int, args[1].Bool), nil
	}))
	r.Register("wordsAfter", Call(sig, func(args []Value) (string, error) {
		cur := source()
		if cur == nil {
			return "", nil
		}
		return WordsAfter(*cur, args[0].Int, args[1].Bool), nil
	}))
}

func clampOffset(text string, pos int) int {
	if pos < 0 {
		return 0
	}
	if pos > len(text) {
		return len(text)
	}
	return pos
}

func isTerminal(r byte) bool {
	return r == '.' || r == '!' || r == '?'
}

// boundaryBefore reports whether the text immediately preceding offset ends a
// sentence (terminal punctuation, optionally followed by closing quotes).
// The start of the document counts as a boundary.
func boundaryBefore(text string, offset int) bool {
	i := offset - 1
	for i >= 0 {
		c := text[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			i--
			continue
		}
		if strings.IndexByte(closingQuotes, c) >= 0 {
			i--
			continue
		}
		return isTerminal(c)
	}
	return true
}

// boundaryAfter reports whether the extracted window ending at offset sits on
// a sentence boundary: either end of document or terminal punctuation follows.
func boundaryAfter(text string, offset int) bool {
	if offset >= len(text) {
		return true
	}
	return isTerminal(text[offset])
}

// dropLeadingPartialSentence removes everything up to and including the first
// sentence boundary. Returns empty when the window holds no boundary.
func dropLeadingPartialSentence(s string) string {
	for i := 0; i < len(s); i++ {
		if !isTerminal(s[i]) {
			continue
		}
		j := i + 1
		for j < len(s) && strings.IndexByte(closingQuotes, s[j]) >= 0 {
			j++
		}
		if j < len(s) && !unicode.IsSpace(rune(s[j])) {
			// Mid-token punctuation (e.g. an abbreviation or ellipsis run);
			// keep scanning.
			continue
		}
		return strings.TrimSpace(s[j:])
	}
	return ""
}

// dropTrailingPartialSentence keeps everything up to and including the last
// sentence boundary. Returns empty when the window holds no boundary.
func dropTrailingPartialSentence(s string) string {
	last := -1
	for i := 0; i < len(s); i++ {
		if !isTerminal(s[i]) {
			continue
		}
		j := i + 1
		for j < len(s) && strings.IndexByte(closingQuotes, s[j]) >= 0 {
			j++
		}
		if j < len(s) && !unicode.IsSpace(rune(s[j])) {
			continue
		}
		last = j
	}
	if last < 0 {
		return ""
	}
	return strings.TrimSpace(s[:last])
}
