package i18n

import (
	"fmt"
	"strconv"
	"strings"
)

// template is a message with positional placeholders {0}, {1}, ... in any
// order. Placeholders may repeat.
type template struct {
	text    string
	parts   []string
	indexes []int
	// highest is the largest placeholder index, -1 without placeholders.
	highest int
}

// parseTemplate splits text into literal parts and placeholder indexes.
// Braces that do not form a {n} placeholder are rejected.
func parseTemplate(text string) (template, error) {
	t := template{text: text, highest: -1}
	rest := text
	for {
		open := strings.IndexAny(rest, "{}")
		if open < 0 {
			t.parts = append(t.parts, rest)
			return t, nil
		}
		if rest[open] == '}' {
			return template{}, fmt.Errorf("unbalanced placeholder in %q", text)
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return template{}, fmt.Errorf("unbalanced placeholder in %q", text)
		}
		n, err := strconv.Atoi(rest[open+1 : open+end])
		if err != nil || n < 0 {
			return template{}, fmt.Errorf("invalid placeholder %q in %q", rest[open:open+end+1], text)
		}
		t.parts = append(t.parts, rest[:open])
		t.indexes = append(t.indexes, n)
		if n > t.highest {
			t.highest = n
		}
		rest = rest[open+end+1:]
	}
}

// render substitutes args. Callers check highest against len(args) first;
// a placeholder without an argument is left as written.
func (t template) render(args []string) string {
	var b strings.Builder
	for i, part := range t.parts {
		b.WriteString(part)
		if i >= len(t.indexes) {
			continue
		}
		if n := t.indexes[i]; n < len(args) {
			b.WriteString(args[n])
		} else {
			b.WriteString("{" + strconv.Itoa(n) + "}")
		}
	}
	return b.String()
}
