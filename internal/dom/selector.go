package dom

import (
	"fmt"
	"strings"
)

type attrSelector struct {
	name     string
	value    string
	hasValue bool
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrSelector
}

// selector is a chain of compounds joined by descendant combinators.
type selector []compound

// parseSelectorList parses a comma-separated selector list.
func parseSelectorList(s string) ([]selector, error) {
	var out []selector
	for _, part := range splitOutsideBrackets(s, func(r rune) bool { return r == ',' }) {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty selector in %q", s)
		}
		var sel selector
		for _, c := range splitOutsideBrackets(part, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }) {
			if c == "" {
				continue
			}
			comp, err := parseCompound(c)
			if err != nil {
				return nil, err
			}
			sel = append(sel, comp)
		}
		out = append(out, sel)
	}
	return out, nil
}

// splitOutsideBrackets splits s at runes matched by sep that are not inside
// [...] or quotes.
func splitOutsideBrackets(s string, sep func(rune) bool) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	var quote rune
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			if depth > 0 {
				quote = r
			}
		case r == '[':
			depth++
		case r == ']':
			if depth > 0 {
				depth--
			}
		case depth == 0 && sep(r):
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	parts = append(parts, cur.String())
	return parts
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	readName := func() string {
		start := i
		for i < len(s) && isNameByte(s[i]) {
			i++
		}
		return s[start:i]
	}

	if s[0] == '*' {
		i++
	} else {
		c.tag = strings.ToLower(readName())
	}

	for i < len(s) {
		switch s[i] {
		case '#':
			i++
			c.id = readName()
			if c.id == "" {
				return c, fmt.Errorf("invalid id selector %q", s)
			}
		case '.':
			i++
			class := readName()
			if class == "" {
				return c, fmt.Errorf("invalid class selector %q", s)
			}
			c.classes = append(c.classes, class)
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("unterminated attribute selector %q", s)
			}
			attr, err := parseAttrSelector(s[i+1 : i+end])
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, attr)
			i += end + 1
		default:
			return c, fmt.Errorf("unsupported selector %q", s)
		}
	}
	return c, nil
}

func parseAttrSelector(body string) (attrSelector, error) {
	name, value, hasValue := strings.Cut(body, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return attrSelector{}, fmt.Errorf("empty attribute selector [%s]", body)
	}
	a := attrSelector{name: name, hasValue: hasValue}
	if hasValue {
		value = strings.TrimSpace(value)
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}
		a.value = value
	}
	return a, nil
}

func isNameByte(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (c compound) matches(n *Node) bool {
	if c.tag != "" && c.tag != n.tag {
		return false
	}
	if c.id != "" && c.id != n.ID() {
		return false
	}
	for _, class := range c.classes {
		if !n.HasClass(class) {
			return false
		}
	}
	for _, a := range c.attrs {
		v, ok := n.attrs[a.name]
		if !ok || (a.hasValue && v != a.value) {
			return false
		}
	}
	return true
}

func (sel selector) matches(n *Node) bool {
	last := len(sel) - 1
	if last < 0 || !sel[last].matches(n) {
		return false
	}
	anc := n.parent
	for i := last - 1; i >= 0; i-- {
		for anc != nil && !sel[i].matches(anc) {
			anc = anc.parent
		}
		if anc == nil {
			return false
		}
		anc = anc.parent
	}
	return true
}

func matchesAny(sels []selector, n *Node) bool {
	for _, sel := range sels {
		if sel.matches(n) {
			return true
		}
	}
	return false
}
