package source

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/staticrefl/internal/store"
)

// literalOf converts a constant expression node to a storable literal.
// Anything that is not a plain scalar, null or empty array is kept as
// source text.
func (w *walker) literalOf(n *sitter.Node) store.Literal {
	for n != nil && n.Type() == "parenthesized_expression" && n.NamedChildCount() == 1 {
		n = n.NamedChild(0)
	}
	if n == nil {
		return store.Literal{Kind: store.LiteralNull, Text: "null"}
	}
	text := w.text(n)
	expr := store.Literal{Kind: store.LiteralExpr, Text: text}

	switch n.Type() {
	case "integer":
		if v, ok := parseInt(text); ok {
			return store.Literal{Kind: store.LiteralInt, Text: strconv.FormatInt(v, 10)}
		}
		// Out of int64 range: PHP turns it into a float.
		if f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64); err == nil {
			return store.Literal{Kind: store.LiteralFloat, Text: formatFloat(f)}
		}
	case "float":
		if f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64); err == nil {
			return store.Literal{Kind: store.LiteralFloat, Text: formatFloat(f)}
		}
	case "boolean":
		return store.Literal{Kind: store.LiteralBool, Text: strings.ToLower(text)}
	case "null":
		return store.Literal{Kind: store.LiteralNull, Text: "null"}
	case "name", "qualified_name":
		switch strings.ToLower(strings.TrimPrefix(text, `\`)) {
		case "true", "false":
			return store.Literal{Kind: store.LiteralBool, Text: strings.ToLower(strings.TrimPrefix(text, `\`))}
		case "null":
			return store.Literal{Kind: store.LiteralNull, Text: "null"}
		}
	case "string":
		if s, ok := unquoteSingle(text); ok {
			return store.Literal{Kind: store.LiteralString, Text: s}
		}
		if s, ok := unquoteDouble(text); ok {
			return store.Literal{Kind: store.LiteralString, Text: s}
		}
	case "encapsed_string":
		if s, ok := unquoteDouble(text); ok {
			return store.Literal{Kind: store.LiteralString, Text: s}
		}
	case "array_creation_expression":
		if countNamed(n, "array_element_initializer") == 0 {
			return store.Literal{Kind: store.LiteralArray, Text: "[]"}
		}
	case "unary_op_expression":
		if n.NamedChildCount() == 1 && strings.HasPrefix(strings.TrimSpace(text), "-") {
			inner := w.literalOf(n.NamedChild(0))
			switch inner.Kind {
			case store.LiteralInt, store.LiteralFloat:
				if strings.HasPrefix(inner.Text, "-") {
					inner.Text = inner.Text[1:]
				} else {
					inner.Text = "-" + inner.Text
				}
				return inner
			}
		}
	}
	return expr
}

// parseInt parses PHP integer literals: decimal, 0x hex, 0b binary, and
// 0 or 0o octal, with optional digit separators.
func parseInt(text string) (int64, bool) {
	text = strings.ReplaceAll(text, "_", "")
	lower := strings.ToLower(text)
	base := 10
	switch {
	case strings.HasPrefix(lower, "0x"):
		base, text = 16, text[2:]
	case strings.HasPrefix(lower, "0b"):
		base, text = 2, text[2:]
	case strings.HasPrefix(lower, "0o"):
		base, text = 8, text[2:]
	case len(text) > 1 && text[0] == '0':
		base, text = 8, text[1:]
	}
	v, err := strconv.ParseInt(text, base, 64)
	return v, err == nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// unquoteSingle decodes a single-quoted PHP string, where only \' and \\
// are escapes.
func unquoteSingle(text string) (string, bool) {
	if len(text) < 2 || text[0] != '\'' || text[len(text)-1] != '\'' {
		return "", false
	}
	body := text[1 : len(text)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) && (body[i+1] == '\'' || body[i+1] == '\\') {
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String(), true
}

// unquoteDouble decodes a double-quoted PHP string without interpolation.
// Strings containing a variable are not constant and report false.
func unquoteDouble(text string) (string, bool) {
	if len(text) < 2 || text[0] != '"' || text[len(text)-1] != '"' {
		return "", false
	}
	body := text[1 : len(text)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '$' && i+1 < len(body) && (isNameStart(body[i+1]) || body[i+1] == '{') {
			return "", false
		}
		if c == '{' && i+1 < len(body) && body[i+1] == '$' {
			return "", false
		}
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'v':
			b.WriteByte('\v')
		case 'f':
			b.WriteByte('\f')
		case 'e':
			b.WriteByte(0x1b)
		case '0':
			b.WriteByte(0)
		case '\\', '$', '"':
			b.WriteByte(body[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(body[i])
		}
	}
	return b.String(), true
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}
