package source

import (
	"strings"

	"github.com/jward/staticrefl/internal/symbol"
)

// scalarTypes name the builtin types that never produce a class hint.
var scalarTypes = map[string]bool{
	"int": true, "integer": true, "float": true, "double": true,
	"string": true, "bool": true, "boolean": true, "iterable": true,
	"callable": true, "object": true, "mixed": true, "void": true,
	"null": true, "never": true, "false": true, "true": true,
}

// scope tracks the current namespace and its use imports.
type scope struct {
	namespace string
	uses      map[string]string // lower-cased alias -> fully qualified name
}

func newScope(namespace string) *scope {
	return &scope{
		namespace: symbol.Normalize(namespace),
		uses:      make(map[string]string),
	}
}

// addUse registers an import. An empty alias defaults to the last segment.
func (s *scope) addUse(name, alias string) {
	name = symbol.Normalize(name)
	if name == "" {
		return
	}
	if alias == "" {
		alias = symbol.ShortName(name)
	}
	s.uses[strings.ToLower(alias)] = name
}

// qualify resolves a class reference as written in source to a fully
// qualified name, following PHP's rules for fully qualified, qualified and
// unqualified names.
func (s *scope) qualify(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, symbol.Separator) {
		return symbol.Normalize(raw)
	}
	if rest, ok := cutPrefixFold(raw, `namespace\`); ok {
		return symbol.Join(s.namespace, rest)
	}
	first, rest, qualified := strings.Cut(raw, symbol.Separator)
	if target, ok := s.uses[strings.ToLower(first)]; ok {
		if qualified {
			return symbol.Join(target, rest)
		}
		return target
	}
	return symbol.Join(s.namespace, raw)
}

// declare returns the fully qualified name of a class declared in this scope.
func (s *scope) declare(short string) string {
	return symbol.Join(s.namespace, short)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
