// Package symbol normalizes PHP class symbol names.
package symbol

import "strings"

// Separator is the PHP namespace separator.
const Separator = `\`

// Normalize strips one leading namespace-root separator.
func Normalize(name string) string {
	return strings.TrimPrefix(name, Separator)
}

// Key returns the case-insensitive identity of a class name. PHP class names
// are case-insensitive, so caches keyed by class use this form.
func Key(name string) string {
	return strings.ToLower(Normalize(name))
}

// Equal reports whether two class names denote the same class.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}

// ShortName returns the name without its namespace.
func ShortName(name string) string {
	name = Normalize(name)
	if i := strings.LastIndex(name, Separator); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Namespace returns the namespace part of name, or "" for global names.
func Namespace(name string) string {
	name = Normalize(name)
	if i := strings.LastIndex(name, Separator); i >= 0 {
		return name[:i]
	}
	return ""
}

// Join builds a qualified name from a namespace and a relative name.
func Join(namespace, name string) string {
	namespace = strings.Trim(namespace, Separator)
	if namespace == "" {
		return name
	}
	return namespace + Separator + name
}
