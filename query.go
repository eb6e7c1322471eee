package staticrefl

import (
	"fmt"

	errs "github.com/jward/staticrefl/internal/errors"
	"github.com/jward/staticrefl/internal/reflection"
	"github.com/jward/staticrefl/internal/store"
	"github.com/jward/staticrefl/internal/symbol"
)

// QueryBuilder answers questions about the indexed declarations without
// building reflection nodes. Only indexed files are visible to it.
type QueryBuilder struct {
	store *store.Store
}

// Classes returns the indexed declarations of kind ("class" or
// "interface"), or all of them when kind is empty, sorted by name.
func (q *QueryBuilder) Classes(kind string) ([]*ClassDecl, error) {
	if kind == "" {
		classes, err := q.store.AllClasses()
		if err != nil {
			return nil, fmt.Errorf("classes: %w", err)
		}
		return classes, nil
	}
	k, ok := reflection.ParseKind(kind)
	if !ok {
		return nil, errs.InvalidArgument("kind", "unknown kind %q, want class or interface", kind)
	}
	classes, err := q.store.ClassesByKind(k.String())
	if err != nil {
		return nil, fmt.Errorf("classes: %w", err)
	}
	return classes, nil
}

// Class returns the indexed declaration of name, matched
// case-insensitively.
func (q *QueryBuilder) Class(name string) (*ClassDecl, error) {
	c, err := q.store.ClassByName(name)
	if err != nil {
		return nil, fmt.Errorf("class: %w", err)
	}
	if c == nil {
		return nil, errs.NotFound(symbol.Normalize(name), "class %s is not indexed", symbol.Normalize(name))
	}
	return c, nil
}

// Subclasses returns the classes extending name directly.
func (q *QueryBuilder) Subclasses(name string) ([]*ClassDecl, error) {
	classes, err := q.store.DirectSubclasses(symbol.Normalize(name))
	if err != nil {
		return nil, fmt.Errorf("subclasses: %w", err)
	}
	return classes, nil
}

// Implementors returns the classes implementing, and the interfaces
// extending, the interface name directly.
func (q *QueryBuilder) Implementors(name string) ([]*ClassDecl, error) {
	classes, err := q.store.DirectImplementors(symbol.Normalize(name))
	if err != nil {
		return nil, fmt.Errorf("implementors: %w", err)
	}
	return classes, nil
}

// Descendants returns every class or interface that inherits from name,
// directly or through other declarations.
func (q *QueryBuilder) Descendants(name string) ([]*ClassDecl, error) {
	classes, err := q.store.Descendants(symbol.Normalize(name))
	if err != nil {
		return nil, fmt.Errorf("descendants: %w", err)
	}
	return classes, nil
}

// ClassFile returns the path of the file declaring name.
func (q *QueryBuilder) ClassFile(name string) (string, error) {
	path, err := q.store.ClassFile(name)
	if err != nil {
		return "", fmt.Errorf("class file: %w", err)
	}
	if path == "" {
		return "", errs.PathnameNotFound(symbol.Normalize(name))
	}
	return path, nil
}

// Files returns every indexed file.
func (q *QueryBuilder) Files() ([]*File, error) {
	files, err := q.store.Files()
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}
