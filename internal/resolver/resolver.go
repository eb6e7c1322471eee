// Package resolver maps PHP class names to the source files that declare
// them. Resolvers compose through Chain; the first member able to answer wins.
package resolver

import (
	"maps"
	"slices"

	errs "github.com/jward/staticrefl/internal/errors"
	"github.com/jward/staticrefl/internal/symbol"
)

// Resolver locates the source file of a class.
type Resolver interface {
	// HasPathnameForClass reports whether PathnameForClass would succeed.
	HasPathnameForClass(name string) bool
	// PathnameForClass returns the file declaring name, or a NotFound error.
	PathnameForClass(name string) (string, error)
}

var (
	_ Resolver = (*Chain)(nil)
	_ Resolver = (*Table)(nil)
	_ Resolver = (*Naming)(nil)
	_ Resolver = Func(nil)
)

// Chain tries its members in registration order.
type Chain struct {
	members []Resolver
}

func NewChain(members ...Resolver) *Chain {
	c := &Chain{}
	for _, r := range members {
		c.Add(r)
	}
	return c
}

// Add appends r; earlier members take priority.
func (c *Chain) Add(r Resolver) {
	if r == nil {
		return
	}
	c.members = append(c.members, r)
}

// Len returns the number of members.
func (c *Chain) Len() int { return len(c.members) }

func (c *Chain) HasPathnameForClass(name string) bool {
	for _, r := range c.members {
		if r.HasPathnameForClass(name) {
			return true
		}
	}
	return false
}

// PathnameForClass returns the answer of the first member that resolves
// name. A member's NotFound moves on to the next member; any other error is
// returned as is.
func (c *Chain) PathnameForClass(name string) (string, error) {
	for _, r := range c.members {
		path, err := r.PathnameForClass(name)
		if err == nil {
			return path, nil
		}
		if !errs.IsCode(err, errs.CodeNotFound) {
			return "", err
		}
	}
	return "", errs.PathnameNotFound(name)
}

// Table is a fixed class map, like a generated autoload array. Keys are
// normalized once at construction and compared case-sensitively.
type Table struct {
	paths map[string]string
}

// NewTable copies classmap. When several keys normalize to the same name,
// the key written without the leading separator wins.
func NewTable(classmap map[string]string) *Table {
	paths := make(map[string]string, len(classmap))
	for _, name := range slices.Sorted(maps.Keys(classmap)) {
		key := symbol.Normalize(name)
		if _, taken := paths[key]; taken && name != key {
			continue
		}
		paths[key] = classmap[name]
	}
	return &Table{paths: paths}
}

func (t *Table) HasPathnameForClass(name string) bool {
	_, ok := t.paths[symbol.Normalize(name)]
	return ok
}

func (t *Table) PathnameForClass(name string) (string, error) {
	path, ok := t.paths[symbol.Normalize(name)]
	if !ok {
		return "", errs.PathnameNotFound(name)
	}
	return path, nil
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.paths) }

// Func adapts a lookup function to Resolver.
type Func func(name string) (string, error)

func (f Func) HasPathnameForClass(name string) bool {
	_, err := f(name)
	return err == nil
}

func (f Func) PathnameForClass(name string) (string, error) {
	return f(name)
}
