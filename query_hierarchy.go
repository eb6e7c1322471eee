package staticrefl

import (
	"fmt"
)

// ClassHierarchy is the indexed neighbourhood of one class or interface.
// Names that are declared but not indexed appear in ParentName or
// InterfaceNames only.
type ClassHierarchy struct {
	Class          *ClassDecl
	Parent         *ClassDecl   // nil when there is none or it is not indexed
	Interfaces     []*ClassDecl // indexed direct interfaces
	Subclasses     []*ClassDecl // classes extending Class directly
	Implementors   []*ClassDecl // declarations implementing or extending Class directly
	ParentName     string
	InterfaceNames []string
}

// Hierarchy returns the direct relations of name as recorded in the index.
func (q *QueryBuilder) Hierarchy(name string) (*ClassHierarchy, error) {
	c, err := q.Class(name)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: %w", err)
	}
	h := &ClassHierarchy{
		Class:          c,
		ParentName:     c.ParentName,
		InterfaceNames: c.Interfaces,
	}

	if c.ParentName != "" {
		if h.Parent, err = q.store.ClassByName(c.ParentName); err != nil {
			return nil, fmt.Errorf("hierarchy: parent: %w", err)
		}
	}
	for _, in := range c.Interfaces {
		iface, err := q.store.ClassByName(in)
		if err != nil {
			return nil, fmt.Errorf("hierarchy: interface %s: %w", in, err)
		}
		if iface != nil {
			h.Interfaces = append(h.Interfaces, iface)
		}
	}
	if h.Subclasses, err = q.Subclasses(c.Name); err != nil {
		return nil, fmt.Errorf("hierarchy: %w", err)
	}
	if h.Implementors, err = q.Implementors(c.Name); err != nil {
		return nil, fmt.Errorf("hierarchy: %w", err)
	}
	return h, nil
}
