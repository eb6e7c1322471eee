// Package reflection models PHP classes and interfaces statically. Nodes are
// built in two phases: declared members are fixed at construction, while
// relationships (parent, interfaces, properties, parameters) are bound later
// through one-shot Init methods. After initialization nodes are never mutated
// and may be shared freely.
package reflection

import (
	"strings"

	errs "github.com/jward/staticrefl/internal/errors"
	"github.com/jward/staticrefl/internal/symbol"
)

// Kind distinguishes classes from interfaces.
type Kind int

const (
	KindClass Kind = iota
	KindInterface
)

func (k Kind) String() string {
	if k == KindInterface {
		return "interface"
	}
	return "class"
}

// ParseKind maps "class" or "interface" to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(s) {
	case "class":
		return KindClass, true
	case "interface":
		return KindInterface, true
	}
	return KindClass, false
}

// Class is a class or interface node.
type Class struct {
	kind       Kind
	name       string
	docComment string
	modifiers  Modifier

	// declared members, fixed at construction. Methods are keyed by
	// lower-cased name.
	methods   map[string]*Method
	constants map[string]any

	parent     once[*Class]
	interfaces once[[]*Class]
	properties once[map[string]*Property]
}

// ClassOption configures the declared members of a Class.
type ClassOption func(*Class)

// WithMethods declares methods on the class. A later method with the same
// case-insensitive name replaces an earlier one. A method already declared
// by another class is skipped; its declaring class never changes.
func WithMethods(methods ...*Method) ClassOption {
	return func(c *Class) {
		for _, m := range methods {
			if m == nil || (m.declaringClass != nil && m.declaringClass != c) {
				continue
			}
			c.methods[strings.ToLower(m.name)] = m
		}
	}
}

// WithConstants declares class constants.
func WithConstants(constants map[string]any) ClassOption {
	return func(c *Class) {
		for name, v := range constants {
			c.constants[name] = v
		}
	}
}

// NewClass creates a class node. Declared methods are bound to the new node.
func NewClass(name, docComment string, modifiers Modifier, opts ...ClassOption) *Class {
	return newClass(KindClass, name, docComment, modifiers, opts)
}

// NewInterface creates an interface node.
func NewInterface(name, docComment string, opts ...ClassOption) *Class {
	return newClass(KindInterface, name, docComment, 0, opts)
}

func newClass(kind Kind, name, docComment string, modifiers Modifier, opts []ClassOption) *Class {
	c := &Class{
		kind:       kind,
		name:       symbol.Normalize(name),
		docComment: docComment,
		modifiers:  modifiers,
		methods:    make(map[string]*Method),
		constants:  make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, m := range c.methods {
		m.declaringClass = c
	}
	return c
}

func (c *Class) Name() string { return c.name }
func (c *Class) ShortName() string { return symbol.ShortName(c.name) }
func (c *Class) NamespaceName() string { return symbol.Namespace(c.name) }
func (c *Class) DocComment() string { return c.docComment }
func (c *Class) Kind() Kind { return c.kind }
func (c *Class) IsInterface() bool { return c.kind == KindInterface }

// Modifiers returns the explicit modifiers, with IsImplicitAbstract added
// when the merged method set still contains an abstract method.
func (c *Class) Modifiers() Modifier {
	mods := c.modifiers
	if len(c.Methods(IsAbstract)) > 0 {
		mods |= IsImplicitAbstract
	}
	return mods
}

func (c *Class) IsAbstract() bool {
	return c.Modifiers()&(IsExplicitAbstract|IsImplicitAbstract) != 0
}

func (c *Class) IsFinal() bool {
	return c.modifiers.Has(IsFinalClass)
}

// IsSubclassOf reports whether name denotes an ancestor class or an
// interface implemented anywhere up the hierarchy. The node itself does not
// count.
func (c *Class) IsSubclassOf(name string) bool {
	key := symbol.Key(name)
	found := false
	c.walkAncestors(func(a *Class) bool {
		if symbol.Key(a.name) == key {
			found = true
			return false
		}
		return true
	})
	return found
}

// walkAncestors visits every parent and interface reachable from c, each
// once, until visit returns false.
func (c *Class) walkAncestors(visit func(*Class) bool) {
	seen := map[*Class]bool{c: true}
	queue := c.relatives(nil)
	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]
		if seen[a] {
			continue
		}
		seen[a] = true
		if !visit(a) {
			return
		}
		queue = a.relatives(queue)
	}
}

func (c *Class) relatives(dst []*Class) []*Class {
	if p, ok := c.parent.get(); ok {
		dst = append(dst, p)
	}
	ifaces, _ := c.interfaces.get()
	return append(dst, ifaces...)
}

// reaches reports whether target is c or one of its ancestors.
func (c *Class) reaches(target *Class) bool {
	if c == target {
		return true
	}
	found := false
	c.walkAncestors(func(a *Class) bool {
		found = a == target
		return !found
	})
	return found
}

// ParentClass returns the bound parent. ok is false when the class has none.
func (c *Class) ParentClass() (parent *Class, ok bool) {
	return c.parent.get()
}

// InitParentClass binds the parent class. It may be called once.
func (c *Class) InitParentClass(parent *Class) error {
	if _, ok := c.parent.get(); ok {
		return errs.AlreadyInitialized("parentClass")
	}
	if parent == nil {
		return errs.InvalidArgument("parentClass", "parent class of %s must not be nil", c.name)
	}
	if c.kind == KindInterface {
		return errs.InvalidArgument("parentClass", "interface %s cannot have a parent class", c.name)
	}
	if parent.kind == KindInterface {
		return errs.InvalidArgument("parentClass", "class %s cannot extend interface %s", c.name, parent.name)
	}
	if parent.reaches(c) {
		return errs.InvalidArgument("parentClass", "class %s cannot extend %s: inheritance cycle", c.name, parent.name)
	}
	return c.parent.init("parentClass", parent)
}

// Interfaces returns the interfaces the node implements (class) or extends
// (interface) directly.
func (c *Class) Interfaces() []*Class {
	ifaces, _ := c.interfaces.get()
	return append([]*Class(nil), ifaces...)
}

// InitInterfaces binds the direct interfaces. It may be called once.
func (c *Class) InitInterfaces(ifaces []*Class) error {
	if _, ok := c.interfaces.get(); ok {
		return errs.AlreadyInitialized("interfaces")
	}
	for _, iface := range ifaces {
		if iface == nil {
			return errs.InvalidArgument("interfaces", "interface of %s must not be nil", c.name)
		}
		if iface.kind != KindInterface {
			return errs.InvalidArgument("interfaces", "%s is not an interface", iface.name)
		}
		if iface.reaches(c) {
			return errs.InvalidArgument("interfaces", "%s cannot extend %s: inheritance cycle", c.name, iface.name)
		}
	}
	return c.interfaces.init("interfaces", append([]*Class(nil), ifaces...))
}

// Constants returns the merged constants. Closer declarations win.
func (c *Class) Constants() map[string]any {
	result := make(map[string]any, len(c.constants))
	for name, v := range c.constants {
		result[name] = v
	}
	ifaces, _ := c.interfaces.get()
	for _, iface := range ifaces {
		addMissing(result, iface.Constants())
	}
	if parent, ok := c.parent.get(); ok {
		addMissing(result, parent.Constants())
	}
	return result
}

func addMissing(dst, src map[string]any) {
	for name, v := range src {
		if _, ok := dst[name]; !ok {
			dst[name] = v
		}
	}
}

// Constant returns the merged constant called name.
func (c *Class) Constant(name string) (any, error) {
	v, ok := c.Constants()[name]
	if !ok {
		return nil, errs.NotFound(name, "Constant %s::%s does not exist", c.name, name)
	}
	return v, nil
}

func (c *Class) HasConstant(name string) bool {
	_, ok := c.Constants()[name]
	return ok
}

// Methods returns the merged methods matching filter, keyed by lower-cased
// name. Merging ignores the filter; it is applied to the result.
func (c *Class) Methods(filter Modifier) map[string]*Method {
	all := c.mergedMethods()
	if filter == FilterAll {
		return all
	}
	result := make(map[string]*Method, len(all))
	for key, m := range all {
		if m.modifiers.Matches(filter) {
			result[key] = m
		}
	}
	return result
}

func (c *Class) mergedMethods() map[string]*Method {
	result := make(map[string]*Method, len(c.methods))
	for key, m := range c.methods {
		result[key] = m
	}
	ifaces, _ := c.interfaces.get()
	for _, iface := range ifaces {
		mergeMethods(result, iface.mergedMethods())
	}
	if parent, ok := c.parent.get(); ok {
		mergeMethods(result, parent.mergedMethods())
	}
	return result
}

// mergeMethods folds candidates into dst: absent keys are inserted and an
// abstract entry gives way to a concrete candidate.
func mergeMethods(dst, candidates map[string]*Method) {
	for key, m := range candidates {
		existing, ok := dst[key]
		switch {
		case !ok:
			dst[key] = m
		case existing.IsAbstract() && !m.IsAbstract():
			dst[key] = m
		}
	}
}

// Method looks up a merged method by case-insensitive name.
func (c *Class) Method(name string) (*Method, error) {
	m, ok := c.mergedMethods()[strings.ToLower(name)]
	if !ok {
		return nil, errs.NotFound(name, "Method %s::%s() does not exist", c.name, name)
	}
	return m, nil
}

func (c *Class) HasMethod(name string) bool {
	_, ok := c.mergedMethods()[strings.ToLower(name)]
	return ok
}

// Constructor returns the merged __construct method, if any.
func (c *Class) Constructor() (*Method, bool) {
	m, ok := c.mergedMethods()["__construct"]
	return m, ok
}

// Property returns the property called name.
func (c *Class) Property(name string) (*Property, error) {
	props, _ := c.properties.get()
	p, ok := props[name]
	if !ok {
		return nil, errs.NotFound(name, "Property %s::$%s does not exist", c.name, name)
	}
	return p, nil
}

func (c *Class) HasProperty(name string) bool {
	props, _ := c.properties.get()
	_, ok := props[name]
	return ok
}

// Properties returns the properties matching filter. It is empty until
// InitProperties has been called.
func (c *Class) Properties(filter Modifier) map[string]*Property {
	props, _ := c.properties.get()
	result := make(map[string]*Property, len(props))
	for name, p := range props {
		if p.modifiers.Matches(filter) {
			result[name] = p
		}
	}
	return result
}

// InitProperties binds props to this class and indexes them by name; a later
// duplicate name wins. It may be called once, and fails without side effects
// if any property already belongs to a class.
func (c *Class) InitProperties(props []*Property) error {
	if _, ok := c.properties.get(); ok {
		return errs.AlreadyInitialized("properties")
	}
	for _, p := range props {
		if p == nil {
			return errs.InvalidArgument("properties", "property of %s must not be nil", c.name)
		}
		if _, bound := p.declaringClass.get(); bound {
			return errs.AlreadyInitialized("declaringClass")
		}
	}
	index := make(map[string]*Property, len(props))
	bound := make(map[*Property]bool, len(props))
	for _, p := range props {
		if !bound[p] {
			bound[p] = true
			if err := p.InitDeclaringClass(c); err != nil {
				return err
			}
		}
		index[p.name] = p
	}
	return c.properties.init("properties", index)
}
