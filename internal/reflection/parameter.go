package reflection

import (
	"strings"

	errs "github.com/jward/staticrefl/internal/errors"
)

type hintKind int

const (
	hintArray hintKind = iota + 1
	hintClass
)

type typeHint struct {
	kind  hintKind
	class *Class
}

// Parameter is a method parameter.
type Parameter struct {
	name     string
	position int

	declaringMethod   once[*Method]
	passedByReference once[bool]
	typeHint          once[typeHint]
	defaultValue      once[any]
}

// NewParameter creates a parameter at the zero-based position. One leading
// "$" is stripped from rawName.
func NewParameter(rawName string, position int) *Parameter {
	return &Parameter{name: strings.TrimPrefix(rawName, "$"), position: position}
}

func (p *Parameter) Name() string { return p.name }
func (p *Parameter) Position() int { return p.position }

func (p *Parameter) InitDeclaringMethod(m *Method) error {
	if _, ok := p.declaringMethod.get(); ok {
		return errs.AlreadyInitialized("declaringMethod")
	}
	if m == nil {
		return errs.InvalidArgument("declaringMethod", "declaring method of $%s must not be nil", p.name)
	}
	return p.declaringMethod.init("declaringMethod", m)
}

// DeclaringFunction returns the method owning the parameter.
func (p *Parameter) DeclaringFunction() (*Method, error) {
	m, ok := p.declaringMethod.get()
	if !ok {
		return nil, errs.NotFound("declaringMethod", "parameter $%s has no declaring method", p.name)
	}
	return m, nil
}

// DeclaringClass returns the class of the owning method.
func (p *Parameter) DeclaringClass() (*Class, error) {
	m, err := p.DeclaringFunction()
	if err != nil {
		return nil, err
	}
	if m.declaringClass == nil {
		return nil, errs.NotFound("declaringClass", "method %s of parameter $%s has no declaring class", m.name, p.name)
	}
	return m.declaringClass, nil
}

func (p *Parameter) IsPassedByReference() bool {
	v, _ := p.passedByReference.get()
	return v
}

func (p *Parameter) InitPassedByReference() error {
	return p.passedByReference.init("passedByReference", true)
}

func (p *Parameter) IsDefaultValueAvailable() bool {
	_, ok := p.defaultValue.get()
	return ok
}

// IsOptional reports whether a caller may omit the parameter.
func (p *Parameter) IsOptional() bool {
	return p.IsDefaultValueAvailable()
}

// DefaultValue returns the default; NotFound when none is available.
func (p *Parameter) DefaultValue() (any, error) {
	v, ok := p.defaultValue.get()
	if !ok {
		return nil, errs.NotFound("defaultValue", "parameter $%s has no default value", p.name)
	}
	return v, nil
}

func (p *Parameter) InitDefaultValue(v any) error {
	return p.defaultValue.init("defaultValue", v)
}

// InitTypeHint sets the type hint: true means "array", a *Class means that
// class. Any other value is rejected.
func (p *Parameter) InitTypeHint(v any) error {
	if _, ok := p.typeHint.get(); ok {
		return errs.AlreadyInitialized("typeHint")
	}
	var hint typeHint
	switch h := v.(type) {
	case bool:
		if !h {
			return errs.InvalidArgument("typeHint", "unsupported type hint %v for $%s", v, p.name)
		}
		hint.kind = hintArray
	case *Class:
		if h == nil {
			return errs.InvalidArgument("typeHint", "type hint class of $%s must not be nil", p.name)
		}
		hint = typeHint{kind: hintClass, class: h}
	default:
		return errs.InvalidArgument("typeHint", "unsupported type hint %v for $%s", v, p.name)
	}
	return p.typeHint.init("typeHint", hint)
}

func (p *Parameter) IsArray() bool {
	h, _ := p.typeHint.get()
	return h.kind == hintArray
}

// Class returns the class type hint, if any.
func (p *Parameter) Class() (*Class, bool) {
	h, _ := p.typeHint.get()
	if h.kind != hintClass {
		return nil, false
	}
	return h.class, true
}
