package reflection

import (
	"strings"

	errs "github.com/jward/staticrefl/internal/errors"
)

// Property is a declared class property.
type Property struct {
	name           string
	modifiers      Modifier
	docComment     string
	defaultValue   once[any]
	declaringClass once[*Class]
}

// NewProperty creates a property; a leading "$" on name is dropped.
func NewProperty(name string, modifiers Modifier, docComment string) *Property {
	return &Property{
		name:       strings.TrimPrefix(name, "$"),
		modifiers:  modifiers,
		docComment: docComment,
	}
}

func (p *Property) Name() string { return p.name }
func (p *Property) Modifiers() Modifier { return p.modifiers }
func (p *Property) DocComment() string { return p.docComment }
func (p *Property) IsStatic() bool { return p.modifiers.Has(IsStatic) }
func (p *Property) IsPublic() bool { return p.modifiers.Has(IsPublic) }
func (p *Property) IsProtected() bool { return p.modifiers.Has(IsProtected) }
func (p *Property) IsPrivate() bool { return p.modifiers.Has(IsPrivate) }

// DeclaringClass returns the owning class, or NotFound before the property
// has been absorbed by one.
func (p *Property) DeclaringClass() (*Class, error) {
	c, ok := p.declaringClass.get()
	if !ok {
		return nil, errs.NotFound("declaringClass", "property $%s has no declaring class", p.name)
	}
	return c, nil
}

func (p *Property) InitDeclaringClass(c *Class) error {
	if _, ok := p.declaringClass.get(); ok {
		return errs.AlreadyInitialized("declaringClass")
	}
	if c == nil {
		return errs.InvalidArgument("declaringClass", "declaring class of $%s must not be nil", p.name)
	}
	return p.declaringClass.init("declaringClass", c)
}

func (p *Property) HasDefaultValue() bool {
	_, ok := p.defaultValue.get()
	return ok
}

// DefaultValue returns the declared default; NotFound when none was set.
func (p *Property) DefaultValue() (any, error) {
	v, ok := p.defaultValue.get()
	if !ok {
		return nil, errs.NotFound("defaultValue", "property $%s has no default value", p.name)
	}
	return v, nil
}

func (p *Property) InitDefaultValue(v any) error {
	return p.defaultValue.init("defaultValue", v)
}
