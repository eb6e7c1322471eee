package reflection

import (
	"strings"

	errs "github.com/jward/staticrefl/internal/errors"
)

// Method is a declared method. Its declaring class is bound when a Class
// absorbs it at construction.
type Method struct {
	name           string
	modifiers      Modifier
	docComment     string
	declaringClass *Class
	parameters     once[[]*Parameter]
}

func NewMethod(name string, modifiers Modifier, docComment string) *Method {
	return &Method{name: name, modifiers: modifiers, docComment: docComment}
}

func (m *Method) Name() string { return m.name }
func (m *Method) Modifiers() Modifier { return m.modifiers }
func (m *Method) DocComment() string { return m.docComment }
func (m *Method) IsAbstract() bool { return m.modifiers.Has(IsAbstract) }
func (m *Method) IsFinal() bool { return m.modifiers.Has(IsFinal) }
func (m *Method) IsStatic() bool { return m.modifiers.Has(IsStatic) }
func (m *Method) IsPublic() bool { return m.modifiers.Has(IsPublic) }
func (m *Method) IsProtected() bool { return m.modifiers.Has(IsProtected) }
func (m *Method) IsPrivate() bool { return m.modifiers.Has(IsPrivate) }
func (m *Method) IsConstructor() bool { return strings.EqualFold(m.name, "__construct") }
func (m *Method) DeclaringClass() *Class { return m.declaringClass }

// InitParameters binds params to this method. It may be called once, and
// fails without side effects if any parameter already has a declaring method.
func (m *Method) InitParameters(params []*Parameter) error {
	if _, ok := m.parameters.get(); ok {
		return errs.AlreadyInitialized("parameters")
	}
	seen := make(map[*Parameter]bool, len(params))
	for _, p := range params {
		if p == nil {
			return errs.InvalidArgument("parameters", "parameter of %s must not be nil", m.name)
		}
		if seen[p] {
			return errs.InvalidArgument("parameters", "parameter $%s of %s listed twice", p.name, m.name)
		}
		seen[p] = true
		if _, bound := p.declaringMethod.get(); bound {
			return errs.AlreadyInitialized("declaringMethod")
		}
	}
	for _, p := range params {
		if err := p.InitDeclaringMethod(m); err != nil {
			return err
		}
	}
	return m.parameters.init("parameters", append([]*Parameter(nil), params...))
}

// Parameters returns the parameters in declaration order.
func (m *Method) Parameters() []*Parameter {
	params, _ := m.parameters.get()
	return append([]*Parameter(nil), params...)
}

func (m *Method) NumberOfParameters() int {
	params, _ := m.parameters.get()
	return len(params)
}

// NumberOfRequiredParameters counts parameters up to and including the last
// one without a default value.
func (m *Method) NumberOfRequiredParameters() int {
	params, _ := m.parameters.get()
	required := 0
	for i, p := range params {
		if !p.IsOptional() {
			required = i + 1
		}
	}
	return required
}
