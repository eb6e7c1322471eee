package source

import (
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/staticrefl/internal/reflection"
	"github.com/jward/staticrefl/internal/store"
)

// walker collects declarations from one syntax tree.
type walker struct {
	src     []byte
	path    string
	logger  *slog.Logger
	scope   *scope
	classes []*Class
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func (w *walker) walk(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "namespace_definition":
			w.namespace(child)
		case "namespace_use_declaration":
			w.use(child)
		case "class_declaration":
			w.class(child, reflection.KindClass)
		case "interface_declaration":
			w.class(child, reflection.KindInterface)
		case "function_definition", "method_declaration", "anonymous_function_creation_expression",
			"arrow_function", "trait_declaration", "enum_declaration":
			// Nothing declared inside these is a named class.
		default:
			// Conditional declarations live inside if blocks and the like.
			w.walk(child)
		}
	}
}

// namespace handles both forms. A braced namespace scopes its body; an
// unbraced one applies to the following statements.
func (w *walker) namespace(n *sitter.Node) {
	name := w.text(n.ChildByFieldName("name"))
	body := n.ChildByFieldName("body")
	if body == nil {
		body = firstNamedOfType(n, "compound_statement")
	}
	if body == nil {
		w.scope = newScope(name)
		return
	}
	outer := w.scope
	w.scope = newScope(name)
	w.walk(body)
	w.scope = outer
}

func (w *walker) use(n *sitter.Node) {
	// use function / use const import no classes.
	for i := 0; i < int(n.ChildCount()); i++ {
		switch n.Child(i).Type() {
		case "function", "const":
			return
		}
	}

	var prefix string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "namespace_name", "qualified_name", "name":
			prefix = w.text(child)
		case "namespace_use_clause":
			w.useClause(child, "")
		case "namespace_use_group":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				w.useClause(child.NamedChild(j), prefix)
			}
		}
	}
}

func (w *walker) useClause(n *sitter.Node, prefix string) {
	var target, alias string
	if a := n.ChildByFieldName("alias"); a != nil {
		alias = w.text(a)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "name", "qualified_name", "namespace_name":
			if target == "" {
				target = w.text(child)
			}
		case "namespace_aliasing_clause":
			if alias == "" {
				alias = w.text(firstNamedOfType(child, "name"))
			}
		}
	}
	if target == "" {
		return
	}
	if prefix != "" {
		target = strings.TrimSuffix(prefix, `\`) + `\` + target
	}
	w.scope.addUse(target, alias)
}

func (w *walker) class(n *sitter.Node, kind reflection.Kind) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	c := &Class{Decl: store.ClassDecl{
		Name:       w.scope.declare(w.text(nameNode)),
		Kind:       kind.String(),
		DocComment: w.docComment(n),
		StartLine:  int(n.StartPoint().Row) + 1,
		EndLine:    int(n.EndPoint().Row) + 1,
	}}

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "abstract_modifier":
			c.Decl.Modifiers |= int(reflection.IsExplicitAbstract)
		case "final_modifier":
			c.Decl.Modifiers |= int(reflection.IsFinalClass)
		case "base_clause":
			names := w.names(child)
			if kind == reflection.KindInterface {
				c.Decl.Interfaces = append(c.Decl.Interfaces, names...)
			} else if len(names) > 0 {
				c.Decl.ParentName = names[0]
			}
		case "class_interface_clause":
			c.Decl.Interfaces = append(c.Decl.Interfaces, w.names(child)...)
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		body = firstNamedOfType(n, "declaration_list")
	}
	if body != nil {
		w.members(c, body, kind == reflection.KindInterface)
	}
	w.classes = append(w.classes, c)
}

// names returns the qualified class names listed in an extends or
// implements clause.
func (w *walker) names(n *sitter.Node) []string {
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "name", "qualified_name":
			out = append(out, w.scope.qualify(w.text(child)))
		}
	}
	return out
}

func (w *walker) members(c *Class, body *sitter.Node, iface bool) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "const_declaration":
			w.constants(c, child)
		case "property_declaration":
			w.properties(c, child)
		case "method_declaration":
			w.method(c, child, iface)
		}
	}
}

func (w *walker) constants(c *Class, n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		el := n.NamedChild(i)
		if el.Type() != "const_element" || el.NamedChildCount() < 2 {
			continue
		}
		c.Constants = append(c.Constants, store.ConstantDecl{
			Name:  w.text(el.NamedChild(0)),
			Value: w.literalOf(el.NamedChild(int(el.NamedChildCount()) - 1)),
		})
	}
}

func (w *walker) properties(c *Class, n *sitter.Node) {
	mods := w.memberModifiers(n)
	doc := w.docComment(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		el := n.NamedChild(i)
		if el.Type() != "property_element" {
			continue
		}
		p := store.PropertyDecl{
			Name:       strings.TrimPrefix(w.text(firstNamedOfType(el, "variable_name")), "$"),
			Modifiers:  int(mods),
			DocComment: doc,
		}
		def := el.ChildByFieldName("default_value")
		if def == nil {
			if init := firstNamedOfType(el, "property_initializer"); init != nil && init.NamedChildCount() > 0 {
				def = init.NamedChild(0)
			}
		}
		if def != nil {
			lit := w.literalOf(def)
			p.Default = &lit
		}
		c.Properties = append(c.Properties, p)
	}
}

func (w *walker) method(c *Class, n *sitter.Node, iface bool) {
	mods := w.memberModifiers(n)
	if iface {
		mods |= reflection.IsAbstract
	}
	m := &Method{Decl: store.MethodDecl{
		Name:       w.text(n.ChildByFieldName("name")),
		Modifiers:  int(mods),
		DocComment: w.docComment(n),
		StartLine:  int(n.StartPoint().Row) + 1,
		EndLine:    int(n.EndPoint().Row) + 1,
	}}

	params := n.ChildByFieldName("parameters")
	if params == nil {
		params = firstNamedOfType(n, "formal_parameters")
	}
	if params != nil {
		ordinal := 0
		for i := 0; i < int(params.NamedChildCount()); i++ {
			pn := params.NamedChild(i)
			switch pn.Type() {
			case "simple_parameter", "variadic_parameter", "property_promotion_parameter":
			default:
				continue
			}
			m.Parameters = append(m.Parameters, w.parameter(c, pn, ordinal))
			if pn.Type() == "property_promotion_parameter" {
				w.promote(c, pn)
			}
			ordinal++
		}
	}
	c.Methods = append(c.Methods, m)
}

func (w *walker) parameter(c *Class, n *sitter.Node, ordinal int) store.ParameterDecl {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = firstNamedOfType(n, "variable_name")
	}
	p := store.ParameterDecl{
		Name:     strings.TrimPrefix(w.text(nameNode), "$"),
		Ordinal:  ordinal,
		Variadic: n.Type() == "variadic_parameter",
		ByRef:    firstNamedOfType(n, "reference_modifier") != nil || hasAnonChild(n, "&"),
		TypeHint: w.typeHint(c, n.ChildByFieldName("type")),
	}
	if def := n.ChildByFieldName("default_value"); def != nil {
		lit := w.literalOf(def)
		p.Default = &lit
	}
	return p
}

// promote records the property declared by a constructor promotion parameter.
func (w *walker) promote(c *Class, n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = firstNamedOfType(n, "variable_name")
	}
	c.Properties = append(c.Properties, store.PropertyDecl{
		Name:      strings.TrimPrefix(w.text(nameNode), "$"),
		Modifiers: int(w.memberModifiers(n)),
	})
}

// typeHint maps a declared type to "array", a qualified class name or "".
// Nullable types hint their inner type; union and intersection types and
// scalars carry no hint.
func (w *walker) typeHint(c *Class, t *sitter.Node) string {
	if t == nil {
		return ""
	}
	switch t.Type() {
	case "optional_type":
		if t.NamedChildCount() > 0 {
			return w.typeHint(c, t.NamedChild(0))
		}
		return ""
	case "union_type", "intersection_type", "disjunctive_normal_form_type":
		return ""
	case "named_type":
		if t.NamedChildCount() > 0 {
			return w.typeHint(c, t.NamedChild(0))
		}
	}

	raw := strings.TrimSpace(w.text(t))
	lower := strings.ToLower(raw)
	switch {
	case lower == "array":
		return "array"
	case lower == "self" || lower == "static":
		return c.Decl.Name
	case lower == "parent":
		return c.Decl.ParentName
	case scalarTypes[lower]:
		return ""
	case strings.HasPrefix(raw, "?"):
		return ""
	}
	if t.Type() != "name" && t.Type() != "qualified_name" {
		w.logger.Debug("unsupported type hint",
			slog.String("file", w.path),
			slog.String("class", c.Decl.Name),
			slog.String("type", raw))
		return ""
	}
	return w.scope.qualify(raw)
}

// memberModifiers reads the modifier keywords of a member declaration.
// Members without a visibility keyword are public.
func (w *walker) memberModifiers(n *sitter.Node) reflection.Modifier {
	var mods reflection.Modifier
	visible := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "visibility_modifier":
			visible = true
			switch strings.ToLower(w.text(child)) {
			case "protected":
				mods |= reflection.IsProtected
			case "private":
				mods |= reflection.IsPrivate
			default:
				mods |= reflection.IsPublic
			}
		case "static_modifier":
			mods |= reflection.IsStatic
		case "abstract_modifier":
			mods |= reflection.IsAbstract
		case "final_modifier":
			mods |= reflection.IsFinal
		}
	}
	if !visible {
		mods |= reflection.IsPublic
	}
	return mods
}

// docComment returns the /** */ comment directly above n.
func (w *walker) docComment(n *sitter.Node) string {
	prev := n.PrevNamedSibling()
	if prev == nil || prev.Type() != "comment" {
		return ""
	}
	text := w.text(prev)
	if !strings.HasPrefix(text, "/**") {
		return ""
	}
	if n.StartPoint().Row > prev.EndPoint().Row+1 {
		return ""
	}
	return text
}

func firstNamedOfType(n *sitter.Node, typ string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() == typ {
			return child
		}
	}
	return nil
}

func countNamed(n *sitter.Node, typ string) int {
	count := 0
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == typ {
			count++
		}
	}
	return count
}

func hasAnonChild(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); !child.IsNamed() && child.Type() == typ {
			return true
		}
	}
	return false
}
