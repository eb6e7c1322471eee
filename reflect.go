package staticrefl

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	errs "github.com/jward/staticrefl/internal/errors"
	"github.com/jward/staticrefl/internal/reflection"
	"github.com/jward/staticrefl/internal/store"
	"github.com/jward/staticrefl/internal/symbol"
)

// ReflectClass returns the reflection node for name, building it and every
// class it depends on from indexed declarations. Files found through the
// resolver chain are indexed on demand. Nodes are cached until their
// declarations change, or those of a class they extend, implement or name
// in a parameter type hint; a failed build caches nothing.
func (e *Engine) ReflectClass(ctx context.Context, name string) (c *reflection.Class, err error) {
	ctx, span := tracer().Start(ctx, "staticrefl.reflect",
		trace.WithAttributes(attribute.String("class", symbol.Normalize(name))),
	)
	defer func() {
		reflectTotal.WithLabelValues(statusOf(err)).Inc()
		endSpan(span, err)
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	b := &builder{engine: e, ctx: ctx, nodes: make(map[string]*reflection.Class)}
	c, err = b.class(name)
	if err != nil {
		return nil, fmt.Errorf("staticrefl: reflect %s: %w", symbol.Normalize(name), err)
	}
	for key, node := range b.nodes {
		e.cache[key] = node
	}
	return c, nil
}

// Cached reports whether a node for name is cached.
func (e *Engine) Cached(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.cache[symbol.Key(name)]
	return ok
}

// builder builds the nodes for one ReflectClass call. Nodes live in nodes
// while their relations are bound; a node reached again before it is
// complete is returned as is, which lets the set-once initializers reject
// inheritance cycles.
type builder struct {
	engine *Engine
	ctx    context.Context
	nodes  map[string]*reflection.Class
	order  []string
}

func (b *builder) class(name string) (*reflection.Class, error) {
	key := symbol.Key(name)
	if key == "" {
		return nil, errs.InvalidArgument("name", "empty class name")
	}
	if c, ok := b.engine.cache[key]; ok {
		return c, nil
	}
	if c, ok := b.nodes[key]; ok {
		return c, nil
	}
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}

	decl, err := b.engine.declaration(b.ctx, name)
	if err != nil {
		return nil, err
	}
	s := b.engine.store

	methodDecls, err := s.MethodsByClass(decl.ID)
	if err != nil {
		return nil, err
	}
	methods := make([]*reflection.Method, len(methodDecls))
	for i, md := range methodDecls {
		methods[i] = reflection.NewMethod(md.Name, reflection.Modifier(md.Modifiers), md.DocComment)
	}
	constDecls, err := s.ConstantsByClass(decl.ID)
	if err != nil {
		return nil, err
	}
	constants := make(map[string]any, len(constDecls))
	for _, k := range constDecls {
		constants[k.Name] = k.Value.Value()
	}

	opts := []reflection.ClassOption{reflection.WithMethods(methods...), reflection.WithConstants(constants)}
	var node *reflection.Class
	if decl.Kind == reflection.KindInterface.String() {
		node = reflection.NewInterface(decl.Name, decl.DocComment, opts...)
	} else {
		node = reflection.NewClass(decl.Name, decl.DocComment, reflection.Modifier(decl.Modifiers), opts...)
	}
	b.nodes[key] = node
	b.order = append(b.order, key)

	if decl.ParentName != "" {
		parent, err := b.class(decl.ParentName)
		if err != nil {
			return nil, fmt.Errorf("parent of %s: %w", decl.Name, err)
		}
		if err := node.InitParentClass(parent); err != nil {
			return nil, err
		}
	}

	ifaces := make([]*reflection.Class, 0, len(decl.Interfaces))
	for _, in := range decl.Interfaces {
		iface, err := b.class(in)
		if err != nil {
			return nil, fmt.Errorf("interface of %s: %w", decl.Name, err)
		}
		ifaces = append(ifaces, iface)
	}
	if err := node.InitInterfaces(ifaces); err != nil {
		return nil, err
	}

	if err := b.properties(node, decl); err != nil {
		return nil, err
	}
	for i, md := range methodDecls {
		if err := b.parameters(methods[i], decl, md); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (b *builder) properties(node *reflection.Class, decl *store.ClassDecl) error {
	propDecls, err := b.engine.store.PropertiesByClass(decl.ID)
	if err != nil {
		return err
	}
	props := make([]*reflection.Property, len(propDecls))
	for i, pd := range propDecls {
		p := reflection.NewProperty(pd.Name, reflection.Modifier(pd.Modifiers), pd.DocComment)
		if pd.Default != nil {
			if err := p.InitDefaultValue(pd.Default.Value()); err != nil {
				return err
			}
		}
		props[i] = p
	}
	return node.InitProperties(props)
}

func (b *builder) parameters(m *reflection.Method, decl *store.ClassDecl, md *store.MethodDecl) error {
	paramDecls, err := b.engine.store.ParametersByMethod(md.ID)
	if err != nil {
		return err
	}
	params := make([]*reflection.Parameter, len(paramDecls))
	for i, pd := range paramDecls {
		p := reflection.NewParameter(pd.Name, pd.Ordinal)
		if pd.ByRef {
			if err := p.InitPassedByReference(); err != nil {
				return err
			}
		}
		if pd.Default != nil {
			if err := p.InitDefaultValue(pd.Default.Value()); err != nil {
				return err
			}
		}
		if hint := b.typeHint(decl, md, pd); hint != nil {
			if err := p.InitTypeHint(hint); err != nil {
				return err
			}
		}
		params[i] = p
	}
	return m.InitParameters(params)
}

// typeHint returns the value for Parameter.InitTypeHint, or nil when the
// parameter has no hint or its class cannot be reflected.
func (b *builder) typeHint(decl *store.ClassDecl, md *store.MethodDecl, pd *store.ParameterDecl) any {
	switch pd.TypeHint {
	case "":
		return nil
	case "array":
		return true
	}

	mark := len(b.order)
	c, err := b.class(pd.TypeHint)
	if err != nil {
		b.rollback(mark)
		b.engine.logger.Warn("skipping unresolvable type hint",
			slog.String("class", decl.Name),
			slog.String("method", md.Name),
			slog.String("parameter", pd.Name),
			slog.String("type", pd.TypeHint),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return c
}

// rollback discards nodes created since mark.
func (b *builder) rollback(mark int) {
	for _, key := range b.order[mark:] {
		delete(b.nodes, key)
	}
	b.order = b.order[:mark]
}

// declaration resolves name to a file, indexes the file if needed and
// returns the class declared there.
func (e *Engine) declaration(ctx context.Context, name string) (*store.ClassDecl, error) {
	path, err := e.chain.PathnameForClass(name)
	resolveTotal.WithLabelValues(statusOf(err)).Inc()
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	if _, err := e.indexFile(ctx, path); err != nil {
		return nil, fmt.Errorf("index %s: %w", path, err)
	}
	f, err := e.store.FileByPath(path)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errs.NotFound(symbol.Normalize(name), "file %s for class %s is not indexed", path, symbol.Normalize(name))
	}
	decls, err := e.store.ClassesByFile(f.ID)
	if err != nil {
		return nil, err
	}
	for _, d := range decls {
		if symbol.Equal(d.Name, name) {
			return d, nil
		}
	}
	return nil, errs.NotFound(symbol.Normalize(name), "class %s is not declared in %s", symbol.Normalize(name), path)
}
