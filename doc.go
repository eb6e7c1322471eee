// Package staticrefl provides static reflection for PHP class hierarchies.
// It answers the questions runtime reflection answers (parent class,
// interfaces, merged constants and methods, properties, parameters)
// without loading or executing any PHP code.
//
// # Pipeline
//
// staticrefl operates in two phases:
//
//  1. Index: each PHP file is parsed with tree-sitter and its class and
//     interface declarations are written to SQLite, keyed by a content
//     hash so unchanged files are skipped.
//
//  2. Reflect: a class name is mapped to a file by a resolver chain, the
//     file is indexed if needed, and reflection nodes are built from the
//     declarations, including every parent, interface and type-hinted
//     class they depend on.
//
// # Usage
//
//	e, err := staticrefl.NewFromConfig(root, cfg)
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, root)
//
//	c, err := e.ReflectClass(ctx, `App\Http\Kernel`)
//	methods := c.Methods(staticrefl.FilterAll)
//
// # Resolvers
//
// The chain is consulted in order; the first member that knows the class
// wins and a miss moves on to the next:
//
//   - the index itself
//   - a classmap from the configuration
//   - the include path, searched by PEAR/PSR-0 naming
//   - Risor autoload scripts, user-written or embedded (builtin:autoload/psr4.risor,
//     builtin:autoload/pear.risor, builtin:autoload/index.risor)
//
// An error other than "not found", such as a failing script, stops the
// chain.
//
// # Caching
//
// Built nodes are cached per engine. When indexing changes the signature of
// a class, the cached node is evicted together with every class that
// extends or implements it.
package staticrefl
