// Package runtime embeds a Risor VM that runs user autoload scripts. A
// script maps a class name to the file that declares it, the way a PHP
// autoloader callback would, without running any PHP.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/staticrefl/internal/source"
	"github.com/jward/staticrefl/internal/store"
)

// Runtime embeds a Risor VM and provides autoload host functions to scripts.
type Runtime struct {
	store      *store.Store
	extractor  *source.Extractor
	scriptsDir string
	fsys       fs.FS
	root       string
	logger     *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRoot sets the project root. Relative paths returned by scripts and
// passed to file_exists are resolved against it.
func WithRoot(root string) RuntimeOption {
	return func(r *Runtime) {
		r.root = root
	}
}

// WithLogger sets the logger behind the scripts' log object.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithStore exposes the index to scripts through indexed_path.
func WithStore(s *store.Store) RuntimeOption {
	return func(r *Runtime) {
		r.store = s
	}
}

// WithExtractor sets the extractor used by declared_classes.
func WithExtractor(e *source.Extractor) RuntimeOption {
	return func(r *Runtime) {
		if e != nil {
			r.extractor = e
		}
	}
}

// NewRuntime creates a Runtime that loads scripts from scriptsDir.
// Accepts optional RuntimeOptions for configuration such as fs.FS-based script loading.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.extractor == nil {
		r.extractor = source.NewExtractor(source.WithLogger(r.logger))
	}
	return r
}

// Root returns the project root scripts resolve relative paths against.
func (r *Runtime) Root() string { return r.root }

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller. It returns the value of
// the script's last expression.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) (object.Object, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, src string, extraGlobals map[string]any) (object.Object, error) {
	return r.eval(ctx, src, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, src, label string, extraGlobals map[string]any) (object.Object, error) {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, src, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return result, nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on that filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"normalize":        makeNormalizeFn(),
		"short_name":       makeShortNameFn(),
		"namespace_of":     makeNamespaceFn(),
		"pear_path":        makePearPathFn(),
		"psr4_path":        makePSR4PathFn(),
		"path_join":        makePathJoinFn(),
		"file_exists":      makeFileExistsFn(r.root),
		"declared_classes": makeDeclaredClassesFn(r.extractor, r.root),
		"composer_psr4":    makeComposerPSR4Fn(r.root),
		"project_root":     r.root,
		"log":              mustProxy(&logObject{logger: r.logger}),
	}

	// Expose the index when available (nil in most tests).
	if r.store != nil {
		globals["indexed_path"] = makeIndexedPathFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
