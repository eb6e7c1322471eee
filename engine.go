package staticrefl

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jward/staticrefl/internal/config"
	"github.com/jward/staticrefl/internal/reflection"
	"github.com/jward/staticrefl/internal/resolver"
	"github.com/jward/staticrefl/internal/runtime"
	"github.com/jward/staticrefl/internal/source"
	"github.com/jward/staticrefl/internal/store"
	"github.com/jward/staticrefl/internal/symbol"
	"github.com/jward/staticrefl/scripts"
)

// IndexFormat identifies the layout of extracted data. An index written
// with a different format is stale and should be rebuilt.
const IndexFormat = "1"

const indexFormatKey = "index_format"

// Engine ties the pieces together: it indexes PHP sources into the store,
// resolves class names to files through a resolver chain and builds
// reflection nodes from the indexed declarations.
type Engine struct {
	store     *store.Store
	extractor *source.Extractor
	chain     *resolver.Chain
	runtime   *runtime.Runtime
	logger    *slog.Logger
	root      string

	scriptsFS  fs.FS
	scriptsDir string
	extra      []resolver.Resolver

	excludePatterns []string
	excludes        []glob.Glob

	// useParallel enables the parallel extraction pipeline.
	useParallel bool

	// mu serializes indexing and reflection. cache holds fully built nodes
	// keyed by symbol.Key.
	mu    sync.Mutex
	cache map[string]*reflection.Class
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine, its extractor and its scripts.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithParallel controls parallel extraction. When true (default), IndexFiles
// parses files on a worker pool and commits them from a single goroutine.
// Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithResolvers appends resolvers to the chain. They are consulted after
// the index, in the order given.
func WithResolvers(rs ...resolver.Resolver) Option {
	return func(e *Engine) {
		e.extra = append(e.extra, rs...)
	}
}

// WithScriptsFS makes the engine's runtime load autoload scripts from fsys
// instead of the scripts directory on disk.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithScriptsDir sets the directory relative script paths are loaded from.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithExtractor replaces the default declaration extractor.
func WithExtractor(x *source.Extractor) Option {
	return func(e *Engine) {
		e.extractor = x
	}
}

// WithExcludes adds glob patterns for files indexing skips. Patterns match
// slash-separated paths relative to the indexed root.
func WithExcludes(patterns ...string) Option {
	return func(e *Engine) {
		e.excludePatterns = append(e.excludePatterns, patterns...)
	}
}

// WithRoot sets the project root. IndexFiles matches excludes against paths
// relative to it and scripts resolve relative paths against it.
func WithRoot(root string) Option {
	return func(e *Engine) {
		e.root = root
	}
}

// New creates an Engine backed by a SQLite database at dbPath. The resolver
// chain starts with the index, followed by any WithResolvers members.
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:      slog.Default(),
		useParallel: true, // default to parallel extraction
		cache:       make(map[string]*reflection.Class),
	}
	for _, opt := range opts {
		opt(e)
	}

	excludes, err := config.CompileExcludes(e.excludePatterns)
	if err != nil {
		return nil, fmt.Errorf("staticrefl: %w", err)
	}
	e.excludes = excludes

	if e.root != "" {
		if abs, err := filepath.Abs(e.root); err == nil {
			e.root = abs
		}
	}
	if e.extractor == nil {
		e.extractor = source.NewExtractor(source.WithLogger(e.logger))
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("staticrefl: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("staticrefl: migrate: %w", err)
	}
	e.store = s

	e.runtime = e.newRuntime(e.scriptsFS, e.scriptsDir)
	e.chain = resolver.NewChain(store.NewResolver(s))
	for _, r := range e.extra {
		e.chain.Add(r)
	}
	return e, nil
}

// NewFromConfig creates an Engine for the project at root. The chain is the
// index, the classmap, the include path, then one resolver per script.
// Script names with the builtin: prefix load from the embedded scripts.
func NewFromConfig(root string, cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	dbPath := cfg.DatabasePath(root)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("staticrefl: create database directory: %w", err)
	}

	opts = append([]Option{WithRoot(root), WithExcludes(cfg.Exclude...)}, opts...)
	e, err := New(dbPath, opts...)
	if err != nil {
		return nil, err
	}

	if len(cfg.Classmap) > 0 {
		e.chain.Add(resolver.NewTable(cfg.ClassmapPaths(root)))
	}
	if len(cfg.IncludePath) > 0 {
		e.chain.Add(resolver.NewNaming(cfg.IncludeRoots(root)...))
	}

	var builtinRT, diskRT *runtime.Runtime
	for _, name := range cfg.Scripts {
		if path, ok := config.IsBuiltinScript(name); ok {
			if builtinRT == nil {
				builtinRT = e.newRuntime(scripts.FS, "")
			}
			e.chain.Add(runtime.NewScriptResolver(builtinRT, path))
			continue
		}
		if diskRT == nil {
			diskRT = e.newRuntime(nil, e.root)
		}
		e.chain.Add(runtime.NewScriptResolver(diskRT, name))
	}
	return e, nil
}

func (e *Engine) newRuntime(fsys fs.FS, dir string) *runtime.Runtime {
	rtOpts := []runtime.RuntimeOption{
		runtime.WithRoot(e.root),
		runtime.WithLogger(e.logger),
		runtime.WithStore(e.store),
		runtime.WithExtractor(e.extractor),
	}
	if fsys != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(fsys))
	}
	return runtime.NewRuntime(dir, rtOpts...)
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Runtime returns the engine's script runtime.
func (e *Engine) Runtime() *runtime.Runtime {
	return e.runtime
}

// Resolver returns the resolver chain.
func (e *Engine) Resolver() *resolver.Chain {
	return e.chain
}

// Root returns the project root, or "" when none was set.
func (e *Engine) Root() string {
	return e.root
}

// Where returns the file declaring name according to the resolver chain.
func (e *Engine) Where(name string) (string, error) {
	path, err := e.chain.PathnameForClass(name)
	resolveTotal.WithLabelValues(statusOf(err)).Inc()
	if err != nil {
		return "", fmt.Errorf("staticrefl: where %s: %w", symbol.Normalize(name), err)
	}
	return path, nil
}

// IndexStale reports whether the index was built with a different format
// than this build writes. A database that was never indexed is not stale.
func (e *Engine) IndexStale() bool {
	stored, err := e.store.GetMetadata(indexFormatKey)
	if err != nil {
		return true
	}
	return stored != "" && stored != IndexFormat
}

// Reset removes every indexed file and drops all cached reflection nodes.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("staticrefl: reset: %w", err)
	}
	for _, f := range files {
		if err := e.store.DeleteFileData(f.ID); err != nil {
			return fmt.Errorf("staticrefl: reset %s: %w", f.Path, err)
		}
	}
	clear(e.cache)
	return nil
}

// IndexFiles indexes the given file paths. When WithParallel is enabled,
// files are parsed on a worker pool and committed serially. Otherwise
// falls back to the serial path.
//
// For each file:
//  1. Skip non-PHP and excluded files
//  2. Skip unchanged files (same content hash)
//  3. Extract class and interface declarations
//  4. Replace the file's old declarations in one transaction
//  5. Evict cached nodes whose declarations changed, with their descendants
//
// A failing file does not stop the others; the first error is returned
// along with the error count.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) (err error) {
	ctx, span := tracer().Start(ctx, "staticrefl.index",
		trace.WithAttributes(attribute.Int("file_count", len(paths))),
	)
	defer func() { endSpan(span, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	accepted := e.filterPaths(e.root, paths)
	if e.useParallel {
		err = e.indexFilesParallel(ctx, accepted)
	} else {
		err = e.indexFilesSerial(ctx, accepted)
	}
	if serr := e.store.SetMetadata(indexFormatKey, IndexFormat); serr != nil && err == nil {
		err = fmt.Errorf("staticrefl: %w", serr)
	}
	return err
}

// filterPaths makes paths absolute and drops unsupported and excluded files.
func (e *Engine) filterPaths(root string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if !source.IsSourceFile(p) || e.excluded(root, p) {
			indexFilesTotal.WithLabelValues(statusSkipped).Inc()
			continue
		}
		out = append(out, p)
	}
	return out
}

func (e *Engine) excluded(root, path string) bool {
	if len(e.excludes) == 0 {
		return false
	}
	rel := path
	if root != "" {
		if r, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	for _, g := range e.excludes {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if _, err := e.indexFile(ctx, path); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("staticrefl: indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// indexFile indexes one file unless its content is unchanged. It reports
// whether the index was updated.
func (e *Engine) indexFile(ctx context.Context, path string) (bool, error) {
	item, skip, err := e.prepareFile(path)
	if err != nil {
		indexFilesTotal.WithLabelValues(statusError).Inc()
		return false, err
	}
	if skip {
		indexFilesTotal.WithLabelValues(statusUnchanged).Inc()
		return false, nil
	}
	item.result, err = e.extractor.Extract(ctx, item.content, path)
	if err != nil {
		indexFilesTotal.WithLabelValues(statusError).Inc()
		return false, fmt.Errorf("extract: %w", err)
	}
	if err := e.commitFile(item); err != nil {
		indexFilesTotal.WithLabelValues(statusError).Inc()
		return false, err
	}
	indexFilesTotal.WithLabelValues(statusIndexed).Inc()
	return true, nil
}

// commitFile replaces the file's previous declarations with the extracted
// ones and evicts affected cache entries.
func (e *Engine) commitFile(item workItem) error {
	if item.existing != nil {
		if err := e.store.DeleteFileData(item.existing.ID); err != nil {
			return fmt.Errorf("delete old data: %w", err)
		}
	}

	res := item.result
	fileID, err := e.store.InsertFile(&store.File{
		Path:        item.path,
		Hash:        res.Hash,
		LineCount:   res.LineCount,
		HasErrors:   res.HasErrors,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}

	batch := store.NewBatchedStore(e.store)
	if err := res.Write(batch, fileID); err != nil {
		_ = e.store.DeleteFileData(fileID)
		return err
	}
	if err := e.store.CommitBatch(batch); err != nil {
		_ = e.store.DeleteFileData(fileID)
		return fmt.Errorf("commit: %w", err)
	}
	if res.HasErrors {
		e.logger.Warn("indexed file with syntax errors", slog.String("path", item.path))
	}

	e.invalidate(item.old, batch.Classes)
	return nil
}

// invalidate evicts cached nodes for classes that were added, removed or
// changed signature, and for every class that depends on an evicted one
// through inheritance or a parameter type hint.
func (e *Engine) invalidate(oldDecls []*store.ClassDecl, newDecls []store.ClassDecl) {
	if len(e.cache) == 0 {
		return
	}
	oldByKey := make(map[string]string, len(oldDecls))
	for _, c := range oldDecls {
		oldByKey[symbol.Key(c.Name)] = c.SignatureHash
	}
	newByKey := make(map[string]string, len(newDecls))
	for _, c := range newDecls {
		newByKey[symbol.Key(c.Name)] = c.SignatureHash
	}

	var affected []string
	for key, hash := range oldByKey {
		if newHash, ok := newByKey[key]; !ok || newHash != hash {
			affected = append(affected, key)
		}
	}
	for key := range newByKey {
		if _, ok := oldByKey[key]; !ok {
			affected = append(affected, key)
		}
	}
	if len(affected) == 0 {
		return
	}

	seen := make(map[string]bool, len(affected))
	for _, key := range affected {
		seen[key] = true
		delete(e.cache, key)
	}
	for frontier := affected; len(frontier) > 0; {
		dependents, err := e.dependents(frontier)
		if err != nil {
			// The affected set cannot be bounded; start over.
			e.logger.Warn("dropping reflection cache", slog.String("error", err.Error()))
			clear(e.cache)
			return
		}
		var next []string
		for _, d := range dependents {
			key := symbol.Key(d.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			delete(e.cache, key)
			next = append(next, key)
		}
		frontier = next
	}
}

// dependents returns the indexed classes that inherit from one of keys or
// hint one of them in a parameter.
func (e *Engine) dependents(keys []string) ([]*store.ClassDecl, error) {
	descendants, err := e.store.Descendants(keys...)
	if err != nil {
		return nil, err
	}
	users, err := e.store.HintUsers(keys...)
	if err != nil {
		return nil, err
	}
	return append(descendants, users...), nil
}

// skipDirs are directories the filesystem walk never descends into.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// IndexDirectory indexes every PHP file under root. If root is inside a
// git repository, uses git ls-files to respect .gitignore. Falls back to a
// filesystem walk (skipping hidden dirs, node_modules and vendor) if git
// is unavailable. Excludes match paths relative to root.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	paths, err := gitListFiles(root)
	if err != nil {
		// Not a git repo or git not available; fall back to walk.
		e.logger.Debug("git ls-files unavailable, walking directory",
			slog.String("root", root), slog.String("error", err.Error()))
		paths, err = walkListFiles(root)
		if err != nil {
			return fmt.Errorf("staticrefl: %w", err)
		}
	}

	kept := paths[:0]
	for _, p := range paths {
		if e.excluded(root, p) {
			indexFilesTotal.WithLabelValues(statusSkipped).Inc()
			continue
		}
		kept = append(kept, p)
	}
	return e.IndexFiles(ctx, kept)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) PHP files under root.
func gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if source.IsSourceFile(absPath) {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers PHP files by walking the filesystem.
func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if source.IsSourceFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}
