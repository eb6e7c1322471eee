package staticrefl

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/staticrefl/internal/config"
	errs "github.com/jward/staticrefl/internal/errors"
	"github.com/jward/staticrefl/internal/reflection"
	"github.com/jward/staticrefl/internal/resolver"
	"github.com/jward/staticrefl/internal/source"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	e, err := New(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func writePHP(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const shapePHP = `<?php
namespace App;

interface Shape
{
    const SIDES = 0;

    public function area();
}
`

const basePHP = `<?php
namespace App;

/** Base of all shapes. */
abstract class Base implements Shape
{
    const SIDES = 1;
    const NAME = 'base';

    protected $label = 'shape';
    public static $count = 0;

    abstract public function area();

    public function describe(array $opts = [], &$out = null)
    {
    }
}
`

const squarePHP = `<?php
namespace App;

final class Square extends Base
{
    const SIDES = 4;

    public function area()
    {
        return 1;
    }

    public function compare(Shape $other, Missing $m, self $again)
    {
    }
}
`

// writeShapes lays out the App fixtures by PSR-0 naming under root.
func writeShapes(t *testing.T, root string) {
	t.Helper()
	writePHP(t, root, filepath.Join("App", "Shape.php"), shapePHP)
	writePHP(t, root, filepath.Join("App", "Base.php"), basePHP)
	writePHP(t, root, filepath.Join("App", "Square.php"), squarePHP)
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_CreatesStoreAndChain(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	require.NotNil(t, e.Store())
	require.NotNil(t, e.Runtime())
	assert.Equal(t, 1, e.Resolver().Len(), "the index is the only member")
	require.NotNil(t, e.Query())
}

func TestNew_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := New("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

func TestNew_InvalidExcludePattern(t *testing.T) {
	t.Parallel()
	_, err := New(filepath.Join(t.TempDir(), "test.db"), WithExcludes("[broken"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid exclude pattern")
}

func TestNew_WithResolversKeepsOrder(t *testing.T) {
	t.Parallel()
	first := resolver.NewTable(map[string]string{"Foo": "/first/Foo.php"})
	second := resolver.NewTable(map[string]string{"Foo": "/second/Foo.php", "Bar": "/second/Bar.php"})
	e := newTestEngine(t, WithResolvers(first, second))

	assert.Equal(t, 3, e.Resolver().Len())
	path, err := e.Where(`\Foo`)
	require.NoError(t, err)
	assert.Equal(t, "/first/Foo.php", path)

	path, err = e.Where("Bar")
	require.NoError(t, err)
	assert.Equal(t, "/second/Bar.php", path)
}

func TestWhere_NotFound(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	before := testutil.ToFloat64(resolveTotal.WithLabelValues(statusNotFound))

	_, err := e.Where("Nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Greater(t, testutil.ToFloat64(resolveTotal.WithLabelValues(statusNotFound)), before)
}

// =============================================================================
// Indexing
// =============================================================================

func TestIndexFiles_SerialAndParallel(t *testing.T) {
	t.Parallel()
	for _, parallel := range []bool{false, true} {
		e := newTestEngine(t, WithParallel(parallel))
		root := t.TempDir()
		writeShapes(t, root)
		paths := []string{
			filepath.Join(root, "App", "Shape.php"),
			filepath.Join(root, "App", "Base.php"),
			filepath.Join(root, "App", "Square.php"),
		}

		require.NoError(t, e.IndexFiles(context.Background(), paths))

		classes, err := e.Query().Classes("")
		require.NoError(t, err)
		names := make([]string, len(classes))
		for i, c := range classes {
			names[i] = c.Name
		}
		assert.Equal(t, []string{`App\Base`, `App\Shape`, `App\Square`}, names, "parallel=%v", parallel)
		assert.False(t, e.IndexStale())
	}
}

func TestIndexFiles_SkipsUnsupportedAndExcluded(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	e := newTestEngine(t, WithRoot(root), WithExcludes("cache/**"))

	txt := writePHP(t, root, "readme.txt", "class NotPHP {}")
	cached := writePHP(t, root, filepath.Join("cache", "views", "Compiled.php"), "<?php class Compiled {}")
	kept := writePHP(t, root, "Kept.php", "<?php class Kept {}")

	require.NoError(t, e.IndexFiles(context.Background(), []string{txt, cached, kept}))

	files, err := e.Query().Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, kept, files[0].Path)
}

func TestIndexFiles_SkipsUnchangedFiles(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	path := writePHP(t, t.TempDir(), "Foo.php", "<?php class Foo {}")
	ctx := context.Background()

	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	first, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	require.NotNil(t, first)

	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	second, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "unchanged file keeps its record")
	assert.Equal(t, source.HashContent([]byte("<?php class Foo {}")), second.Hash)
}

func TestIndexFiles_ReindexesChangedFiles(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	dir := t.TempDir()
	path := writePHP(t, dir, "Foo.php", "<?php class Foo {}")
	ctx := context.Background()

	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	writePHP(t, dir, "Foo.php", "<?php class Bar {}")
	require.NoError(t, e.IndexFiles(ctx, []string{path}))

	_, err := e.Query().Class("Foo")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	bar, err := e.Query().Class("bar")
	require.NoError(t, err)
	assert.Equal(t, "Bar", bar.Name)
}

func TestIndexFiles_ReportsFailures(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithExtractor(source.NewExtractor(source.WithMaxFileSize(16))))
	dir := t.TempDir()
	big := writePHP(t, dir, "Big.php", "<?php class Big { const A = 1; }")
	small := writePHP(t, dir, "S.php", "<?php class S{}")

	err := e.IndexFiles(context.Background(), []string{big, small, filepath.Join(dir, "Gone.php")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 error(s)")

	_, err = e.Query().Class("S")
	assert.NoError(t, err, "other files are still indexed")
	f, err := e.Store().FileByPath(big)
	require.NoError(t, err)
	assert.Nil(t, f, "a failed file leaves no record")
}

func TestIndexDirectory_WalksAndSkipsDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writePHP(t, root, filepath.Join("src", "A.php"), "<?php class A {}")
	writePHP(t, root, filepath.Join(".hidden", "H.php"), "<?php class H {}")
	writePHP(t, root, filepath.Join("vendor", "acme", "V.php"), "<?php class V {}")
	writePHP(t, root, filepath.Join("src", "skip", "S.php"), "<?php class S {}")

	e := newTestEngine(t, WithExcludes("src/skip/*"))
	require.NoError(t, e.IndexDirectory(context.Background(), root))

	classes, err := e.Query().Classes("")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "A", classes[0].Name)
}

func TestIndexStaleAndReset(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	assert.False(t, e.IndexStale(), "a fresh index is not stale")

	path := writePHP(t, t.TempDir(), "Foo.php", "<?php class Foo {}")
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
	require.NoError(t, e.Store().SetMetadata(indexFormatKey, "0"))
	assert.True(t, e.IndexStale())

	require.NoError(t, e.Reset())
	files, err := e.Query().Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

// =============================================================================
// Reflection
// =============================================================================

func TestReflectClass_BuildsHierarchyOnDemand(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeShapes(t, root)
	e := newTestEngine(t, WithResolvers(resolver.NewNaming(root)))
	ctx := context.Background()

	sq, err := e.ReflectClass(ctx, `\App\Square`)
	require.NoError(t, err)
	assert.Equal(t, `App\Square`, sq.Name())
	assert.True(t, sq.IsFinal())
	assert.False(t, sq.IsAbstract())

	base, ok := sq.ParentClass()
	require.True(t, ok)
	assert.Equal(t, `App\Base`, base.Name())
	assert.True(t, base.IsAbstract())
	assert.Equal(t, "/** Base of all shapes. */", base.DocComment())
	require.Len(t, base.Interfaces(), 1)
	assert.Equal(t, `App\Shape`, base.Interfaces()[0].Name())
	assert.True(t, sq.IsSubclassOf(`App\Shape`))

	assert.Equal(t, map[string]any{"SIDES": int64(4), "NAME": "base"}, sq.Constants())

	methods := sq.Methods(FilterAll)
	assert.Len(t, methods, 3)
	area, err := sq.Method("AREA")
	require.NoError(t, err)
	assert.False(t, area.IsAbstract(), "the concrete method replaces the abstract one")
	assert.Same(t, sq, area.DeclaringClass())
	describe, err := sq.Method("describe")
	require.NoError(t, err)
	assert.Same(t, base, describe.DeclaringClass())

	// Every file was indexed on the way.
	files, err := e.Query().Files()
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestReflectClass_ParametersAndProperties(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeShapes(t, root)
	e := newTestEngine(t, WithResolvers(resolver.NewNaming(root)))

	sq, err := e.ReflectClass(context.Background(), `App\Square`)
	require.NoError(t, err)
	base, _ := sq.ParentClass()

	describe, err := base.Method("describe")
	require.NoError(t, err)
	params := describe.Parameters()
	require.Len(t, params, 2)

	opts := params[0]
	assert.Equal(t, "opts", opts.Name())
	assert.True(t, opts.IsArray())
	assert.True(t, opts.IsOptional())
	v, err := opts.DefaultValue()
	require.NoError(t, err)
	assert.Equal(t, []any{}, v)

	out := params[1]
	assert.True(t, out.IsPassedByReference())
	v, err = out.DefaultValue()
	require.NoError(t, err)
	assert.Nil(t, v)

	compare, err := sq.Method("compare")
	require.NoError(t, err)
	params = compare.Parameters()
	require.Len(t, params, 3)
	hint, ok := params[0].Class()
	require.True(t, ok)
	assert.Equal(t, `App\Shape`, hint.Name())
	_, ok = params[1].Class()
	assert.False(t, ok, "an unresolvable hint is skipped")
	self, ok := params[2].Class()
	require.True(t, ok)
	assert.Same(t, sq, self)

	label, err := base.Property("label")
	require.NoError(t, err)
	assert.True(t, label.IsProtected())
	dv, err := label.DefaultValue()
	require.NoError(t, err)
	assert.Equal(t, "shape", dv)
	assert.Len(t, base.Properties(reflection.IsStatic), 1)
}

func TestReflectClass_CachesNodes(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeShapes(t, root)
	e := newTestEngine(t, WithResolvers(resolver.NewNaming(root)))
	ctx := context.Background()
	before := testutil.ToFloat64(reflectTotal.WithLabelValues(statusOK))

	first, err := e.ReflectClass(ctx, `App\Square`)
	require.NoError(t, err)
	second, err := e.ReflectClass(ctx, `app\square`)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.True(t, e.Cached(`App\Base`))
	assert.True(t, e.Cached(`App\Shape`))
	assert.GreaterOrEqual(t, testutil.ToFloat64(reflectTotal.WithLabelValues(statusOK))-before, 2.0)
}

func TestReflectClass_InvalidatesChangedHierarchy(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeShapes(t, root)
	writePHP(t, root, filepath.Join("App", "Other.php"), "<?php\nnamespace App;\nclass Other {}\n")
	e := newTestEngine(t, WithResolvers(resolver.NewNaming(root)))
	ctx := context.Background()

	_, err := e.ReflectClass(ctx, `App\Square`)
	require.NoError(t, err)
	_, err = e.ReflectClass(ctx, `App\Other`)
	require.NoError(t, err)

	// A body-only edit keeps every signature.
	basePath := filepath.Join(root, "App", "Base.php")
	writePHP(t, root, filepath.Join("App", "Base.php"), basePHP+"\n// trailing comment\n")
	require.NoError(t, e.IndexFiles(ctx, []string{basePath}))
	assert.True(t, e.Cached(`App\Square`))

	writePHP(t, root, filepath.Join("App", "Shape.php"), shapePHP+"\ninterface Extra {}\n")
	require.NoError(t, e.IndexFiles(ctx, []string{filepath.Join(root, "App", "Shape.php")}))
	assert.True(t, e.Cached(`App\Square`), "adding an unrelated interface keeps the hierarchy")

	writePHP(t, root, filepath.Join("App", "Base.php"), `<?php
namespace App;
abstract class Base implements Shape
{
    const SIDES = 2;
    abstract public function area();
}
`)
	require.NoError(t, e.IndexFiles(ctx, []string{basePath}))
	assert.False(t, e.Cached(`App\Base`))
	assert.False(t, e.Cached(`App\Square`), "descendants are evicted with their parent")
	assert.True(t, e.Cached(`App\Shape`))
	assert.True(t, e.Cached(`App\Other`))

	sq, err := e.ReflectClass(ctx, `App\Square`)
	require.NoError(t, err)
	assert.False(t, sq.HasMethod("describe"))
}

func TestReflectClass_InvalidatesTypeHintUsers(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	tokenPath := writePHP(t, root, filepath.Join("Auth", "Token.php"), "<?php\nnamespace Auth;\nclass Token { const TTL = 1; }\n")
	writePHP(t, root, filepath.Join("Auth", "Guard.php"), "<?php\nnamespace Auth;\nclass Guard { public function check(Token $token) {} }\n")
	writePHP(t, root, filepath.Join("Auth", "AdminGuard.php"), "<?php\nnamespace Auth;\nclass AdminGuard extends Guard {}\n")
	e := newTestEngine(t, WithResolvers(resolver.NewNaming(root)))
	ctx := context.Background()

	hintedTTL := func(c *Class) any {
		t.Helper()
		m, err := c.Method("check")
		require.NoError(t, err)
		params := m.Parameters()
		require.Len(t, params, 1)
		hint, ok := params[0].Class()
		require.True(t, ok)
		v, err := hint.Constant("TTL")
		require.NoError(t, err)
		return v
	}

	admin, err := e.ReflectClass(ctx, `Auth\AdminGuard`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hintedTTL(admin))
	require.True(t, e.Cached(`Auth\Guard`))
	require.True(t, e.Cached(`Auth\Token`))

	writePHP(t, root, filepath.Join("Auth", "Token.php"), "<?php\nnamespace Auth;\nclass Token { const TTL = 2; }\n")
	require.NoError(t, e.IndexFiles(ctx, []string{tokenPath}))
	assert.False(t, e.Cached(`Auth\Token`))
	assert.False(t, e.Cached(`Auth\Guard`), "classes hinting a changed class are evicted")
	assert.False(t, e.Cached(`Auth\AdminGuard`), "and so are their descendants")

	guard, err := e.ReflectClass(ctx, `Auth\Guard`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), hintedTTL(guard))

	token, err := e.ReflectClass(ctx, `Auth\Token`)
	require.NoError(t, err)
	m, err := guard.Method("check")
	require.NoError(t, err)
	hint, _ := m.Parameters()[0].Class()
	assert.Same(t, token, hint)
}

func TestReflectClass_InvalidatesDocCommentEdits(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := writePHP(t, root, filepath.Join("Doc", "Note.php"), "<?php\nnamespace Doc;\n/** Old. */\nclass Note {}\n")
	e := newTestEngine(t, WithResolvers(resolver.NewNaming(root)))
	ctx := context.Background()

	c, err := e.ReflectClass(ctx, `Doc\Note`)
	require.NoError(t, err)
	assert.Equal(t, "/** Old. */", c.DocComment())

	writePHP(t, root, filepath.Join("Doc", "Note.php"), "<?php\nnamespace Doc;\n/** New. */\nclass Note {}\n")
	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	assert.False(t, e.Cached(`Doc\Note`))

	c, err = e.ReflectClass(ctx, `Doc\Note`)
	require.NoError(t, err)
	assert.Equal(t, "/** New. */", c.DocComment())
}

func TestReflectClass_InheritanceCycle(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writePHP(t, root, filepath.Join("Cyc", "A.php"), "<?php\nnamespace Cyc;\nclass A extends B {}\n")
	writePHP(t, root, filepath.Join("Cyc", "B.php"), "<?php\nnamespace Cyc;\nclass B extends A {}\n")
	e := newTestEngine(t, WithResolvers(resolver.NewNaming(root)))

	_, err := e.ReflectClass(context.Background(), `Cyc\A`)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	assert.False(t, e.Cached(`Cyc\A`), "partial nodes are not cached")
	assert.False(t, e.Cached(`Cyc\B`))
}

func TestReflectClass_Errors(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writePHP(t, root, "Orphan.php", "<?php\nclass Orphan extends Missing {}\n")
	writePHP(t, root, "Liar.php", "<?php\nclass SomethingElse {}\n")
	writePHP(t, root, "Impl.php", "<?php\nclass Impl implements Orphan {}\n")
	e := newTestEngine(t, WithResolvers(resolver.NewNaming(root)))
	ctx := context.Background()

	_, err := e.ReflectClass(ctx, "Nowhere")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = e.ReflectClass(ctx, "Orphan")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Contains(t, err.Error(), "parent of Orphan")

	_, err = e.ReflectClass(ctx, "Liar")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Contains(t, err.Error(), "not declared in")

	_, err = e.ReflectClass(ctx, "")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	writePHP(t, root, "Orphan.php", "<?php\nclass Orphan {}\n")
	_, err = e.ReflectClass(ctx, "Impl")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument, "a class is not an interface")
}

func TestReflectClass_CanceledContext(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeShapes(t, root)
	e := newTestEngine(t, WithResolvers(resolver.NewNaming(root)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ReflectClass(ctx, `App\Square`)
	require.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Configuration
// =============================================================================

func TestNewFromConfig_BuildsChain(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writePHP(t, root, "composer.json", `{"autoload": {"psr-4": {"Acme\\": "src/"}}}`)
	psr4 := writePHP(t, root, filepath.Join("src", "Http", "Kernel.php"), "<?php\nnamespace Acme\\Http;\nclass Kernel {}\n")
	pear := writePHP(t, root, filepath.Join("lib", "Zend", "Db.php"), "<?php\nclass Zend_Db {}\n")
	mapped := writePHP(t, root, filepath.Join("legacy", "thing.inc"), "<?php\nclass Thing {}\n")
	writePHP(t, root, filepath.Join("tools", "fixed.risor"), `
func resolve(name) {
	if name == "Fixed" {
		return "fixed/Fixed.php"
	}
	return nil
}
resolve(class_name)
`)

	cfg := &config.Config{
		Classmap:    map[string]string{"Thing": "legacy/thing.inc"},
		IncludePath: []string{"lib"},
		Scripts:     []string{"builtin:autoload/psr4.risor", "tools/fixed.risor"},
	}
	e, err := NewFromConfig(root, cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	assert.FileExists(t, filepath.Join(root, config.DefaultDatabase))
	assert.Equal(t, 5, e.Resolver().Len())

	for name, want := range map[string]string{
		`Acme\Http\Kernel`: psr4,
		"Zend_Db":          pear,
		"Thing":            mapped,
		"Fixed":            filepath.Join(root, "fixed", "Fixed.php"),
	} {
		got, err := e.Where(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	c, err := e.ReflectClass(context.Background(), "Thing")
	require.NoError(t, err)
	assert.Equal(t, "Thing", c.Name())
	path, err := e.Query().ClassFile("Thing")
	require.NoError(t, err)
	assert.Equal(t, mapped, path)
}
