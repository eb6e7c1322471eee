package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/staticrefl/internal/resolver"
	"github.com/jward/staticrefl/internal/source"
	"github.com/jward/staticrefl/internal/store"
	"github.com/jward/staticrefl/internal/symbol"
)

// stringArgs checks that every argument is a string and returns their values.
func stringArgs(name string, want int, args []object.Object) ([]string, *object.Error) {
	if len(args) != want {
		return nil, object.NewArgsError(name, want, len(args))
	}
	out := make([]string, len(args))
	for i, arg := range args {
		s, ok := arg.(*object.String)
		if !ok {
			return nil, object.Errorf("%s: argument %d must be a string, got %s", name, i+1, arg.Type())
		}
		out[i] = s.Value()
	}
	return out, nil
}

// stringFn wraps a one-string-in, one-string-out Go function as a builtin.
func stringFn(name string, fn func(string) string) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		vals, errObj := stringArgs(name, 1, args)
		if errObj != nil {
			return errObj
		}
		return object.NewString(fn(vals[0]))
	})
}

// normalize(name) → name without the leading namespace separator
func makeNormalizeFn() *object.Builtin {
	return stringFn("normalize", symbol.Normalize)
}

// short_name(name) → class name without its namespace
func makeShortNameFn() *object.Builtin {
	return stringFn("short_name", symbol.ShortName)
}

// namespace_of(name) → namespace part, "" for global classes
func makeNamespaceFn() *object.Builtin {
	return stringFn("namespace_of", symbol.Namespace)
}

// pear_path(name) → PEAR/PSR-0 relative path, e.g. "Zend/Db/Table.php"
func makePearPathFn() *object.Builtin {
	return stringFn("pear_path", func(name string) string {
		return filepath.ToSlash(resolver.RelativePath(name))
	})
}

// psr4_path(name, prefix, base_dir) → path under base_dir, or nil when name
// is outside the prefix
func makePSR4PathFn() *object.Builtin {
	return object.NewBuiltin("psr4_path", func(ctx context.Context, args ...object.Object) object.Object {
		vals, errObj := stringArgs("psr4_path", 3, args)
		if errObj != nil {
			return errObj
		}
		path, ok := resolver.PSR4Path(vals[0], vals[1], vals[2])
		if !ok {
			return object.Nil
		}
		return object.NewString(path)
	})
}

// path_join(elem, ...) → joined path
func makePathJoinFn() *object.Builtin {
	return object.NewBuiltin("path_join", func(ctx context.Context, args ...object.Object) object.Object {
		parts := make([]string, len(args))
		for i, arg := range args {
			s, ok := arg.(*object.String)
			if !ok {
				return object.Errorf("path_join: argument %d must be a string, got %s", i+1, arg.Type())
			}
			parts[i] = s.Value()
		}
		return object.NewString(filepath.Join(parts...))
	})
}

// file_exists(path) → true when path is a regular file. Relative paths are
// resolved against the project root.
func makeFileExistsFn(root string) *object.Builtin {
	return object.NewBuiltin("file_exists", func(ctx context.Context, args ...object.Object) object.Object {
		vals, errObj := stringArgs("file_exists", 1, args)
		if errObj != nil {
			return errObj
		}
		info, err := os.Stat(resolvePath(root, vals[0]))
		return object.NewBool(err == nil && info.Mode().IsRegular())
	})
}

// declared_classes(path) → list of fully qualified class and interface
// names declared in the file. The file is parsed, never executed.
func makeDeclaredClassesFn(ex *source.Extractor, root string) *object.Builtin {
	return object.NewBuiltin("declared_classes", func(ctx context.Context, args ...object.Object) object.Object {
		vals, errObj := stringArgs("declared_classes", 1, args)
		if errObj != nil {
			return errObj
		}
		path := resolvePath(root, vals[0])
		content, err := os.ReadFile(path)
		if err != nil {
			return object.Errorf("declared_classes: reading %s: %v", path, err)
		}
		res, err := ex.Extract(ctx, content, path)
		if err != nil {
			return object.Errorf("declared_classes: %v", err)
		}
		names := res.ClassNames()
		items := make([]object.Object, len(names))
		for i, n := range names {
			items[i] = object.NewString(n)
		}
		return object.NewList(items)
	})
}

// indexed_path(name) → file declaring name according to the index, or nil
func makeIndexedPathFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("indexed_path", func(ctx context.Context, args ...object.Object) object.Object {
		vals, errObj := stringArgs("indexed_path", 1, args)
		if errObj != nil {
			return errObj
		}
		path, err := s.ClassFile(vals[0])
		if err != nil {
			return object.Errorf("indexed_path: %v", err)
		}
		if path == "" {
			return object.Nil
		}
		return object.NewString(path)
	})
}

// composer_psr4() → list of {"prefix", "dir"} maps from the autoload and
// autoload-dev psr-4 sections of the project's composer.json, longest
// prefix first. A project without composer.json yields an empty list.
func makeComposerPSR4Fn(root string) *object.Builtin {
	return object.NewBuiltin("composer_psr4", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("composer_psr4", 0, len(args))
		}
		entries, err := readComposerPSR4(root)
		if err != nil {
			return object.Errorf("composer_psr4: %v", err)
		}
		items := make([]object.Object, len(entries))
		for i, e := range entries {
			items[i] = object.NewMap(map[string]object.Object{
				"prefix": object.NewString(e.prefix),
				"dir":    object.NewString(e.dir),
			})
		}
		return object.NewList(items)
	})
}

type psr4Entry struct {
	prefix, dir string
}

type composerAutoload struct {
	PSR4 map[string]json.RawMessage `json:"psr-4"`
}

func readComposerPSR4(root string) ([]psr4Entry, error) {
	data, err := os.ReadFile(resolvePath(root, "composer.json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var manifest struct {
		Autoload    composerAutoload `json:"autoload"`
		AutoloadDev composerAutoload `json:"autoload-dev"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing composer.json: %w", err)
	}

	var entries []psr4Entry
	for _, section := range []composerAutoload{manifest.Autoload, manifest.AutoloadDev} {
		for prefix, raw := range section.PSR4 {
			// A prefix maps to one directory or a list of them.
			var dirs []string
			var one string
			if err := json.Unmarshal(raw, &one); err == nil {
				dirs = []string{one}
			} else if err := json.Unmarshal(raw, &dirs); err != nil {
				return nil, fmt.Errorf("composer.json: psr-4 entry %q: %w", prefix, err)
			}
			for _, dir := range dirs {
				entries = append(entries, psr4Entry{prefix: prefix, dir: resolvePath(root, strings.TrimSuffix(dir, "/"))})
			}
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if len(entries[i].prefix) != len(entries[j].prefix) {
			return len(entries[i].prefix) > len(entries[j].prefix)
		}
		return entries[i].prefix < entries[j].prefix
	})
	return entries, nil
}

func resolvePath(root, path string) string {
	if root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, slog.String("source", "script"))
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, slog.String("source", "script"))
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, slog.String("source", "script"))
}
