package runtime

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/risor-io/risor/object"

	errs "github.com/jward/staticrefl/internal/errors"
	"github.com/jward/staticrefl/internal/resolver"
	"github.com/jward/staticrefl/internal/symbol"
)

// DefaultScriptTimeout bounds a single script evaluation.
const DefaultScriptTimeout = 5 * time.Second

var _ resolver.Resolver = (*ScriptResolver)(nil)

// ScriptResolver resolves class names by running a Risor autoload script.
// The script sees the requested name as the global class_name and its last
// expression is the answer: a path string resolves the class; nil, false or
// an empty string mean the script does not know it.
type ScriptResolver struct {
	rt      *Runtime
	path    string
	timeout time.Duration

	loadOnce sync.Once
	src      string
	loadErr  error
}

// ScriptResolverOption configures a ScriptResolver.
type ScriptResolverOption func(*ScriptResolver)

// WithTimeout sets the per-lookup evaluation timeout.
func WithTimeout(d time.Duration) ScriptResolverOption {
	return func(s *ScriptResolver) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewScriptResolver creates a resolver backed by the script at path, loaded
// through rt on first use.
func NewScriptResolver(rt *Runtime, path string, opts ...ScriptResolverOption) *ScriptResolver {
	s := &ScriptResolver{rt: rt, path: path, timeout: DefaultScriptTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the script path.
func (s *ScriptResolver) Path() string { return s.path }

func (s *ScriptResolver) HasPathnameForClass(name string) bool {
	_, err := s.PathnameForClass(name)
	return err == nil
}

// PathnameForClass evaluates the script for name. Script failures and
// unexpected result types are reported as errors other than NotFound, so a
// chain stops on them instead of moving on.
func (s *ScriptResolver) PathnameForClass(name string) (string, error) {
	normalized := symbol.Normalize(name)
	if normalized == "" {
		return "", errs.PathnameNotFound(name)
	}

	s.loadOnce.Do(func() {
		s.src, s.loadErr = s.rt.LoadScript(s.path)
	})
	if s.loadErr != nil {
		return "", s.loadErr
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.rt.eval(ctx, s.src, s.path, map[string]any{"class_name": normalized})
	if err != nil {
		return "", err
	}

	switch v := result.(type) {
	case nil:
		return "", errs.PathnameNotFound(name)
	case *object.String:
		if v.Value() == "" {
			return "", errs.PathnameNotFound(name)
		}
		return resolvePath(s.rt.root, v.Value()), nil
	case *object.Bool:
		if !v.Value() {
			return "", errs.PathnameNotFound(name)
		}
	}
	if result == object.Nil {
		return "", errs.PathnameNotFound(name)
	}
	return "", errs.InvalidArgument(name,
		"autoload script %s returned %s for class %s, want a path string",
		filepath.Base(s.path), result.Type(), normalized)
}

func (s *ScriptResolver) String() string {
	return fmt.Sprintf("script(%s)", s.path)
}
