// Package source extracts PHP class and interface declarations from source
// files using tree-sitter. It never executes code: every name, modifier and
// default value comes from the syntax tree.
package source

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/staticrefl/internal/store"
)

// DefaultMaxFileSize is the largest file Extract accepts unless overridden.
const DefaultMaxFileSize = 10 * 1024 * 1024

var (
	ErrFileTooLarge   = errors.New("source: file too large")
	ErrInvalidContent = errors.New("source: invalid content")
)

// Result holds the declarations found in one file.
type Result struct {
	Path      string
	Hash      string
	LineCount int
	HasErrors bool
	Classes   []*Class
}

// Class is a class or interface declaration with its members. Member records
// carry no IDs until written.
type Class struct {
	Decl       store.ClassDecl
	Constants  []store.ConstantDecl
	Properties []store.PropertyDecl
	Methods    []*Method
}

type Method struct {
	Decl       store.MethodDecl
	Parameters []store.ParameterDecl
}

// ClassNames returns the fully qualified names declared in the file.
func (r *Result) ClassNames() []string {
	names := make([]string, len(r.Classes))
	for i, c := range r.Classes {
		names[i] = c.Decl.Name
	}
	return names
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxFileSize sets the maximum file size Extract accepts.
func WithMaxFileSize(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxFileSize = n
		}
	}
}

// WithLogger sets the logger used for skipped declarations.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Extractor parses PHP files into declaration records. It is safe for
// concurrent use; each call gets its own parser.
type Extractor struct {
	maxFileSize int64
	logger      *slog.Logger
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HashContent returns the hex SHA-256 of content, the value stored as a
// file's hash.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Extract parses content and returns its class and interface declarations.
// Syntax errors do not fail extraction; they set HasErrors and whatever
// tree-sitter recovered is still extracted.
func (e *Extractor) Extract(ctx context.Context, content []byte, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("source: extract %s: %w", path, err)
	}
	if int64(len(content)) > e.maxFileSize {
		return nil, fmt.Errorf("%w: %s: size %d exceeds limit %d", ErrFileTooLarge, path, len(content), e.maxFileSize)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s: content is not valid UTF-8", ErrInvalidContent, path)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(Grammar())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("source: parse %s: %w", path, err)
	}
	defer tree.Close()

	res := &Result{
		Path:      path,
		Hash:      HashContent(content),
		LineCount: bytes.Count(content, []byte("\n")) + 1,
	}
	root := tree.RootNode()
	if root == nil {
		res.HasErrors = true
		return res, nil
	}
	res.HasErrors = root.HasError()

	w := &walker{src: content, path: path, logger: e.logger, scope: newScope("")}
	w.walk(root)
	res.Classes = w.classes
	return res, nil
}
