package store

import (
	"strconv"
	"strings"
	"time"
)

type File struct {
	ID          int64
	Path        string
	Hash        string
	LineCount   int
	HasErrors   bool
	LastIndexed time.Time
}

// Declaration records. Names of classes, parents and interfaces are fully
// qualified without the leading namespace separator.

type ClassDecl struct {
	ID            int64
	FileID        int64
	Name          string
	Kind          string // "class" or "interface"
	Modifiers     int
	DocComment    string
	ParentName    string
	Interfaces    []string
	SignatureHash string
	StartLine     int
	EndLine       int
}

type ConstantDecl struct {
	ID      int64
	ClassID int64
	Name    string
	Value   Literal
}

type MethodDecl struct {
	ID         int64
	ClassID    int64
	Name       string
	Modifiers  int
	DocComment string
	StartLine  int
	EndLine    int
}

type PropertyDecl struct {
	ID         int64
	ClassID    int64
	Name       string
	Modifiers  int
	DocComment string
	Default    *Literal
}

type ParameterDecl struct {
	ID       int64
	MethodID int64
	Name     string
	Ordinal  int
	ByRef    bool
	Variadic bool
	// TypeHint is "array", a fully qualified class name, or empty.
	TypeHint string
	Default  *Literal
}

type LiteralKind string

const (
	LiteralNull   LiteralKind = "null"
	LiteralBool   LiteralKind = "bool"
	LiteralInt    LiteralKind = "int"
	LiteralFloat  LiteralKind = "float"
	LiteralString LiteralKind = "string"
	LiteralArray  LiteralKind = "array"
	// LiteralExpr holds an expression that is kept as source text.
	LiteralExpr LiteralKind = "expr"
)

// Literal is a constant or default value in storable form. Text is the
// canonical spelling: decimal for ints, the unquoted value for strings.
type Literal struct {
	Kind LiteralKind
	Text string
}

// Value converts the literal to a Go value: nil, bool, int64, float64,
// string or an empty []any. Expressions yield their source text.
func (l Literal) Value() any {
	switch l.Kind {
	case LiteralNull:
		return nil
	case LiteralBool:
		return strings.EqualFold(l.Text, "true")
	case LiteralInt:
		if v, err := strconv.ParseInt(l.Text, 10, 64); err == nil {
			return v
		}
	case LiteralFloat:
		if v, err := strconv.ParseFloat(l.Text, 64); err == nil {
			return v
		}
	case LiteralArray:
		return []any{}
	}
	return l.Text
}

func (l Literal) String() string {
	switch l.Kind {
	case LiteralString:
		return strconv.Quote(l.Text)
	case LiteralArray:
		return "[]"
	}
	return l.Text
}
