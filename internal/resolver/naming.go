package resolver

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/jward/staticrefl/internal/errors"
	"github.com/jward/staticrefl/internal/symbol"
)

// Naming resolves classes by the PEAR/PSR-0 naming convention against a list
// of include path roots: namespace separators, and underscores in the short
// name, become directory separators.
type Naming struct {
	roots []string
	stat  func(string) (fs.FileInfo, error)
}

func NewNaming(roots ...string) *Naming {
	return &Naming{roots: roots, stat: os.Stat}
}

// RelativePath returns the conventional file path of name, relative to an
// include root.
func RelativePath(name string) string {
	name = symbol.Normalize(name)
	ns := symbol.Namespace(name)
	short := symbol.ShortName(name)

	var parts []string
	if ns != "" {
		parts = append(parts, strings.Split(ns, symbol.Separator)...)
	}
	parts = append(parts, strings.Split(short, "_")...)
	return filepath.Join(parts...) + ".php"
}

func (n *Naming) HasPathnameForClass(name string) bool {
	_, err := n.PathnameForClass(name)
	return err == nil
}

// PathnameForClass returns the first existing conventional path under the
// include roots, in order.
func (n *Naming) PathnameForClass(name string) (string, error) {
	if symbol.Normalize(name) == "" {
		return "", errs.PathnameNotFound(name)
	}
	rel := RelativePath(name)
	for _, root := range n.roots {
		path := filepath.Join(root, rel)
		if info, err := n.stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", errs.PathnameNotFound(name)
}

// PSR4Path maps name to a file under baseDir when it starts with the
// namespace prefix: the remainder of the name becomes the relative path.
// Underscores are not special in PSR-4.
func PSR4Path(name, prefix, baseDir string) (string, bool) {
	name = symbol.Normalize(name)
	prefix = strings.Trim(prefix, symbol.Separator)
	rest := name
	if prefix != "" {
		var ok bool
		rest, ok = strings.CutPrefix(name, prefix+symbol.Separator)
		if !ok || rest == "" {
			return "", false
		}
	}
	if rest == "" {
		return "", false
	}
	parts := strings.Split(rest, symbol.Separator)
	return filepath.Join(append([]string{baseDir}, parts...)...) + ".php", true
}
