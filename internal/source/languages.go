package source

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"
)

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".php":   "php",
	".phtml": "php",
	".inc":   "php",
}

// The grammar is lazily initialized on first call via sync.Once.
var (
	grammar     *sitter.Language
	grammarOnce sync.Once
)

// Grammar returns the tree-sitter PHP grammar.
func Grammar() *sitter.Language {
	grammarOnce.Do(func() {
		grammar = php.GetLanguage()
	})
	return grammar
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// IsSourceFile reports whether path has a PHP source extension.
func IsSourceFile(path string) bool {
	_, ok := LanguageForFile(path)
	return ok
}
