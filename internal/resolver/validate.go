package resolver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"accord/internal/logging"
)

// Validator rejects candidate resolutions that still contain conflict
// markers and, for recognized source file types, syntactically invalid
// content. Rejections are reported, never silently coerced.
type Validator struct {
	mu        sync.Mutex
	parser    *sitter.Parser
	languages map[string]*sitter.Language
	syntax    bool
}

// NewValidator creates a validator. syntaxChecks enables tree-sitter
// parsing for recognized extensions.
func NewValidator(syntaxChecks bool) *Validator {
	return &Validator{
		parser: sitter.NewParser(),
		languages: map[string]*sitter.Language{
			".go":  golang.GetLanguage(),
			".py":  python.GetLanguage(),
			".js":  javascript.GetLanguage(),
			".jsx": javascript.GetLanguage(),
			".ts":  typescript.GetLanguage(),
			".tsx": typescript.GetLanguage(),
		},
		syntax: syntaxChecks,
	}
}

// Close releases the underlying parser.
func (v *Validator) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.parser.Close()
}

// Validate checks a candidate resolution. A nil return means the content
// is safe to write and stage.
func (v *Validator) Validate(path, content string) error {
	if ContainsConflictMarkers(content) {
		return fmt.Errorf("%w: %s still contains conflict markers", ErrValidation, path)
	}

	if !v.syntax {
		return nil
	}
	lang, ok := v.languages[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil // unrecognized file type, markers check is all we can do
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.parser.SetLanguage(lang)
	tree, err := v.parser.ParseCtx(context.Background(), nil, []byte(content))
	if err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrValidation, path, err)
	}
	defer tree.Close()

	if tree.RootNode().HasError() {
		logging.ResolverWarn("syntax validation failed for %s", path)
		return fmt.Errorf("%w: %s is not syntactically valid", ErrValidation, path)
	}
	return nil
}

// ContainsConflictMarkers reports whether content carries git conflict
// marker sequences. The middle separator is only a marker as a whole
// line, so rows of equals signs in prose do not trip it.
func ContainsConflictMarkers(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(trimmed, "<<<<<<<"),
			strings.HasPrefix(trimmed, ">>>>>>>"),
			strings.HasPrefix(trimmed, "|||||||"),
			trimmed == "=======":
			return true
		}
	}
	return false
}
