// Package diff computes line-level diffs using the sergi/go-diff library.
// accord uses it to summarize what diverged between conflict sides and to
// render capped excerpts for escalation documents.
package diff

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged context line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

// Line represents a single line in the diff
type Line struct {
	LineNum int
	Content string
	Type    LineType
}

// Hunk represents a group of changes
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// FileDiff represents changes to a single file
type FileDiff struct {
	OldPath  string
	NewPath  string
	Hunks    []Hunk
	IsNew    bool
	IsDelete bool
}

// Stats summarizes a FileDiff.
type Stats struct {
	Added   int
	Removed int
	Hunks   int
}

// Engine provides diff computation with caching
type Engine struct {
	dmp   *diffmatchpatch.DiffMatchPatch
	cache sync.Map // identical input pairs
}

type cacheKey struct {
	oldHash uint64
	newHash uint64
}

// NewEngine creates a new diff engine tuned for code diffs.
func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // accuracy over speed
	return &Engine{dmp: dmp}
}

// DefaultEngine is a singleton engine for general use
var DefaultEngine = NewEngine()

// Compute creates a FileDiff from old and new content strings.
func (e *Engine) Compute(oldPath, newPath, oldContent, newContent string) *FileDiff {
	fd := &FileDiff{
		OldPath: oldPath,
		NewPath: newPath,
	}
	if oldContent == "" {
		fd.IsNew = true
	}
	if newContent == "" {
		fd.IsDelete = true
	}

	key := cacheKey{fnv64(oldContent), fnv64(newContent)}
	if cached, ok := e.cache.Load(key); ok {
		if cd, ok := cached.(*FileDiff); ok {
			result := *cd
			result.OldPath = oldPath
			result.NewPath = newPath
			return &result
		}
	}

	// Line-level reduction avoids newline boundary artifacts when
	// converting character ops back to line ops.
	a, b, lineArray := e.dmp.DiffLinesToChars(oldContent, newContent)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCleanupSemantic(diffs)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)

	fd.Hunks = e.groupIntoHunks(e.diffsToOperations(diffs), 3)

	e.cache.Store(key, fd)
	return fd
}

// Compute is a convenience function using the default engine.
func Compute(oldPath, newPath, oldContent, newContent string) *FileDiff {
	return DefaultEngine.Compute(oldPath, newPath, oldContent, newContent)
}

// ClearCache clears the diff cache.
func (e *Engine) ClearCache() {
	e.cache = sync.Map{}
}

// Stats counts added and removed lines across all hunks.
func (fd *FileDiff) Stats() Stats {
	s := Stats{Hunks: len(fd.Hunks)}
	for _, h := range fd.Hunks {
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				s.Added++
			case LineRemoved:
				s.Removed++
			}
		}
	}
	return s
}

// Unified renders the diff in unified format.
func (fd *FileDiff) Unified() string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", fd.OldPath, fd.NewPath)
	for _, h := range fd.Hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				b.WriteString("+")
			case LineRemoved:
				b.WriteString("-")
			default:
				b.WriteString(" ")
			}
			b.WriteString(l.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Excerpt truncates rendered diff text to at most limit bytes, cutting at
// a line boundary and appending a truncation note when shortened.
func Excerpt(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndexByte(cut, '\n'); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "\n... (truncated)"
}

// operation represents a single line operation
type operation struct {
	typ     LineType
	oldLine int
	newLine int
	content string
}

// diffsToOperations converts diffmatchpatch diffs to line-based operations
func (e *Engine) diffsToOperations(diffs []diffmatchpatch.Diff) []operation {
	var operations []operation
	oldLine := 0
	newLine := 0

	for _, d := range diffs {
		lines := strings.Split(d.Text, "\n")
		if len(lines) == 1 && lines[0] == "" && d.Type != diffmatchpatch.DiffEqual {
			continue
		}
		// Remove trailing empty line from split
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}

		for _, line := range lines {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				operations = append(operations, operation{typ: LineContext, oldLine: oldLine, newLine: newLine, content: line})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				operations = append(operations, operation{typ: LineRemoved, oldLine: oldLine, newLine: -1, content: line})
				oldLine++
			case diffmatchpatch.DiffInsert:
				operations = append(operations, operation{typ: LineAdded, oldLine: -1, newLine: newLine, content: line})
				newLine++
			}
		}
	}

	return operations
}

// groupIntoHunks groups operations into hunks with surrounding context
func (e *Engine) groupIntoHunks(ops []operation, contextLines int) []Hunk {
	if len(ops) == 0 {
		return nil
	}

	var hunks []Hunk
	var current *Hunk
	lastChangeIdx := -1

	for i, op := range ops {
		isChange := op.typ != LineContext

		if isChange {
			if current == nil {
				current = &Hunk{}

				start := i - contextLines
				if start < 0 {
					start = 0
				}
				for j := start; j < i; j++ {
					if ops[j].typ == LineContext {
						current.Lines = append(current.Lines, Line{
							LineNum: ops[j].oldLine + 1,
							Content: ops[j].content,
							Type:    LineContext,
						})
					}
				}
				current.OldStart = ops[start].oldLine + 1
				current.NewStart = ops[start].newLine + 1
				if ops[start].oldLine < 0 {
					current.OldStart = 0
				}
				if ops[start].newLine < 0 {
					current.NewStart = 0
				}
			}
			lastChangeIdx = i
		}

		if current != nil {
			lineNum := op.oldLine + 1
			if op.typ == LineAdded {
				lineNum = op.newLine + 1
			}
			current.Lines = append(current.Lines, Line{LineNum: lineNum, Content: op.content, Type: op.typ})

			// Close the hunk once trailing context exceeds the window
			if op.typ == LineContext && i-lastChangeIdx > contextLines {
				trimTo := len(current.Lines) - (i - lastChangeIdx - contextLines)
				if trimTo > 0 && trimTo < len(current.Lines) {
					current.Lines = current.Lines[:trimTo]
				}
				computeHunkCounts(current)
				hunks = append(hunks, *current)
				current = nil
			}
		}
	}

	if current != nil && len(current.Lines) > 0 {
		computeHunkCounts(current)
		hunks = append(hunks, *current)
	}

	return hunks
}

func computeHunkCounts(h *Hunk) {
	for _, line := range h.Lines {
		if line.Type == LineRemoved || line.Type == LineContext {
			h.OldCount++
		}
		if line.Type == LineAdded || line.Type == LineContext {
			h.NewCount++
		}
	}
}

// fnv64 computes an FNV-1a hash for cache keys.
func fnv64(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
