// Package emit provides a small indentation-aware line accumulator used by
// code generators. It knows nothing about any target language; it is pure
// text layout.
package emit

import (
	"fmt"
	"strings"
)

// indentUnit is the whitespace prepended per indentation level.
const indentUnit = "    "

// Builder accumulates lines of text at a tracked indentation depth.
// The zero value is ready to use. Builder is NOT safe for concurrent use.
//
// Example:
//
//	b := &emit.Builder{}
//	b.Line("def f():").Indent().Line("pass").Dedent()
//	src := b.String() // "def f():\n    pass"
type Builder struct {
	lines []string
	depth int
}

// Line appends a single line at the current indentation depth.
// Returns the builder for chaining.
func (b *Builder) Line(s string) *Builder {
	b.lines = append(b.lines, strings.Repeat(indentUnit, b.depth)+s)
	return b
}

// Linef appends a formatted line at the current indentation depth.
// Returns the builder for chaining.
func (b *Builder) Linef(format string, args ...any) *Builder {
	return b.Line(fmt.Sprintf(format, args...))
}

// Blank appends an empty line (no indentation).
// Returns the builder for chaining.
func (b *Builder) Blank() *Builder {
	b.lines = append(b.lines, "")
	return b
}

// Indent increases the indentation depth by one level.
// Returns the builder for chaining.
func (b *Builder) Indent() *Builder {
	b.depth++
	return b
}

// Dedent decreases the indentation depth by one level.
// Dedenting below zero is a no-op, never an error.
// Returns the builder for chaining.
func (b *Builder) Dedent() *Builder {
	if b.depth > 0 {
		b.depth--
	}
	return b
}

// String flattens the accumulated lines, joined with newlines.
// An empty builder flattens to the empty string.
func (b *Builder) String() string {
	return strings.Join(b.lines, "\n")
}
