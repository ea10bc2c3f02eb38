package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBuilder_Empty verifies an empty builder flattens to the empty string.
func TestBuilder_Empty(t *testing.T) {
	b := &Builder{}
	assert.Equal(t, "", b.String())
}

// TestBuilder_SingleLine tests a single unindented line.
func TestBuilder_SingleLine(t *testing.T) {
	b := &Builder{}
	b.Line("hello")
	assert.Equal(t, "hello", b.String())
}

// TestBuilder_BlankLine tests blank-line emission between lines.
func TestBuilder_BlankLine(t *testing.T) {
	b := &Builder{}
	b.Line("a").Blank().Line("b")
	assert.Equal(t, "a\n\nb", b.String())
}

// TestBuilder_IndentDedent tests one level of indentation.
func TestBuilder_IndentDedent(t *testing.T) {
	b := &Builder{}
	b.Line("def f():").
		Indent().Line("pass").
		Dedent().Line("x = 1")
	assert.Equal(t, "def f():\n    pass\nx = 1", b.String())
}

// TestBuilder_NestedIndent tests multiple indentation levels.
func TestBuilder_NestedIndent(t *testing.T) {
	b := &Builder{}
	b.Indent().Line("level1")
	b.Indent().Line("level2")
	b.Dedent().Dedent().Line("level0")
	assert.Equal(t, "    level1\n        level2\nlevel0", b.String())
}

// TestBuilder_DedentBelowZeroClamps verifies dedenting past zero is a no-op.
func TestBuilder_DedentBelowZeroClamps(t *testing.T) {
	b := &Builder{}
	b.Dedent().Line("x")
	assert.Equal(t, "x", b.String())
}

// TestBuilder_Chaining verifies all mutators return the builder.
func TestBuilder_Chaining(t *testing.T) {
	b := &Builder{}
	out := b.Line("a").Line("b").String()
	assert.Equal(t, "a\nb", out)
}

// TestBuilder_Linef tests formatted line emission.
func TestBuilder_Linef(t *testing.T) {
	b := &Builder{}
	b.Linef("x = %d", 42)
	assert.Equal(t, "x = 42", b.String())
}
