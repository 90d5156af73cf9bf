package entities

import "fmt"

// Pattern is one proscribed value the content scanner searches lines for
type Pattern interface {
	// Find returns the scalar offset of the first match, or -1
	Find(line []rune) int
	String() string
}

// Codepoint is a forbidden Unicode scalar value
type Codepoint rune

// Find implements Pattern
func (c Codepoint) Find(line []rune) int {
	for i, r := range line {
		if r == rune(c) {
			return i
		}
	}
	return -1
}

func (c Codepoint) String() string {
	return fmt.Sprintf("0x%04X", rune(c))
}

// Violation is one pattern hit found by the content scanner
type Violation struct {
	Path     string // normalized, relative to the original package layout
	FullPath string
	Line     int // 1-based
	Column   int // 0-based scalar offset
	Pattern  Pattern
}
