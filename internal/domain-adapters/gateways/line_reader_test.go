package gateways

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, input []byte) []string {
	t.Helper()

	lr := NewLineReader(strings.NewReader(string(input)))
	var lines []string
	for {
		line, ok, err := lr.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		lines = append(lines, string(line))
		assert.Equal(t, len(lines), lr.Line())
	}
	return lines
}

func TestLineReader_Terminators(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "crlf is one terminator", input: "abc\r\ndef", want: []string{"abc", "def"}},
		{name: "bare cr", input: "abc\rdef", want: []string{"abc", "def"}},
		{name: "lf", input: "abc\ndef\n", want: []string{"abc", "def"}},
		{name: "cr cr lf", input: "a\r\r\nb", want: []string{"a", "", "b"}},
		{name: "lf cr", input: "a\n\rb", want: []string{"a", "", "b"}},
		{name: "trailing cr", input: "a\r", want: []string{"a"}},
		{name: "vertical tab and form feed", input: "a\vb\fc", want: []string{"a", "b", "c"}},
		{name: "next line", input: "a\u0085b", want: []string{"a", "b"}},
		{name: "line separator", input: "a\u2028b", want: []string{"a", "b"}},
		{name: "paragraph separator", input: "a\u2029b", want: []string{"a", "b"}},
		{name: "empty lines kept", input: "\n\nx", want: []string{"", "", "x"}},
		{name: "empty input", input: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, readLines(t, []byte(tt.input)))
		})
	}
}

func TestLineReader_ByteOrderMarks(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []string
	}{
		{
			name:  "utf-8 bom is dropped",
			input: []byte("\xEF\xBB\xBFab\ncd"),
			want:  []string{"ab", "cd"},
		},
		{
			name:  "utf-16le",
			input: []byte{0xFF, 0xFE, 'h', 0, 'i', 0, '\n', 0, 0x2E, 0x20},
			want:  []string{"hi", "\u202e"},
		},
		{
			name:  "utf-16be",
			input: []byte{0xFE, 0xFF, 0, 'o', 0, 'k', 0, '\r', 0, '\n', 0, 'x'},
			want:  []string{"ok", "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, readLines(t, tt.input))
		})
	}
}

func TestLineReader_LongLineGrowsBuffer(t *testing.T) {
	long := strings.Repeat("\u00e9", initialLineCap*5+3)
	lines := readLines(t, []byte(long+"\nshort"))

	require.Len(t, lines, 2)
	assert.Equal(t, long, lines[0])
	assert.Equal(t, "short", lines[1])
}

func TestLineReader_ScalarColumns(t *testing.T) {
	lr := NewLineReader(strings.NewReader("h\u00e9llo\u202e"))
	line, ok, err := lr.Next()
	require.NoError(t, err)
	require.True(t, ok)

	// multi-byte scalars occupy one slot each
	assert.Len(t, line, 6)
	assert.Equal(t, '\u202e', line[5])
}
