package gateways

import (
	"bufio"
	"errors"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const initialLineCap = 256

// Line terminators other than LF and CR
const (
	runeNEL = '\u0085'
	runeLS  = '\u2028'
	runePS  = '\u2029'
)

// LineReader decodes text into lines of Unicode scalar values. UTF-8 is
// assumed unless a UTF-8 or UTF-16 byte order mark says otherwise.
// A line ends at LF, VT, FF, CR, CR LF, NEL, LS or PS; CR LF counts as
// a single terminator.
type LineReader struct {
	r    *bufio.Reader
	buf  []rune
	line int
}

// NewLineReader wraps r
func NewLineReader(r io.Reader) *LineReader {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return &LineReader{
		r:   bufio.NewReader(transform.NewReader(r, decoder)),
		buf: make([]rune, 0, initialLineCap),
	}
}

// Line returns the 1-based number of the line last returned by Next
func (l *LineReader) Line() int {
	return l.line
}

// Next returns the next line without its terminator. The slice is only
// valid until the following call. ok is false at end of input.
func (l *LineReader) Next() (line []rune, ok bool, err error) {
	l.buf = l.buf[:0]

	for {
		r, _, err := l.r.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(l.buf) == 0 {
					return nil, false, nil
				}
				l.line++
				return l.buf, true, nil
			}
			return nil, false, err
		}

		switch r {
		case '\r':
			next, _, err := l.r.ReadRune()
			if err == nil && next != '\n' {
				_ = l.r.UnreadRune()
			}
			l.line++
			return l.buf, true, nil

		case '\n', '\v', '\f', runeNEL, runeLS, runePS:
			l.line++
			return l.buf, true, nil
		}

		l.append(r)
	}
}

// append adds r, doubling the buffer when it is full
func (l *LineReader) append(r rune) {
	if len(l.buf) == cap(l.buf) {
		grown := make([]rune, len(l.buf), 2*cap(l.buf))
		copy(grown, l.buf)
		l.buf = grown
	}
	l.buf = append(l.buf, r)
}
