package gateways

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBar(label string, width int) (*ProgressBar, *bytes.Buffer) {
	var buf bytes.Buffer
	p := &ProgressBar{out: &buf, label: label}
	p.layout(width)
	return p, &buf
}

func TestProgressBar_Layout(t *testing.T) {
	p, _ := newTestBar("hello-1.0.tar.gz", 80)

	assert.Equal(t, 40, p.half)
	assert.Equal(t, 38, p.bar)
	assert.Equal(t, "=> hello-1.0.tar.gz ", p.msg)

	line := p.render()
	assert.Len(t, line, p.half+p.bar+2)
	assert.True(t, strings.HasPrefix(line, "=> hello-1.0.tar.gz "))
}

func TestProgressBar_LongLabelIsShortened(t *testing.T) {
	p, _ := newTestBar(strings.Repeat("x", 100), 40)

	assert.Equal(t, p.bar-5, len(p.msg))
	assert.True(t, strings.HasSuffix(p.msg, "..."))
}

func TestProgressBar_Proportional(t *testing.T) {
	p, _ := newTestBar("f", 44)
	p.Grow(100)

	p.Add(50)
	assert.Equal(t, 10, strings.Count(p.render(), "#"))

	p.Add(50)
	assert.Equal(t, 20, strings.Count(p.render(), "#"))

	// overshoot is clamped
	p.Add(500)
	assert.Equal(t, 20, strings.Count(p.render(), "#"))
}

func TestProgressBar_UnknownTotal(t *testing.T) {
	p, _ := newTestBar("f", 80)
	p.Add(1234)
	assert.Equal(t, 0, strings.Count(p.render(), "#"))
}

func TestProgressBar_ResizeRecomputesOnTick(t *testing.T) {
	p, buf := newTestBar("f", 200)

	// a regular file has no window size, so the fallback width applies
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()
	p.fd = f.Fd()

	p.Grow(10)
	p.Add(10)

	// flagged from outside; nothing changes until the next tick
	p.resized.Store(true)
	assert.Equal(t, 100, p.half)

	p.Tick()
	assert.Equal(t, defaultTermWidth/2, p.half)
	assert.False(t, p.resized.Load())
	assert.True(t, strings.HasPrefix(buf.String(), "\r"))
}

func TestProgressBar_NilSafe(t *testing.T) {
	var p *ProgressBar
	p.Grow(1)
	p.Add(1)
	p.Tick()
	p.Close()
}

func TestIsTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, IsTerminal(f))
	assert.False(t, IsTerminal(nil))
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "abc", shorten("abc", 5))
	assert.Equal(t, "ab...", shorten("abcdefgh", 5))
	assert.Equal(t, "ab", shorten("abcdefgh", 2))
	assert.Equal(t, "", shorten("abc", 0))
}
