package main

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatItems(t *testing.T) {
	assert.Equal(t, "[]", formatItems(nil))
	assert.Equal(t, "[a b c]", formatItems([]string{"a", "b", "c"}))

	many := make([]string, showLimit+5)
	for i := range many {
		many[i] = strconv.Itoa(i)
	}
	formatted := formatItems(many)
	assert.True(t, strings.HasSuffix(formatted, "49 ...]"))
	assert.NotContains(t, formatted, " 50")
}

func TestStreamReader(t *testing.T) {
	r := newStreamReader(strings.NewReader("new\nit a\n"))

	line, err := r.Readline()
	require.NoError(t, err)
	assert.Equal(t, "new", line)
	line, err = r.Readline()
	require.NoError(t, err)
	assert.Equal(t, "it a", line)

	_, err = r.Readline()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, r.Close())
}

func TestStreamReaderUnterminatedAndLongLines(t *testing.T) {
	long := strings.Repeat("x", 200*1024)
	r := newStreamReader(strings.NewReader("it " + long + "\r\nsize"))

	line, err := r.Readline()
	require.NoError(t, err)
	assert.Equal(t, "it "+long, line)

	line, err = r.Readline()
	require.NoError(t, err)
	assert.Equal(t, "size", line)

	_, err = r.Readline()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.cmd")
	assert.False(t, FileExists(path))

	require.NoError(t, os.WriteFile(path, []byte("new\n"), 0o644))
	assert.True(t, FileExists(path))
}
