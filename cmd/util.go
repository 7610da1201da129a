package main

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
)

const showLimit = 50

type lineReader interface {
	Readline() (string, error)
	Close() error
}

// streamReader reads newline terminated commands from files and pipes.
// Lines have no length limit.
type streamReader struct {
	reader *bufio.Reader
	closer io.Closer
}

func newStreamReader(r io.Reader) *streamReader {
	sr := &streamReader{reader: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		sr.closer = c
	}
	return sr
}

func (r *streamReader) Readline() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *streamReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// promptReader reads from an interactive terminal. Ctrl-C ends the session
// the same way end of input does.
type promptReader struct {
	rl *readline.Instance
}

func newPromptReader(in io.ReadCloser, out io.Writer) (*promptReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "cmd> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdin:           in,
		Stdout:          out,
	})
	if err != nil {
		return nil, err
	}
	return &promptReader{rl: rl}, nil
}

func (r *promptReader) Readline() (string, error) {
	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

func (r *promptReader) Close() error {
	return r.rl.Close()
}

// Render queue items the way the show command prints them.
func formatItems(items []string) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, item := range items {
		if i == showLimit {
			sb.WriteString(" ...")
			break
		}
		if i != 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(item)
	}
	sb.WriteString("]")
	return sb.String()
}

// Check if a given file path exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !errors.Is(err, os.ErrNotExist)
}
