package main

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

func ErrUnknownCmd(cmd string) error {
	return errors.Errorf("unknown command '%s'", cmd)
}

func ErrInvalidNArg(cmd string) error {
	return errors.Errorf("invalid number of arguments for command '%s'", cmd)
}

var ErrNotInt = errors.New("value is not a positive integer")
var ErrUnbalancedQuotes = errors.New("unbalanced quotes")
var ErrEmptyCommand = errors.New("empty command")

type CommandType = byte

const (
	// Queue lifecycle
	CmdNew CommandType = iota
	CmdFree
	// Queue operations
	CmdInsertHead
	CmdInsertTail
	CmdRemoveHead
	CmdRemoveHeadQuiet
	CmdReverse
	CmdSize
	CmdShow
	// Harness
	CmdStats
	CmdOption
	CmdSource
	CmdHelp
	CmdQuit
)

type Command struct {
	Kind     CommandType
	Key      string // option name
	Value    string // inserted or expected value, option value, source path
	HasValue bool   // rh, option
	Repeat   int    // ih, it, size
}

func ParseCommand(message string) (*Command, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, ErrEmptyCommand
	}

	split, err := sanitize(trimmed)
	if err != nil {
		return nil, err
	}

	argc := len(split)
	cmd := strings.ToLower(split[0])
	switch cmd {
	case "new":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdNew}, nil
	case "free":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdFree}, nil
	case "ih", "it":
		if argc < 2 || argc > 3 {
			return nil, ErrInvalidNArg(cmd)
		}
		insert := &Command{Kind: CmdInsertHead, Value: split[1], HasValue: true, Repeat: 1}
		if cmd == "it" {
			insert.Kind = CmdInsertTail
		}
		if argc == 3 {
			n, err := parseRepeat(split[2])
			if err != nil {
				return nil, err
			}
			insert.Repeat = n
		}
		return insert, nil
	case "rh":
		if argc > 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		rh := &Command{Kind: CmdRemoveHead}
		if argc == 2 {
			rh.Value, rh.HasValue = split[1], true
		}
		return rh, nil
	case "rhq":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdRemoveHeadQuiet}, nil
	case "reverse":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdReverse}, nil
	case "size":
		if argc > 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		size := &Command{Kind: CmdSize, Repeat: 1}
		if argc == 2 {
			n, err := parseRepeat(split[1])
			if err != nil {
				return nil, err
			}
			size.Repeat = n
		}
		return size, nil
	case "show":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdShow}, nil
	case "stats":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdStats}, nil
	case "option":
		if argc != 1 && argc != 3 {
			return nil, ErrInvalidNArg(cmd)
		}
		option := &Command{Kind: CmdOption}
		if argc == 3 {
			option.Key = strings.ToLower(split[1])
			option.Value, option.HasValue = split[2], true
		}
		return option, nil
	case "source":
		if argc != 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdSource, Value: split[1]}, nil
	case "help":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdHelp}, nil
	case "quit", "exit":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdQuit}, nil
	}

	return nil, ErrUnknownCmd(cmd)
}

func parseRepeat(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, errors.Wrapf(ErrNotInt, "'%s'", arg)
	}
	return n, nil
}

func isWhitespace(b byte) bool {
	return unicode.IsSpace(rune(b))
}

// Split a message into words. Single or double quotes group words together.
func sanitize(message string) ([]string, error) {
	out := []string{}
	i := 0

	for i < len(message) {
		c := message[i]
		if isWhitespace(c) {
			i++
			continue
		}

		if c == '"' || c == '\'' {
			end := strings.IndexByte(message[i+1:], c)
			if end < 0 {
				return nil, ErrUnbalancedQuotes
			}

			out = append(out, message[i+1:i+1+end])
			i += end + 2
			continue
		}

		start := i
		for i < len(message) && !isWhitespace(message[i]) {
			i++
		}
		out = append(out, message[start:i])
	}

	return out, nil
}
