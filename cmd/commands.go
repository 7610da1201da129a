package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"skabillium/strqueue/cmd/logger"
	"skabillium/strqueue/cmd/queue"
)

const (
	guardLength = 16
	guardByte   = 'X'
	maxSource   = 8
)

// Harness drives a single queue from text commands and checks every result
// against its own element count and the allocator's books.
type Harness struct {
	out   io.Writer
	opts  *HarnessOptions
	alloc *queue.TrackingAllocator
	q     *queue.Queue
	qcnt  int

	errors   int
	invalid  int
	depth    int
	quit     bool
	finished bool
}

func NewHarness(out io.Writer, opts *HarnessOptions) *Harness {
	alloc := queue.NewTrackingAllocator(opts.Seed)
	alloc.FailPercent = opts.MallocFailPercent
	return &Harness{out: out, opts: opts, alloc: alloc}
}

func (h *Harness) Writeln(message string) {
	fmt.Fprintln(h.out, message)
}

func (h *Harness) Error(format string, args ...any) {
	h.errors++
	message := fmt.Sprintf(format, args...)
	h.Writeln("[ERROR]: " + message)
	logger.Log.Warn().Int("errors", h.errors).Msg(message)
}

func (h *Harness) report(level int, format string, args ...any) {
	if h.opts.Verbosity >= level {
		h.Writeln(fmt.Sprintf(format, args...))
	}
}

func (h *Harness) Errors() int {
	return h.errors
}

func (h *Harness) Done() bool {
	return h.quit || h.errors >= h.opts.ErrorLimit
}

// Run executes lines from src until input ends, quit is given or the error
// limit is reached. Lines are echoed when echo is set.
func (h *Harness) Run(src lineReader, echo bool) error {
	for !h.Done() {
		line, err := src.Readline()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if echo {
			h.report(1, "cmd> %s", line)
		}
		h.Execute(line)
	}

	if h.errors >= h.opts.ErrorLimit && h.depth == 0 {
		h.report(1, "Error limit exceeded, stopping command execution")
	}
	return nil
}

func (h *Harness) Execute(message string) {
	cmd, err := ParseCommand(message)
	if errors.Is(err, ErrEmptyCommand) {
		return
	}
	if err != nil {
		h.Error("%s", err)
		return
	}

	logger.Log.Debug().Str("command", message).Msg("execute")

	switch cmd.Kind {
	case CmdNew:
		if h.q != nil {
			h.freeQueue()
		}
		h.q = queue.New(queue.WithAllocator(h.alloc))
		h.qcnt = 0
		h.show(3)
	case CmdFree:
		if h.q == nil {
			h.report(1, "Warning: Calling free on null queue")
		}
		h.freeQueue()
		h.show(3)
	case CmdInsertHead, CmdInsertTail:
		h.insert(cmd)
	case CmdRemoveHead, CmdRemoveHeadQuiet:
		h.removeHead(cmd)
	case CmdReverse:
		if h.q == nil {
			h.report(1, "Warning: Calling reverse on null queue")
		}
		h.q.Reverse()
		h.check("reverse")
		h.show(3)
	case CmdSize:
		h.size(cmd.Repeat)
	case CmdShow:
		h.show(1)
	case CmdStats:
		h.stats()
	case CmdOption:
		h.option(cmd)
	case CmdSource:
		h.source(cmd.Value)
	case CmdHelp:
		h.help()
	case CmdQuit:
		h.quit = true
		h.Finish()
	}
}

// Finish frees the queue, if any, and reports blocks that were never
// released. Only the first call has an effect.
func (h *Harness) Finish() {
	if h.finished {
		return
	}
	h.finished = true

	h.freeQueue()
	logger.Log.Info().Int("errors", h.errors).Msg("harness finished")
}

func (h *Harness) freeQueue() {
	h.q.Free()
	h.q = nil
	h.qcnt = 0

	stats := h.alloc.Stats()
	if live := stats.Live(); live > 0 {
		h.Error("Freed queue, but %d blocks are still allocated", live)
	}
	for _, kind := range []struct {
		name  string
		block queue.BlockStats
	}{{"node", stats.Nodes}, {"string", stats.Strings}} {
		if kind.block.Allocs != kind.block.Releases {
			h.Error("Freed queue, but %d %s blocks were allocated and %d released",
				kind.block.Allocs, kind.name, kind.block.Releases)
		}
	}
	if stats.InvalidReleases > h.invalid {
		h.Error("%d blocks released without being allocated", stats.InvalidReleases-h.invalid)
		h.invalid = stats.InvalidReleases
	}
}

func (h *Harness) insert(cmd *Command) {
	name, insert := "insert head", h.q.InsertHead
	if cmd.Kind == CmdInsertTail {
		name, insert = "insert tail", h.q.InsertTail
	}

	if h.q == nil {
		h.report(1, "Warning: Calling %s on null queue", name)
	}

	for i := 0; i < cmd.Repeat; i++ {
		before := h.alloc.Live()
		err := insert(cmd.Value)
		switch {
		case err == nil:
			h.qcnt++
		case errors.Is(err, queue.ErrNullQueue):
			if h.q != nil {
				h.Error("%s reported a null queue", name)
			}
		case errors.Is(err, queue.ErrAllocFailed):
			h.report(1, "Warning: %s of %s failed (%s)", name, cmd.Value, err)
			if after := h.alloc.Live(); after != before {
				h.Error("Failed %s left %d blocks allocated", name, after-before)
			}
		default:
			h.Error("%s of %s failed: %s", name, cmd.Value, err)
		}
	}

	h.check(name)
	h.show(3)
}

func (h *Harness) removeHead(cmd *Command) {
	length := h.opts.StringLength
	var buf []byte
	if cmd.Kind == CmdRemoveHead {
		buf = make([]byte, length+guardLength)
		for i := range buf {
			buf[i] = guardByte
		}
	}

	var n int
	var err error
	if buf != nil {
		n, err = h.q.RemoveHeadInto(buf[:length])
	} else {
		n, err = h.q.RemoveHeadInto(nil)
	}

	switch {
	case errors.Is(err, queue.ErrNullQueue):
		h.report(1, "Warning: Calling remove head on null queue")
		return
	case errors.Is(err, queue.ErrEmptyQueue):
		if h.qcnt != 0 {
			h.Error("Remove head failed on a queue of %d elements", h.qcnt)
			return
		}
		h.report(1, "Warning: Calling remove head on empty queue")
		return
	case err != nil:
		h.Error("Remove head failed: %s", err)
		return
	}

	h.qcnt--
	if buf != nil {
		h.checkRemoved(cmd, buf, n)
	}

	h.check("remove head")
	h.show(3)
}

func (h *Harness) checkRemoved(cmd *Command, buf []byte, n int) {
	length := h.opts.StringLength
	if n > length-1 || buf[n] != 0 {
		h.Error("Removed value is not terminated within %d bytes", length)
		return
	}
	for _, b := range buf[length:] {
		if b != guardByte {
			h.Error("Remove head wrote past the end of its %d byte buffer", length)
			return
		}
	}

	removed := string(buf[:n])
	if !cmd.HasValue {
		h.report(2, "Removed %s from queue", removed)
		return
	}

	want := cmd.Value
	if len(want) > length-1 {
		want = want[:length-1]
	}
	if removed != want {
		h.Error("Removed value %s != expected value %s", removed, want)
		return
	}
	h.report(2, "Removed %s from queue", removed)
}

func (h *Harness) size(repeat int) {
	if h.q == nil {
		h.report(1, "Warning: Calling size on null queue")
	}

	cnt := 0
	for i := 0; i < repeat; i++ {
		cnt = h.q.Size()
	}

	if cnt != h.qcnt {
		h.Error("Computed queue size as %d, but correct value is %d", cnt, h.qcnt)
		return
	}
	h.report(1, "Queue size = %d", cnt)
}

func (h *Harness) check(op string) {
	if h.q == nil {
		return
	}

	if err := h.q.Validate(); err != nil {
		h.Error("%s: %s", op, err)
	}
	if size := h.q.Size(); size != h.qcnt {
		h.Error("%s: queue holds %d elements, expected %d", op, size, h.qcnt)
	}
}

func (h *Harness) show(level int) {
	if h.opts.Verbosity < level {
		return
	}
	if h.q == nil {
		h.Writeln("q = NULL")
		return
	}

	items := h.q.Items()
	h.Writeln("q = " + formatItems(items))
	if len(items) != h.qcnt {
		h.Error("Queue has %d elements, expected %d", len(items), h.qcnt)
	}
}

func (h *Harness) stats() {
	s := h.alloc.Stats()
	h.Writeln(fmt.Sprintf("nodes:    %d allocated, %d released, %d live", s.Nodes.Allocs, s.Nodes.Releases, s.Nodes.Live))
	h.Writeln(fmt.Sprintf("strings:  %d allocated, %d released, %d live", s.Strings.Allocs, s.Strings.Releases, s.Strings.Live))
	h.Writeln(fmt.Sprintf("memory:   %s live, %s peak",
		humanize.Bytes(uint64(s.LiveBytes())), humanize.Bytes(uint64(s.PeakBytes))))
	h.Writeln(fmt.Sprintf("failures: %d injected, %d invalid releases", s.Failures, s.InvalidReleases))
}

type harnessOption struct {
	name string
	doc  string
	ptr  func(*HarnessOptions) *int
}

var harnessOptions = []harnessOption{
	{"verbose", "Verbosity level", func(o *HarnessOptions) *int { return &o.Verbosity }},
	{"malloc", "Malloc failure probability percent", func(o *HarnessOptions) *int { return &o.MallocFailPercent }},
	{"length", "Maximum length of displayed string", func(o *HarnessOptions) *int { return &o.StringLength }},
	{"fail", "Number of errors before stopping", func(o *HarnessOptions) *int { return &o.ErrorLimit }},
}

func (h *Harness) option(cmd *Command) {
	if !cmd.HasValue {
		for _, opt := range harnessOptions {
			h.Writeln(fmt.Sprintf("%-8s %-6d %s", opt.name, *opt.ptr(h.opts), opt.doc))
		}
		return
	}

	for _, opt := range harnessOptions {
		if opt.name != cmd.Key {
			continue
		}

		value, err := strconv.Atoi(cmd.Value)
		if err != nil {
			h.Error("Invalid value '%s' for option '%s'", cmd.Value, cmd.Key)
			return
		}

		updated := *h.opts
		*opt.ptr(&updated) = value
		if err := updated.validate(); err != nil {
			h.Error("%s", err)
			return
		}

		*h.opts = updated
		h.alloc.FailPercent = h.opts.MallocFailPercent
		return
	}

	h.Error("Unknown option '%s'", cmd.Key)
}

func (h *Harness) source(path string) {
	if h.depth >= maxSource {
		h.Error("Source files nested deeper than %d levels", maxSource)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		h.Error("Could not open source file '%s'", path)
		return
	}

	src := newStreamReader(f)
	defer src.Close()

	h.depth++
	defer func() { h.depth-- }()

	logger.Log.Info().Str("file", path).Msg("reading commands")
	if err := h.Run(src, true); err != nil {
		h.Error("Reading '%s' failed: %s", path, err)
	}
}

var helpLines = []string{
	"new                 | Create new queue",
	"free                | Delete queue",
	"ih str [n]          | Insert string str at head of queue n times (default: n == 1)",
	"it str [n]          | Insert string str at tail of queue n times (default: n == 1)",
	"rh [str]            | Remove from head of queue. Optionally compare to expected value str",
	"rhq                 | Remove from head of queue without reporting value",
	"reverse             | Reverse queue",
	"size [n]            | Compute queue size n times (default: n == 1)",
	"show                | Display queue contents",
	"stats               | Display allocation statistics",
	"option [name val]   | Display or set options",
	"source file         | Read commands from source file",
	"help                | Show documentation",
	"quit                | Exit program",
}

func (h *Harness) help() {
	h.Writeln("Commands:")
	for _, line := range helpLines {
		h.Writeln("\t" + line)
	}
}
