// Package queue implements a queue of strings on top of a singly-linked list.
// Values can be inserted at either end and removed from the head, so the
// same structure serves as a FIFO (insert at tail) and a LIFO (insert at head).
//
// A Queue is not safe for concurrent use. Callers sharing one between
// goroutines must guard it with a mutex.
package queue

import (
	"strings"
	"unsafe"

	"github.com/pkg/errors"
)

var nodeSize = int(unsafe.Sizeof(qNode{}))

type qNode struct {
	value string
	next  *qNode

	nodeBlock  BlockID
	valueBlock BlockID
}

type Queue struct {
	count int
	head  *qNode
	tail  *qNode
	alloc Allocator
}

type Option func(*Queue)

// WithAllocator makes the queue account for its nodes and strings through a.
// A nil interface keeps the default allocator.
func WithAllocator(a Allocator) Option {
	return func(q *Queue) {
		if a != nil {
			q.alloc = a
		}
	}
}

func New(opts ...Option) *Queue {
	q := &Queue{count: 0, head: nil, tail: nil, alloc: heapAllocator{}}
	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Free releases every node and its string, leaving the queue empty.
func (q *Queue) Free() {
	if q == nil {
		return
	}

	for q.head != nil {
		node := q.head
		q.head = node.next
		q.release(node)
	}

	q.tail = nil
	q.count = 0
}

func (q *Queue) InsertHead(value string) error {
	if q == nil {
		return ErrNullQueue
	}

	node, err := q.newNode(value)
	if err != nil {
		return errors.Wrap(err, "insert head")
	}

	q.count++
	if q.count == 1 {
		q.head, q.tail = node, node
		return nil
	}

	node.next = q.head
	q.head = node
	return nil
}

func (q *Queue) InsertTail(value string) error {
	if q == nil {
		return ErrNullQueue
	}

	node, err := q.newNode(value)
	if err != nil {
		return errors.Wrap(err, "insert tail")
	}

	q.count++
	if q.count == 1 {
		q.head, q.tail = node, node
		return nil
	}

	q.tail.next = node
	q.tail = node
	return nil
}

// RemoveHead removes the head element and returns its value.
func (q *Queue) RemoveHead() (string, error) {
	node, err := q.unlinkHead()
	if err != nil {
		return "", err
	}

	value := node.value
	q.release(node)
	return value, nil
}

// RemoveHeadInto removes the head element and copies as much of its value as
// fits into buf, leaving room for a trailing zero byte. It returns the number
// of value bytes copied. A nil or empty buf discards the value.
func (q *Queue) RemoveHeadInto(buf []byte) (int, error) {
	node, err := q.unlinkHead()
	if err != nil {
		return 0, err
	}

	var n int
	if len(buf) > 0 {
		n = copy(buf[:len(buf)-1], node.value)
		buf[n] = 0
	}

	q.release(node)
	return n, nil
}

func (q *Queue) PeekHead() (string, bool) {
	if q == nil || q.count == 0 {
		return "", false
	}

	return q.head.value, true
}

func (q *Queue) Size() int {
	if q == nil {
		return 0
	}

	return q.count
}

// Reverse relinks the existing nodes in the opposite order.
func (q *Queue) Reverse() {
	if q == nil || q.head == nil {
		return
	}

	var prev *qNode
	curr := q.head
	for curr != nil {
		next := curr.next
		curr.next = prev
		prev, curr = curr, next
	}

	q.head, q.tail = q.tail, q.head
}

// Items returns the values from head to tail.
func (q *Queue) Items() []string {
	if q == nil {
		return nil
	}

	items := make([]string, 0, q.count)
	for node := q.head; node != nil; node = node.next {
		items = append(items, node.value)
	}

	return items
}

// Validate walks the chain and reports the first broken link between count,
// head and tail.
func (q *Queue) Validate() error {
	if q == nil {
		return nil
	}

	if q.count == 0 {
		if q.head != nil || q.tail != nil {
			return errors.Wrap(ErrCorrupt, "empty queue has head or tail")
		}
		return nil
	}

	if q.head == nil || q.tail == nil {
		return errors.Wrapf(ErrCorrupt, "%d elements but head or tail missing", q.count)
	}
	if q.tail.next != nil {
		return errors.Wrap(ErrCorrupt, "tail is not the end of the chain")
	}

	steps := 0
	node := q.head
	for node != q.tail {
		node = node.next
		steps++
		if node == nil || steps >= q.count {
			return errors.Wrapf(ErrCorrupt, "tail not reached within %d steps", q.count-1)
		}
	}

	if steps != q.count-1 {
		return errors.Wrapf(ErrCorrupt, "tail reached after %d steps, want %d", steps, q.count-1)
	}

	return nil
}

func (q *Queue) newNode(value string) (*qNode, error) {
	nodeBlock, err := q.alloc.Alloc(BlockNode, nodeSize)
	if err != nil {
		return nil, err
	}

	valueBlock, err := q.alloc.Alloc(BlockString, len(value)+1)
	if err != nil {
		q.alloc.Release(nodeBlock)
		return nil, err
	}

	return &qNode{value: strings.Clone(value), nodeBlock: nodeBlock, valueBlock: valueBlock}, nil
}

func (q *Queue) unlinkHead() (*qNode, error) {
	if q == nil {
		return nil, ErrNullQueue
	}
	if q.count == 0 {
		return nil, ErrEmptyQueue
	}

	head := q.head
	q.head = head.next
	head.next = nil
	q.count--
	if q.count <= 1 {
		q.tail = q.head
	}

	return head, nil
}

func (q *Queue) release(node *qNode) {
	q.alloc.Release(node.valueBlock)
	q.alloc.Release(node.nodeBlock)
	node.next = nil
}
