// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"sync"

	"github.com/tantora/mariawire/lib/util/errors"
)

// ErrDesync reports a server message for which no outstanding command
// exists. It is fatal for the connection and never retried.
var ErrDesync = errors.New("unexpected message received when no command was sent")

// ResultSink receives the ordered result stream of one command: zero or
// more messages followed by exactly one Complete or Error.
type ResultSink interface {
	Next(msg ServerMessage)
	Complete()
	Error(err error)
}

// SendTrigger is notified when the previous command's terminal message has
// been dispatched, so the transport may send the next queued request.
type SendTrigger interface {
	SendNext()
}

// StatementCloser deallocates a server-side prepared statement. Implemented
// by the transport with a COM_STMT_CLOSE request.
type StatementCloser interface {
	CloseStatement(statementID uint32)
}

// CommandElement correlates one in-flight client command with its result
// sink. It lives in the queue until its terminal message is produced.
type CommandElement struct {
	SQL     string
	Initial DecodeState
	Sink    ResultSink
}

// CommandQueue is the strict FIFO of in-flight commands. At most one element
// is current (actively being decoded) at any instant; the protocol layer
// does not reorder or pipeline speculatively.
type CommandQueue struct {
	mu    sync.Mutex
	elems []*CommandElement
}

func NewCommandQueue() *CommandQueue {
	return &CommandQueue{}
}

// Push appends a submitted command.
func (q *CommandQueue) Push(elem *CommandElement) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.elems = append(q.elems, elem)
}

// pop removes and returns the head, or nil when empty.
func (q *CommandQueue) pop() *CommandElement {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.elems) == 0 {
		return nil
	}
	elem := q.elems[0]
	q.elems = q.elems[1:]
	return elem
}

func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.elems)
}
