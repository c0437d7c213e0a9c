// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"github.com/tantora/mariawire/lib/util/errors"
	"github.com/tantora/mariawire/pkg/proto"
	"go.uber.org/zap"
)

// Decoder drives the per-command decode state machine over the reassembled
// packet stream of one connection. It is owned by the single goroutine that
// reads the connection; only Submit may be called concurrently, through the
// queue's own lock.
type Decoder struct {
	logger *zap.Logger
	ctx    *Context
	queue  *CommandQueue
	sender SendTrigger
	cache  *PrepareCache
	closer StatementCloser

	asm     proto.Assembler
	current *CommandElement
	state   DecodeState

	// scratch state shared between decode states of the current command
	stateCounter   int
	columns        []proto.Column
	prepare        *PrepareHeaderPacket
	prepareColumns []proto.Column
}

func NewDecoder(logger *zap.Logger, ctx *Context, queue *CommandQueue, sender SendTrigger, cache *PrepareCache, closer StatementCloser) *Decoder {
	return &Decoder{
		logger: logger,
		ctx:    ctx,
		queue:  queue,
		sender: sender,
		cache:  cache,
		closer: closer,
	}
}

// Context returns the session context the decoder mutates.
func (d *Decoder) Context() *Context {
	return d.ctx
}

// Submit enqueues a command whose request has been (or is about to be)
// written to the transport.
func (d *Decoder) Submit(elem *CommandElement) {
	d.queue.Push(elem)
}

// Decode feeds raw connection bytes in. Each complete packet advances the
// state machine of the current command; messages are pushed to its sink in
// order. A returned error is fatal for the connection.
func (d *Decoder) Decode(data []byte) error {
	d.asm.Push(data)
	for {
		pkt, ok := d.asm.Next()
		if !ok {
			return nil
		}
		if err := d.handlePacket(pkt); err != nil {
			return err
		}
	}
}

func (d *Decoder) handlePacket(pkt proto.Packet) error {
	if d.current == nil && !d.loadNextResponse() {
		d.logger.Error("server message without outstanding command",
			zap.Uint8("seq", uint8(pkt.Seq)), zap.Int("len", len(pkt.Payload)))
		return errors.WithStack(ErrDesync)
	}
	if len(pkt.Payload) == 0 {
		err := errors.Errorf("empty packet payload (seq %d)", pkt.Seq)
		d.failCurrent(err)
		return err
	}

	d.state = d.state.route(pkt.Payload[0], len(pkt.Payload), d.ctx.Capability())
	msg, err := d.state.decode(d, pkt)
	if err != nil {
		d.failCurrent(err)
		return err
	}

	elem := d.current
	elem.Sink.Next(msg)
	if msg.Ending() {
		// release the slot before completing, a completion callback may
		// submit the next command
		d.current = nil
		d.state = nil
		elem.Sink.Complete()
		if d.sender != nil {
			d.sender.SendNext()
		}
	} else {
		d.state = d.state.next(d)
	}
	return nil
}

// ConnectionError reports a transport failure. The current command's sink is
// terminated and all decode state is discarded; the connection must not be
// reused afterwards.
func (d *Decoder) ConnectionError(err error) {
	for {
		elem := d.current
		d.current = nil
		d.state = nil
		if elem == nil {
			elem = d.queue.pop()
		}
		if elem == nil {
			break
		}
		elem.Sink.Error(err)
	}
	d.asm.Reset()
	d.prepare = nil
	d.prepareColumns = nil
	d.columns = nil
}

// failCurrent terminates the current command after a decode error. The
// connection is desynchronized afterwards and the caller tears it down.
func (d *Decoder) failCurrent(err error) {
	if elem := d.current; elem != nil {
		d.current = nil
		d.state = nil
		elem.Sink.Error(err)
	}
	d.logger.Error("decode error", zap.Error(err))
}

// loadNextResponse makes the queue head current and arms its initial state.
func (d *Decoder) loadNextResponse() bool {
	elem := d.queue.pop()
	if elem == nil {
		return false
	}
	d.current = elem
	d.state = elem.Initial
	d.stateCounter = 0
	d.columns = nil
	d.prepare = nil
	d.prepareColumns = nil
	return true
}

// endPrepare builds the prepared statement handle for the finished exchange
// and publishes it to the cache. When a concurrent preparation of the same
// text already won, the cached handle is returned instead and the fresh
// server-side statement is released exactly once.
func (d *Decoder) endPrepare() *ServerPrepareResult {
	stmt := NewServerPrepareResult(d.prepare.StatementID, d.prepare.NumParams, d.prepareColumns)
	d.prepareColumns = nil
	if d.cache == nil || d.current == nil || d.current.SQL == "" {
		return stmt
	}
	if winner := d.cache.Put(d.current.SQL, stmt); winner != nil {
		d.logger.Debug("discarding duplicate prepared statement",
			zap.Uint32("lost", stmt.StatementID()),
			zap.Uint32("kept", winner.StatementID()))
		stmt.DecrementUse(d.closer)
		return winner
	}
	return stmt
}
