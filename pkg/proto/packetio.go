// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"bufio"
	"io"
	"net"

	"github.com/tantora/mariawire/lib/util/errors"
	"go.uber.org/zap"
)

const (
	defaultReaderSize = 16 * 1024
	defaultWriterSize = 16 * 1024
)

// packetReadWriter is the stream beneath PacketIO. The compressed protocol
// wraps it with another framing layer.
type packetReadWriter interface {
	io.ReadWriter
	Flush() error
	reset()
}

// rdbufConn buffers reads and writes of a net.Conn.
type rdbufConn struct {
	net.Conn
	*bufio.ReadWriter
	inBytes  uint64
	outBytes uint64
}

func newRdbufConn(conn net.Conn) *rdbufConn {
	return &rdbufConn{
		Conn: conn,
		ReadWriter: bufio.NewReadWriter(bufio.NewReaderSize(conn, defaultReaderSize),
			bufio.NewWriterSize(conn, defaultWriterSize)),
	}
}

func (f *rdbufConn) Read(b []byte) (n int, err error) {
	n, err = f.ReadWriter.Read(b)
	f.inBytes += uint64(n)
	return n, err
}

func (f *rdbufConn) Write(p []byte) (n int, err error) {
	n, err = f.ReadWriter.Write(p)
	f.outBytes += uint64(n)
	return n, err
}

func (f *rdbufConn) reset() {
}

// PacketIO reads and writes logical packets on a connection. It verifies and
// advances the sequence number on every wire packet and applies the
// MaxPayloadLen continuation rule in both directions.
type PacketIO struct {
	rawConn    net.Conn
	readWriter packetReadWriter
	logger     *zap.Logger
	wrap       error
	sequence   Sequencer
}

type PacketIOption = func(*PacketIO)

// WithWrapError classifies every error returned by the PacketIO.
func WithWrapError(err error) PacketIOption {
	return func(p *PacketIO) {
		p.wrap = err
	}
}

func NewPacketIO(conn net.Conn, lg *zap.Logger, opts ...PacketIOption) *PacketIO {
	p := &PacketIO{
		rawConn:    conn,
		logger:     lg,
		sequence:   0,
		readWriter: newRdbufConn(conn),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PacketIO) wrapErr(err error) error {
	if p.wrap == nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(errors.Wrap(p.wrap, err))
}

// ResetSequence starts a new protocol exchange.
func (p *PacketIO) ResetSequence() {
	p.sequence = 0
	p.readWriter.reset()
}

// Sequence is used in tests to assert the sequences of both sides are equal.
func (p *PacketIO) Sequence() Sequencer {
	return p.sequence
}

func (p *PacketIO) readOnePacket() ([]byte, bool, error) {
	var header [4]byte
	if _, err := io.ReadFull(p.readWriter, header[:]); err != nil {
		return nil, false, errors.Wrap(ErrReadConn, err)
	}
	sequence := Sequencer(header[3])
	if sequence != p.sequence {
		return nil, false, errors.Wrapf(ErrInvalidSequence, "expected %d, actual %d", p.sequence, sequence)
	}
	p.sequence++

	length := int(uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16)
	data := make([]byte, length)
	if _, err := io.ReadFull(p.readWriter, data); err != nil {
		return nil, false, errors.Wrap(ErrReadConn, err)
	}
	return data, length == MaxPayloadLen, nil
}

// ReadPacket reads a logical packet, reassembling continued payloads.
func (p *PacketIO) ReadPacket() (data []byte, err error) {
	for more := true; more; {
		var buf []byte
		buf, more, err = p.readOnePacket()
		if err != nil {
			return nil, p.wrapErr(err)
		}
		data = append(data, buf...)
	}
	return data, nil
}

func (p *PacketIO) writeOnePacket(data []byte) (int, bool, error) {
	more := false
	length := len(data)
	if length >= MaxPayloadLen {
		// a continuation packet is needed, even when the payload length is
		// exactly MaxPayloadLen
		length = MaxPayloadLen
		more = true
	}

	var header [4]byte
	header[0] = byte(length)
	header[1] = byte(length >> 8)
	header[2] = byte(length >> 16)
	header[3] = byte(p.sequence)
	p.sequence++

	if _, err := p.readWriter.Write(header[:]); err != nil {
		return 0, more, errors.Wrap(ErrWriteConn, err)
	}
	if _, err := p.readWriter.Write(data[:length]); err != nil {
		return 0, more, errors.Wrap(ErrWriteConn, err)
	}
	return length, more, nil
}

// WritePacket writes a logical packet, splitting oversized payloads.
func (p *PacketIO) WritePacket(data []byte, flush bool) (err error) {
	for more := true; more; {
		var n int
		n, more, err = p.writeOnePacket(data)
		if err != nil {
			return p.wrapErr(err)
		}
		data = data[n:]
	}
	if flush {
		return p.Flush()
	}
	return nil
}

func (p *PacketIO) Flush() error {
	if err := p.readWriter.Flush(); err != nil {
		return p.wrapErr(errors.Wrap(ErrFlushConn, err))
	}
	return nil
}

func (p *PacketIO) LocalAddr() net.Addr {
	return p.rawConn.LocalAddr()
}

func (p *PacketIO) RemoteAddr() net.Addr {
	return p.rawConn.RemoteAddr()
}

func (p *PacketIO) Close() error {
	if err := p.rawConn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return p.wrapErr(errors.Collect(ErrCloseConn, err))
	}
	return nil
}
