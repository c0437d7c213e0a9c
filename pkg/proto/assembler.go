// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"bytes"
)

// Sequencer is the 1-byte counter identifying packet order within one
// protocol exchange. It detects interleaving, it never reorders: packets of
// one exchange arrive in order on a single stream.
type Sequencer uint8

// Next returns the sequence number the following packet must carry.
func (s Sequencer) Next() Sequencer {
	return s + 1
}

// Packet is one reassembled logical packet: the payload with the sequence
// number of its last wire packet.
type Packet struct {
	Payload []byte
	Seq     Sequencer
}

// Assembler reconstructs logical packets from a raw byte stream. The parse
// is resumable: bytes of an incomplete packet stay buffered and no state is
// lost between calls, so feeding the stream one byte at a time yields the
// same packets as feeding it at once.
//
// A payload of exactly MaxPayloadLen is a non-final fragment: it is
// accumulated into a composite payload which terminates only with a
// subsequent packet shorter than MaxPayloadLen.
type Assembler struct {
	buf       bytes.Buffer
	composite []byte
	multipart bool
}

// Push appends raw bytes received from the transport.
func (a *Assembler) Push(data []byte) {
	a.buf.Write(data)
}

// Next extracts the next complete logical packet, or returns false when the
// buffered bytes do not hold one yet.
func (a *Assembler) Next() (Packet, bool) {
	for {
		readable := a.buf.Bytes()
		if len(readable) < 4 {
			return Packet{}, false
		}
		length := int(uint32(readable[0]) | uint32(readable[1])<<8 | uint32(readable[2])<<16)
		if len(readable) < 4+length {
			// packet not complete
			return Packet{}, false
		}
		seq := Sequencer(readable[3])
		payload := readable[4 : 4+length]

		if length == MaxPayloadLen {
			// non-final fragment
			if !a.multipart {
				a.multipart = true
				a.composite = a.composite[:0]
			}
			a.composite = append(a.composite, payload...)
			a.buf.Next(4 + length)
			continue
		}

		var pkt Packet
		if a.multipart {
			// final fragment terminates the composite
			pkt = Packet{Payload: append(a.composite, payload...), Seq: seq}
			a.composite = nil
			a.multipart = false
		} else {
			pkt = Packet{Payload: append([]byte(nil), payload...), Seq: seq}
		}
		a.buf.Next(4 + length)
		return pkt, true
	}
}

// Reset discards all buffered bytes and any in-progress composite.
func (a *Assembler) Reset() {
	a.buf.Reset()
	a.composite = nil
	a.multipart = false
}
