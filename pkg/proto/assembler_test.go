// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func frame(seq byte, payload []byte) []byte {
	buf := make([]byte, 0, 4+len(payload))
	buf = append(buf, byte(len(payload)), byte(len(payload)>>8), byte(len(payload)>>16), seq)
	return append(buf, payload...)
}

func drain(a *Assembler) []Packet {
	var pkts []Packet
	for {
		pkt, ok := a.Next()
		if !ok {
			return pkts
		}
		pkts = append(pkts, pkt)
	}
}

func TestAssembleIncremental(t *testing.T) {
	payloads := [][]byte{
		{0x00},
		make([]byte, 300),
		{0xfe, 0x00, 0x00, 0x02, 0x00},
	}
	for i := range payloads[1] {
		payloads[1][i] = byte(i)
	}
	var stream []byte
	for i, p := range payloads {
		stream = append(stream, frame(byte(i+1), p)...)
	}

	var whole Assembler
	whole.Push(stream)
	expected := drain(&whole)
	require.Len(t, expected, len(payloads))

	// one byte at a time must produce the same packets
	var incr Assembler
	var got []Packet
	for _, b := range stream {
		incr.Push([]byte{b})
		got = append(got, drain(&incr)...)
	}
	require.Equal(t, expected, got)
	for i, pkt := range got {
		require.Equal(t, payloads[i], pkt.Payload)
		require.Equal(t, Sequencer(i+1), pkt.Seq)
	}
}

func TestAssembleIncomplete(t *testing.T) {
	var a Assembler
	full := frame(0, []byte{1, 2, 3, 4, 5})

	a.Push(full[:2])
	_, ok := a.Next()
	require.False(t, ok)

	a.Push(full[2:7])
	_, ok = a.Next()
	require.False(t, ok)

	a.Push(full[7:])
	pkt, ok := a.Next()
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, pkt.Payload)
	_, ok = a.Next()
	require.False(t, ok)
}

func TestAssembleContinuation(t *testing.T) {
	fragment := make([]byte, MaxPayloadLen)
	for i := range fragment {
		fragment[i] = byte(i)
	}
	tail := make([]byte, 120)
	for i := range tail {
		tail[i] = byte(0xf0 ^ i)
	}

	var a Assembler
	a.Push(frame(0, fragment))
	a.Push(frame(1, fragment))
	_, ok := a.Next()
	require.False(t, ok)

	a.Push(frame(2, tail))
	pkt, ok := a.Next()
	require.True(t, ok)
	require.Len(t, pkt.Payload, 2*MaxPayloadLen+120)
	require.Equal(t, Sequencer(2), pkt.Seq)
	require.Equal(t, fragment, pkt.Payload[:MaxPayloadLen])
	require.Equal(t, fragment, pkt.Payload[MaxPayloadLen:2*MaxPayloadLen])
	require.Equal(t, tail, pkt.Payload[2*MaxPayloadLen:])
}

func TestAssembleEmptyFinalFragment(t *testing.T) {
	// a payload of exactly MaxPayloadLen is terminated by an empty packet
	fragment := make([]byte, MaxPayloadLen)
	var a Assembler
	a.Push(frame(0, fragment))
	_, ok := a.Next()
	require.False(t, ok)

	a.Push(frame(1, nil))
	pkt, ok := a.Next()
	require.True(t, ok)
	require.Len(t, pkt.Payload, MaxPayloadLen)
	require.Equal(t, Sequencer(1), pkt.Seq)
}

func TestAssembleReset(t *testing.T) {
	var a Assembler
	a.Push(frame(0, make([]byte, MaxPayloadLen)))
	a.Push([]byte{1, 2})
	a.Reset()

	a.Push(frame(0, []byte{0xab}))
	pkt, ok := a.Next()
	require.True(t, ok)
	require.Equal(t, []byte{0xab}, pkt.Payload)
}
