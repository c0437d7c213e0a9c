// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tantora/mariawire/pkg/proto"
)

func handshakePayload(version string, threadID uint32, capability proto.Capability, status proto.Status) []byte {
	buf := []byte{0x0a}
	buf = append(buf, version...)
	buf = append(buf, 0x00)
	buf = proto.DumpUint32(buf, threadID)
	buf = append(buf, "12345678"...) // salt part 1
	buf = append(buf, 0x00)
	buf = proto.DumpUint16(buf, uint16(capability))
	buf = append(buf, 0x21) // charset
	buf = proto.DumpUint16(buf, uint16(status))
	buf = proto.DumpUint16(buf, uint16(capability>>16))
	return buf
}

func TestParseInitialHandshake(t *testing.T) {
	caps := proto.ClientProtocol41 | proto.ClientDeprecateEOF | proto.ClientSSL
	payload := handshakePayload("8.0.11-log", 42, caps, proto.ServerStatusAutocommit)
	ctx, err := ParseInitialHandshake(payload)
	require.NoError(t, err)
	require.EqualValues(t, 42, ctx.ThreadID())
	require.Equal(t, caps, ctx.Capability())
	require.Equal(t, proto.ServerStatusAutocommit, ctx.Status())
	require.False(t, ctx.Version().MariaDB)
	require.Equal(t, 8, ctx.Version().Major)
	require.True(t, ctx.Version().AtLeast(5, 7, 5))
	require.False(t, ctx.Version().AtLeast(8, 0, 12))
}

func TestParseHandshakeMariaDB(t *testing.T) {
	payload := handshakePayload("5.5.5-10.6.12-MariaDB", 1, proto.ClientProtocol41, 0)
	ctx, err := ParseInitialHandshake(payload)
	require.NoError(t, err)
	require.True(t, ctx.Version().MariaDB)
	require.Equal(t, "5.5.5-10.6.12-MariaDB", ctx.Version().Raw)
}

func TestParseHandshakeMalformed(t *testing.T) {
	full := handshakePayload("8.0.11", 1, proto.ClientProtocol41, 0)
	for _, cut := range []int{0, 1, 5, 20} {
		_, err := ParseInitialHandshake(full[:cut])
		require.ErrorIs(t, err, ErrMalformedHandshake, "cut=%d", cut)
	}
}
