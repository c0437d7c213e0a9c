// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/tantora/mariawire/lib/util/errors"
	"github.com/tantora/mariawire/pkg/proto"
)

var ErrMalformedHandshake = errors.New("malformed initial handshake packet")

// ParseInitialHandshake parses the minimal session state out of the server's
// initial handshake packet: version, thread id, capability bitmask and
// status flags. Authentication itself is the transport's concern.
// Ref https://dev.mysql.com/doc/dev/mysql-server/latest/page_protocol_connection_phase_packets_protocol_handshake_v10.html.
func ParseInitialHandshake(data []byte) (*Context, error) {
	if len(data) < 2 {
		return nil, errors.WithStack(ErrMalformedHandshake)
	}
	// skip protocol version
	end := bytes.IndexByte(data[1:], 0)
	if end < 0 {
		return nil, errors.WithStack(ErrMalformedHandshake)
	}
	serverVersion := string(data[1 : 1+end])
	pos := 1 + end + 1

	if len(data) < pos+4+8+1+2 {
		return nil, errors.WithStack(ErrMalformedHandshake)
	}
	threadID := uint64(binary.LittleEndian.Uint32(data[pos:]))
	// skip salt first part and filler
	pos += 4 + 8 + 1

	capability := proto.Capability(binary.LittleEndian.Uint16(data[pos:]))
	pos += 2

	var status proto.Status
	if len(data) >= pos+1+2+2 {
		// skip server charset
		pos++
		status = proto.Status(binary.LittleEndian.Uint16(data[pos:]))
		pos += 2
		capability |= proto.Capability(binary.LittleEndian.Uint16(data[pos:])) << 16
	}

	mariadb := strings.Contains(strings.ToLower(serverVersion), "mariadb")
	return NewContext(serverVersion, threadID, capability, status, mariadb), nil
}
