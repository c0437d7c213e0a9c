// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"bytes"

	"github.com/tantora/mariawire/lib/util/errors"
)

var ErrTruncatedPacket = errors.New("truncated packet payload")

// ParseLengthEncodedInt reads a length-encoded integer.
// Ref https://dev.mysql.com/doc/dev/mysql-server/latest/page_protocol_basic_dt_integers.html.
func ParseLengthEncodedInt(b []byte) (num uint64, isNull bool, n int) {
	switch b[0] {
	// 251: NULL
	case 0xfb:
		n = 1
		isNull = true
		return

	// 252: value of following 2
	case 0xfc:
		num = uint64(b[1]) | uint64(b[2])<<8
		n = 3
		return

	// 253: value of following 3
	case 0xfd:
		num = uint64(b[1]) | uint64(b[2])<<8 | uint64(b[3])<<16
		n = 4
		return

	// 254: value of following 8
	case 0xfe:
		num = uint64(b[1]) | uint64(b[2])<<8 | uint64(b[3])<<16 |
			uint64(b[4])<<24 | uint64(b[5])<<32 | uint64(b[6])<<40 |
			uint64(b[7])<<48 | uint64(b[8])<<56
		n = 9
		return
	}

	// 0-250: value of first byte
	num = uint64(b[0])
	n = 1
	return
}

// LengthEncodedIntSize returns the number of bytes the length-encoded integer
// starting with b occupies.
func LengthEncodedIntSize(b byte) int {
	switch b {
	case 0xfc:
		return 3
	case 0xfd:
		return 4
	case 0xfe:
		return 9
	}
	return 1
}

// ParseLengthEncodedBytes reads a length-encoded string without copying.
func ParseLengthEncodedBytes(b []byte) ([]byte, bool, int, error) {
	num, isNull, n := ParseLengthEncodedInt(b)
	if num < 1 {
		return nil, isNull, n, nil
	}
	n += int(num)
	if len(b) >= n {
		return b[n-int(num) : n], false, n, nil
	}
	return nil, false, n, errors.WithStack(ErrTruncatedPacket)
}

// ParseNullTermString reads a NUL-terminated string, returning the rest.
func ParseNullTermString(b []byte) (str []byte, remain []byte) {
	off := bytes.IndexByte(b, 0)
	if off == -1 {
		return nil, b
	}
	return b[:off], b[off+1:]
}

var tinyIntCache [251][]byte

func init() {
	for i := 0; i < len(tinyIntCache); i++ {
		tinyIntCache[i] = []byte{byte(i)}
	}
}

func DumpLengthEncodedInt(buffer []byte, n uint64) []byte {
	switch {
	case n <= 250:
		return append(buffer, tinyIntCache[n]...)

	case n <= 0xffff:
		return append(buffer, 0xfc, byte(n), byte(n>>8))

	case n <= 0xffffff:
		return append(buffer, 0xfd, byte(n), byte(n>>8), byte(n>>16))

	default:
		return append(buffer, 0xfe, byte(n), byte(n>>8), byte(n>>16), byte(n>>24),
			byte(n>>32), byte(n>>40), byte(n>>48), byte(n>>56))
	}
}

func DumpLengthEncodedString(buffer []byte, b []byte) []byte {
	buffer = DumpLengthEncodedInt(buffer, uint64(len(b)))
	return append(buffer, b...)
}

func DumpUint16(buffer []byte, n uint16) []byte {
	return append(buffer, byte(n), byte(n>>8))
}

func DumpUint32(buffer []byte, n uint32) []byte {
	return append(buffer, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
}
