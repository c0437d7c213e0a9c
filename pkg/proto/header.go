// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

type Header byte

// Leading payload bytes that identify server messages.
const (
	OKHeader          Header = 0x00
	LocalInFileHeader Header = 0xfb
	EOFHeader         Header = 0xfe
	ErrHeader         Header = 0xff
)

var headerStrings = map[Header]string{
	OKHeader:          "OK",
	LocalInFileHeader: "LOCAL_IN_FILE",
	EOFHeader:         "EOF",
	ErrHeader:         "ERR",
}

func (f Header) Byte() byte {
	return byte(f)
}

func (f Header) String() string {
	return headerStrings[f]
}
