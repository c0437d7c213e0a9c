// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package codec converts column values between their wire representations
// and host types. Wire values exist in two encodings: the readable text
// protocol and the compact binary protocol, whose layout depends on the
// column wire type, not on the requested host type.
package codec

import (
	"github.com/tantora/mariawire/lib/util/errors"
	"github.com/tantora/mariawire/pkg/proto"
)

var (
	// ErrUnsupportedConversion reports that no codec accepts the
	// (wire type, host type) pair.
	ErrUnsupportedConversion = errors.New("unsupported type conversion")
	// ErrMalformedValue reports bytes inconsistent with the codec's
	// contract. It is scoped to the single value, not to the connection.
	ErrMalformedValue = errors.New("malformed column value")
)

// Target identifies the host type requested by the caller.
type Target int

const (
	TargetTime Target = iota
	TargetDuration
)

// Codec performs the four conversions for a fixed set of
// (wire type, host type) pairs. A zero-length value for an otherwise valid
// pairing is the server's null/zero sentinel and never an error.
type Codec interface {
	// CanDecode reports whether the codec decodes the column into the target.
	CanDecode(col proto.Column, target Target) bool
	// CanEncode reports whether the codec encodes the host value.
	CanEncode(v any) bool
	// DecodeText interprets the textual representation. Returns nil for the
	// null sentinel.
	DecodeText(data []byte, col proto.Column) (any, error)
	// DecodeBinary interprets the positional binary representation.
	DecodeBinary(data []byte, col proto.Column) (any, error)
	// EncodeText appends the literal form used in text-protocol requests.
	EncodeText(buf []byte, v any) ([]byte, error)
	// EncodeBinary appends the binary form, prefixed by a length byte
	// describing which optional trailing fields are present.
	EncodeBinary(buf []byte, v any) ([]byte, error)
	// BinaryType is the wire type to declare when binary-encoding parameters.
	BinaryType() proto.FieldType
}

// registry is the closed set of codecs. Dispatch is a linear scan over the
// pure CanDecode/CanEncode predicates, so adding a codec is appending here.
var registry = []Codec{
	DateCodec{},
	DurationCodec{},
}

// ForDecode selects the codec for a column and a requested host type.
func ForDecode(col proto.Column, target Target) (Codec, error) {
	for _, c := range registry {
		if c.CanDecode(col, target) {
			return c, nil
		}
	}
	return nil, errors.Wrapf(ErrUnsupportedConversion, "no codec decodes %s", col.Type)
}

// ForEncode selects the codec for a host value.
func ForEncode(v any) (Codec, error) {
	for _, c := range registry {
		if c.CanEncode(v) {
			return c, nil
		}
	}
	return nil, errors.Wrapf(ErrUnsupportedConversion, "no codec encodes %T", v)
}
