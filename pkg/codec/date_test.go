// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tantora/mariawire/pkg/proto"
)

func dateCol(t proto.FieldType, length uint32) proto.Column {
	return proto.Column{Name: "d", Type: t, Length: length}
}

func TestDateDecodeText(t *testing.T) {
	c, err := ForDecode(dateCol(proto.TypeDate, 10), TargetTime)
	require.NoError(t, err)

	v, err := c.DecodeText([]byte("2024-05-17"), dateCol(proto.TypeDate, 10))
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), v)

	// the zero date is the null sentinel, not an error
	v, err = c.DecodeText([]byte("0000-00-00"), dateCol(proto.TypeDate, 10))
	require.NoError(t, err)
	require.Nil(t, v)

	// timestamps lose their time of day
	v, err = c.DecodeText([]byte("2024-05-17 23:59:59.999999"), dateCol(proto.TypeTimestamp, 26))
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), v)

	_, err = c.DecodeText([]byte("not-a-date"), dateCol(proto.TypeDate, 10))
	require.ErrorIs(t, err, ErrMalformedValue)
}

func TestDateYearCentury(t *testing.T) {
	var c DateCodec
	cases := []struct {
		text   string
		length uint32
		year   int
	}{
		{"5", 2, 5},       // single digit, no inference
		{"05", 2, 2005},   // YEAR(2) low half
		{"69", 2, 2069},   // inclusive upper bound
		{"70", 2, 1970},   // inclusive lower bound
		{"99", 2, 1999},   //
		{"70", 4, 70},     // YEAR(4), taken literally
		{"1970", 4, 1970}, //
	}
	for _, ca := range cases {
		v, err := c.DecodeText([]byte(ca.text), dateCol(proto.TypeYear, ca.length))
		require.NoError(t, err, "year %q", ca.text)
		require.Equal(t, ca.year, v.(time.Time).Year(), "year %q length %d", ca.text, ca.length)
	}

	// the binary form is a two-byte integer with the same inference
	v, err := c.DecodeBinary([]byte{69, 0}, dateCol(proto.TypeYear, 2))
	require.NoError(t, err)
	require.Equal(t, 2069, v.(time.Time).Year())
	v, err = c.DecodeBinary([]byte{0xb2, 0x07}, dateCol(proto.TypeYear, 4))
	require.NoError(t, err)
	require.Equal(t, 1970, v.(time.Time).Year())
}

func TestDateDecodeBinary(t *testing.T) {
	var c DateCodec
	// year 2024 = 0xe8 0x07, the trailing time of day is dropped
	v, err := c.DecodeBinary([]byte{0xe8, 0x07, 5, 17, 23, 59, 59}, dateCol(proto.TypeDatetime, 19))
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), v)

	// zero-length payload is the null sentinel
	v, err = c.DecodeBinary(nil, dateCol(proto.TypeTimestamp, 19))
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestDateEncode(t *testing.T) {
	var c DateCodec
	d := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)

	buf, err := c.EncodeText(nil, d)
	require.NoError(t, err)
	require.Equal(t, "'2024-05-17'", string(buf))

	buf, err = c.EncodeBinary(nil, d)
	require.NoError(t, err)
	require.Equal(t, []byte{7, 0xe8, 0x07, 5, 17, 0, 0, 0}, buf)

	// encoded values decode back to the same day
	v, err := c.DecodeBinary(buf[1:], dateCol(proto.TypeDate, 10))
	require.NoError(t, err)
	require.Equal(t, d, v)

	_, err = c.EncodeText(nil, "2024-05-17")
	require.ErrorIs(t, err, ErrUnsupportedConversion)
}

func TestDateCodecSelection(t *testing.T) {
	_, err := ForDecode(dateCol(proto.TypeLong, 11), TargetTime)
	require.ErrorIs(t, err, ErrUnsupportedConversion)
	_, err = ForDecode(dateCol(proto.TypeDate, 10), TargetDuration)
	require.ErrorIs(t, err, ErrUnsupportedConversion)

	c, err := ForEncode(time.Unix(0, 0))
	require.NoError(t, err)
	require.Equal(t, proto.TypeDate, c.BinaryType())
}
