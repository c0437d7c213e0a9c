// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tantora/mariawire/pkg/proto"
)

func TestDurationDecodeText(t *testing.T) {
	timeCol := dateCol(proto.TypeTime, 10)
	c, err := ForDecode(timeCol, TargetDuration)
	require.NoError(t, err)

	v, err := c.DecodeText([]byte("1:30:00"), timeCol)
	require.NoError(t, err)
	require.Equal(t, 90*time.Minute, v)

	// TIME ranges beyond 24 hours
	v, err = c.DecodeText([]byte("838:59:59"), timeCol)
	require.NoError(t, err)
	require.Equal(t, 838*time.Hour+59*time.Minute+59*time.Second, v)

	// the sign applies to the whole value, including the fraction
	v, err = c.DecodeText([]byte("-0:00:02.500000"), timeCol)
	require.NoError(t, err)
	require.Equal(t, -2500*time.Millisecond, v)

	// a DATETIME reads as time elapsed since its implicit first day
	v, err = c.DecodeText([]byte("2024-01-02 10:45:00"), dateCol(proto.TypeDatetime, 19))
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour+10*time.Hour+45*time.Minute, v)

	// the zero timestamp is the null sentinel
	v, err = c.DecodeText([]byte("0000-00-00 00:00:00"), dateCol(proto.TypeDatetime, 19))
	require.NoError(t, err)
	require.Nil(t, v)

	_, err = c.DecodeText([]byte("10:45"), timeCol)
	require.ErrorIs(t, err, ErrMalformedValue)
}

func TestDurationDecodeBinary(t *testing.T) {
	var c DurationCodec
	timeCol := dateCol(proto.TypeTime, 10)

	// 8 bytes: 1 day 1:02:03 negative
	v, err := c.DecodeBinary([]byte{1, 1, 0, 0, 0, 1, 2, 3}, timeCol)
	require.NoError(t, err)
	require.Equal(t, -(25*time.Hour + 2*time.Minute + 3*time.Second), v)

	// 12 bytes add microseconds
	v, err = c.DecodeBinary([]byte{0, 0, 0, 0, 0, 0, 0, 2, 0x20, 0xa1, 0x07, 0}, timeCol)
	require.NoError(t, err)
	require.Equal(t, 2*time.Second+500*time.Millisecond, v)

	// empty payload is zero
	v, err = c.DecodeBinary(nil, timeCol)
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), v)

	_, err = c.DecodeBinary([]byte{1, 2, 3}, timeCol)
	require.ErrorIs(t, err, ErrMalformedValue)
}

func TestDurationEncodeText(t *testing.T) {
	var c DurationCodec
	cases := []struct {
		d    time.Duration
		text string
	}{
		{0, "'0:00:00'"},
		{90 * time.Minute, "'1:30:00'"},
		{-90 * time.Minute, "'-1:30:00'"},
		{2500 * time.Millisecond, "'0:00:02.500000'"},
		// borrow one second, emit the complement of the fraction
		{-2500 * time.Millisecond, "'-0:00:02.500000'"},
		{-250 * time.Millisecond, "'-0:00:00.250000'"},
		{26*time.Hour + time.Second, "'26:00:01'"},
	}
	for _, ca := range cases {
		buf, err := c.EncodeText(nil, ca.d)
		require.NoError(t, err)
		require.Equal(t, ca.text, string(buf), "%s", ca.d)
	}
}

func TestDurationEncodeBinary(t *testing.T) {
	var c DurationCodec

	// zero is a bare length byte
	buf, err := c.EncodeBinary(nil, time.Duration(0))
	require.NoError(t, err)
	require.Equal(t, []byte{0}, buf)

	// whole seconds take 8 bytes
	buf, err = c.EncodeBinary(nil, -(90 * time.Minute))
	require.NoError(t, err)
	require.Equal(t, []byte{8, 1, 0, 0, 0, 0, 1, 30, 0}, buf)

	// sub-second values take 12
	buf, err = c.EncodeBinary(nil, 25*time.Hour+500*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, []byte{12, 0, 1, 0, 0, 0, 1, 0, 0, 0x20, 0xa1, 0x07, 0}, buf)

	// encoded negatives decode back exactly
	for _, d := range []time.Duration{-2500 * time.Millisecond, -(24*time.Hour + time.Minute), 838 * time.Hour} {
		buf, err = c.EncodeBinary(nil, d)
		require.NoError(t, err)
		v, err := c.DecodeBinary(buf[1:], dateCol(proto.TypeTime, 10))
		require.NoError(t, err)
		require.Equal(t, d, v, "%s", d)
	}
}
