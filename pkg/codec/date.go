// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/tantora/mariawire/lib/util/errors"
	"github.com/tantora/mariawire/pkg/proto"
)

// DateCodec maps date-only values (time.Time at midnight UTC) to the
// DATE/NEWDATE/DATETIME/TIMESTAMP/YEAR wire types. Time-of-day components of
// temporal columns are discarded.
type DateCodec struct{}

var _ Codec = DateCodec{}

func (DateCodec) CanDecode(col proto.Column, target Target) bool {
	if target != TargetTime {
		return false
	}
	switch col.Type {
	case proto.TypeDate, proto.TypeNewDate, proto.TypeDatetime, proto.TypeTimestamp, proto.TypeYear:
		return true
	}
	return false
}

func (DateCodec) CanEncode(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

func (DateCodec) DecodeText(data []byte, col proto.Column) (any, error) {
	switch col.Type {
	case proto.TypeYear:
		y, err := strconv.Atoi(string(data))
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedValue, "year %q", data)
		}
		if len(data) == 2 && col.Length == 2 {
			// deprecated YEAR(2), infer the century
			if y <= 69 {
				y += 2000
			} else {
				y += 1900
			}
		}
		return date(y, 1, 1), nil
	case proto.TypeDate, proto.TypeNewDate:
		y, m, d, ok, err := parseDate(string(data))
		if err != nil || !ok {
			return nil, err
		}
		return date(y, m, d), nil
	default:
		parts, ok, err := parseTimestamp(string(data))
		if err != nil || !ok {
			return nil, err
		}
		return date(parts[0], parts[1], parts[2]), nil
	}
}

func (DateCodec) DecodeBinary(data []byte, col proto.Column) (any, error) {
	year, month, day := 0, 1, 1
	switch col.Type {
	case proto.TypeDatetime, proto.TypeTimestamp:
		if len(data) < 4 {
			// null/zero-date sentinel
			return nil, nil
		}
		year = int(binary.LittleEndian.Uint16(data))
		month = int(data[2])
		day = int(data[3])
		// remaining time-of-day bytes are discarded
		return date(year, month, day), nil
	case proto.TypeYear:
		if len(data) > 0 {
			year = int(binary.LittleEndian.Uint16(data))
			if col.Length == 2 {
				// deprecated YEAR(2)
				if year <= 69 {
					year += 2000
				} else {
					year += 1900
				}
			}
			return date(year, month, day), nil
		}
		return date(year, month, day), nil
	default:
		if len(data) >= 4 {
			year = int(binary.LittleEndian.Uint16(data))
			month = int(data[2])
			day = int(data[3])
		}
		return date(year, month, day), nil
	}
}

func (DateCodec) EncodeText(buf []byte, v any) ([]byte, error) {
	t, ok := v.(time.Time)
	if !ok {
		return buf, errors.Wrapf(ErrUnsupportedConversion, "%T as date", v)
	}
	buf = append(buf, '\'')
	buf = t.AppendFormat(buf, "2006-01-02")
	return append(buf, '\''), nil
}

// EncodeBinary always emits the fixed 7-byte temporal record: the year,
// month and day followed by three zero bytes for the elided time of day.
func (DateCodec) EncodeBinary(buf []byte, v any) ([]byte, error) {
	t, ok := v.(time.Time)
	if !ok {
		return buf, errors.Wrapf(ErrUnsupportedConversion, "%T as date", v)
	}
	year, month, day := t.Date()
	buf = append(buf, 7)
	buf = proto.DumpUint16(buf, uint16(year))
	buf = append(buf, byte(month), byte(day))
	return append(buf, 0, 0, 0), nil
}

func (DateCodec) BinaryType() proto.FieldType {
	return proto.TypeDate
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}
