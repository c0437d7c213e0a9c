// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/tantora/mariawire/lib/util/errors"
	"github.com/tantora/mariawire/pkg/proto"
)

// DurationCodec maps signed elapsed time (time.Duration) to TIME columns and
// to duration-bearing temporal and string columns. A DATETIME/TIMESTAMP
// source is read as a duration since an implicit reference day 1.
type DurationCodec struct{}

var _ Codec = DurationCodec{}

func (DurationCodec) CanDecode(col proto.Column, target Target) bool {
	if target != TargetDuration {
		return false
	}
	switch col.Type {
	case proto.TypeTime, proto.TypeDatetime, proto.TypeTimestamp,
		proto.TypeVarchar, proto.TypeVarString, proto.TypeString:
		return true
	}
	return false
}

func (DurationCodec) CanEncode(v any) bool {
	_, ok := v.(time.Duration)
	return ok
}

func (DurationCodec) DecodeText(data []byte, col proto.Column) (any, error) {
	switch col.Type {
	case proto.TypeDatetime, proto.TypeTimestamp:
		parts, ok, err := parseTimestamp(string(data))
		if err != nil || !ok {
			return nil, err
		}
		return time.Duration(parts[2]-1)*24*time.Hour +
			time.Duration(parts[3])*time.Hour +
			time.Duration(parts[4])*time.Minute +
			time.Duration(parts[5])*time.Second +
			time.Duration(parts[6])*time.Nanosecond, nil
	default:
		// TIME, VARCHAR, VARSTRING, STRING
		sign, hours, minutes, seconds, nanos, err := parseTimeLiteral(string(data))
		if err != nil {
			return nil, err
		}
		d := time.Duration(hours)*time.Hour +
			time.Duration(minutes)*time.Minute +
			time.Duration(seconds)*time.Second +
			time.Duration(nanos)*time.Nanosecond
		if sign == 1 {
			return -d, nil
		}
		return d, nil
	}
}

func (DurationCodec) DecodeBinary(data []byte, col proto.Column) (any, error) {
	var days, hours, minutes, seconds, micros int64
	switch col.Type {
	case proto.TypeTime:
		negate := false
		if len(data) > 0 {
			if len(data) < 8 {
				return nil, errors.Wrapf(ErrMalformedValue, "TIME length %d", len(data))
			}
			negate = data[0] == 0x01
			days = int64(binary.LittleEndian.Uint32(data[1:]))
			hours = int64(data[5])
			minutes = int64(data[6])
			seconds = int64(data[7])
			if len(data) > 8 {
				micros = int64(binary.LittleEndian.Uint32(data[8:]))
			}
		}
		d := assembleDuration(days, hours, minutes, seconds, micros)
		// negate the fully assembled duration, never per field
		if negate {
			return -d, nil
		}
		return d, nil

	case proto.TypeDatetime, proto.TypeTimestamp:
		if len(data) >= 4 {
			// skip year and month
			days = int64(data[3])
			if len(data) > 4 {
				hours = int64(data[4])
				minutes = int64(data[5])
				seconds = int64(data[6])
				if len(data) > 7 {
					micros = int64(binary.LittleEndian.Uint32(data[7:]))
				}
			}
		} else {
			days = 1
		}
		// duration since the implicit reference day 1
		return assembleDuration(days-1, hours, minutes, seconds, micros), nil

	default:
		// VARCHAR, VARSTRING, STRING
		sign, h, m, s, nanos, err := parseTimeLiteral(string(data))
		if err != nil {
			return nil, err
		}
		d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
			time.Duration(s)*time.Second + time.Duration(nanos)*time.Nanosecond
		if sign == 1 {
			return -d, nil
		}
		return d, nil
	}
}

// EncodeText emits the server's negative-duration literal convention: when a
// negative value has a fractional remainder, one second is borrowed from the
// seconds field and the fraction is emitted as its complement to 1e6.
func (DurationCodec) EncodeText(buf []byte, v any) ([]byte, error) {
	d, ok := v.(time.Duration)
	if !ok {
		return buf, errors.Wrapf(ErrUnsupportedConversion, "%T as duration", v)
	}
	secs, nanos := splitSeconds(d)
	negate := false
	if secs < 0 {
		negate = true
		secs = -secs
	}
	micros := nanos / 1000

	buf = append(buf, '\'')
	if micros != 0 {
		if negate {
			secs--
			buf = append(buf, fmt.Sprintf("-%d:%02d:%02d.%06d",
				secs/3600, (secs%3600)/60, secs%60, 1000000-micros)...)
		} else {
			buf = append(buf, fmt.Sprintf("%d:%02d:%02d.%06d",
				secs/3600, (secs%3600)/60, secs%60, micros)...)
		}
	} else {
		if negate {
			buf = append(buf, '-')
		}
		buf = append(buf, fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)...)
	}
	return append(buf, '\''), nil
}

// EncodeBinary selects a 0, 8 or 12 byte payload for zero, whole-second and
// sub-second durations. Magnitude is explicit with a sign byte, never
// two's-complement.
func (DurationCodec) EncodeBinary(buf []byte, v any) ([]byte, error) {
	d, ok := v.(time.Duration)
	if !ok {
		return buf, errors.Wrapf(ErrUnsupportedConversion, "%T as duration", v)
	}
	if d == 0 {
		return append(buf, 0), nil
	}
	secs, nanos := splitSeconds(d)
	negative := d < 0
	if negative && secs < 0 {
		secs = -secs
	}
	micros := nanos / 1000

	if micros > 0 {
		if negative {
			secs--
			micros = 1000000 - micros
		}
		buf = append(buf, 12)
		buf = appendTimeFields(buf, negative, secs)
		return proto.DumpUint32(buf, uint32(micros)), nil
	}
	buf = append(buf, 8)
	return appendTimeFields(buf, negative, secs), nil
}

func appendTimeFields(buf []byte, negative bool, secs int64) []byte {
	if negative {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = proto.DumpUint32(buf, uint32(secs/(24*3600)))
	buf = append(buf, byte((secs%(24*3600))/3600), byte((secs%3600)/60), byte(secs%60))
	return buf
}

func (DurationCodec) BinaryType() proto.FieldType {
	return proto.TypeTime
}

func assembleDuration(days, hours, minutes, seconds, micros int64) time.Duration {
	return time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(micros)*time.Microsecond
}

// splitSeconds splits a duration into floor seconds and a non-negative
// nanosecond remainder, so the borrow rule applies to negative sub-second
// values.
func splitSeconds(d time.Duration) (secs, nanos int64) {
	n := d.Nanoseconds()
	secs = n / 1e9
	nanos = n % 1e9
	if nanos < 0 {
		secs--
		nanos += 1e9
	}
	return secs, nanos
}
