// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"encoding/binary"

	gomysql "github.com/go-mysql-org/go-mysql/mysql"
	"github.com/tantora/mariawire/lib/util/errors"
	"github.com/tantora/mariawire/pkg/codec"
	"github.com/tantora/mariawire/pkg/proto"
)

// ServerMessage is one decoded message of a command's result stream. Ending
// reports whether it terminates the stream.
type ServerMessage interface {
	Ending() bool
}

// OkPacket is the server's success marker, optionally ending a result set
// when CLIENT_DEPRECATE_EOF is negotiated.
type OkPacket struct {
	AffectedRows uint64
	LastInsertID uint64
	Status       proto.Status
	Warnings     uint16
	resultSetEnd bool
}

func (p *OkPacket) Ending() bool {
	return p.Status&proto.ServerMoreResultsExists == 0
}

// ResultSetEnd reports whether the packet replaced the trailing EOF of a
// result set.
func (p *OkPacket) ResultSetEnd() bool {
	return p.resultSetEnd
}

// ParseOK parses an OK payload (leading byte 0x00, or 0xfe when it replaces
// a trailing EOF).
func ParseOK(data []byte, capability proto.Capability) (*OkPacket, error) {
	p := new(OkPacket)
	pos := 1
	for _, dst := range []*uint64{&p.AffectedRows, &p.LastInsertID} {
		if pos >= len(data) || pos+proto.LengthEncodedIntSize(data[pos]) > len(data) {
			return nil, errors.Wrapf(proto.ErrTruncatedPacket, "OK packet length %d", len(data))
		}
		v, _, n := proto.ParseLengthEncodedInt(data[pos:])
		*dst = v
		pos += n
	}
	if capability&proto.ClientProtocol41 != 0 && len(data) >= pos+4 {
		p.Status = proto.Status(binary.LittleEndian.Uint16(data[pos:]))
		p.Warnings = binary.LittleEndian.Uint16(data[pos+2:])
	}
	return p, nil
}

// ErrPacket is the server's error report, always terminal for the command.
type ErrPacket struct {
	*gomysql.MyError
}

func (p *ErrPacket) Ending() bool {
	return true
}

// ParseErr parses an ERR payload into a typed server error.
func ParseErr(data []byte, capability proto.Capability) (*ErrPacket, error) {
	if len(data) < 3 {
		return nil, errors.Wrapf(proto.ErrTruncatedPacket, "ERR packet length %d", len(data))
	}
	e := new(gomysql.MyError)
	pos := 1
	e.Code = binary.LittleEndian.Uint16(data[pos:])
	pos += 2
	if capability&proto.ClientProtocol41 != 0 && len(data) > pos && data[pos] == '#' {
		if len(data) < pos+6 {
			return nil, errors.Wrapf(proto.ErrTruncatedPacket, "ERR packet length %d", len(data))
		}
		e.State = string(data[pos+1 : pos+6])
		pos += 6
	}
	e.Message = string(data[pos:])
	return &ErrPacket{MyError: e}, nil
}

// EofPacket marks the end of a column definition block or a result set when
// CLIENT_DEPRECATE_EOF is not negotiated.
type EofPacket struct {
	Warnings     uint16
	Status       proto.Status
	resultSetEnd bool
}

func (p *EofPacket) Ending() bool {
	return p.resultSetEnd && p.Status&proto.ServerMoreResultsExists == 0
}

func ParseEOF(data []byte, capability proto.Capability) *EofPacket {
	p := new(EofPacket)
	if capability&proto.ClientProtocol41 != 0 && len(data) >= 5 {
		p.Warnings = binary.LittleEndian.Uint16(data[1:])
		p.Status = proto.Status(binary.LittleEndian.Uint16(data[3:]))
	}
	return p
}

// ColumnCountPacket announces the number of columns of a result set.
type ColumnCountPacket struct {
	Count uint64
}

func (p *ColumnCountPacket) Ending() bool {
	return false
}

// ColumnDefinitionPacket carries the metadata of one column.
type ColumnDefinitionPacket struct {
	Column proto.Column
}

func (p *ColumnDefinitionPacket) Ending() bool {
	return false
}

// RowPacket is one undecoded result row. Values are extracted lazily through
// the codec registry so only accessed columns pay conversion cost.
type RowPacket struct {
	Columns []proto.Column
	Data    []byte
	Binary  bool
}

func (p *RowPacket) Ending() bool {
	return false
}

// Get decodes column i into the requested host type. Returns nil for NULL.
func (p *RowPacket) Get(i int, target codec.Target) (any, error) {
	raw, null, err := p.Raw(i)
	if err != nil || null {
		return nil, err
	}
	c, err := codec.ForDecode(p.Columns[i], target)
	if err != nil {
		return nil, err
	}
	if p.Binary {
		return c.DecodeBinary(raw, p.Columns[i])
	}
	return c.DecodeText(raw, p.Columns[i])
}

// Raw returns the undecoded bytes of column i and whether it is NULL.
func (p *RowPacket) Raw(i int) ([]byte, bool, error) {
	if i < 0 || i >= len(p.Columns) {
		return nil, false, errors.Errorf("column index %d out of range [0, %d)", i, len(p.Columns))
	}
	if p.Binary {
		return p.rawBinary(i)
	}
	return p.rawText(i)
}

func (p *RowPacket) rawText(idx int) ([]byte, bool, error) {
	pos := 0
	for i := 0; i <= idx; i++ {
		if pos >= len(p.Data) {
			return nil, false, errors.WithStack(proto.ErrTruncatedPacket)
		}
		if p.Data[pos] == 0xfb {
			// NULL
			if i == idx {
				return nil, true, nil
			}
			pos++
			continue
		}
		v, _, n, err := proto.ParseLengthEncodedBytes(p.Data[pos:])
		if err != nil {
			return nil, false, err
		}
		if i == idx {
			return v, false, nil
		}
		pos += n
	}
	return nil, false, errors.WithStack(proto.ErrTruncatedPacket)
}

func (p *RowPacket) rawBinary(idx int) ([]byte, bool, error) {
	// leading 0x00 marker, then the null bitmap with a 2-bit offset
	bitmapLen := (len(p.Columns) + 7 + 2) / 8
	if len(p.Data) < 1+bitmapLen {
		return nil, false, errors.WithStack(proto.ErrTruncatedPacket)
	}
	bitmap := p.Data[1 : 1+bitmapLen]
	isNull := func(i int) bool {
		return bitmap[(i+2)/8]&(1<<(uint(i+2)%8)) != 0
	}
	pos := 1 + bitmapLen
	for i := 0; i <= idx; i++ {
		if isNull(i) {
			if i == idx {
				return nil, true, nil
			}
			continue
		}
		v, n, err := binaryValueSlice(p.Data[pos:], p.Columns[i].Type)
		if err != nil {
			return nil, false, err
		}
		if i == idx {
			return v, false, nil
		}
		pos += n
	}
	return nil, false, errors.WithStack(proto.ErrTruncatedPacket)
}

// binaryValueSlice returns the raw bytes of one binary protocol value and
// the number of bytes it occupies.
func binaryValueSlice(data []byte, t proto.FieldType) ([]byte, int, error) {
	fixed := 0
	switch t {
	case proto.TypeNull:
		return nil, 0, nil
	case proto.TypeTiny:
		fixed = 1
	case proto.TypeShort, proto.TypeYear:
		fixed = 2
	case proto.TypeLong, proto.TypeInt24, proto.TypeFloat:
		fixed = 4
	case proto.TypeLongLong, proto.TypeDouble:
		fixed = 8
	case proto.TypeDate, proto.TypeNewDate, proto.TypeDatetime, proto.TypeTimestamp, proto.TypeTime:
		// temporal values carry their own length byte
		if len(data) < 1 {
			return nil, 0, errors.WithStack(proto.ErrTruncatedPacket)
		}
		n := int(data[0])
		if len(data) < 1+n {
			return nil, 0, errors.WithStack(proto.ErrTruncatedPacket)
		}
		return data[1 : 1+n], 1 + n, nil
	default:
		// everything else is length-encoded
		v, _, n, err := proto.ParseLengthEncodedBytes(data)
		return v, n, err
	}
	if len(data) < fixed {
		return nil, 0, errors.WithStack(proto.ErrTruncatedPacket)
	}
	return data[:fixed], fixed, nil
}

// PrepareHeaderPacket is the first packet of a COM_STMT_PREPARE response.
type PrepareHeaderPacket struct {
	StatementID uint32
	NumColumns  uint16
	NumParams   uint16
	Warnings    uint16
}

func (p *PrepareHeaderPacket) Ending() bool {
	return false
}

// ParsePrepareHeader parses the COM_STMT_PREPARE_OK payload.
func ParsePrepareHeader(data []byte) (*PrepareHeaderPacket, error) {
	if len(data) < 12 || data[0] != 0x00 {
		return nil, errors.Wrapf(proto.ErrTruncatedPacket, "prepare response header")
	}
	return &PrepareHeaderPacket{
		StatementID: binary.LittleEndian.Uint32(data[1:]),
		NumColumns:  binary.LittleEndian.Uint16(data[5:]),
		NumParams:   binary.LittleEndian.Uint16(data[7:]),
		Warnings:    binary.LittleEndian.Uint16(data[10:]),
	}, nil
}

// PreparedStatementPacket completes a prepare exchange with the handle the
// caller must use, which is the cached one when the prepare lost a race.
type PreparedStatementPacket struct {
	Stmt *ServerPrepareResult
}

func (p *PreparedStatementPacket) Ending() bool {
	return true
}
