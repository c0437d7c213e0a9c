// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"encoding/binary"
	"fmt"
)

type FieldType byte

// Column wire types. Ref https://dev.mysql.com/doc/dev/mysql-server/latest/field__types_8h.html.
const (
	TypeDecimal FieldType = iota
	TypeTiny
	TypeShort
	TypeLong
	TypeFloat
	TypeDouble
	TypeNull
	TypeTimestamp
	TypeLongLong
	TypeInt24
	TypeDate
	TypeTime
	TypeDatetime
	TypeYear
	TypeNewDate
	TypeVarchar
	TypeBit
)

const (
	TypeJSON FieldType = iota + 0xf5
	TypeNewDecimal
	TypeEnum
	TypeSet
	TypeTinyBlob
	TypeMediumBlob
	TypeLongBlob
	TypeBlob
	TypeVarString
	TypeString
	TypeGeometry
)

var fieldTypeStrings = map[FieldType]string{
	TypeDecimal:    "DECIMAL",
	TypeTiny:       "TINY",
	TypeShort:      "SHORT",
	TypeLong:       "LONG",
	TypeFloat:      "FLOAT",
	TypeDouble:     "DOUBLE",
	TypeNull:       "NULL",
	TypeTimestamp:  "TIMESTAMP",
	TypeLongLong:   "LONGLONG",
	TypeInt24:      "INT24",
	TypeDate:       "DATE",
	TypeTime:       "TIME",
	TypeDatetime:   "DATETIME",
	TypeYear:       "YEAR",
	TypeNewDate:    "NEWDATE",
	TypeVarchar:    "VARCHAR",
	TypeBit:        "BIT",
	TypeJSON:       "JSON",
	TypeNewDecimal: "NEWDECIMAL",
	TypeEnum:       "ENUM",
	TypeSet:        "SET",
	TypeTinyBlob:   "TINY_BLOB",
	TypeMediumBlob: "MEDIUM_BLOB",
	TypeLongBlob:   "LONG_BLOB",
	TypeBlob:       "BLOB",
	TypeVarString:  "VAR_STRING",
	TypeString:     "STRING",
	TypeGeometry:   "GEOMETRY",
}

func (t FieldType) String() string {
	if s, ok := fieldTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("Not a field type: %x", byte(t))
}

type ColumnFlag uint16

// Column definition flags.
const (
	NotNullFlag ColumnFlag = 1 << iota
	PriKeyFlag
	UniqueKeyFlag
	MultipleKeyFlag
	BlobFlag
	UnsignedFlag
	ZerofillFlag
	BinaryFlag
	EnumFlag
	AutoIncrementFlag
	TimestampFlag
	SetFlag
	NoDefaultValueFlag
	OnUpdateNowFlag
)

// Column is the metadata of one result set column, sent by the server in a
// column definition packet and consulted by every codec for that result set.
type Column struct {
	Schema   string
	Table    string
	OrgTable string
	Name     string
	OrgName  string
	Charset  uint16
	// Length is the declared display width. A YEAR column with Length 2 is
	// the deprecated two-digit form and needs century inference.
	Length   uint32
	Type     FieldType
	Flags    ColumnFlag
	Decimals byte
}

// ParseColumn parses a column definition packet (protocol 4.1 layout).
// Ref https://dev.mysql.com/doc/dev/mysql-server/latest/page_protocol_com_query_response_text_resultset_column_definition.html.
func ParseColumn(data []byte) (Column, error) {
	var col Column
	pos := 0
	// catalog, always "def", skipped
	if _, _, n, err := ParseLengthEncodedBytes(data); err != nil {
		return col, err
	} else {
		pos += n
	}
	for _, dst := range []*string{&col.Schema, &col.Table, &col.OrgTable, &col.Name, &col.OrgName} {
		s, _, n, err := ParseLengthEncodedBytes(data[pos:])
		if err != nil {
			return col, err
		}
		pos += n
		*dst = string(s)
	}
	// length of fixed-length fields, always 0x0c
	if pos >= len(data) || pos+1+int(data[pos]) > len(data) {
		return col, ErrTruncatedPacket
	}
	pos++
	col.Charset = binary.LittleEndian.Uint16(data[pos:])
	pos += 2
	col.Length = binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	col.Type = FieldType(data[pos])
	pos++
	col.Flags = ColumnFlag(binary.LittleEndian.Uint16(data[pos:]))
	pos += 2
	col.Decimals = data[pos]
	return col, nil
}

// IsUnsigned reports whether the column carries the UNSIGNED flag.
func (c Column) IsUnsigned() bool {
	return c.Flags&UnsignedFlag != 0
}

// IsBinary reports whether the column carries the BINARY flag.
func (c Column) IsBinary() bool {
	return c.Flags&BinaryFlag != 0
}

// Dump serializes the column definition back into packet payload form.
func (c Column) Dump(buffer []byte) []byte {
	buffer = DumpLengthEncodedString(buffer, []byte("def"))
	buffer = DumpLengthEncodedString(buffer, []byte(c.Schema))
	buffer = DumpLengthEncodedString(buffer, []byte(c.Table))
	buffer = DumpLengthEncodedString(buffer, []byte(c.OrgTable))
	buffer = DumpLengthEncodedString(buffer, []byte(c.Name))
	buffer = DumpLengthEncodedString(buffer, []byte(c.OrgName))
	buffer = append(buffer, 0x0c)
	buffer = DumpUint16(buffer, c.Charset)
	buffer = DumpUint32(buffer, c.Length)
	buffer = append(buffer, byte(c.Type))
	buffer = DumpUint16(buffer, uint16(c.Flags))
	buffer = append(buffer, c.Decimals)
	buffer = append(buffer, 0x00, 0x00)
	return buffer
}
