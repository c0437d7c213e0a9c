// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"github.com/tantora/mariawire/lib/util/errors"
	"github.com/tantora/mariawire/pkg/proto"
)

// DecodeState decodes one server message and knows its successor. The state
// machine is per command: each CommandElement starts from its own initial
// state and the decoder walks the transitions packet by packet.
type DecodeState interface {
	// route refines the state from the first payload byte and the server
	// capabilities before decoding, e.g. to tell an OK/ERR/EOF marker from
	// a column count or a row.
	route(firstByte byte, length int, capability proto.Capability) DecodeState
	// decode produces exactly one message from the payload.
	decode(d *Decoder, pkt proto.Packet) (ServerMessage, error)
	// next returns the state for the following packet. Only called when the
	// decoded message was not ending.
	next(d *Decoder) DecodeState
}

// TextQueryState is the initial state for COM_QUERY and other commands
// answered by an OK/ERR or a text-protocol result set.
func TextQueryState() DecodeState {
	return stateQueryResponse{}
}

// BinaryQueryState is the initial state for COM_STMT_EXECUTE, whose result
// rows use the binary protocol.
func BinaryQueryState() DecodeState {
	return stateQueryResponse{binary: true}
}

// PrepareState is the initial state for COM_STMT_PREPARE.
func PrepareState() DecodeState {
	return statePrepareResponse{}
}

var ErrLocalInfile = errors.New("LOCAL INFILE requests are not supported")

type stateQueryResponse struct {
	binary bool
}

func (s stateQueryResponse) route(firstByte byte, _ int, _ proto.Capability) DecodeState {
	switch proto.Header(firstByte) {
	case proto.OKHeader:
		return stateOK{binary: s.binary}
	case proto.ErrHeader:
		return stateErr{}
	case proto.LocalInFileHeader:
		return stateLocalInfile{}
	}
	return stateColumnCount{binary: s.binary}
}

func (s stateQueryResponse) decode(_ *Decoder, _ proto.Packet) (ServerMessage, error) {
	// route always replaces this state
	return nil, errors.New("query response state cannot decode")
}

func (s stateQueryResponse) next(_ *Decoder) DecodeState {
	return s
}

type stateOK struct {
	binary       bool
	resultSetEnd bool
}

func (s stateOK) route(_ byte, _ int, _ proto.Capability) DecodeState {
	return s
}

func (s stateOK) decode(d *Decoder, pkt proto.Packet) (ServerMessage, error) {
	p, err := ParseOK(pkt.Payload, d.ctx.Capability())
	if err != nil {
		return nil, err
	}
	p.resultSetEnd = s.resultSetEnd
	d.ctx.SetStatus(p.Status)
	return p, nil
}

func (s stateOK) next(_ *Decoder) DecodeState {
	// only reached when SERVER_MORE_RESULTS_EXISTS was set
	return stateQueryResponse{binary: s.binary}
}

type stateErr struct{}

func (s stateErr) route(_ byte, _ int, _ proto.Capability) DecodeState {
	return s
}

func (s stateErr) decode(d *Decoder, pkt proto.Packet) (ServerMessage, error) {
	return ParseErr(pkt.Payload, d.ctx.Capability())
}

func (s stateErr) next(_ *Decoder) DecodeState {
	return s
}

type stateLocalInfile struct{}

func (s stateLocalInfile) route(_ byte, _ int, _ proto.Capability) DecodeState {
	return s
}

func (s stateLocalInfile) decode(_ *Decoder, _ proto.Packet) (ServerMessage, error) {
	return nil, errors.WithStack(ErrLocalInfile)
}

func (s stateLocalInfile) next(_ *Decoder) DecodeState {
	return s
}

type stateColumnCount struct {
	binary bool
}

func (s stateColumnCount) route(_ byte, _ int, _ proto.Capability) DecodeState {
	return s
}

func (s stateColumnCount) decode(d *Decoder, pkt proto.Packet) (ServerMessage, error) {
	count, _, _ := proto.ParseLengthEncodedInt(pkt.Payload)
	d.stateCounter = int(count)
	d.columns = make([]proto.Column, 0, count)
	return &ColumnCountPacket{Count: count}, nil
}

func (s stateColumnCount) next(_ *Decoder) DecodeState {
	return stateColumnDefinition{binary: s.binary}
}

type stateColumnDefinition struct {
	binary bool
}

func (s stateColumnDefinition) route(_ byte, _ int, _ proto.Capability) DecodeState {
	return s
}

func (s stateColumnDefinition) decode(d *Decoder, pkt proto.Packet) (ServerMessage, error) {
	col, err := proto.ParseColumn(pkt.Payload)
	if err != nil {
		return nil, err
	}
	d.columns = append(d.columns, col)
	d.stateCounter--
	return &ColumnDefinitionPacket{Column: col}, nil
}

func (s stateColumnDefinition) next(d *Decoder) DecodeState {
	if d.stateCounter > 0 {
		return s
	}
	if d.ctx.Capability()&proto.ClientDeprecateEOF != 0 {
		return stateRow{binary: s.binary}
	}
	return stateColumnsEOF{binary: s.binary}
}

type stateColumnsEOF struct {
	binary bool
}

func (s stateColumnsEOF) route(_ byte, _ int, _ proto.Capability) DecodeState {
	return s
}

func (s stateColumnsEOF) decode(d *Decoder, pkt proto.Packet) (ServerMessage, error) {
	return ParseEOF(pkt.Payload, d.ctx.Capability()), nil
}

func (s stateColumnsEOF) next(_ *Decoder) DecodeState {
	return stateRow{binary: s.binary}
}

type stateRow struct {
	binary bool
}

func (s stateRow) route(firstByte byte, length int, capability proto.Capability) DecodeState {
	switch proto.Header(firstByte) {
	case proto.ErrHeader:
		return stateErr{}
	case proto.EOFHeader:
		if capability&proto.ClientDeprecateEOF != 0 {
			// a row may also begin with 0xfe, the length disambiguates
			if length >= 7 && length < proto.MaxPayloadLen {
				return stateResultSetEnd{binary: s.binary, deprecateEOF: true}
			}
		} else if length <= 5 {
			return stateResultSetEnd{binary: s.binary}
		}
	}
	return s
}

func (s stateRow) decode(d *Decoder, pkt proto.Packet) (ServerMessage, error) {
	return &RowPacket{Columns: d.columns, Data: pkt.Payload, Binary: s.binary}, nil
}

func (s stateRow) next(_ *Decoder) DecodeState {
	return s
}

type stateResultSetEnd struct {
	binary       bool
	deprecateEOF bool
}

func (s stateResultSetEnd) route(_ byte, _ int, _ proto.Capability) DecodeState {
	return s
}

func (s stateResultSetEnd) decode(d *Decoder, pkt proto.Packet) (ServerMessage, error) {
	if s.deprecateEOF {
		p, err := ParseOK(pkt.Payload, d.ctx.Capability())
		if err != nil {
			return nil, err
		}
		p.resultSetEnd = true
		d.ctx.SetStatus(p.Status)
		return p, nil
	}
	p := ParseEOF(pkt.Payload, d.ctx.Capability())
	p.resultSetEnd = true
	d.ctx.SetStatus(p.Status)
	return p, nil
}

func (s stateResultSetEnd) next(_ *Decoder) DecodeState {
	// only reached when SERVER_MORE_RESULTS_EXISTS was set
	return stateQueryResponse{binary: s.binary}
}

type statePrepareResponse struct{}

func (s statePrepareResponse) route(firstByte byte, _ int, _ proto.Capability) DecodeState {
	if proto.Header(firstByte) == proto.ErrHeader {
		return stateErr{}
	}
	return s
}

func (s statePrepareResponse) decode(d *Decoder, pkt proto.Packet) (ServerMessage, error) {
	hdr, err := ParsePrepareHeader(pkt.Payload)
	if err != nil {
		return nil, err
	}
	d.prepare = hdr
	d.prepareColumns = make([]proto.Column, 0, hdr.NumColumns)
	if hdr.NumParams == 0 && hdr.NumColumns == 0 {
		return &PreparedStatementPacket{Stmt: d.endPrepare()}, nil
	}
	return hdr, nil
}

func (s statePrepareResponse) next(d *Decoder) DecodeState {
	if d.prepare.NumParams > 0 {
		d.stateCounter = int(d.prepare.NumParams)
		return statePrepareParams{}
	}
	d.stateCounter = int(d.prepare.NumColumns)
	return statePrepareColumns{}
}

type statePrepareParams struct{}

func (s statePrepareParams) route(_ byte, _ int, _ proto.Capability) DecodeState {
	return s
}

func (s statePrepareParams) decode(d *Decoder, pkt proto.Packet) (ServerMessage, error) {
	// parameter definitions are decoded but not retained in the handle
	col, err := proto.ParseColumn(pkt.Payload)
	if err != nil {
		return nil, err
	}
	d.stateCounter--
	last := d.stateCounter == 0 && d.ctx.Capability()&proto.ClientDeprecateEOF != 0
	if last && d.prepare.NumColumns == 0 {
		return &PreparedStatementPacket{Stmt: d.endPrepare()}, nil
	}
	return &ColumnDefinitionPacket{Column: col}, nil
}

func (s statePrepareParams) next(d *Decoder) DecodeState {
	if d.stateCounter > 0 {
		return s
	}
	if d.ctx.Capability()&proto.ClientDeprecateEOF == 0 {
		return statePrepareParamsEOF{}
	}
	d.stateCounter = int(d.prepare.NumColumns)
	return statePrepareColumns{}
}

type statePrepareParamsEOF struct{}

func (s statePrepareParamsEOF) route(_ byte, _ int, _ proto.Capability) DecodeState {
	return s
}

func (s statePrepareParamsEOF) decode(d *Decoder, pkt proto.Packet) (ServerMessage, error) {
	p := ParseEOF(pkt.Payload, d.ctx.Capability())
	if d.prepare.NumColumns == 0 {
		return &PreparedStatementPacket{Stmt: d.endPrepare()}, nil
	}
	return p, nil
}

func (s statePrepareParamsEOF) next(d *Decoder) DecodeState {
	d.stateCounter = int(d.prepare.NumColumns)
	return statePrepareColumns{}
}

type statePrepareColumns struct{}

func (s statePrepareColumns) route(_ byte, _ int, _ proto.Capability) DecodeState {
	return s
}

func (s statePrepareColumns) decode(d *Decoder, pkt proto.Packet) (ServerMessage, error) {
	col, err := proto.ParseColumn(pkt.Payload)
	if err != nil {
		return nil, err
	}
	d.prepareColumns = append(d.prepareColumns, col)
	d.stateCounter--
	if d.stateCounter == 0 && d.ctx.Capability()&proto.ClientDeprecateEOF != 0 {
		return &PreparedStatementPacket{Stmt: d.endPrepare()}, nil
	}
	return &ColumnDefinitionPacket{Column: col}, nil
}

func (s statePrepareColumns) next(d *Decoder) DecodeState {
	if d.stateCounter > 0 {
		return s
	}
	return statePrepareColumnsEOF{}
}

type statePrepareColumnsEOF struct{}

func (s statePrepareColumnsEOF) route(_ byte, _ int, _ proto.Capability) DecodeState {
	return s
}

func (s statePrepareColumnsEOF) decode(d *Decoder, _ proto.Packet) (ServerMessage, error) {
	return &PreparedStatementPacket{Stmt: d.endPrepare()}, nil
}

func (s statePrepareColumnsEOF) next(_ *Decoder) DecodeState {
	return s
}
