// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"github.com/tantora/mariawire/lib/util/errors"
	"github.com/tantora/mariawire/pkg/codec"
	"github.com/tantora/mariawire/pkg/proto"
)

// Request is an encoded client command payload together with the decode state
// for its response. Initial is nil for fire-and-forget commands the server
// never answers, such as COM_STMT_CLOSE.
type Request struct {
	Payload []byte
	Initial DecodeState
	SQL     string
}

// Element builds the queue element correlating this request with its sink.
func (r Request) Element(sink ResultSink) *CommandElement {
	return &CommandElement{SQL: r.SQL, Initial: r.Initial, Sink: sink}
}

// MakeQueryRequest encodes a COM_QUERY.
func MakeQueryRequest(sql string) Request {
	payload := make([]byte, 0, 1+len(sql))
	payload = append(payload, byte(proto.ComQuery))
	payload = append(payload, sql...)
	return Request{Payload: payload, Initial: TextQueryState(), SQL: sql}
}

// MakePingRequest encodes a COM_PING, answered by a single OK.
func MakePingRequest() Request {
	return Request{Payload: []byte{byte(proto.ComPing)}, Initial: TextQueryState()}
}

// MakePrepareRequest encodes a COM_STMT_PREPARE. The SQL text keys the
// prepared statement cache.
func MakePrepareRequest(sql string) Request {
	payload := make([]byte, 0, 1+len(sql))
	payload = append(payload, byte(proto.ComStmtPrepare))
	payload = append(payload, sql...)
	return Request{Payload: payload, Initial: PrepareState(), SQL: sql}
}

// MakeExecuteRequest encodes a COM_STMT_EXECUTE with the parameters bound in
// the binary protocol. len(args) must equal the statement's parameter count;
// nil binds NULL.
func MakeExecuteRequest(stmt *ServerPrepareResult, args []any) (Request, error) {
	if len(args) != int(stmt.NumParams()) {
		return Request{}, errors.Errorf("statement %d takes %d parameters, got %d",
			stmt.StatementID(), stmt.NumParams(), len(args))
	}
	payload := make([]byte, 0, 16+len(args)*12)
	payload = append(payload, byte(proto.ComStmtExecute))
	payload = proto.DumpUint32(payload, stmt.StatementID())
	// CURSOR_TYPE_NO_CURSOR, iteration count fixed at 1
	payload = append(payload, 0x00)
	payload = proto.DumpUint32(payload, 1)

	if len(args) > 0 {
		nullBitmap := make([]byte, (len(args)+7)/8)
		types := make([]byte, 0, len(args)*2)
		values := make([]byte, 0, len(args)*8)
		for i, arg := range args {
			if arg == nil {
				nullBitmap[i/8] |= 1 << (uint(i) % 8)
				types = append(types, byte(proto.TypeNull), 0x00)
				continue
			}
			c, err := codec.ForEncode(arg)
			if err != nil {
				return Request{}, errors.Wrapf(err, "parameter %d", i)
			}
			types = append(types, byte(c.BinaryType()), 0x00)
			values, err = c.EncodeBinary(values, arg)
			if err != nil {
				return Request{}, errors.Wrapf(err, "parameter %d", i)
			}
		}
		payload = append(payload, nullBitmap...)
		// new-params-bound flag: types follow
		payload = append(payload, 0x01)
		payload = append(payload, types...)
		payload = append(payload, values...)
	}
	return Request{Payload: payload, Initial: BinaryQueryState()}, nil
}

// MakeCloseRequest encodes a COM_STMT_CLOSE, which has no response.
func MakeCloseRequest(statementID uint32) Request {
	payload := make([]byte, 0, 5)
	payload = append(payload, byte(proto.ComStmtClose))
	payload = proto.DumpUint32(payload, statementID)
	return Request{Payload: payload}
}

// MakeResetRequest encodes a COM_STMT_RESET, answered by OK or ERR.
func MakeResetRequest(statementID uint32) Request {
	payload := make([]byte, 0, 5)
	payload = append(payload, byte(proto.ComStmtReset))
	payload = proto.DumpUint32(payload, statementID)
	return Request{Payload: payload, Initial: TextQueryState()}
}
