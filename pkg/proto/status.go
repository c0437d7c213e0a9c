// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import "strings"

type Status uint16

// Server status flags carried by OK and EOF packets.
// Ref https://dev.mysql.com/doc/dev/mysql-server/latest/mysql__com_8h.html.
const (
	ServerStatusInTrans Status = 1 << iota
	ServerStatusAutocommit
	serverStatusReserved
	ServerMoreResultsExists
	ServerStatusNoGoodIndexUsed
	ServerStatusNoIndexUsed
	ServerStatusCursorExists
	ServerStatusLastRowSend
	ServerStatusDBDropped
	ServerStatusNoBackslashEscaped
	ServerStatusMetadataChanged
	ServerQueryWasSlow
	ServerPSOutParams
	ServerStatusInTransReadonly
	ServerSessionStateChanged
)

var statusStrings = []struct {
	Status Status
	Str    string
}{
	{ServerStatusInTrans, "SERVER_STATUS_IN_TRANS"},
	{ServerStatusAutocommit, "SERVER_STATUS_AUTOCOMMIT"},
	{ServerMoreResultsExists, "SERVER_MORE_RESULTS_EXISTS"},
	{ServerStatusNoGoodIndexUsed, "SERVER_STATUS_NO_GOOD_INDEX_USED"},
	{ServerStatusNoIndexUsed, "SERVER_STATUS_NO_INDEX_USED"},
	{ServerStatusCursorExists, "SERVER_STATUS_CURSOR_EXISTS"},
	{ServerStatusLastRowSend, "SERVER_STATUS_LAST_ROW_SEND"},
	{ServerStatusDBDropped, "SERVER_STATUS_DB_DROPPED"},
	{ServerStatusNoBackslashEscaped, "SERVER_STATUS_NO_BACKSLASH_ESCAPED"},
	{ServerStatusMetadataChanged, "SERVER_STATUS_METADATA_CHANGED"},
	{ServerQueryWasSlow, "SERVER_QUERY_WAS_SLOW"},
	{ServerPSOutParams, "SERVER_PS_OUT_PARAMS"},
	{ServerStatusInTransReadonly, "SERVER_STATUS_IN_TRANS_READONLY"},
	{ServerSessionStateChanged, "SERVER_SESSION_STATE_CHANGED"},
}

func (s Status) Uint16() uint16 {
	return uint16(s)
}

func (s Status) String() string {
	str := new(strings.Builder)
	cnt := 0
	for _, st := range statusStrings {
		if s&st.Status != 0 {
			if cnt > 0 {
				str.WriteByte('|')
			}
			str.WriteString(st.Str)
			cnt++
		}
	}
	return str.String()
}
