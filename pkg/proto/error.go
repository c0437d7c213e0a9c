// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"context"
	"io"
	"os"
	"syscall"

	"github.com/tantora/mariawire/lib/util/errors"
)

var (
	ErrReadConn        = errors.New("failed to read the connection")
	ErrWriteConn       = errors.New("failed to write the connection")
	ErrFlushConn       = errors.New("failed to flush the connection")
	ErrCloseConn       = errors.New("failed to close the connection")
	ErrInvalidSequence = errors.New("invalid packet sequence")
)

// IsDisconnectError returns whether the error is caused by peer disconnection.
func IsDisconnectError(err error) bool {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, syscall.EPIPE), errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, os.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}
