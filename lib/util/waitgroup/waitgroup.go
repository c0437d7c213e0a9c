// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package waitgroup

import (
	"sync"

	"go.uber.org/zap"
)

// WaitGroup is a wrapper for sync.WaitGroup.
type WaitGroup struct {
	sync.WaitGroup
}

// Run runs a function in a goroutine, adds 1 to the WaitGroup and calls
// Done when the function returns. Do not panic in the function.
func (w *WaitGroup) Run(exec func()) {
	w.Add(1)
	go func() {
		defer w.Done()
		exec()
	}()
}

// RunWithRecover is like Run but recovers from panics, dumping the stack
// into the log. recoverFn may be nil.
func (w *WaitGroup) RunWithRecover(exec func(), recoverFn func(r any), logger *zap.Logger) {
	w.Add(1)
	go func() {
		defer func() {
			r := recover()
			if r != nil && logger != nil {
				logger.Error("panic in the recoverable goroutine",
					zap.Reflect("r", r),
					zap.Stack("stack trace"))
			}
			// Done before recoverFn: recoverFn typically closes the owner,
			// which may wait on this group.
			w.Done()
			if r != nil && recoverFn != nil {
				recoverFn(r)
			}
		}()
		exec()
	}()
}
