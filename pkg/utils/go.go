// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package utils

import "github.com/rapidaai/songid/pkg/commons"

// Go runs fn on its own goroutine and turns a panic into an error log
// instead of a process crash. Segment pipelines run through this so a bad
// chunk can never take the whole session down.
func Go(logger commons.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("%s: recovered from panic: %v", name, r)
			}
		}()
		fn()
	}()
}
