/*
Copyright 2023 The Nuclio Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


package common

import (
	"context"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// LogPanic logs a recovered panic along with the stack of the goroutine that raised it
func LogPanic(ctx context.Context,
	loggerInstance logger.Logger,
	actionName string,
	args []interface{},
	callStack []byte,
	recoveredErr interface{}) {

	logArgs := []interface{}{
		"actionName", actionName,
		"err", recoveredErr,
		"stack", string(callStack),
	}

	if len(args) > 0 {
		logArgs = append(logArgs, "args", args)
	}

	loggerInstance.ErrorWithCtx(ctx, "Panic caught while running action", logArgs...)
}

// ErrorFromRecoveredError turns the value returned by recover() into an error
func ErrorFromRecoveredError(recoveredErr interface{}) error {
	switch typedErr := recoveredErr.(type) {
	case error:
		return errors.Wrap(typedErr, "Recovered from panic")
	case string:
		return errors.Errorf("Recovered from panic: %s", typedErr)
	default:
		return errors.Errorf("Recovered from panic: %v", typedErr)
	}
}
