/*
Copyright The Kubernetes Authors.

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


package errgroup

import (
	"context"
	"runtime/debug"

	"github.com/nuclio/searchnode/pkg/common"

	"github.com/nuclio/logger"
	"golang.org/x/sync/errgroup"
)

// Group runs named actions that share a context. The first action to fail or panic
// cancels the context of the others
type Group struct {
	*errgroup.Group
	logger logger.Logger
	ctx    context.Context
}

func WithContext(ctx context.Context, loggerInstance logger.Logger) (*Group, context.Context) {
	newBaseErrgroup, errgroupCtx := errgroup.WithContext(ctx)

	return &Group{
		Group:  newBaseErrgroup,
		logger: loggerInstance,
		ctx:    errgroupCtx,
	}, errgroupCtx
}

// Go runs f on its own goroutine. A panic in f is logged and returned as its error
func (g *Group) Go(actionName string, f func() error) {
	wrapper := func() (err error) {
		defer func() {
			if recoveredErr := recover(); recoveredErr != nil {
				common.LogPanic(g.ctx, g.logger, actionName, nil, debug.Stack(), recoveredErr)
				err = common.ErrorFromRecoveredError(recoveredErr)
			}
		}()

		if err = f(); err != nil {
			g.logger.WarnWithCtx(g.ctx, "Action failed", "actionName", actionName, "err", err.Error())
		}

		return
	}

	g.Group.Go(wrapper)
}
