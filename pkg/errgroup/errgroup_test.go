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


package errgroup

import (
	"context"
	"testing"
	"time"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/nuclio/zap"
	"github.com/stretchr/testify/suite"
)

type ErrGroupTestSuite struct {
	suite.Suite
	logger logger.Logger
}

func (suite *ErrGroupTestSuite) SetupTest() {
	suite.logger, _ = nucliozap.NewNuclioZapTest("test")
}

func (suite *ErrGroupTestSuite) TestFirstErrorCancelsOthers() {
	group, ctx := WithContext(context.Background(), suite.logger)

	group.Go("failing", func() error {
		return errors.New("listener closed")
	})

	group.Go("waiting", func() error {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("Context was not cancelled")
		}
	})

	suite.Require().EqualError(group.Wait(), "listener closed")
}

func (suite *ErrGroupTestSuite) TestPanicBecomesError() {
	group, _ := WithContext(context.Background(), suite.logger)

	group.Go("panicking", func() error {
		panic("worker pool corrupted")
	})

	err := group.Wait()
	suite.Require().Error(err)
	suite.Require().Contains(err.Error(), "worker pool corrupted")
}

func TestErrGroupTestSuite(t *testing.T) {
	suite.Run(t, new(ErrGroupTestSuite))
}
