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

package engine

import (
	"time"
)

// Clock returns the current time
type Clock func() time.Time

// RelativeTime measures a request's time budget from the moment it arrived
type RelativeTime struct {
	startedAt time.Time
	timeout   time.Duration
	clock     Clock
}

// NewRelativeTime starts measuring from startedAt. A nil clock uses time.Now
func NewRelativeTime(startedAt time.Time, clock Clock) *RelativeTime {
	if clock == nil {
		clock = time.Now
	}

	return &RelativeTime{
		startedAt: startedAt,
		clock:     clock,
	}
}

func (rt *RelativeTime) SetTimeout(timeout time.Duration) {
	rt.timeout = timeout
}

func (rt *RelativeTime) GetTimeout() time.Duration {
	return rt.timeout
}

func (rt *RelativeTime) GetStartTime() time.Time {
	return rt.startedAt
}

func (rt *RelativeTime) GetDeadline() time.Time {
	return rt.startedAt.Add(rt.timeout)
}

func (rt *RelativeTime) GetElapsed() time.Duration {
	return rt.clock().Sub(rt.startedAt)
}

func (rt *RelativeTime) GetTimeLeft() time.Duration {
	timeLeft := rt.timeout - rt.GetElapsed()
	if timeLeft < 0 {
		return 0
	}

	return timeLeft
}

func (rt *RelativeTime) Expired() bool {
	return rt.GetTimeLeft() == 0
}
