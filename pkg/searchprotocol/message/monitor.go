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

package message

import (
	"google.golang.org/protobuf/encoding/protowire"
)

type MonitorRequest struct{}

func (mr *MonitorRequest) Marshal() []byte {
	return nil
}

func (mr *MonitorRequest) Unmarshal(data []byte) error {
	return consumeFields(data, func(protowire.Number, protowire.Type, []byte) (int, error) {
		return 0, nil
	})
}

type MonitorReply struct {
	Online           bool
	ActiveDocs       int64
	DistributionKey  int32
	IsBlockingWrites bool
}

func (mr *MonitorReply) Marshal() []byte {
	var buffer []byte

	buffer = appendBool(buffer, 1, mr.Online)
	buffer = appendInt64(buffer, 2, mr.ActiveDocs)
	buffer = appendInt32(buffer, 3, mr.DistributionKey)
	buffer = appendBool(buffer, 4, mr.IsBlockingWrites)

	return buffer
}

func (mr *MonitorReply) Unmarshal(data []byte) error {
	*mr = MonitorReply{}

	return consumeFields(data, func(number protowire.Number, wireType protowire.Type, data []byte) (int, error) {
		switch number {
		case 1:
			return consumeBool(wireType, data, &mr.Online)
		case 2:
			return consumeInt64(wireType, data, &mr.ActiveDocs)
		case 3:
			return consumeInt32(wireType, data, &mr.DistributionKey)
		case 4:
			return consumeBool(wireType, data, &mr.IsBlockingWrites)
		}

		return 0, nil
	})
}
