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

package rpc

import (
	"fmt"

	"github.com/nuclio/errors"
)

var (
	ErrValueIndex        = errors.New("Value index out of range")
	ErrValueType         = errors.New("Unexpected value type")
	ErrAlreadyCompleted  = errors.New("Request already completed")
	ErrMethodExists      = errors.New("Method already defined")
	ErrFrameTooLarge     = errors.New("Frame exceeds maximum size")
	ErrConnectionClosed  = errors.New("Connection closed")
	ErrServerNotListened = errors.New("Server is not listening")
)

// ErrorCode is reported back to the caller of a failed request. Codes from 100
// up to 65535 belong to the transport, higher codes to applications
type ErrorCode uint32

const (
	ErrorCodeNone           ErrorCode = 0
	ErrorCodeGeneral        ErrorCode = 100
	ErrorCodeNotImplemented ErrorCode = 101
	ErrorCodeAborted        ErrorCode = 102
	ErrorCodeTimeout        ErrorCode = 103
	ErrorCodeConnection     ErrorCode = 104
	ErrorCodeBadRequest     ErrorCode = 105
	ErrorCodeNoSuchMethod   ErrorCode = 106
	ErrorCodeWrongParams    ErrorCode = 107
	ErrorCodeOverload       ErrorCode = 108
	ErrorCodeWrongReturn    ErrorCode = 109
	ErrorCodeBadReply       ErrorCode = 110
	ErrorCodeMethodFailed   ErrorCode = 111
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeNone:
		return "none"
	case ErrorCodeGeneral:
		return "general error"
	case ErrorCodeNotImplemented:
		return "not implemented"
	case ErrorCodeAborted:
		return "aborted"
	case ErrorCodeTimeout:
		return "timeout"
	case ErrorCodeConnection:
		return "connection error"
	case ErrorCodeBadRequest:
		return "bad request"
	case ErrorCodeNoSuchMethod:
		return "no such method"
	case ErrorCodeWrongParams:
		return "wrong parameters"
	case ErrorCodeOverload:
		return "overload"
	case ErrorCodeWrongReturn:
		return "wrong return values"
	case ErrorCodeBadReply:
		return "bad reply"
	case ErrorCodeMethodFailed:
		return "method failed"
	default:
		return fmt.Sprintf("error code %d", uint32(c))
	}
}
