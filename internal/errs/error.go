// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errs defines the typed failures produced by the analysis and
// question-answering pipelines. Each failure carries a Kind, and every Kind
// maps to exactly one HTTP status so the API layer can report downstream
// problems without inspecting error strings.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindInvalidRequest        Kind = "invalid_request"
	KindUpload                Kind = "upload"
	KindActivation            Kind = "activation"
	KindActivationTimeout     Kind = "activation_timeout"
	KindInvalidVideoReference Kind = "invalid_video_reference"
	KindGeneration            Kind = "generation"
	KindEmptyChunks           Kind = "empty_chunks"
	KindStorage               Kind = "storage"
	KindSessionNotFound       Kind = "session_not_found"
	KindSessionNotReady       Kind = "session_not_ready"
	KindRetrieval             Kind = "retrieval"
	KindCanceled              Kind = "canceled"
	KindInternal              Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindInvalidRequest:        http.StatusBadRequest,
	KindSessionNotFound:       http.StatusNotFound,
	KindSessionNotReady:       http.StatusConflict,
	KindInvalidVideoReference: http.StatusUnprocessableEntity,
	KindEmptyChunks:           http.StatusUnprocessableEntity,
	KindUpload:                http.StatusBadGateway,
	KindActivation:            http.StatusBadGateway,
	KindGeneration:            http.StatusBadGateway,
	KindStorage:               http.StatusBadGateway,
	KindRetrieval:             http.StatusBadGateway,
	KindActivationTimeout:     http.StatusGatewayTimeout,
	KindCanceled:              http.StatusRequestTimeout,
	KindInternal:              http.StatusInternalServerError,
}

// HttpStatus returns the status code the API reports for this kind.
func (k Kind) HttpStatus() int {
	if status, ok := statusByKind[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is a failure of a single pipeline operation.
type Error struct {
	Kind Kind   // The failure class.
	Op   string // The operation (usually the command name) that failed.
	Err  error  // The underlying cause, may be nil.
}

// New creates an Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates an Error whose cause is a formatted message.
func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, ErrSessionNotFound)
// holds for any session_not_found failure.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidRequest        = &Error{Kind: KindInvalidRequest}
	ErrUpload                = &Error{Kind: KindUpload}
	ErrActivation            = &Error{Kind: KindActivation}
	ErrActivationTimeout     = &Error{Kind: KindActivationTimeout}
	ErrInvalidVideoReference = &Error{Kind: KindInvalidVideoReference}
	ErrGeneration            = &Error{Kind: KindGeneration}
	ErrEmptyChunks           = &Error{Kind: KindEmptyChunks}
	ErrStorage               = &Error{Kind: KindStorage}
	ErrSessionNotFound       = &Error{Kind: KindSessionNotFound}
	ErrSessionNotReady       = &Error{Kind: KindSessionNotReady}
	ErrRetrieval             = &Error{Kind: KindRetrieval}
	ErrCanceled              = &Error{Kind: KindCanceled}
)

// KindOf reports the kind of err. Context cancellation and deadline errors
// that were never classified map to KindCanceled and KindActivationTimeout
// respectively; anything else unclassified is KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindActivationTimeout
	}
	return KindInternal
}
