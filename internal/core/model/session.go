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

package model

import (
	"time"

	"github.com/google/uuid"
)

// NamespaceLength is the number of characters of a random UUID kept as a
// vector store namespace.
const NamespaceLength = 8

// SessionStatus tracks a session through
// idle -> uploading -> active -> described -> stored -> ready, with failed
// reachable from any step.
type SessionStatus string

const (
	SessionIdle      SessionStatus = "idle"
	SessionUploading SessionStatus = "uploading"
	SessionActive    SessionStatus = "active"
	SessionDescribed SessionStatus = "described"
	SessionStored    SessionStatus = "stored"
	SessionReady     SessionStatus = "ready"
	SessionFailed    SessionStatus = "failed"
)

// Session groups every chunk written by one analyze call. Questions name the
// session they are about, so concurrent analyses never share a namespace.
type Session struct {
	ID        string        `json:"session_id"`
	Namespace string        `json:"namespace"`
	Status    SessionStatus `json:"status"`
	Videos    []string      `json:"videos"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewSession creates an idle session with a fresh id and namespace.
func NewSession(videos []string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Namespace: NewNamespace(),
		Status:    SessionIdle,
		Videos:    videos,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewNamespace returns the first NamespaceLength characters of a random UUID.
func NewNamespace() string {
	return uuid.NewString()[:NamespaceLength]
}

// Transition moves the session to status and stamps UpdatedAt.
func (s *Session) Transition(status SessionStatus) {
	s.Status = status
	s.UpdatedAt = time.Now()
}

// Fail marks the session failed with the given cause.
func (s *Session) Fail(err error) {
	s.Transition(SessionFailed)
	if err != nil {
		s.Error = err.Error()
	}
}

// IsReady reports whether questions can be asked against the session.
func (s *Session) IsReady() bool {
	return s.Status == SessionReady
}
