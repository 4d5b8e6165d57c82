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

package commands

import (
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
	"github.com/jaycherian/gcp-go-video-chat/internal/store"
)

// SessionProgress moves the session under GetSessionParameterName to a fixed
// status and persists it. Its input is passed through unchanged, also when
// no session is on the context.
type SessionProgress struct {
	cor.BaseCommand
	sessions store.SessionStore
	status   model.SessionStatus
}

func NewSessionProgress(name string, sessions store.SessionStore, status model.SessionStatus) *SessionProgress {
	return &SessionProgress{BaseCommand: *cor.NewBaseCommand(name), sessions: sessions, status: status}
}

func (p *SessionProgress) Execute(context cor.Context) {
	in := context.Get(p.GetInputParam())
	session, ok := context.Get(GetSessionParameterName()).(*model.Session)
	if !ok || session == nil || p.sessions == nil {
		context.Add(p.GetOutputParam(), in)
		return
	}

	session.Transition(p.status)
	if err := p.sessions.Update(context.GetContext(), session); err != nil {
		p.Fail(context, classify(context.GetContext(), errs.KindStorage, p.GetName(), err))
		return
	}
	p.Succeed(context, in)
}
