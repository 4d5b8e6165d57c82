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

package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
	"github.com/jaycherian/gcp-go-video-chat/internal/store"
)

const askOp = "ask"

// QuestionService answers questions about an analyzed session.
type QuestionService struct {
	Workflow cor.Command
	Sessions store.SessionStore
}

func NewQuestionService(workflow cor.Command, sessions store.SessionStore) *QuestionService {
	return &QuestionService{Workflow: workflow, Sessions: sessions}
}

// Session returns the session with id.
func (s *QuestionService) Session(ctx context.Context, id string) (*model.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errs.Newf(errs.KindInvalidRequest, askOp, "session_id is required")
	}
	session, err := s.Sessions.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return nil, errs.Newf(errs.KindSessionNotFound, askOp, "session %s does not exist, analyze a video first", id)
	case err != nil:
		return nil, errs.New(errs.KindStorage, askOp, err)
	}
	return session, nil
}

// Ask answers question from the chunks of the session's namespace.
func (s *QuestionService) Ask(ctx context.Context, sessionID string, question string) (*model.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errs.Newf(errs.KindInvalidRequest, askOp, "question is required")
	}
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsReady() {
		return nil, errs.Newf(errs.KindSessionNotReady, askOp, "session %s is %s", session.ID, session.Status)
	}

	chainCtx := run(ctx, s.Workflow, question, namespaceParams(session.Namespace))
	defer chainCtx.Close()
	if err := chainCtx.Err(); err != nil {
		slog.ErrorContext(ctx, "question failed", "session_id", session.ID, "kind", errs.KindOf(err), "error", err)
		return nil, err
	}

	answer, ok := chainCtx.Get(cor.CtxIn).(string)
	if !ok {
		return nil, errs.Newf(errs.KindInternal, askOp, "workflow produced no answer")
	}
	return &model.Answer{SessionID: session.ID, Question: question, Answer: answer}, nil
}
