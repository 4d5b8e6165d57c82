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

	"github.com/jaycherian/gcp-go-video-chat/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
	"github.com/jaycherian/gcp-go-video-chat/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const analyzeOp = "analyze"

// AnalysisService runs the analysis workflow over a batch of videos.
type AnalysisService struct {
	Workflow  cor.Command
	Sessions  store.SessionStore
	MaxVideos int // Largest accepted batch; 0 means no limit.
}

var _ commands.Analyzer = (*AnalysisService)(nil)

func NewAnalysisService(workflow cor.Command, sessions store.SessionStore) *AnalysisService {
	return &AnalysisService{Workflow: workflow, Sessions: sessions}
}

// Analyze creates a session for paths and processes them in order. The
// first failure marks the session failed and is returned; descriptions of
// earlier videos are not returned but their chunks stay in the namespace.
func (s *AnalysisService) Analyze(ctx context.Context, paths []string) (*model.AnalysisResult, error) {
	if len(paths) == 0 {
		return nil, errs.Newf(errs.KindInvalidRequest, analyzeOp, "at least one video path is required")
	}
	if s.MaxVideos > 0 && len(paths) > s.MaxVideos {
		return nil, errs.Newf(errs.KindInvalidRequest, analyzeOp, "got %d videos, at most %d are accepted per request", len(paths), s.MaxVideos)
	}
	for i, p := range paths {
		if strings.TrimSpace(p) == "" {
			return nil, errs.Newf(errs.KindInvalidRequest, analyzeOp, "video path %d is empty", i)
		}
	}

	ctx, span := otel.Tracer("analysis-service").Start(ctx, "analyze")
	defer span.End()

	session := model.NewSession(append([]string(nil), paths...))
	if err := s.Sessions.Create(ctx, session); err != nil {
		return nil, errs.New(errs.KindStorage, analyzeOp, err)
	}
	span.SetAttributes(attribute.String("session_id", session.ID), attribute.String("namespace", session.Namespace))
	slog.InfoContext(ctx, "analysis started", "session_id", session.ID, "namespace", session.Namespace, "videos", len(paths))

	result := &model.AnalysisResult{
		SessionID:    session.ID,
		Namespace:    session.Namespace,
		Descriptions: make([]string, 0, len(paths)),
	}
	for _, path := range paths {
		description, err := s.analyzeOne(ctx, session, path)
		if err != nil {
			s.fail(ctx, session, path, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "analysis failed")
			return nil, err
		}
		result.Descriptions = append(result.Descriptions, description)
	}

	session.Transition(model.SessionReady)
	if err := s.Sessions.Update(ctx, session); err != nil {
		return nil, errs.New(errs.KindStorage, analyzeOp, err)
	}
	slog.InfoContext(ctx, "analysis finished", "session_id", session.ID, "videos", len(paths))
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (s *AnalysisService) analyzeOne(ctx context.Context, session *model.Session, path string) (string, error) {
	session.Transition(model.SessionUploading)
	if err := s.Sessions.Update(ctx, session); err != nil {
		return "", errs.New(errs.KindStorage, analyzeOp, err)
	}

	params := namespaceParams(session.Namespace)
	params[commands.GetSessionParameterName()] = session
	chainCtx := run(ctx, s.Workflow, path, params)
	defer chainCtx.Close()

	if err := chainCtx.Err(); err != nil {
		return "", err
	}
	description, ok := chainCtx.Get(commands.GetDescriptionParameterName()).(string)
	if !ok {
		return "", errs.Newf(errs.KindInternal, analyzeOp, "workflow produced no description for %s", path)
	}
	return description, nil
}

// fail records err on the session. The update outlives a canceled request.
func (s *AnalysisService) fail(ctx context.Context, session *model.Session, path string, err error) {
	slog.ErrorContext(ctx, "analysis failed",
		"session_id", session.ID, "video", path, "kind", errs.KindOf(err), "error", err)
	session.Fail(err)
	if uerr := s.Sessions.Update(context.WithoutCancel(ctx), session); uerr != nil && !errors.Is(uerr, context.Canceled) {
		slog.WarnContext(ctx, "failed to record session failure", "session_id", session.ID, "error", uerr)
	}
}
