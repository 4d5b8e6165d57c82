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

// Package api defines the HTTP surface of the service.
//
// Routes:
//   - POST /analyze-video: analyze one or more videos in a new session.
//   - POST /ask-question: answer a question about an analyzed session.
//   - GET /sessions/:id: report a session's status.
//   - GET /healthz: liveness.
//
// Failures are reported with the status of their errs.Kind and an
// ErrorResponse body.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
)

// Questioner answers questions about sessions.
type Questioner interface {
	Ask(ctx context.Context, sessionID string, question string) (*model.Answer, error)
	Session(ctx context.Context, id string) (*model.Session, error)
}

// AnalyzeRequest is the body of POST /analyze-video. FilePath is the
// deprecated single-video form and may not be combined with FilePaths.
type AnalyzeRequest struct {
	FilePaths []string `json:"file_paths"`
	FilePath  *string  `json:"file_path,omitempty"`
}

// Paths normalizes the request to a list and reports whether the legacy
// field was used.
func (r *AnalyzeRequest) Paths() ([]string, bool, error) {
	switch {
	case r.FilePath != nil && r.FilePaths != nil:
		return nil, false, errs.Newf(errs.KindInvalidRequest, "analyze-video", "send either file_paths or file_path, not both")
	case r.FilePath != nil:
		return []string{*r.FilePath}, true, nil
	case r.FilePaths == nil:
		return nil, false, errs.Newf(errs.KindInvalidRequest, "analyze-video", "file_paths is required")
	}
	return r.FilePaths, false, nil
}

type AnalyzeResponse struct {
	SessionID    string   `json:"session_id"`
	Namespace    string   `json:"namespace"`
	Descriptions []string `json:"descriptions"`
	Description  string   `json:"description,omitempty"` // Only set for the legacy single-path form.
}

type AskRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type AskResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// Register adds the service routes to r.
func Register(r gin.IRouter, analyzer commands.Analyzer, questions Questioner) {
	Dashboard(r)

	r.POST("/analyze-video", func(c *gin.Context) {
		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, errs.New(errs.KindInvalidRequest, "analyze-video", err))
			return
		}
		paths, legacy, err := req.Paths()
		if err != nil {
			abortWithError(c, err)
			return
		}
		if legacy {
			c.Header("Deprecation", "true")
		}

		result, err := analyzer.Analyze(c.Request.Context(), paths)
		if err != nil {
			abortWithError(c, err)
			return
		}
		out := AnalyzeResponse{
			SessionID:    result.SessionID,
			Namespace:    result.Namespace,
			Descriptions: result.Descriptions,
		}
		if legacy && len(result.Descriptions) == 1 {
			out.Description = result.Descriptions[0]
		}
		c.JSON(http.StatusOK, out)
	})

	r.POST("/ask-question", func(c *gin.Context) {
		var req AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, errs.New(errs.KindInvalidRequest, "ask-question", err))
			return
		}
		answer, err := questions.Ask(c.Request.Context(), req.SessionID, req.Question)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, AskResponse{SessionID: answer.SessionID, Answer: answer.Answer})
	})

	r.GET("/sessions/:id", func(c *gin.Context) {
		session, err := questions.Session(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	})
}
