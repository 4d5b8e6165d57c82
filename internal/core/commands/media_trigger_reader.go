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

// Package commands. This file defines the commands a Pub/Sub subscription
// runs when a video lands in the input bucket.
//
// Logic Flow:
//  1. MediaTriggerReader decodes the raw storage notification on its input.
//  2. Objects from another bucket, or whose content type is not video, are
//     skipped: the command succeeds without output, so the rest of the chain
//     is not executable and the message is acked.
//  3. Otherwise the object's gs:// URI is passed on.
//  4. AnalyzeTrigger runs a full analysis of that URI in a new session.
package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
)

type MediaTriggerReader struct {
	cor.BaseCommand
	bucket string
}

// NewMediaTriggerReader accepts notifications for bucket, or for any bucket
// when bucket is empty.
func NewMediaTriggerReader(name string, bucket string) *MediaTriggerReader {
	return &MediaTriggerReader{BaseCommand: *cor.NewBaseCommand(name), bucket: bucket}
}

func (c *MediaTriggerReader) Execute(context cor.Context) {
	in, _ := context.Get(c.GetInputParam()).(string)
	object, err := cloud.ParseGCSNotification([]byte(in))
	if err != nil {
		c.Fail(context, errs.New(errs.KindInvalidRequest, c.GetName(), err))
		return
	}
	if c.bucket != "" && object.Bucket != c.bucket {
		slog.Debug("ignoring object from another bucket", "object", object.String(), "bucket", c.bucket)
		return
	}
	if object.MIMEType != "" && !strings.HasPrefix(object.MIMEType, "video/") {
		slog.Debug("ignoring non-video object", "object", object.String(), "mime_type", object.MIMEType)
		return
	}
	c.Succeed(context, object.String())
}

// Analyzer runs the analysis pipeline over a batch of videos.
type Analyzer interface {
	Analyze(ctx context.Context, paths []string) (*model.AnalysisResult, error)
}

// AnalyzeTrigger analyzes the URI on its input. The output is the
// *model.AnalysisResult.
type AnalyzeTrigger struct {
	cor.BaseCommand
	analyzer Analyzer
}

func NewAnalyzeTrigger(name string, analyzer Analyzer) *AnalyzeTrigger {
	return &AnalyzeTrigger{BaseCommand: *cor.NewBaseCommand(name), analyzer: analyzer}
}

func (c *AnalyzeTrigger) Execute(context cor.Context) {
	uri, _ := context.Get(c.GetInputParam()).(string)
	result, err := c.analyzer.Analyze(context.GetContext(), []string{uri})
	if err != nil {
		c.Fail(context, err)
		return
	}
	slog.Info("analyzed triggered video", "source", uri, "session_id", result.SessionID)
	c.Succeed(context, result)
}
