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

// Package commands. This file defines DescriptionGenerator, which asks the
// multimodal model for a detailed description of an active video.
package commands

import (
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
)

var ErrEmptyDescription = errors.New("model returned an empty description")

type DescriptionGenerator struct {
	cor.BaseCommand
	generativeAIModel        cloud.ContentGenerator
	prompt                   string
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

// NewDescriptionGenerator builds the command that asks the model to describe
// each uploaded video.
//
// Inputs:
//   - name: The command name used for spans and metrics.
//   - generativeAIModel: The multimodal model that receives the video part.
//   - prompt: The text sent with every video. A blank prompt uses
//     model.DefaultDescriptionPrompt.
//
// Outputs:
//   - *DescriptionGenerator: The command, with its token and retry counters
//     registered on the command meter.
func NewDescriptionGenerator(name string, generativeAIModel cloud.ContentGenerator, prompt string) *DescriptionGenerator {
	if strings.TrimSpace(prompt) == "" {
		prompt = model.DefaultDescriptionPrompt
	}
	out := &DescriptionGenerator{
		BaseCommand:       *cor.NewBaseCommand(name),
		generativeAIModel: generativeAIModel,
		prompt:            prompt,
	}
	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.retry", out.GetName()))
	return out
}

func (t *DescriptionGenerator) Execute(context cor.Context) {
	asset, _ := context.Get(t.GetInputParam()).(*model.VideoAsset)
	if asset == nil || strings.TrimSpace(asset.URI) == "" {
		t.Fail(context, errs.Newf(errs.KindInvalidVideoReference, t.GetName(), "video has no retrievable uri"))
		return
	}

	contents := cloud.NewUserContent(
		cloud.NewFileData(asset.URI, asset.MIMEType),
		cloud.NewTextPart(t.prompt),
	)
	out, err := cloud.GenerateMultiModalResponse(context.GetContext(),
		t.geminiInputTokenCounter, t.geminiOutputTokenCounter, t.geminiRetryCounter,
		t.generativeAIModel, contents)
	if err != nil {
		t.Fail(context, classify(context.GetContext(), errs.KindGeneration, t.GetName(), err))
		return
	}
	if strings.TrimSpace(out) == "" {
		t.Fail(context, errs.New(errs.KindGeneration, t.GetName(), ErrEmptyDescription))
		return
	}

	context.Add(GetDescriptionParameterName(), out)
	t.Succeed(context, out)
}
