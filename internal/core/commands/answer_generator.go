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
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
)

// AnswerGenerator renders the answer prompt from the *model.RetrievedContext
// on its input and returns the chat model's reply verbatim.
type AnswerGenerator struct {
	cor.BaseCommand
	chat     cloud.ChatCompleter
	template *template.Template
}

// NewAnswerGenerator parses tmpl, or model.DefaultAnswerTemplate when tmpl
// is blank.
func NewAnswerGenerator(name string, chat cloud.ChatCompleter, tmpl string) (*AnswerGenerator, error) {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = model.DefaultAnswerTemplate
	}
	t, err := template.New(name).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("invalid answer template: %w", err)
	}
	return &AnswerGenerator{BaseCommand: *cor.NewBaseCommand(name), chat: chat, template: t}, nil
}

// RenderPrompt fills the template with in.
func (a *AnswerGenerator) RenderPrompt(in *model.RetrievedContext) (string, error) {
	var buf bytes.Buffer
	if err := a.template.Execute(&buf, in); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (a *AnswerGenerator) IsExecutable(context cor.Context) bool {
	if !a.BaseCommand.IsExecutable(context) {
		return false
	}
	_, ok := context.Get(a.GetInputParam()).(*model.RetrievedContext)
	return ok
}

func (a *AnswerGenerator) Execute(context cor.Context) {
	in := context.Get(a.GetInputParam()).(*model.RetrievedContext)
	prompt, err := a.RenderPrompt(in)
	if err != nil {
		a.Fail(context, errs.New(errs.KindInternal, a.GetName(), err))
		return
	}

	answer, err := a.chat.Complete(context.GetContext(), prompt)
	if err != nil {
		a.Fail(context, classify(context.GetContext(), errs.KindGeneration, a.GetName(), err))
		return
	}
	a.Succeed(context, answer)
}
