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

package workflow

import (
	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
)

// VideoTriggerWorkflow is attached to a Pub/Sub listener. It takes a storage
// notification on cor.CtxIn and analyzes the finalized video in a new
// session. Notifications for other buckets or non-video objects are skipped.
type VideoTriggerWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

func (m *VideoTriggerWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

func NewVideoTriggerWorkflow(config *cloud.Config, analyzer commands.Analyzer) *VideoTriggerWorkflow {
	chain := cor.NewBaseChain("video-trigger-workflow")
	chain.AddCommand(commands.NewMediaTriggerReader("gcs-topic-listener", config.Storage.InputBucket))
	chain.AddCommand(commands.NewAnalyzeTrigger("analyze-video", analyzer))
	return &VideoTriggerWorkflow{
		BaseCommand: *cor.NewBaseCommand("video-trigger-workflow"),
		chain:       chain,
	}
}
