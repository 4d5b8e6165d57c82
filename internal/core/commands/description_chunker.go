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
	"github.com/jaycherian/gcp-go-video-chat/internal/core/chunking"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
)

// DescriptionChunker splits the description on its input into chunks, each
// tagged with the submitted source path.
type DescriptionChunker struct {
	cor.BaseCommand
	splitter *chunking.RecursiveCharacterSplitter
}

func NewDescriptionChunker(name string, splitter *chunking.RecursiveCharacterSplitter) *DescriptionChunker {
	return &DescriptionChunker{BaseCommand: *cor.NewBaseCommand(name), splitter: splitter}
}

func (c *DescriptionChunker) Execute(context cor.Context) {
	description, _ := context.Get(c.GetInputParam()).(string)
	source, _ := context.Get(GetSourcePathParameterName()).(string)

	chunks := c.splitter.Split(description, source)
	if len(chunks) == 0 {
		c.Fail(context, errs.Newf(errs.KindEmptyChunks, c.GetName(), "description of %s produced no chunks", source))
		return
	}
	c.Succeed(context, chunks)
}
