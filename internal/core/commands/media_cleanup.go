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

// Package commands. This file defines MediaCleanup, which deletes an uploaded
// video from the Files service once it has been described.
package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
)

// MediaCleanup reads the asset from GetVideoAssetParameterName. A failed
// delete is logged and counted but does not fail the chain, since the
// description has already been stored.
type MediaCleanup struct {
	cor.BaseCommand
	files cloud.FileService
}

func NewMediaCleanup(name string, files cloud.FileService) *MediaCleanup {
	out := &MediaCleanup{BaseCommand: *cor.NewBaseCommand(name), files: files}
	out.InputParamName = GetVideoAssetParameterName()
	return out
}

func (v *MediaCleanup) IsExecutable(context cor.Context) bool {
	if context == nil || context.GetContext() == nil {
		return false
	}
	asset, ok := context.Get(v.GetInputParam()).(*model.VideoAsset)
	return ok && asset != nil && asset.Name != ""
}

func (v *MediaCleanup) Execute(context cor.Context) {
	asset := context.Get(v.GetInputParam()).(*model.VideoAsset)
	if _, err := v.files.Delete(context.GetContext(), asset.Name, nil); err != nil {
		v.GetErrorCounter().Add(context.GetContext(), 1)
		slog.Warn("failed to delete uploaded video", "file", asset.Name, "source", asset.SourcePath, "error", err)
		return
	}
	v.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.Debug("deleted uploaded video", "file", asset.Name)
}
