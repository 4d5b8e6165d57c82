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

// Package commands. This file defines MediaUpload, which hands a local video
// to the Gemini Files service and waits until the model can read it.
//
// Logic Flow:
//  1. The MIME type is sniffed from the file header, falling back to the
//     file extension.
//  2. The file is uploaded. It starts in the PROCESSING state.
//  3. cloud.WaitForActive polls with exponential backoff until ACTIVE,
//     FAILED, the activation timeout or cancellation.
//  4. The active asset is written to the output and kept under
//     GetVideoAssetParameterName for MediaCleanup.
package commands

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
	"google.golang.org/genai"
)

// ErrUnknownMIMEType is returned when neither the header nor the extension
// identifies the file.
var ErrUnknownMIMEType = errors.New("cannot determine the MIME type")

type MediaUpload struct {
	cor.BaseCommand
	files  cloud.FileService
	policy cloud.PollPolicy
}

// NewMediaUpload returns the command that uploads a video and waits for the
// file to become ACTIVE, checking its state as policy describes.
func NewMediaUpload(name string, files cloud.FileService, policy cloud.PollPolicy) *MediaUpload {
	return &MediaUpload{BaseCommand: *cor.NewBaseCommand(name), files: files, policy: policy}
}

func extensionOf(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// DetectMIMEType sniffs path, then falls back to the extension of path or
// of displayName.
func DetectMIMEType(path string, displayName string) (string, error) {
	if kind, err := filetype.MatchFile(path); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value, nil
	}
	for _, name := range []string{path, displayName} {
		ext := strings.TrimPrefix(extensionOf(name), ".")
		if ext == "" {
			continue
		}
		if kind := filetype.GetType(ext); kind != filetype.Unknown {
			return kind.MIME.Value, nil
		}
	}
	return "", ErrUnknownMIMEType
}

func (v *MediaUpload) Execute(context cor.Context) {
	ctx := context.GetContext()
	local := context.Get(v.GetInputParam()).(string)
	source, ok := context.Get(GetSourcePathParameterName()).(string)
	if !ok {
		source = local
	}
	displayName := filepath.Base(source)

	mimeType, err := DetectMIMEType(local, displayName)
	if err != nil {
		v.Fail(context, errs.Newf(errs.KindInvalidRequest, v.GetName(), "%s: %v", source, err))
		return
	}

	file, err := v.files.UploadFromPath(ctx, local, &genai.UploadFileConfig{MIMEType: mimeType, DisplayName: displayName})
	if err != nil {
		v.Fail(context, classify(ctx, errs.KindUpload, v.GetName(), err))
		return
	}

	active, err := cloud.WaitForActive(ctx, v.files, file.Name, v.policy)
	if err != nil {
		v.Fail(context, v.activationError(ctx, err))
		return
	}

	asset := model.NewVideoAsset(active, source)
	if asset.MIMEType == "" {
		asset.MIMEType = mimeType
	}
	context.Add(GetVideoAssetParameterName(), asset)
	v.Succeed(context, asset)
}

func (v *MediaUpload) activationError(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return errs.New(errs.KindCanceled, v.GetName(), err)
	case errors.Is(err, cloud.ErrFileFailed):
		return errs.New(errs.KindActivation, v.GetName(), err)
	case errors.Is(err, context.DeadlineExceeded):
		return errs.New(errs.KindActivationTimeout, v.GetName(), err)
	}
	return errs.New(errs.KindActivation, v.GetName(), err)
}
