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

// Package commands. This file defines VideoSource, which resolves a submitted
// video reference to a readable local file.
//
// Logic Flow:
//  1. A local path is checked for existence and passed on unchanged.
//  2. A gs://bucket/object URI is streamed into a temp file with the storage
//     client. The temp file is tracked on the chain context and removed when
//     the context is closed.
//  3. The submitted reference is kept under GetSourcePathParameterName so
//     later commands can name the asset after it.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
)

// VideoSource resolves a path or gs:// URI to a local file path.
type VideoSource struct {
	cor.BaseCommand
	client         *storage.Client // Nil when storage is disabled; gs:// sources are then rejected.
	tempFilePrefix string
}

func NewVideoSource(name string, client *storage.Client, tempFilePrefix string) *VideoSource {
	return &VideoSource{
		BaseCommand:    *cor.NewBaseCommand(name),
		client:         client,
		tempFilePrefix: tempFilePrefix,
	}
}

func (c *VideoSource) Execute(context cor.Context) {
	path, _ := context.Get(c.GetInputParam()).(string)
	path = strings.TrimSpace(path)
	if path == "" {
		c.Fail(context, errs.Newf(errs.KindInvalidRequest, c.GetName(), "video path is empty"))
		return
	}
	context.Add(GetSourcePathParameterName(), path)

	if cloud.IsGCSURI(path) {
		local, err := c.download(context, path)
		if err != nil {
			c.Fail(context, err)
			return
		}
		c.Succeed(context, local)
		return
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.Fail(context, errs.Newf(errs.KindInvalidRequest, c.GetName(), "video file %s does not exist", path))
		return
	case err != nil:
		c.Fail(context, errs.New(errs.KindInvalidRequest, c.GetName(), err))
		return
	case info.IsDir():
		c.Fail(context, errs.Newf(errs.KindInvalidRequest, c.GetName(), "%s is a directory", path))
		return
	}
	c.Succeed(context, path)
}

func (c *VideoSource) download(context cor.Context, uri string) (string, error) {
	obj, err := cloud.ParseGCSURI(uri)
	if err != nil {
		return "", errs.New(errs.KindInvalidRequest, c.GetName(), err)
	}
	if c.client == nil {
		return "", errs.Newf(errs.KindInvalidRequest, c.GetName(), "%s: cloud storage sources are disabled", uri)
	}

	reader, err := c.client.Bucket(obj.Bucket).Object(obj.Name).NewReader(context.GetContext())
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return "", errs.Newf(errs.KindInvalidRequest, c.GetName(), "video object %s does not exist", uri)
	}
	if err != nil {
		return "", classify(context.GetContext(), errs.KindUpload, c.GetName(), fmt.Errorf("failed to open %s: %w", uri, err))
	}
	defer func() {
		if err := reader.Close(); err != nil {
			slog.Warn("failed to close storage reader", "uri", uri, "error", err)
		}
	}()

	tempFile, err := os.CreateTemp("", c.tempFilePrefix+"*"+extensionOf(obj.Name))
	if err != nil {
		return "", errs.New(errs.KindInternal, c.GetName(), fmt.Errorf("could not create temp file: %w", err))
	}
	context.AddTempFile(tempFile.Name())

	written, err := io.Copy(tempFile, reader)
	_ = tempFile.Close()
	if err != nil {
		return "", classify(context.GetContext(), errs.KindUpload, c.GetName(), fmt.Errorf("failed to download %s after %d bytes: %w", uri, written, err))
	}
	slog.Info("downloaded video", "uri", uri, "file", tempFile.Name(), "bytes", written)
	return tempFile.Name(), nil
}
