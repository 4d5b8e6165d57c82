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

// Package commands holds the cor.Command implementations the analysis and
// question-answering workflows are built from.
//
// Commands pass their main result through the chain's CtxIn/CtxOut piping.
// Values that later commands need out of band are also stored under the
// parameter names defined here.
package commands

import (
	"context"

	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
)

// GetSourcePathParameterName is the key of the path or gs:// URI the caller
// submitted, before any download.
func GetSourcePathParameterName() string {
	return "__SOURCE_PATH__"
}

// GetVideoAssetParameterName is the key of the active *model.VideoAsset.
func GetVideoAssetParameterName() string {
	return "__VIDEO_ASSET__"
}

// GetDescriptionParameterName is the key of the generated description.
func GetDescriptionParameterName() string {
	return "__DESCRIPTION__"
}

// GetNamespaceParameterName is the key of the session's vector namespace.
func GetNamespaceParameterName() string {
	return "__NAMESPACE__"
}

// GetRetrievedContextParameterName is the key of the *model.RetrievedContext.
func GetRetrievedContextParameterName() string {
	return "__RETRIEVED_CONTEXT__"
}

// GetSessionParameterName is the key of the *model.Session being analyzed.
func GetSessionParameterName() string {
	return "__SESSION__"
}

// classify wraps err as kind, or as KindCanceled when the Go context is
// already done.
func classify(ctx context.Context, kind errs.Kind, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errs.New(errs.KindCanceled, op, ctxErr)
	}
	return errs.New(kind, op, err)
}

func namespaceOf(context cor.Context) (string, bool) {
	ns, ok := context.Get(GetNamespaceParameterName()).(string)
	return ns, ok && ns != ""
}
