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

package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string    `json:"error"`
	Kind  errs.Kind `json:"kind"`
}

// abortWithError writes err with the status of its kind.
func abortWithError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status := kind.HttpStatus()
	if status >= 500 {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "kind", kind, "error", err)
	} else {
		slog.InfoContext(c.Request.Context(), "request rejected", "path", c.FullPath(), "kind", kind, "error", err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Kind: kind})
}
