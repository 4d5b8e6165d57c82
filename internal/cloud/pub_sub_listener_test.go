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

package cloud_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/stretchr/testify/assert"
)

type recordPayload struct {
	cor.BaseCommand
	got string
	err error
}

func (r *recordPayload) Execute(context cor.Context) {
	r.got = context.Get(r.GetInputParam()).(string)
	if r.err != nil {
		r.Fail(context, r.err)
		return
	}
	r.Succeed(context, r.got)
}

func TestHandleMessage(t *testing.T) {
	cmd := &recordPayload{BaseCommand: *cor.NewBaseCommand("record")}
	assert.NoError(t, cloud.HandleMessage(context.Background(), cmd, []byte("payload")))
	assert.Equal(t, "payload", cmd.got)
}

func TestHandleMessageReturnsChainError(t *testing.T) {
	boom := errors.New("boom")
	cmd := &recordPayload{BaseCommand: *cor.NewBaseCommand("record"), err: boom}
	assert.ErrorIs(t, cloud.HandleMessage(context.Background(), cmd, []byte("payload")), boom)
}

func TestHandleMessageWithoutCommand(t *testing.T) {
	assert.ErrorIs(t, cloud.HandleMessage(context.Background(), nil, []byte("x")), cloud.ErrNoCommand)
}
