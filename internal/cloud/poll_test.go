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
	"time"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	test "github.com/jaycherian/gcp-go-video-chat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

var fastPoll = cloud.PollPolicy{
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	Multiplier:      1.5,
	Timeout:         time.Second,
}

func upload(t *testing.T, files *test.FakeFileService) *genai.File {
	t.Helper()
	f, err := files.UploadFromPath(context.Background(), "clip.mp4", &genai.UploadFileConfig{MIMEType: "video/mp4"})
	require.NoError(t, err)
	return f
}

func TestWaitForActive(t *testing.T) {
	files := test.NewFakeFileService()
	files.PendingPolls = 3
	f := upload(t, files)

	active, err := cloud.WaitForActive(context.Background(), files, f.Name, fastPoll)
	require.NoError(t, err)
	assert.Equal(t, genai.FileStateActive, active.State)
	assert.Equal(t, 4, files.Polls(f.Name))
}

func TestWaitForActiveFailedState(t *testing.T) {
	files := test.NewFakeFileService()
	files.FinalState = genai.FileStateFailed
	f := upload(t, files)

	_, err := cloud.WaitForActive(context.Background(), files, f.Name, fastPoll)
	assert.ErrorIs(t, err, cloud.ErrFileFailed)
	assert.Equal(t, 1, files.Polls(f.Name))
}

func TestWaitForActiveTimesOut(t *testing.T) {
	files := test.NewFakeFileService()
	files.PendingPolls = 1 << 30
	f := upload(t, files)

	policy := fastPoll
	policy.Timeout = 30 * time.Millisecond
	start := time.Now()
	_, err := cloud.WaitForActive(context.Background(), files, f.Name, policy)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitForActiveCanceled(t *testing.T) {
	files := test.NewFakeFileService()
	files.PendingPolls = 1 << 30
	f := upload(t, files)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := cloud.WaitForActive(ctx, files, f.Name, fastPoll)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWaitForActiveRetriesGetErrors(t *testing.T) {
	files := test.NewFakeFileService()
	files.GetErr = errors.New("unavailable")
	f := upload(t, files)

	policy := fastPoll
	policy.Timeout = 20 * time.Millisecond
	_, err := cloud.WaitForActive(context.Background(), files, f.Name, policy)
	assert.ErrorContains(t, err, "unavailable")
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewPollPolicy(t *testing.T) {
	p := cloud.NewPollPolicy(cloud.NewConfig().Ingestion)
	assert.Equal(t, 2*time.Second, p.InitialInterval)
	assert.Equal(t, 10*time.Second, p.MaxInterval)
	assert.Equal(t, 1.5, p.Multiplier)
	assert.Equal(t, 5*time.Minute, p.Timeout)
}
