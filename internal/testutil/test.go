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

// Package test provides fixtures for the test suites: the cached test
// configuration, sample notification payloads, in-memory fakes for the
// external model and file services, and a pgvector container.
package test

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
)

type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails t when err is set.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestVideoMessageText is a finalize notification for a video object.
func GetTestVideoMessageText() string {
	return `{
  "kind": "storage#object",
  "id": "video_chat_inputs/test-trailer-001.mp4/1728615848664286",
  "name": "test-trailer-001.mp4",
  "bucket": "video_chat_inputs",
  "generation": "1728615848664286",
  "contentType": "video/mp4",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "size": "259348037"
}`
}

// ConfigDir returns the repository configs directory.
func ConfigDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

// SetupOS points the configuration loader at configs/.env.test.toml.
func SetupOS() (err error) {
	if err = os.Setenv(cloud.EnvConfigFilePrefix, ConfigDir()); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig loads the test configuration once and caches it.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}
