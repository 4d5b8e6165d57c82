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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jaycherian/gcp-go-video-chat/internal/app"
	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
)

// StateManager holds the process wide dependencies.
type StateManager struct {
	config *cloud.Config
	app    *app.App
}

var state = &StateManager{}

// SetupOS defaults the configuration directory and runtime when the
// environment does not set them.
func SetupOS() error {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		return os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return nil
}

// GetConfig loads the configuration once.
func GetConfig() (*cloud.Config, error) {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			return nil, fmt.Errorf("failed to setup os: %w", err)
		}
		config, err := app.LoadConfig("", "")
		if err != nil {
			return nil, err
		}
		state.config = config
	}
	return state.config, nil
}

// InitState creates the clients, stores and services and starts the
// Pub/Sub listeners.
func InitState(ctx context.Context) error {
	config, err := GetConfig()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, config)
	if err != nil {
		return err
	}
	state.app = a
	a.StartListeners(ctx)
	return nil
}
