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

package workflow_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-video-chat/internal/telemetry"
	test "github.com/jaycherian/gcp-go-video-chat/internal/testutil"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const tName = "github.com/jaycherian/gcp-go-video-chat/tests/workflow"

var logger = otelslog.NewLogger(tName)

// TestMain installs logging and the telemetry providers once for the suite.
// The test configuration disables exporting, so spans stay in process.
func TestMain(m *testing.M) {
	ctx, cancel := context.WithCancel(context.Background())

	config := test.GetConfig()
	if _, err := telemetry.SetupLogging(config.Logging.Level, ""); err != nil {
		log.Fatal(err)
	}
	shutdown, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		log.Fatal(err)
	}
	logger.InfoContext(ctx, "starting workflow tests", "runtime", os.Getenv("GCP_RUNTIME"))

	code := m.Run()

	if err := shutdown(ctx); err != nil {
		logger.WarnContext(ctx, "failed to flush telemetry", "error", err)
	}
	cancel()
	os.Exit(code)
}
