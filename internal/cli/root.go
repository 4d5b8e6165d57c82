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

// Package cli implements videoctl, a command line front end that runs the
// analysis and question pipelines in process and manages the pgvector
// schema.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jaycherian/gcp-go-video-chat/internal/app"
	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/telemetry"
	"github.com/spf13/cobra"
)

// Loader builds the configuration from the global flags.
type Loader func(dir string, runtime string) (*cloud.Config, error)

// Builder creates the application from a configuration.
type Builder func(ctx context.Context, config *cloud.Config) (*app.App, error)

type options struct {
	configDir string
	runtime   string
	output    bool
	load      Loader
	build     Builder
}

func (o *options) config(cmd *cobra.Command) (*cloud.Config, error) {
	config, err := o.load(o.configDir, o.runtime)
	if err != nil {
		return nil, err
	}
	if _, err := telemetry.SetupLogging(config.Logging.Level, ""); err != nil {
		return nil, err
	}
	return config, nil
}

func (o *options) app(cmd *cobra.Command) (*app.App, error) {
	config, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	return o.build(cmd.Context(), config)
}

func (o *options) print(w io.Writer, v any, text string) error {
	if !o.output {
		_, err := fmt.Fprintln(w, text)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewRootCmd returns the videoctl command tree. Nil load or build use
// app.LoadConfig and app.New.
func NewRootCmd(version string, load Loader, build Builder) *cobra.Command {
	o := &options{load: load, build: build}
	if o.load == nil {
		o.load = app.LoadConfig
	}
	if o.build == nil {
		o.build = app.New
	}

	root := &cobra.Command{
		Use:   "videoctl",
		Short: "Analyze videos and ask questions about them",
		Long: `videoctl describes videos with Gemini, indexes the descriptions and
answers questions grounded in them.

Environment variables:
  GOOGLE_API_KEY   Gemini API key (required)
  OPENAI_API_KEY   OpenAI API key for embeddings and answers
  DATABASE_URL     Postgres connection string for the pgvector backend`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&o.configDir, "config-dir", "", "Directory holding the .env TOML files")
	root.PersistentFlags().StringVar(&o.runtime, "runtime", "", "Runtime override to load, e.g. local or prod")
	root.PersistentFlags().BoolVar(&o.output, "output", false, "Output as JSON")

	root.AddCommand(analyzeCmd(o))
	root.AddCommand(askCmd(o))
	root.AddCommand(migrateCmd(o))
	return root
}
