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

package cli

import (
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-video-chat/internal/store"
	"github.com/spf13/cobra"
)

var errNoDatabase = errors.New("DATABASE_URL is not set")

func migrateCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the pgvector schema",
	}

	databaseURL := func(cmd *cobra.Command) (string, error) {
		config, err := o.config(cmd)
		if err != nil {
			return "", err
		}
		if config.VectorStore.DatabaseURL == "" {
			return "", errNoDatabase
		}
		return config.VectorStore.DatabaseURL, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL(cmd)
			if err != nil {
				return err
			}
			if err := store.Migrate(url); err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), map[string]string{"status": "up"}, "migrations applied")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL(cmd)
			if err != nil {
				return err
			}
			if err := store.MigrateDown(url); err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), map[string]string{"status": "down"}, "migrations rolled back")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := store.MigrationVersion(url)
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(),
				map[string]any{"version": version, "dirty": dirty},
				fmt.Sprintf("version %d (dirty: %t)", version, dirty))
		},
	})
	return cmd
}
