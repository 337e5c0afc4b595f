package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/memvecgo/internal/config"
	"github.com/Aman-CERP/memvecgo/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the process configuration file",
		Long: `Manage memvecgo.yaml, the process configuration described in
SPEC_FULL.md §6: hnsw_m, max_vectors_per_chunk, default_search_k,
text_chunk_size, text_overlap, metadata_text_preview_length,
cache_ttl_seconds, store_region, store_bucket, store_endpoint_override,
plus the Redis and document id registry wiring options. Values are
layered defaults -> file -> MEMVECGO_* environment overrides; the
overrides are applied by config.Load for every command, and no other
component reads configuration values from the environment.`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var dir string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a memvecgo.yaml with default values into --dir",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("config init: preparing %s: %w", dir, err)
			}
			path := filepath.Join(dir, "memvecgo.yaml")

			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config init: %s already exists, pass --force to overwrite", path)
				}
			}

			if err := config.Default().WriteYAML(path); err != nil {
				return fmt.Errorf("config init: %w", err)
			}
			out.Successf("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", defaultStateDir(), "directory to write memvecgo.yaml into")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing memvecgo.yaml")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (defaults + file + environment)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(dir)
			if err != nil {
				return fmt.Errorf("config show: %w", err)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("config show: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "dir", defaultStateDir(), "directory to load memvecgo.yaml from")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the path memvecgo.yaml is read from",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(dir, "memvecgo.yaml"))
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "dir", defaultStateDir(), "directory memvecgo.yaml lives in")
	return cmd
}
