package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"assoc-quiz-service/internal/config"
	"assoc-quiz-service/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewImportCmd imports an experiment session file.
func NewImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an experiment session (YAML or JSON)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath, file, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the session file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runImport(ctx context.Context, configPath, file string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	batch, err := loadBatch(file)
	if err != nil {
		return err
	}

	b, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	release, err := b.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	report, err := b.importer.Persist(ctx, batch)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// loadBatch reads a session file; JSON documents parse as YAML too.
func loadBatch(path string) (domain.ImportBatch, error) {
	var batch domain.ImportBatch
	data, err := os.ReadFile(path)
	if err != nil {
		return batch, err
	}
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return batch, fmt.Errorf("parse %s: %w", path, err)
	}
	return batch, nil
}
