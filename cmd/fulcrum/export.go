package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bcnelson/fulcrum-data-manager/internal/export"
	"github.com/bcnelson/fulcrum-data-manager/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newExportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored data as JSON",
	}
	cmd.AddCommand(newExportTagsCommand(a))
	return cmd
}

func newExportTagsCommand(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Write every tag with its related set names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(a.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			tags := repository.NewTagRepository(store, a.logger.Named("tags"), nil)
			doc, err := export.New(tags).Export(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := export.Write(w, doc); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			if out != "" {
				a.logger.Info("exported tags", zap.String("file", out), zap.Int("tags", len(doc.Tags)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout (e.g. "+export.FileName+")")
	return cmd
}
