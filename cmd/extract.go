package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/procudo/contract-cli/internal/pipeline"
	"github.com/procudo/contract-cli/internal/store"
	"github.com/procudo/contract-cli/internal/textract"
	"github.com/procudo/contract-cli/pkg/anthropic"
)

var (
	extractForce   bool
	extractClients []string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract structured contract data and write the review workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := store.Open(cfg.HistoryDBPath())
		if err != nil {
			return err
		}
		defer ledger.Close()

		var converter *textract.DocConverter
		if soffice := textract.FindLibreOffice(); soffice != "" {
			converter, err = textract.NewDocConverter(soffice)
			if err != nil {
				return err
			}
			defer converter.Close()
		} else {
			zap.L().Warn("extract: LibreOffice not found, legacy .doc files will fail")
		}

		reader := textract.NewReader(nil, converter,
			filepath.Join(cfg.Paths.WorkDir, "data", "converted"))
		client := anthropic.NewClient(cfg.Extraction.APIKey)

		return pipeline.New(cfg, ledger).Extract(cmd.Context(), client, reader, pipeline.ExtractionOptions{
			Force:   extractForce,
			Clients: extractClients,
		})
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractForce, "force", false, "re-extract clients that already have a record")
	extractCmd.Flags().StringSliceVar(&extractClients, "clients", nil, "only extract these client folders")
	rootCmd.AddCommand(extractCmd)
}
