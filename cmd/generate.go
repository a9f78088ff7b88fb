package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/procudo/contract-cli/internal/pipeline"
	"github.com/procudo/contract-cli/internal/render"
	"github.com/procudo/contract-cli/internal/store"
	"github.com/procudo/contract-cli/internal/textract"
)

var (
	generateDryRun  bool
	generateClients []string
	generateStart   int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate price-update annexes for approved clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := store.Open(cfg.HistoryDBPath())
		if err != nil {
			return err
		}
		defer ledger.Close()

		var renderer render.Renderer
		if !generateDryRun {
			rc := cfg.Generation.RenderCommand
			if len(rc) == 0 {
				return eris.New("generate: generation.render_command is not configured")
			}
			renderer = render.NewExecRenderer(rc[0], rc[1:]...)
		}

		reader := textract.NewReader(nil, nil,
			filepath.Join(cfg.Paths.WorkDir, "data", "converted"))

		return pipeline.New(cfg, ledger).Generate(cmd.Context(), pipeline.GenerationOptions{
			Renderer:    renderer,
			Reader:      reader,
			DryRun:      generateDryRun,
			Clients:     generateClients,
			StartNumber: generateStart,
		})
	},
}

func init() {
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "resolve and report without writing annexes")
	generateCmd.Flags().StringSliceVar(&generateClients, "clients", nil, "only generate for these client folders")
	generateCmd.Flags().IntVar(&generateStart, "start-number", 0, "first annex sequence number (0 = continue from existing files)")
	rootCmd.AddCommand(generateCmd)
}
