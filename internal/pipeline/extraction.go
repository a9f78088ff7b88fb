package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/procudo/contract-cli/internal/extract"
	"github.com/procudo/contract-cli/internal/hr"
	"github.com/procudo/contract-cli/internal/inventory"
	"github.com/procudo/contract-cli/internal/runstate"
	"github.com/procudo/contract-cli/internal/spreadsheet"
	"github.com/procudo/contract-cli/pkg/anthropic"
)

// ExtractionOptions configures one extraction run.
type ExtractionOptions struct {
	Force   bool     // re-extract clients that already have a record
	Clients []string // restrict to these client ids; empty means all
}

// Extract runs the extraction collaborator over every extractable client and
// writes the review workbook. Per-client failures are counted, never fatal;
// the phase fails only when no client could be processed at all.
func (p *Pipeline) Extract(ctx context.Context, client anthropic.Client, reader extract.DocumentReader, opts ExtractionOptions) error {
	return p.runPhase(ctx, runstate.PhaseExtraction, func(ctx context.Context, runID string) (string, int, error) {
		inv, err := inventory.Load(p.cfg.InventoryPath())
		if err != nil {
			return "", 0, eris.Wrap(err, "pipeline: extraction needs a completed setup")
		}

		recordStore, err := extract.NewStore(p.cfg.ExtractionsDir())
		if err != nil {
			return "", 0, err
		}

		var jobs []extract.Job
		for _, c := range inv.ExtractableClients() {
			if !clientSelected(c.ClientID, opts.Clients) {
				continue
			}
			jobs = append(jobs, extract.Job{
				ClientID:   c.ClientID,
				FolderName: c.FolderName,
				SourcePath: filepath.Join(p.cfg.Paths.Source, c.Chain.LatestValidDocument),
				SourceFile: c.Chain.LatestValidDocument,
			})
		}
		if len(jobs) == 0 {
			return "", 0, eris.New("pipeline: no extractable clients selected")
		}

		runner := extract.NewRunner(client, reader, recordStore, extract.Options{
			Model:          p.cfg.Extraction.Model,
			MaxTokens:      p.cfg.Extraction.MaxTokens,
			MaxConcurrent:  p.cfg.Extraction.MaxConcurrent,
			RequestsPerSec: p.cfg.Extraction.RequestsPerSec,
			RequestTimeout: p.cfg.Extraction.Timeout(),
			UseBatchAPI:    p.cfg.Extraction.UseBatchAPI,
			BatchThreshold: p.cfg.Extraction.BatchThreshold,
			Force:          opts.Force,
		})
		summary, err := runner.Run(ctx, jobs)
		if err != nil {
			return "", 0, err
		}

		failed := map[string]bool{}
		for _, id := range summary.FailedIDs {
			failed[id] = true
			p.recordClient(ctx, runID, runstate.PhaseExtraction, id, "failed", "")
		}
		for _, job := range jobs {
			if !failed[job.ClientID] {
				p.recordClient(ctx, runID, runstate.PhaseExtraction, job.ClientID, "completed", "")
			}
		}

		if summary.Completed == 0 && summary.Skipped == 0 {
			return "", 0, eris.Errorf("pipeline: extraction failed for all %d clients", summary.Failed)
		}

		extractions, err := recordStore.LoadAll()
		if err != nil {
			return "", 0, err
		}
		writer := spreadsheet.NewWriter(p.cfg.Currency.HRKToEURRate)
		if err := writer.Write(p.cfg.WorkbookPath(), extractions, inv); err != nil {
			return "", 0, err
		}

		detail := fmt.Sprintf("%d completed, %d failed, %d skipped",
			summary.Completed, summary.Failed, summary.Skipped)
		zap.L().Info("pipeline: extraction finished",
			zap.String("run", runID),
			zap.String("workbook", p.cfg.WorkbookPath()),
			zap.String("summary", detail),
		)
		return detail, summary.Failed, nil
	})
}

// clientSelected matches a client id against a user-supplied filter,
// case-insensitive and NFC-normalized.
func clientSelected(clientID string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	want := strings.ToLower(hr.NFC(clientID))
	for _, f := range filter {
		if strings.ToLower(hr.NFC(f)) == want {
			return true
		}
	}
	return false
}
