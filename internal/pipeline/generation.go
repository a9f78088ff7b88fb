package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/procudo/contract-cli/internal/atomicio"
	"github.com/procudo/contract-cli/internal/currency"
	"github.com/procudo/contract-cli/internal/extract"
	"github.com/procudo/contract-cli/internal/hr"
	"github.com/procudo/contract-cli/internal/model"
	"github.com/procudo/contract-cli/internal/render"
	"github.com/procudo/contract-cli/internal/runstate"
	"github.com/procudo/contract-cli/internal/spreadsheet"
)

// GenerationOptions configures one generation run.
type GenerationOptions struct {
	Renderer    render.Renderer
	Reader      render.DocumentReader
	DryRun      bool     // resolve and report, write nothing
	Clients     []string // restrict to these client ids; empty means all
	StartNumber int      // first annex sequence number; 0 auto-detects
}

// Generate reads the reviewed workbook and renders one annex per approved
// client. Annex numbers continue U-YY-NN numbering from whatever already
// exists in the output and source trees.
func (p *Pipeline) Generate(ctx context.Context, opts GenerationOptions) error {
	if opts.Renderer == nil && !opts.DryRun {
		return eris.New("pipeline: generation needs a renderer")
	}
	return p.runPhase(ctx, runstate.PhaseGeneration, func(ctx context.Context, runID string) (string, int, error) {
		conv, err := currency.NewConverter(p.cfg.Currency.HRKToEURRate)
		if err != nil {
			return "", 0, err
		}

		decisions, err := spreadsheet.NewReader(conv).ReadDecisions(p.cfg.WorkbookPath())
		if err != nil {
			return "", 0, err
		}
		for _, w := range decisions.Warnings {
			zap.L().Warn("pipeline: workbook warning", zap.String("warning", w))
		}
		if len(decisions.Approved) == 0 {
			return "", 0, eris.New("pipeline: no approved clients in the workbook")
		}

		recordStore, err := extract.NewStore(p.cfg.ExtractionsDir())
		if err != nil {
			return "", 0, err
		}

		now := p.now()
		seq := opts.StartNumber
		if seq <= 0 {
			seq = render.NextAnnexSeq(now, p.cfg.AnnexOutputDir(), p.cfg.Paths.Source)
		}
		defaultDate := p.defaultEffectiveDate(now)

		generated, failed := 0, 0
		for _, approved := range decisions.Approved {
			if !clientSelected(approved.ClientID, opts.Clients) {
				continue
			}

			ce, err := recordStore.Load(approved.ClientID)
			if err != nil || ce.Result == nil {
				failed++
				detail := "no extraction record"
				if err != nil {
					detail = err.Error()
				}
				p.recordClient(ctx, runID, runstate.PhaseGeneration, approved.ClientID, "failed", detail)
				zap.L().Warn("pipeline: approved client has no usable extraction",
					zap.String("client", approved.ClientID))
				continue
			}

			annexNumber := render.FormatAnnexNumber(now, seq)
			if err := p.generateOne(ctx, ce, approved, opts, conv, annexNumber, defaultDate); err != nil {
				failed++
				p.recordClient(ctx, runID, runstate.PhaseGeneration, approved.ClientID, "failed", err.Error())
				zap.L().Error("pipeline: annex generation failed",
					zap.String("client", approved.ClientID), zap.Error(err))
				continue
			}
			seq++
			generated++
			p.recordClient(ctx, runID, runstate.PhaseGeneration, approved.ClientID, "generated", annexNumber)
		}

		if generated == 0 && failed > 0 {
			return "", 0, eris.Errorf("pipeline: generation failed for all %d clients", failed)
		}
		mode := ""
		if opts.DryRun {
			mode = " (dry run)"
		}
		return fmt.Sprintf("%d annexes%s, %d failed", generated, mode, failed), failed, nil
	})
}

func (p *Pipeline) generateOne(
	ctx context.Context,
	ce *model.ClientExtraction,
	approved spreadsheet.ApprovedClient,
	opts GenerationOptions,
	conv *currency.Converter,
	annexNumber string,
	defaultDate time.Time,
) error {
	var src render.SourceData
	if opts.Reader != nil {
		src = render.ResolveSourceData(ctx, opts.Reader, p.cfg.Paths.Source, p.cfg.Company.Name, ce)
	}

	effective := defaultDate
	for _, np := range approved.NewPrices {
		if !np.EffectiveDate.IsZero() {
			effective = np.EffectiveDate
			break
		}
	}

	annex, warnings, err := render.BuildContext(ce, approved, src, p.cfg, conv, annexNumber, effective)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		zap.L().Warn("pipeline: generation warning",
			zap.String("client", ce.ClientID), zap.String("warning", w))
	}

	if opts.DryRun {
		zap.L().Info("pipeline: dry run, annex not written",
			zap.String("client", ce.ClientID),
			zap.String("annex", annexNumber),
			zap.String("monthly_fee", annex.MonthlyFee),
			zap.Int("lines", len(annex.Lines)),
		)
		return nil
	}

	data, err := opts.Renderer.Render(ctx, annex)
	if err != nil {
		return eris.Wrapf(err, "pipeline: render annex for %s", ce.ClientID)
	}
	out := filepath.Join(p.cfg.AnnexOutputDir(), fmt.Sprintf("Aneks_%s.docx", annexNumber))
	if err := atomicio.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	zap.L().Info("pipeline: annex written",
		zap.String("client", ce.ClientID), zap.String("path", out))
	return nil
}

// defaultEffectiveDate resolves the configured fallback application date; an
// unset or unparseable value means the generation date itself.
func (p *Pipeline) defaultEffectiveDate(now time.Time) time.Time {
	if raw := p.cfg.Generation.DefaultEffectiveDate; raw != "" {
		if t, ok := hr.ParseDate(raw); ok {
			return t
		}
		zap.L().Warn("pipeline: unparseable default effective date",
			zap.String("value", raw))
	}
	return now
}
