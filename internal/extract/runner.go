package extract

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/procudo/contract-cli/internal/model"
	"github.com/procudo/contract-cli/internal/resilience"
	"github.com/procudo/contract-cli/pkg/anthropic"
)

// DocumentReader supplies the plain text of a contract document.
type DocumentReader interface {
	Text(ctx context.Context, path string) (string, error)
}

// Job is one extractable client.
type Job struct {
	ClientID   string
	FolderName string
	SourcePath string // absolute path to the latest valid document
	SourceFile string // path relative to the scan root, recorded for audit
}

// Options configures a Runner.
type Options struct {
	Model          string
	MaxTokens      int64
	MaxConcurrent  int
	RequestsPerSec float64
	RequestTimeout time.Duration // deadline per API call, 0 means none
	UseBatchAPI    bool
	BatchThreshold int
	Force          bool
	Retry          resilience.RetryConfig
}

// Summary tallies a run's per-client outcomes.
type Summary struct {
	Completed int
	Failed    int
	Skipped   int
	FailedIDs []string
}

// Runner drives extraction for a set of clients. One client failing is
// recorded and never aborts the others.
type Runner struct {
	client anthropic.Client
	reader DocumentReader
	store  *Store
	opts   Options
}

// NewRunner assembles a runner.
func NewRunner(client anthropic.Client, reader DocumentReader, store *Store, opts Options) *Runner {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.BatchThreshold <= 0 {
		opts.BatchThreshold = 5
	}
	return &Runner{client: client, reader: reader, store: store, opts: opts}
}

// Run extracts every job, skipping clients with a persisted record unless
// forced. Batch mode is used when enough new documents accumulate.
func (r *Runner) Run(ctx context.Context, jobs []Job) (*Summary, error) {
	summary := &Summary{}

	var pending []Job
	for _, j := range jobs {
		if !r.opts.Force && r.store.Exists(j.ClientID) {
			summary.Skipped++
			continue
		}
		pending = append(pending, j)
	}
	zap.L().Info("extract: starting run",
		zap.Int("jobs", len(jobs)),
		zap.Int("pending", len(pending)),
		zap.Int("skipped", summary.Skipped),
	)
	if len(pending) == 0 {
		return summary, nil
	}

	texts := r.readTexts(ctx, pending, summary)
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}

	if r.opts.UseBatchAPI && len(texts) >= r.opts.BatchThreshold {
		r.runBatch(ctx, texts, summary)
	} else {
		r.runSync(ctx, texts, summary)
	}

	zap.L().Info("extract: run finished",
		zap.Int("completed", summary.Completed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, ctx.Err()
}

type jobText struct {
	job  Job
	text string
}

// readTexts extracts document text locally. Read failures become persisted
// failed records immediately.
func (r *Runner) readTexts(ctx context.Context, jobs []Job, summary *Summary) []jobText {
	var out []jobText
	for _, j := range jobs {
		if ctx.Err() != nil {
			return out
		}
		text, err := r.reader.Text(ctx, j.SourcePath)
		if err != nil {
			zap.L().Warn("extract: text extraction failed",
				zap.String("client", j.ClientID),
				zap.String("file", j.SourceFile),
				zap.Error(err),
			)
			r.recordFailure(j, err, summary)
			continue
		}
		out = append(out, jobText{job: j, text: text})
	}
	return out
}

// runSync calls the Messages API one request per client, bounded by the
// concurrency limit and the request rate.
func (r *Runner) runSync(ctx context.Context, texts []jobText, summary *Summary) {
	limiter := rate.NewLimiter(rate.Limit(r.opts.RequestsPerSec), 1)
	if r.opts.RequestsPerSec <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	extractor := NewExtractor(r.client, r.opts.Model, r.opts.MaxTokens)

	results := make([]*model.ClientExtraction, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.MaxConcurrent)
	for i, jt := range texts {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			result, err := resilience.DoVal(gctx, r.opts.Retry, func(ctx context.Context) (*model.ExtractionResult, error) {
				if r.opts.RequestTimeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, r.opts.RequestTimeout)
					defer cancel()
				}
				return extractor.Extract(ctx, jt.job.ClientID, jt.job.FolderName, jt.text)
			})
			results[i] = r.buildRecord(jt.job, result, err)
			return nil
		})
	}
	// Only context cancellation propagates out of the group.
	groupErr := g.Wait()

	for _, rec := range results {
		if rec == nil {
			continue
		}
		r.saveRecord(rec, summary)
	}
	if groupErr != nil {
		zap.L().Warn("extract: sync run interrupted", zap.Error(groupErr))
	}
}

// runBatch warms the prompt cache with the first document, then submits the
// rest through the Batch API.
func (r *Runner) runBatch(ctx context.Context, texts []jobText, summary *Summary) {
	first, rest := texts[0], texts[1:]

	primerReq := buildRequest(r.opts.Model, r.opts.MaxTokens, first.job.FolderName, first.text)
	primerCtx := ctx
	if r.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		primerCtx, cancel = context.WithTimeout(ctx, r.opts.RequestTimeout)
		defer cancel()
	}
	primerResp, err := anthropic.PrimerRequest(primerCtx, r.client, primerReq)
	if err != nil {
		zap.L().Warn("extract: primer request failed, falling back to sync",
			zap.Error(err))
		r.runSync(ctx, texts, summary)
		return
	}
	primerResp.Usage.LogCost(r.opts.Model, "extraction")
	result, perr := resultFromResponse(first.job.ClientID, primerResp)
	r.saveRecord(r.buildRecord(first.job, result, perr), summary)

	if len(rest) == 0 {
		return
	}

	byID := make(map[string]Job, len(rest))
	batchReq := anthropic.BatchRequest{}
	for _, jt := range rest {
		byID[jt.job.ClientID] = jt.job
		batchReq.Requests = append(batchReq.Requests, anthropic.BatchRequestItem{
			CustomID: jt.job.ClientID,
			Params:   buildRequest(r.opts.Model, r.opts.MaxTokens, jt.job.FolderName, jt.text),
		})
	}

	batch, err := r.client.CreateBatch(ctx, batchReq)
	if err != nil {
		zap.L().Warn("extract: batch submit failed, falling back to sync", zap.Error(err))
		r.runSync(ctx, rest, summary)
		return
	}
	zap.L().Info("extract: batch submitted",
		zap.String("batch_id", batch.ID),
		zap.Int("requests", len(batchReq.Requests)),
	)

	if _, err := anthropic.PollBatch(ctx, r.client, batch.ID); err != nil {
		r.failAll(rest, err, summary)
		return
	}
	iter, err := r.client.GetBatchResults(ctx, batch.ID)
	if err != nil {
		r.failAll(rest, err, summary)
		return
	}
	collected, err := anthropic.CollectBatchResultsDetailed(iter)
	if err != nil {
		r.failAll(rest, err, summary)
		return
	}

	for id, resp := range collected.Succeeded {
		job, ok := byID[id]
		if !ok {
			zap.L().Warn("extract: batch result for unknown client", zap.String("custom_id", id))
			continue
		}
		resp.Usage.LogCost(r.opts.Model, "extraction")
		result, perr := resultFromResponse(id, resp)
		r.saveRecord(r.buildRecord(job, result, perr), summary)
		delete(byID, id)
	}
	for _, f := range collected.Failures {
		if job, ok := byID[f.CustomID]; ok {
			r.recordFailure(job, eris.Errorf("batch item %s", f.Type), summary)
			delete(byID, f.CustomID)
		}
	}
	for _, job := range byID {
		r.recordFailure(job, eris.New("missing from batch results"), summary)
	}
}

func (r *Runner) buildRecord(job Job, result *model.ExtractionResult, err error) *model.ClientExtraction {
	ce := &model.ClientExtraction{
		SchemaVersion: model.SchemaVersion,
		ClientID:      job.ClientID,
		SourceFile:    job.SourceFile,
		ExtractedAt:   time.Now(),
	}
	if err != nil {
		ce.State = model.ExtractionFailed
		ce.Error = err.Error()
		return ce
	}
	ce.State = model.ExtractionCompleted
	ce.Result = result
	return ce
}

func (r *Runner) saveRecord(ce *model.ClientExtraction, summary *Summary) {
	if err := r.store.Save(ce); err != nil {
		zap.L().Error("extract: save record", zap.String("client", ce.ClientID), zap.Error(err))
		ce.State = model.ExtractionFailed
	}
	if ce.State == model.ExtractionCompleted {
		summary.Completed++
	} else {
		summary.Failed++
		summary.FailedIDs = append(summary.FailedIDs, ce.ClientID)
	}
}

func (r *Runner) recordFailure(job Job, err error, summary *Summary) {
	r.saveRecord(r.buildRecord(job, nil, err), summary)
}

func (r *Runner) failAll(texts []jobText, err error, summary *Summary) {
	zap.L().Error("extract: batch failed", zap.Error(err))
	for _, jt := range texts {
		r.recordFailure(jt.job, err, summary)
	}
}
