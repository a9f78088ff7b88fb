package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procudo/contract-cli/internal/model"
	"github.com/procudo/contract-cli/internal/resilience"
	"github.com/procudo/contract-cli/pkg/anthropic"
)

// fakeClient returns canned tool_use responses keyed by the folder name
// embedded in the prompt.
type fakeClient struct {
	mu       sync.Mutex
	calls    int
	failFor  map[string]bool
	batches  []anthropic.BatchRequest
	batchErr error
}

func toolUseResponse(name string) *anthropic.MessageResponse {
	input, _ := json.Marshal(map[string]any{
		"client_name":   name + " d.o.o.",
		"document_type": "contract",
		"pricing_items": []any{
			map[string]any{"service_name": "Paušal", "price_raw": "300,00"},
		},
		"currency":   "EUR",
		"confidence": "high",
	})
	return &anthropic.MessageResponse{
		ID:         "msg_" + name,
		StopReason: "tool_use",
		Content: []anthropic.ContentBlock{
			{Type: "tool_use", Name: toolName, Input: input},
		},
	}
}

var folderRe = regexp.MustCompile(`client folder: "([^"]+)"`)

func folderFromRequest(req anthropic.MessageRequest) string {
	m := folderRe.FindStringSubmatch(req.Messages[0].Content)
	if m == nil {
		return ""
	}
	return m[1]
}

func (f *fakeClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	folder := folderFromRequest(req)
	if f.failFor[folder] {
		return nil, eris.New("api error")
	}
	return toolUseResponse(folder), nil
}

func (f *fakeClient) CreateBatch(_ context.Context, req anthropic.BatchRequest) (*anthropic.BatchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	f.batches = append(f.batches, req)
	return &anthropic.BatchResponse{ID: "batch_1", ProcessingStatus: "in_progress"}, nil
}

func (f *fakeClient) GetBatch(_ context.Context, batchID string) (*anthropic.BatchResponse, error) {
	return &anthropic.BatchResponse{ID: batchID, ProcessingStatus: "ended"}, nil
}

func (f *fakeClient) GetBatchResults(_ context.Context, _ string) (anthropic.BatchResultIterator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []anthropic.BatchResultItem
	for _, req := range f.batches[len(f.batches)-1].Requests {
		if f.failFor[req.CustomID] {
			items = append(items, anthropic.BatchResultItem{CustomID: req.CustomID, Type: "errored"})
			continue
		}
		items = append(items, anthropic.BatchResultItem{
			CustomID: req.CustomID,
			Type:     "succeeded",
			Message:  toolUseResponse(req.CustomID),
		})
	}
	return &fakeIterator{items: items}, nil
}

type fakeIterator struct {
	items []anthropic.BatchResultItem
	pos   int
}

func (it *fakeIterator) Next() bool {
	if it.pos >= len(it.items) {
		return false
	}
	it.pos++
	return true
}
func (it *fakeIterator) Item() anthropic.BatchResultItem { return it.items[it.pos-1] }
func (it *fakeIterator) Err() error                      { return nil }
func (it *fakeIterator) Close() error                    { return nil }

// mapReader serves document text from memory.
type mapReader struct {
	texts map[string]string
}

func (m *mapReader) Text(_ context.Context, path string) (string, error) {
	text, ok := m.texts[path]
	if !ok {
		return "", eris.Errorf("no text for %s", path)
	}
	return text, nil
}

func testJobs(names ...string) ([]Job, *mapReader) {
	reader := &mapReader{texts: map[string]string{}}
	var jobs []Job
	for _, n := range names {
		path := "/src/" + n + "/Ugovor.docx"
		reader.texts[path] = "Ugovor o održavanju za " + n
		jobs = append(jobs, Job{
			ClientID:   n,
			FolderName: n,
			SourcePath: path,
			SourceFile: n + "/Ugovor.docx",
		})
	}
	return jobs, reader
}

func TestRunnerSync(t *testing.T) {
	jobs, reader := testJobs("Alfa", "Beta")
	client := &fakeClient{}
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	runner := NewRunner(client, reader, store, Options{
		Model: "claude-sonnet-4-5-20250929", MaxTokens: 4096,
	})
	summary, err := runner.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 0, summary.Failed)

	rec, err := store.Load("Alfa")
	require.NoError(t, err)
	assert.Equal(t, model.ExtractionCompleted, rec.State)
	assert.Equal(t, "Alfa d.o.o.", rec.Result.Legal.Name)
}

func TestRunnerSyncPartialFailure(t *testing.T) {
	jobs, reader := testJobs("Alfa", "Beta", "Gama")
	client := &fakeClient{failFor: map[string]bool{"Beta": true}}
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	runner := NewRunner(client, reader, store, Options{Model: "m", MaxTokens: 1024})
	summary, err := runner.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"Beta"}, summary.FailedIDs)

	rec, err := store.Load("Beta")
	require.NoError(t, err)
	assert.Equal(t, model.ExtractionFailed, rec.State)
	assert.Contains(t, rec.Error, "api error")
}

func TestRunnerSkipsExisting(t *testing.T) {
	jobs, reader := testJobs("Alfa", "Beta")
	client := &fakeClient{}
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(completedRecord("Alfa")))

	runner := NewRunner(client, reader, store, Options{Model: "m", MaxTokens: 1024})
	summary, err := runner.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, client.calls)
}

func TestRunnerForceReextracts(t *testing.T) {
	jobs, reader := testJobs("Alfa")
	client := &fakeClient{}
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(completedRecord("Alfa")))

	runner := NewRunner(client, reader, store, Options{Model: "m", MaxTokens: 1024, Force: true})
	summary, err := runner.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 1, summary.Completed)
}

func TestRunnerRecordsUnreadableDocument(t *testing.T) {
	jobs, reader := testJobs("Alfa")
	delete(reader.texts, jobs[0].SourcePath)
	client := &fakeClient{}
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	runner := NewRunner(client, reader, store, Options{Model: "m", MaxTokens: 1024})
	summary, err := runner.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, client.calls)

	rec, err := store.Load("Alfa")
	require.NoError(t, err)
	assert.Equal(t, model.ExtractionFailed, rec.State)
}

func TestRunnerBatch(t *testing.T) {
	jobs, reader := testJobs("Alfa", "Beta", "Gama")
	client := &fakeClient{}
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	runner := NewRunner(client, reader, store, Options{
		Model: "m", MaxTokens: 1024,
		UseBatchAPI: true, BatchThreshold: 2,
	})
	summary, err := runner.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Completed)

	// First document primes the cache synchronously, the rest go by batch.
	assert.Equal(t, 1, client.calls)
	require.Len(t, client.batches, 1)
	assert.Len(t, client.batches[0].Requests, 2)
}

func TestRunnerBatchPartialFailure(t *testing.T) {
	jobs, reader := testJobs("Alfa", "Beta", "Gama")
	client := &fakeClient{failFor: map[string]bool{"Gama": true}}
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	runner := NewRunner(client, reader, store, Options{
		Model: "m", MaxTokens: 1024,
		UseBatchAPI: true, BatchThreshold: 2,
	})
	summary, err := runner.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"Gama"}, summary.FailedIDs)
}

func TestRunnerBatchSubmitFailureFallsBackToSync(t *testing.T) {
	jobs, reader := testJobs("Alfa", "Beta", "Gama")
	client := &fakeClient{batchErr: eris.New("batch unavailable")}
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	runner := NewRunner(client, reader, store, Options{
		Model: "m", MaxTokens: 1024,
		UseBatchAPI: true, BatchThreshold: 2,
	})
	summary, err := runner.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Completed)
	assert.Equal(t, 3, client.calls)
}

// blockingClient never answers; calls end only when their context expires.
type blockingClient struct {
	fakeClient
}

func (b *blockingClient) CreateMessage(ctx context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunnerRequestTimeout(t *testing.T) {
	jobs, reader := testJobs("Alfa")
	client := &blockingClient{}
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	runner := NewRunner(client, reader, store, Options{
		Model: "m", MaxTokens: 1024,
		RequestTimeout: 20 * time.Millisecond,
		Retry:          resilience.RetryConfig{MaxAttempts: 1},
	})
	summary, err := runner.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"Alfa"}, summary.FailedIDs)

	rec, err := store.Load("Alfa")
	require.NoError(t, err)
	assert.Equal(t, model.ExtractionFailed, rec.State)
	assert.Contains(t, rec.Error, "context deadline exceeded")
}
