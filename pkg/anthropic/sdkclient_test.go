package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procudo/contract-cli/internal/resilience"
)

// newTestClient creates an sdkClient pointing at a local test server. SDK
// retries are off so error tests observe the first response.
func newTestClient(baseURL string) *sdkClient {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey("test-key"),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(0),
		),
	}
}

// toolUseBody is the wire shape of a forced record_contract_data response.
func toolUseBody(msgID string) map[string]any {
	return map[string]any{
		"id":   msgID,
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "tool_use", "id": "toolu_01", "name": "record_contract_data",
				"input": map[string]any{"client_name": "Alfa d.o.o.", "currency": "EUR"}},
		},
		"model":       "claude-sonnet-4-5-20250929",
		"stop_reason": "tool_use",
		"usage": map[string]any{
			"input_tokens":                1200,
			"output_tokens":               180,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     0,
		},
	}
}

func errorBody(errType, message string) map[string]any {
	return map[string]any{
		"type":  "error",
		"error": map[string]any{"type": errType, "message": message},
	}
}

func TestSDKClient_CreateMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		tools, _ := body["tools"].([]any)
		assert.Len(t, tools, 1, "request carries the forced tool")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toolUseBody("msg_test_001")) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	resp, err := client.CreateMessage(context.Background(), extractionRequest("Alfa"))
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "msg_test_001", resp.ID)
	assert.Equal(t, "tool_use", resp.StopReason)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "record_contract_data", resp.Content[0].Name)
	assert.Equal(t, int64(1200), resp.Usage.InputTokens)
}

func TestSDKClient_CreateMessage_CachedSystem(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := toolUseBody("msg_sys")
		body["usage"].(map[string]any)["cache_creation_input_tokens"] = 5000

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 4096,
		System:    BuildCachedSystemBlocks("Ti si stručnjak za analizu ugovora."),
		Messages:  []Message{{Role: "user", Content: "Ugovor o održavanju..."}},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_sys", resp.ID)
	assert.Equal(t, int64(5000), resp.Usage.CacheCreationInputTokens)
}

func TestSDKClient_CreateMessage_TransientStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(errorBody("rate_limit_error", "Rate limit exceeded")) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.CreateMessage(context.Background(), extractionRequest("Alfa"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")

	assert.True(t, resilience.IsTransient(err), "429 must be retryable")
	var te *resilience.TransientError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusTooManyRequests, te.StatusCode)
}

func TestSDKClient_CreateMessage_ServerErrorTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errorBody("api_error", "Internal server error")) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.CreateMessage(context.Background(), extractionRequest("Alfa"))
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err), "500 must be retryable")
}

func TestSDKClient_CreateMessage_PermanentErrorNotTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errorBody("invalid_request_error", "max_tokens required")) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.CreateMessage(context.Background(), extractionRequest("Alfa"))
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err), "400 must not be retried")
}

func TestSDKClient_CreateBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/batches")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                "batch_test_001",
			"type":              "message_batch",
			"processing_status": "in_progress",
			"results_url":       "",
			"request_counts": map[string]any{
				"processing": 2, "succeeded": 0, "errored": 0, "canceled": 0, "expired": 0,
			},
		})
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	resp, err := client.CreateBatch(context.Background(), BatchRequest{
		Requests: []BatchRequestItem{
			{CustomID: "Alfa", Params: extractionRequest("Alfa")},
			{CustomID: "Beta", Params: extractionRequest("Beta")},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "batch_test_001", resp.ID)
	assert.Equal(t, "in_progress", resp.ProcessingStatus)
	assert.Equal(t, int64(2), resp.RequestCounts.Processing)
}

func TestSDKClient_CreateBatch_RateLimitTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(errorBody("rate_limit_error", "Rate limit exceeded")) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.CreateBatch(context.Background(), BatchRequest{
		Requests: []BatchRequestItem{{CustomID: "Alfa", Params: extractionRequest("Alfa")}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create batch")
	assert.True(t, resilience.IsTransient(err))
}

func TestSDKClient_GetBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "batch_get_001")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                "batch_get_001",
			"type":              "message_batch",
			"processing_status": "ended",
			"results_url":       "https://api.anthropic.com/results/batch_get_001",
			"request_counts": map[string]any{
				"processing": 0, "succeeded": 5, "errored": 0, "canceled": 0, "expired": 0,
			},
		})
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	resp, err := client.GetBatch(context.Background(), "batch_get_001")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "ended", resp.ProcessingStatus)
	assert.Equal(t, int64(5), resp.RequestCounts.Succeeded)
	assert.Contains(t, resp.ResultsURL, "batch_get_001")
}

func TestSDKClient_GetBatch_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(errorBody("not_found_error", "Batch not found"))
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.GetBatch(context.Background(), "batch_nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: get batch")
	assert.False(t, resilience.IsTransient(err))
}

func TestSDKClient_GetBatchResults(t *testing.T) {
	// The results endpoint serves JSONL, one extraction per client.
	line1, _ := json.Marshal(map[string]any{
		"custom_id": "Alfa",
		"result":    map[string]any{"type": "succeeded", "message": toolUseBody("msg_r1")},
	})
	line2, _ := json.Marshal(map[string]any{
		"custom_id": "Beta",
		"result":    map[string]any{"type": "errored"},
	})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "batch_results_001")
		w.Header().Set("Content-Type", "application/x-jsonlines")
		_, _ = w.Write(append(append(line1, '\n'), append(line2, '\n')...))
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	iter, err := client.GetBatchResults(context.Background(), "batch_results_001")
	require.NoError(t, err)
	require.NotNil(t, iter)
	defer iter.Close() //nolint:errcheck

	var items []BatchResultItem
	for iter.Next() {
		items = append(items, iter.Item())
	}
	require.NoError(t, iter.Err())
	require.Len(t, items, 2)

	assert.Equal(t, "Alfa", items[0].CustomID)
	assert.Equal(t, "succeeded", items[0].Type)
	require.NotNil(t, items[0].Message)
	assert.Equal(t, "record_contract_data", items[0].Message.Content[0].Name)

	assert.Equal(t, "Beta", items[1].CustomID)
	assert.Equal(t, "errored", items[1].Type)
	assert.Nil(t, items[1].Message)
}
