package deepseekapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vocabtextdev/logger"
)

func connectTo(t *testing.T, url string) *DeepSeek {
	t.Helper()
	return Connect(context.Background(), DeepSeekConnectProps{
		Logger:  logger.NewWithZap(zap.NewNop()),
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "deepseek-chat",
	})
}

func TestComplete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"chatcmpl-1",
			"object":"chat.completion",
			"created":1,
			"model":"deepseek-chat",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  {\"text\":\"hi\",\"words_used\":[]}  "}}]
		}`))
	}))
	defer server.Close()

	got, err := connectTo(t, server.URL).Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"text":"hi","words_used":[]}`, got)

	assert.Equal(t, "deepseek-chat", body["model"])
	assert.InDelta(t, 0.7, body["temperature"], 1e-9)
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestCompleteSingleAttemptOnError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	_, err := connectTo(t, server.URL).Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=500")
	assert.Equal(t, 1, calls)
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"deepseek-chat","choices":[]}`))
	}))
	defer server.Close()

	_, err := connectTo(t, server.URL).Complete(context.Background(), "s", "u")
	require.Error(t, err)
}

func TestCompleteLive(t *testing.T) {
	apiKey := os.Getenv("DEEPSEEK_API_KEY")
	if apiKey == "" {
		t.Skip("DEEPSEEK_API_KEY environment variable not set, skipping test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	d := Connect(ctx, DeepSeekConnectProps{
		Logger: logger.Connect(logger.LoggerConnectProps{Production: false}),
		APIKey: apiKey,
	})

	response, err := d.Complete(ctx, "Return valid JSON only.", `Return {"text":"hello","words_used":[]}`)
	require.NoError(t, err)
	assert.NotEmpty(t, response)
	t.Logf("Response received: %s", response)
}
