package geminiapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vocabtextdev/logger"
)

func TestComplete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent"), r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"text\":\"hola\",\"words_used\":[\"hola\"]}"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	g, err := Connect(context.Background(), GeminiConnectProps{
		Logger:  logger.NewWithZap(zap.NewNop()),
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	got, err := g.Complete(context.Background(), "Expert Spanish content creator.", "Write about cats")
	require.NoError(t, err)
	assert.Equal(t, `{"text":"hola","words_used":["hola"]}`, got)

	config, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", config["responseMimeType"])
	assert.Contains(t, body, "systemInstruction")
}

func TestCompleteEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	g, err := Connect(context.Background(), GeminiConnectProps{
		Logger:  logger.NewWithZap(zap.NewNop()),
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	_, err = g.Complete(context.Background(), "s", "u")
	require.Error(t, err)
}
