package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinelwatch/internal/model"
)

func sampleWindow(n int) []model.Activity {
	samples := make([]model.Activity, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, model.Activity{
			MonitorID: "mon-1",
			Price:     decimal.NewFromInt(int64(150 + i)),
			Status:    model.StatusSuccess,
			Timestamp: time.Now().UTC(),
		})
	}
	return samples
}

func TestAnalyze(t *testing.T) {
	var gotAuth string
	var gotSamples int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/analyze", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		var payload struct {
			Samples []json.RawMessage `json:"samples"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotSamples = len(payload.Samples)

		json.NewEncoder(w).Encode(Summary{Text: "steady climb", Confidence: 0.8, Sentiment: "bullish"})
	}))
	defer server.Close()

	client := NewHTTP(HTTPOptions{Endpoint: server.URL, APIToken: "tok"}, zerolog.Nop())
	summary, err := client.Analyze(context.Background(), sampleWindow(4))
	require.NoError(t, err)

	assert.Equal(t, "steady climb", summary.Text)
	assert.Equal(t, "bullish", summary.Sentiment)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, 4, gotSamples)
}

func TestAnalyzeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTP(HTTPOptions{Endpoint: server.URL}, zerolog.Nop())
	_, err := client.Analyze(context.Background(), sampleWindow(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestAnalyzeRequiresInput(t *testing.T) {
	client := NewHTTP(HTTPOptions{Endpoint: "http://localhost:1"}, zerolog.Nop())
	_, err := client.Analyze(context.Background(), nil)
	assert.Error(t, err)

	unconfigured := NewHTTP(HTTPOptions{}, zerolog.Nop())
	_, err = unconfigured.Analyze(context.Background(), sampleWindow(1))
	assert.Error(t, err)
}
