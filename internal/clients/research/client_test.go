package research

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/vaultforge/internal/config"
)

func TestHTTP_Research_DecodesSuccessfulResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/research", r.URL.Path)
		var req researchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Quantum Gravity", req.Topic)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Result{
			Success:  true,
			Article:  "# Quantum Gravity\n\nBody.",
			Metadata: ResultMetadata{SourceCount: 3},
		})
	}))
	defer server.Close()

	client := NewHTTP(config.ResearchConfig{BaseURL: server.URL, Timeout: time.Second})
	result, err := client.Research(context.Background(), "Quantum Gravity")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Article, "Quantum Gravity")
	assert.Equal(t, 3, result.Metadata.SourceCount)
	assert.Greater(t, result.ProcessingTime, time.Duration(0))
}

func TestHTTP_Research_NonSuccessStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTP(config.ResearchConfig{BaseURL: server.URL, Timeout: time.Second})
	_, err := client.Research(context.Background(), "topic")
	assert.Error(t, err)
}

func TestHTTP_Research_MalformedJSONIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewHTTP(config.ResearchConfig{BaseURL: server.URL, Timeout: time.Second})
	_, err := client.Research(context.Background(), "topic")
	assert.Error(t, err)
}

func TestMock_Research_DerivesArticleFromTopicWhenUnconfigured(t *testing.T) {
	m := &Mock{}

	result, err := m.Research(context.Background(), "Deep Sea Vents")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Article, "Deep Sea Vents")
}

func TestMock_Research_ReturnsConfiguredResult(t *testing.T) {
	m := &Mock{Result: Result{Success: false, ErrorMessage: "no sources found"}}

	result, err := m.Research(context.Background(), "topic")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "no sources found", result.ErrorMessage)
}

func TestMock_Research_ReturnsConfiguredError(t *testing.T) {
	m := &Mock{Err: errors.New("service unavailable")}

	_, err := m.Research(context.Background(), "topic")
	assert.Error(t, err)
}
