package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbretrieval/internal/ai"
)

func TestFallbackEmbedDeterministic(t *testing.T) {
	first := ai.FallbackEmbed("two pieces of original recipe chicken")
	second := ai.FallbackEmbed("two pieces of original recipe chicken")
	assert.Equal(t, first, second)
	assert.Len(t, first, ai.FallbackDimensions)
}

func TestFallbackEmbedRange(t *testing.T) {
	vec := ai.FallbackEmbed("family bucket with coleslaw")
	for _, v := range vec {
		assert.GreaterOrEqual(t, v, float32(-0.5))
		assert.Less(t, v, float32(0.5))
	}
}

func TestFallbackEmbedDistinctTexts(t *testing.T) {
	a := ai.FallbackEmbed("delivery policy")
	b := ai.FallbackEmbed("refund policy")
	assert.NotEqual(t, a, b)
}

func TestEmbedWithoutRemoteBackend(t *testing.T) {
	e := ai.NewEmbedder(ai.RemoteConfig{})
	emb := e.Embed(context.Background(), "hot wings")
	assert.Equal(t, ai.SourceFallback, emb.Source)
	assert.Equal(t, ai.FallbackEmbed("hot wings"), emb.Vector)
}

func TestEmbedRemoteBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	e := ai.NewEmbedder(ai.RemoteConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "test-embed"})
	emb := e.Embed(context.Background(), "hot wings")
	assert.Equal(t, ai.SourceRemote, emb.Source)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, emb.Vector)
}

func TestEmbedFallsBackOnRemoteFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}},
		{"empty data", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[]}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			e := ai.NewEmbedder(ai.RemoteConfig{BaseURL: srv.URL, Model: "test-embed"})
			emb := e.Embed(context.Background(), "hot wings")
			assert.Equal(t, ai.SourceFallback, emb.Source)
			assert.Equal(t, ai.FallbackEmbed("hot wings"), emb.Vector)
		})
	}
}

func TestEmbedFallsBackWhenRemoteUnreachable(t *testing.T) {
	// Closed server: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	e := ai.NewEmbedder(ai.RemoteConfig{BaseURL: url, Model: "test-embed"})
	emb := e.Embed(context.Background(), "hot wings")
	assert.Equal(t, ai.SourceFallback, emb.Source)
}

func TestEmbedTruncatesRemoteInput(t *testing.T) {
	var gotInput string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotInput = body.Input
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1]}]}`))
	}))
	defer srv.Close()

	e := ai.NewEmbedder(ai.RemoteConfig{BaseURL: srv.URL, Model: "test-embed", MaxInputChars: 5})
	emb := e.Embed(context.Background(), "0123456789")
	assert.Equal(t, ai.SourceRemote, emb.Source)
	assert.Equal(t, "01234", gotInput)
}

func TestEmbedAllBatchAndFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1]},{"embedding":[2]}]}`))
	}))
	defer srv.Close()

	e := ai.NewEmbedder(ai.RemoteConfig{BaseURL: srv.URL, Model: "test-embed"})
	out := e.EmbedAll(context.Background(), []string{"a", "b"})
	require.Len(t, out, 2)
	assert.Equal(t, ai.SourceRemote, out[0].Source)
	assert.Equal(t, []float32{2}, out[1].Vector)

	// Count mismatch from the provider degrades the whole batch to fallback.
	out = e.EmbedAll(context.Background(), []string{"a", "b", "c"})
	require.Len(t, out, 3)
	for i, emb := range out {
		assert.Equal(t, ai.SourceFallback, emb.Source, "vector %d", i)
		assert.Len(t, emb.Vector, ai.FallbackDimensions)
	}
}
