package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"kbretrieval/internal/ai"
	"kbretrieval/internal/app"
)

// cachedResult is the stored payload: the scored matches plus the backend
// that embedded the query they were computed against.
type cachedResult struct {
	Source  ai.EmbeddingSource `json:"source"`
	Matches []app.Match        `json:"matches"`
}

// RetrievalCache stores scored retrieval results in redis. Keys embed an
// index generation counter; Invalidate bumps the counter so every cached
// result from the previous index state becomes unreachable and ages out via
// TTL.
type RetrievalCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewRetrievalCache(client *redisv9.Client, ttl time.Duration) *RetrievalCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &RetrievalCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *RetrievalCache) GetMatches(ctx context.Context, query string, topK int, category string) ([]app.Match, ai.EmbeddingSource, bool, error) {
	key, err := c.resultKey(ctx, query, topK, category)
	if err != nil {
		return nil, "", false, err
	}
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("redis get retrieval result failed: %w", err)
	}

	var result cachedResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, "", false, fmt.Errorf("unmarshal cached retrieval result failed: %w", err)
	}
	return result.Matches, result.Source, true, nil
}

func (c *RetrievalCache) SetMatches(ctx context.Context, query string, topK int, category string, matches []app.Match, source ai.EmbeddingSource) error {
	key, err := c.resultKey(ctx, query, topK, category)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(cachedResult{Source: source, Matches: matches})
	if err != nil {
		return fmt.Errorf("marshal retrieval result failed: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set retrieval result failed: %w", err)
	}
	return nil
}

// Invalidate advances the index generation after any document write.
func (c *RetrievalCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("redis bump retrieval generation failed: %w", err)
	}
	return nil
}

func (c *RetrievalCache) resultKey(ctx context.Context, query string, topK int, category string) (string, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Result()
	if err == redisv9.Nil {
		gen = "0"
	} else if err != nil {
		return "", fmt.Errorf("redis get retrieval generation failed: %w", err)
	}
	digest := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", category, topK, query)))
	return fmt.Sprintf("kb:retrieval:%s:%x", gen, digest[:16]), nil
}

func (c *RetrievalCache) generationKey() string {
	return "kb:retrieval:generation"
}
