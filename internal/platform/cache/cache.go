package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Cache stores JSON blobs keyed by content hash so re-ingesting the same
// file or image skips the model calls. Failures are soft: a broken cache
// degrades to recomputation, never to a pipeline error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Close() error
}

func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func FlatNodesKey(prefix, fileHash string) string {
	return prefix + ":doc:flat:" + fileHash
}

func ImageCaptionKey(prefix, imageHash string) string {
	return prefix + ":image:caption:" + imageHash
}

// GetJSON decodes a cached entry into out. A corrupt entry is a miss.
func GetJSON(ctx context.Context, c Cache, key string, out any) bool {
	if c == nil {
		return false
	}
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

func SetJSON(ctx context.Context, c Cache, key string, value any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.Set(ctx, key, raw)
}

// Noop satisfies Cache when no Redis is configured.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) ([]byte, bool) { return nil, false }
func (Noop) Set(ctx context.Context, key string, value []byte)  {}
func (Noop) Close() error                                       { return nil }
