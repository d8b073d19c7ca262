package steps

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/llm"
	"github.com/yungbote/notebook-backend/internal/platform/envutil"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type EmbedDeps struct {
	Log     *logger.Logger
	Gateway llm.Gateway
}

type EmbedInput struct {
	SourceID  uuid.UUID
	Documents []domain.Document
}

type EmbedOutput struct {
	// Vectors aligns index-for-index with Documents.
	Vectors [][]float32
	Batches int
}

// EmbedDocuments embeds every document's content in order-preserving batches
// of EMBED_BATCH_SIZE (default 128), bounded by an EMBED_MAX_TOKENS estimate
// per batch. An oversize document is embedded alone as a token-weighted
// average of its parts. Any failure fails the step.
func EmbedDocuments(ctx context.Context, deps EmbedDeps, in EmbedInput) (EmbedOutput, error) {
	out := EmbedOutput{}
	if deps.Log == nil || deps.Gateway == nil {
		return out, fmt.Errorf("embed: missing deps")
	}
	if len(in.Documents) == 0 {
		out.Vectors = [][]float32{}
		return out, nil
	}

	batchSize := envutil.Int("EMBED_BATCH_SIZE", 128)
	if batchSize < 1 {
		batchSize = 1
	}
	maxTokens := envutil.IntAllowZero("EMBED_MAX_TOKENS", 7000)

	type embedItem struct {
		Pos    int
		Text   string
		Tokens int
	}
	type embedBatch struct {
		Items    []embedItem
		Oversize bool
	}

	items := make([]embedItem, 0, len(in.Documents))
	for i, doc := range in.Documents {
		text := doc.Content
		if text == "" {
			text = " "
		}
		items = append(items, embedItem{Pos: i, Text: text, Tokens: estimateTokens(text)})
	}

	batches := make([]embedBatch, 0, (len(items)/batchSize)+1)
	cur := make([]embedItem, 0, batchSize)
	curTokens := 0
	for _, it := range items {
		if maxTokens > 0 && it.Tokens > maxTokens {
			if len(cur) > 0 {
				batches = append(batches, embedBatch{Items: cur})
				cur = make([]embedItem, 0, batchSize)
				curTokens = 0
			}
			batches = append(batches, embedBatch{Items: []embedItem{it}, Oversize: true})
			continue
		}
		if len(cur) >= batchSize || (maxTokens > 0 && curTokens+it.Tokens > maxTokens && len(cur) > 0) {
			batches = append(batches, embedBatch{Items: cur})
			cur = make([]embedItem, 0, batchSize)
			curTokens = 0
		}
		cur = append(cur, it)
		curTokens += it.Tokens
	}
	if len(cur) > 0 {
		batches = append(batches, embedBatch{Items: cur})
	}

	vectors := make([][]float32, len(in.Documents))
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		if batch.Oversize {
			it := batch.Items[0]
			vec, err := embedOversize(ctx, deps, it.Text, maxTokens)
			if err != nil {
				return out, fmt.Errorf("embed: oversize document %d: %w", it.Pos, err)
			}
			vectors[it.Pos] = vec
			continue
		}

		texts := make([]string, len(batch.Items))
		for i, it := range batch.Items {
			texts[i] = it.Text
		}
		vecs, err := deps.Gateway.Embed(ctx, texts)
		if err != nil {
			return out, fmt.Errorf("embed: %w", err)
		}
		if len(vecs) != len(batch.Items) {
			return out, fmt.Errorf("embed: embedding count mismatch (got %d want %d)", len(vecs), len(batch.Items))
		}
		for i, it := range batch.Items {
			if len(vecs[i]) == 0 {
				return out, fmt.Errorf("embed: empty embedding for document %d", it.Pos)
			}
			vectors[it.Pos] = vecs[i]
		}
	}

	out.Vectors = vectors
	out.Batches = len(batches)
	deps.Log.Info("Embedded documents",
		"source_id", in.SourceID.String(),
		"documents", len(in.Documents),
		"batches", len(batches),
	)
	return out, nil
}

// embedOversize splits the text at the token ceiling and returns the
// token-weighted average of the part vectors.
func embedOversize(ctx context.Context, deps EmbedDeps, text string, maxTokens int) ([]float32, error) {
	parts := splitTextByTokens(text, maxTokens)
	if len(parts) == 0 {
		parts = []string{text}
	}
	partVecs := make([][]float32, 0, len(parts))
	weights := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := deps.Gateway.Embed(ctx, []string{part})
		if err != nil {
			return nil, err
		}
		if len(v) != 1 || len(v[0]) == 0 {
			return nil, fmt.Errorf("embedding count mismatch (got %d want 1)", len(v))
		}
		partVecs = append(partVecs, v[0])
		weights = append(weights, float64(maxInt(estimateTokens(part), 1)))
	}
	avg := averageEmbeddingWeighted(partVecs, weights)
	if len(avg) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	if len(parts) > 1 {
		deps.Log.Warn("Split oversize document for embedding", "parts", len(parts))
	}
	return avg, nil
}

// crude token estimate (~4 chars/token English)
func estimateTokens(s string) int {
	r := []rune(s)
	return int(math.Ceil(float64(len(r)) / 4.0))
}

func splitTextByTokens(text string, maxTokens int) []string {
	if maxTokens <= 0 || estimateTokens(text) <= maxTokens {
		return []string{text}
	}
	limit := maxTokens * 4
	runes := []rune(text)
	parts := make([]string, 0, (len(runes)/limit)+1)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

func averageEmbeddingWeighted(vecs [][]float32, weights []float64) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	dim := len(vecs[0])
	if dim == 0 {
		return nil
	}
	acc := make([]float64, dim)
	var total float64
	for i, v := range vecs {
		if len(v) != dim {
			continue
		}
		w := 1.0
		if i < len(weights) && weights[i] > 0 {
			w = weights[i]
		}
		total += w
		for j, f := range v {
			acc[j] += float64(f) * w
		}
	}
	if total <= 0 {
		out := make([]float32, dim)
		copy(out, vecs[0])
		return out
	}
	out := make([]float32, dim)
	for i := range acc {
		out[i] = float32(acc[i] / total)
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
