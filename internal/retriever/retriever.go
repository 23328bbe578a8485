// Package retriever builds the bounded retrieval context for one
// observation: recent fragments, relevant fragments, and the author's
// stored entity.
package retriever

import (
	"context"
	"time"

	"github.com/haasonsaas/vigil/internal/memory"
	"github.com/haasonsaas/vigil/internal/observability"
	"github.com/haasonsaas/vigil/pkg/models"
)

// searchLimit is the hybrid-search fan-in per observation.
const searchLimit = 10

// recentLimit bounds the recent slice.
const recentLimit = 5

// Retriever assembles per-observation context from the memory service.
type Retriever struct {
	client *memory.Client
	logger *observability.Logger
}

// New creates a retriever.
func New(client *memory.Client, logger *observability.Logger) *Retriever {
	return &Retriever{client: client, logger: logger}
}

// Retrieve builds the context for one observation. Any failure yields a
// pass-through context with empty slices; errors are logged, never
// propagated.
//
// Similarity scores are preserved exactly as the service returns them;
// they are not clamped to [0,1].
func (r *Retriever) Retrieve(ctx context.Context, obs *models.Observation) *models.Context {
	out := models.EmptyContext()

	results, err := r.client.HybridSearch(ctx, obs.Content, searchLimit)
	if err != nil {
		r.logger.Warn(ctx, "hybrid search failed, using empty context", "error", err)
	} else {
		now := time.Now().UTC().Format(time.RFC3339)
		for _, res := range results {
			out.Relevant = append(out.Relevant, models.ContextItem{
				Content:   res.Content,
				Score:     res.Score,
				Timestamp: res.Timestamp,
			})
		}
		for i, item := range out.Relevant {
			if i >= recentLimit {
				break
			}
			if item.Timestamp == "" {
				item.Timestamp = now
			}
			out.Recent = append(out.Recent, models.ContextItem{
				Content:   item.Content,
				Timestamp: item.Timestamp,
			})
		}
	}

	entityID := "user:" + obs.AuthorID
	entity, err := r.client.GetUserEntity(ctx, entityID)
	if err != nil {
		r.logger.Warn(ctx, "user entity fetch failed", "entity_id", entityID, "error", err)
	} else {
		out.UserEntity = entity
	}

	return out
}
