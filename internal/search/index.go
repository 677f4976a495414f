package search

import (
	"context"
	"fmt"
	"time"

	"github.com/ashutoshrp06/taskmate/internal/types"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// Document is one task as the index sees it.
type Document struct {
	ID     string
	Title  string
	Text   string
	Status string
}

// Hit is a search result.
type Hit struct {
	types.TaskReference
	Score float32
}

// Index stores task embeddings in a Qdrant collection.
type Index struct {
	client     *qdrant.Client
	collection string
	dim        int
	embedder   Embedder
	logger     *zap.Logger
}

// IndexConfig holds configuration for the index.
type IndexConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dim        int
}

// NewIndex connects to Qdrant. The collection is created by EnsureCollection.
func NewIndex(cfg IndexConfig, embedder Embedder, logger *zap.Logger) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                30 * time.Second,
				Timeout:             10 * time.Second,
				PermitWithoutStream: true,
			}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w",
			cfg.Host, cfg.Port, err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Index{
		client:     client,
		collection: cfg.Collection,
		dim:        cfg.Dim,
		embedder:   embedder,
		logger:     logger,
	}, nil
}

// EnsureCollection creates the collection with cosine distance if missing.
func (ix *Index) EnsureCollection(ctx context.Context) error {
	exists, err := ix.client.CollectionExists(ctx, ix.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", ix.collection, err)
	}
	if exists {
		return nil
	}

	err = ix.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: ix.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(ix.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", ix.collection, err)
	}

	ix.logger.Info("Created Qdrant collection",
		zap.String("collection", ix.collection),
		zap.Int("dim", ix.dim))
	return nil
}

// Upsert embeds and stores documents. Point ids are the task ids, which
// are UUIDs.
func (ix *Index) Upsert(ctx context.Context, docs ...Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.embeddingText()
	}
	vecs, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed tasks: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(d.ID),
			Vectors: qdrant.NewVectors(vecs[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"title":  d.Title,
				"status": d.Status,
			}),
		}
	}

	wait := true
	if _, err := ix.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: ix.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("Qdrant upsert failed: %w", err)
	}
	return nil
}

// Delete removes a task from the index.
func (ix *Index) Delete(ctx context.Context, id string) error {
	wait := true
	if _, err := ix.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: ix.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelector(qdrant.NewID(id)),
	}); err != nil {
		return fmt.Errorf("Qdrant delete failed: %w", err)
	}
	return nil
}

// Search performs semantic search on the collection.
func (ix *Index) Search(ctx context.Context, query string, topK int, minScore float32) ([]Hit, error) {
	queryEmbedding, err := EmbedSingle(ctx, ix.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	limit := uint64(topK)
	results, err := ix.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: ix.collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: &minScore,
	})
	if err != nil {
		return nil, fmt.Errorf("Qdrant search failed: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, point := range results {
		hit := Hit{Score: point.Score}
		hit.ID = point.GetId().GetUuid()
		hit.Title = payloadString(point.Payload, "title")
		hit.Status = payloadString(point.Payload, "status")
		hits = append(hits, hit)
	}

	ix.logger.Debug("Search completed",
		zap.Int("results", len(hits)),
		zap.String("query_preview", truncateString(query, 50)),
		zap.Float32("min_score", minScore))

	return hits, nil
}

// Close releases the Qdrant connection.
func (ix *Index) Close() error {
	return ix.client.Close()
}

// CollectionName returns the configured collection name.
func (ix *Index) CollectionName() string {
	return ix.collection
}

func (d Document) embeddingText() string {
	if d.Text == "" {
		return d.Title
	}
	return d.Title + "\n" + d.Text
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if val, ok := payload[key]; ok {
		return val.GetStringValue()
	}
	return ""
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
