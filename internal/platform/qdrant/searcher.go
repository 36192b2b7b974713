package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	"github.com/medforge/cardgen/internal/classify"
	"github.com/medforge/cardgen/internal/config"
)

// Payload keys stored with every topic point.
const (
	payloadTopicID = "topic_id"
	payloadExamID  = "exam_id"
	payloadTitle   = "title"
)

// ErrNoQueryVector is returned when a search is attempted without a dense
// vector. The classification service degrades to keyword scoring when it
// sees a searcher error, so embedding outages reduce quality rather than
// break classification.
var ErrNoQueryVector = errors.New("hybrid search requires a query vector")

// TopicPoint is one taxonomy topic stored in the collection.
type TopicPoint struct {
	// PointID is the Qdrant point UUID.
	PointID string
	// TopicID is the taxonomy node ID carried in the payload.
	TopicID string
	ExamID  string
	Title   string
	Vector  []float32
}

// TopicSearcher implements the classification service's HybridSearcher
// over a Qdrant collection. Scores are cosine similarities of the dense
// query vector; lexical blending happens in the classification service.
type TopicSearcher struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger
}

var _ classify.HybridSearcher = (*TopicSearcher)(nil)

// NewTopicSearcher creates a searcher over the configured collection.
func NewTopicSearcher(cfg config.QdrantConfig, logger *slog.Logger) (*TopicSearcher, error) {
	if cfg.Host == "" {
		return nil, errors.New("qdrant host cannot be empty")
	}
	if cfg.Collection == "" {
		return nil, errors.New("qdrant collection cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	port := cfg.Port
	if port == 0 {
		port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &TopicSearcher{
		client:     client,
		collection: cfg.Collection,
		logger:     logger.With(slog.String("component", "topic_searcher")),
	}, nil
}

// HybridSearch implements classify.HybridSearcher. It runs a dense query
// against the topic collection, optionally filtered by exam, and returns
// per-topic similarity scores.
func (s *TopicSearcher) HybridSearch(ctx context.Context, queryText string, queryVector []float32, topK uint64, alpha float64, examID string) ([]classify.SearchHit, error) {
	if len(queryVector) == 0 {
		return nil, ErrNoQueryVector
	}
	if topK == 0 {
		topK = 10
	}

	req := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &topK,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if examID != "" {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadExamID, examID)},
		}
	}

	points, err := s.client.Query(ctx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "topic search failed",
			slog.String("collection", s.collection),
			slog.Uint64("top_k", topK),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}

	hits := toSearchHits(points)
	s.logger.DebugContext(ctx, "topic search completed",
		slog.Int("hits", len(hits)),
		slog.Int("query_length", len(queryText)))
	return hits, nil
}

// UpsertTopics writes topic embeddings into the collection.
func (s *TopicSearcher) UpsertTopics(ctx context.Context, topics []TopicPoint) error {
	if len(topics) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(topics))
	for _, topic := range topics {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(topic.PointID),
			Vectors: qdrant.NewVectors(topic.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadTopicID: topic.TopicID,
				payloadExamID:  topic.ExamID,
				payloadTitle:   topic.Title,
			}),
		})
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("failed to upsert topics: %w", err)
	}

	s.logger.InfoContext(ctx, "upserted topic points",
		slog.String("collection", s.collection),
		slog.Int("count", len(topics)))
	return nil
}

// EnsureCollection creates the topic collection with cosine distance if it
// does not exist, and validates the vector size if it does.
func (s *TopicSearcher) EnsureCollection(ctx context.Context, vectorSize int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		}); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		s.logger.InfoContext(ctx, "collection created",
			slog.String("collection", s.collection),
			slog.Int("vector_size", vectorSize))
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}
	if info.Config == nil || info.Config.Params == nil {
		return errors.New("collection config is invalid")
	}
	vectorsConfig := info.Config.Params.GetVectorsConfig()
	if vectorsConfig == nil || vectorsConfig.GetParams() == nil {
		return errors.New("collection vectors config is invalid")
	}
	if actual := vectorsConfig.GetParams().Size; int(actual) != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d",
			vectorSize, actual)
	}
	return nil
}

// toSearchHits maps scored points to classification hits. The topic ID
// comes from the payload; points without one fall back to the point UUID.
func toSearchHits(points []*qdrant.ScoredPoint) []classify.SearchHit {
	hits := make([]classify.SearchHit, 0, len(points))
	for _, point := range points {
		topicID := ""
		if point.Payload != nil {
			if v, ok := point.Payload[payloadTopicID]; ok {
				topicID = v.GetStringValue()
			}
		}
		if topicID == "" && point.Id != nil {
			topicID = point.Id.GetUuid()
		}
		if topicID == "" {
			continue
		}
		hits = append(hits, classify.SearchHit{
			TopicID: topicID,
			Score:   float64(point.Score),
		})
	}
	return hits
}
