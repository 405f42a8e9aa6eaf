// Package vectordb provides the Qdrant vector index adapter.
// Clean Architecture: Adapter implementing ports.VectorSearcher.
// The index is pre-populated externally; this adapter only searches it.
package vectordb

import (
	"context"
	"fmt"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/edgarchat/edgarchat/internal/domain/entities"
)

// Payload keys written by the ingestion pipeline.
const (
	payloadText      = "text"
	payloadSourceURL = "source_url"
)

// searchTimeout bounds a single nearest-neighbor query.
const searchTimeout = 10 * time.Second

// QdrantAdapter implements ports.VectorSearcher against a Qdrant collection.
type QdrantAdapter struct {
	conn       *grpc.ClientConn
	points     pb.PointsClient
	collection string
}

// NewQdrantAdapter connects to Qdrant and returns a searcher for collection.
// Returns entities.ErrConfigurationMissing when host or collection is absent.
func NewQdrantAdapter(host string, port int, collection string) (*QdrantAdapter, error) {
	if host == "" || collection == "" {
		return nil, fmt.Errorf("qdrant host/collection not configured: %w", entities.ErrConfigurationMissing)
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w: %w", entities.ErrUpstreamUnavailable, err)
	}

	return &QdrantAdapter{
		conn:       conn,
		points:     pb.NewPointsClient(conn),
		collection: collection,
	}, nil
}

// Search returns up to topK matches ranked by descending score.
// Only payload metadata is requested - vector values are never returned, so
// the numeric representation cannot leak into stored or returned state.
// An empty result set is a valid, successful outcome.
func (a *QdrantAdapter) Search(ctx context.Context, vector []float32, topK int) ([]entities.RetrievedMatch, error) {
	if topK <= 0 {
		topK = 5
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	resp, err := a.points.Search(ctx, &pb.SearchPoints{
		CollectionName: a.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		WithVectors: &pb.WithVectorsSelector{
			SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: false},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w: %w", entities.ErrUpstreamUnavailable, err)
	}

	matches := make([]entities.RetrievedMatch, len(resp.Result))
	for i, pt := range resp.Result {
		matches[i] = matchFromPoint(pt)
	}
	return matches, nil
}

// matchFromPoint extracts the retrieval metadata from a scored point.
func matchFromPoint(pt *pb.ScoredPoint) entities.RetrievedMatch {
	m := entities.RetrievedMatch{Score: float64(pt.Score)}
	if v, ok := pt.Payload[payloadText]; ok {
		m.Text = v.GetStringValue()
	}
	if v, ok := pt.Payload[payloadSourceURL]; ok {
		m.SourceURL = v.GetStringValue()
	}
	return m
}

// Close releases the underlying gRPC connection.
func (a *QdrantAdapter) Close() error {
	return a.conn.Close()
}
