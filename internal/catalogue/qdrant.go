package catalogue

import (
	"context"
	"crypto/tls"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// QdrantConfig configures the connection to a Qdrant collection
// carrying the catalogue's precomputed embeddings. Connection/TLS
// handling is grounded on the reference repo's qdrant_repo.go; the
// payload shape is new (a bare UUID point ID, no stored payload — the
// catalogue entry itself lives in the InMemoryStore, so Qdrant is used
// purely as a vector index, not a document store).
type QdrantConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string
	UseTLS          bool
	VectorDimension int
}

// QdrantVectorSearcher implements VectorSearcher against a Qdrant
// collection populated offline by the index-build step.
type QdrantVectorSearcher struct {
	conn           *grpc.ClientConn
	pointsClient   pb.PointsClient
	collectClient  pb.CollectionsClient
	collectionName string
	vectorDim      int
}

func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// NewQdrantVectorSearcher dials the Qdrant gRPC endpoint. TLS is used
// automatically when an API key is set (Qdrant Cloud) or UseTLS is
// explicit; otherwise the connection is plaintext (local dev).
func NewQdrantVectorSearcher(cfg QdrantConfig) (*QdrantVectorSearcher, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	dim := cfg.VectorDimension
	if dim <= 0 {
		dim = 384 // spec.md §4.3: multilingual sentence encoder, 384-dim
	}

	var opts []grpc.DialOption
	useTLS := cfg.UseTLS || cfg.APIKey != ""
	if useTLS {
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS13})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantVectorSearcher{
		conn:           conn,
		pointsClient:   pb.NewPointsClient(conn),
		collectClient:  pb.NewCollectionsClient(conn),
		collectionName: cfg.Collection,
		vectorDim:      dim,
	}, nil
}

func (q *QdrantVectorSearcher) Close() error {
	return q.conn.Close()
}

// EnsureCollection creates the collection if it doesn't already
// exist, with the same HNSW tuning the reference repo uses.
func (q *QdrantVectorSearcher) EnsureCollection(ctx context.Context) error {
	info, err := q.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: q.collectionName})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok && size != uint64(q.vectorDim) {
			return fmt.Errorf("collection %s has vector size %d, expected %d", q.collectionName, size, q.vectorDim)
		}
		return nil
	}

	_, err = q.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(q.vectorDim),
					Distance: pb.Distance_Cosine,
				},
			},
		},
		HnswConfig: &pb.HnswConfigDiff{
			M:                 optionalUint64(16),
			EfConstruct:       optionalUint64(128),
			FullScanThreshold: optionalUint64(10000),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func optionalUint64(v uint64) *uint64 { return &v }

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	if info == nil {
		return 0, false
	}
	params := info.GetConfig().GetParams()
	if params == nil {
		return 0, false
	}
	vectors := params.GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}
	if single := vectors.GetParams(); single != nil && single.GetSize() > 0 {
		return single.GetSize(), true
	}
	return 0, false
}

// UpsertEmbedding loads one catalogue entry's precomputed embedding
// into the collection, keyed by its ecoinvent UUID. Used only by the
// (out-of-scope) offline index-build step; kept here because it is the
// natural counterpart to Search and shares the connection.
func (q *QdrantVectorSearcher) UpsertEmbedding(ctx context.Context, entryUUID string, vector []float32) error {
	points := []*pb.PointStruct{
		{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: entryUUID}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vector}},
			},
		},
	}
	_, err := q.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

// Search implements VectorSearcher.
func (q *QdrantVectorSearcher) Search(ctx context.Context, vector []float32, k int) ([]ScoredID, error) {
	resp, err := q.pointsClient.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collectionName,
		Vector:         vector,
		Limit:          uint64(k),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search qdrant: %w", err)
	}

	out := make([]ScoredID, len(resp.Result))
	for i, scored := range resp.Result {
		out[i] = ScoredID{UUID: scored.Id.GetUuid(), Score: float64(scored.Score)}
	}
	return out, nil
}
