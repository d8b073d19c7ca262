package qdrant

import (
	"context"
	"fmt"
	"strings"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

const (
	payloadSourceIDKey = "source_id"
	payloadTypeKey     = "type"

	searchHnswEf       = 128
	defaultTopK        = 10
	defaultUpsertBatch = 128
)

var waitTrue = true

// Point is one indexed document: id must be a UUID string, payload is the
// serialized document.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

type ScoredPoint struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Filter narrows a search. Zero value matches everything.
type Filter struct {
	SourceIDs []string
	Type      string
}

type VectorStore interface {
	// EnsureCollection creates the collection and its payload indexes when
	// missing, and rejects an existing collection with a mismatched dimension.
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, points []Point) error
	DeleteBySource(ctx context.Context, sourceID string) error
	Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]ScoredPoint, error)
	Close() error
}

type vectorStore struct {
	log         *logger.Logger
	cfg         Config
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	upsertBatch int
}

func NewVectorStore(log *logger.Logger, cfg Config) (VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	conn, err := grpc.NewClient(cfg.DialAddress(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, opErr("dial", OperationErrorTransportFailed, "qdrant dial failed", err)
	}

	s := &vectorStore{
		log:         log.With("service", "QdrantVectorStore"),
		cfg:         cfg,
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		upsertBatch: defaultUpsertBatch,
	}

	s.log.Info(
		"Qdrant vector store selected",
		"url", cfg.URL,
		"collection", cfg.Collection,
		"vector_dim", cfg.VectorDim,
	)
	return s, nil
}

func (s *vectorStore) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *vectorStore) EnsureCollection(ctx context.Context) error {
	const op = "ensure_collection"

	listResp, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return classifyCallError(op, "list collections failed", err)
	}

	exists := false
	for _, col := range listResp.GetCollections() {
		if col.GetName() == s.cfg.Collection {
			exists = true
			break
		}
	}

	if exists {
		info, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{
			CollectionName: s.cfg.Collection,
		})
		if err != nil {
			return classifyCallError(op, "get collection info failed", err)
		}
		size := existingVectorSize(info)
		if size != 0 && size != uint64(s.cfg.VectorDim) {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("collection %q vector size mismatch: expected=%d actual=%d",
					s.cfg.Collection, s.cfg.VectorDim, size), nil)
		}
	} else {
		_, err := s.collections.Create(ctx, &pb.CreateCollection{
			CollectionName: s.cfg.Collection,
			VectorsConfig: &pb.VectorsConfig{
				Config: &pb.VectorsConfig_Params{
					Params: &pb.VectorParams{
						Size:     uint64(s.cfg.VectorDim),
						Distance: pb.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return classifyCallError(op, "create collection failed", err)
		}
		s.log.Info("Qdrant collection created",
			"collection", s.cfg.Collection,
			"vector_dim", s.cfg.VectorDim,
		)
	}

	// Index creation is idempotent; run it on every boot so older
	// collections pick up new payload fields.
	for _, field := range []string{payloadSourceIDKey, payloadTypeKey} {
		fieldType := pb.FieldType_FieldTypeKeyword
		_, err := s.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: s.cfg.Collection,
			FieldName:      field,
			FieldType:      &fieldType,
			Wait:           &waitTrue,
		})
		if err != nil {
			return classifyCallError(op, fmt.Sprintf("create payload index %q failed", field), err)
		}
	}
	return nil
}

func existingVectorSize(info *pb.GetCollectionInfoResponse) uint64 {
	if info == nil || info.GetResult() == nil || info.GetResult().GetConfig() == nil {
		return 0
	}
	params := info.GetResult().GetConfig().GetParams()
	if params == nil {
		return 0
	}
	vectors := params.GetVectorsConfig()
	if vectors == nil || vectors.GetParams() == nil {
		return 0
	}
	return vectors.GetParams().GetSize()
}

func (s *vectorStore) Upsert(ctx context.Context, points []Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}

	converted := make([]*pb.PointStruct, 0, len(points))
	for _, p := range points {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return opErr(op, OperationErrorValidation, "point id is required", nil)
		}
		if len(p.Vector) == 0 {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("point %q has empty vector", id), nil)
		}
		if s.cfg.VectorDim > 0 && len(p.Vector) != s.cfg.VectorDim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("point %q dimension mismatch: expected=%d got=%d",
					id, s.cfg.VectorDim, len(p.Vector)), nil)
		}
		converted = append(converted, &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: id},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Vector},
				},
			},
			Payload: toQdrantPayload(p.Payload),
		})
	}

	batch := s.upsertBatch
	if batch <= 0 {
		batch = defaultUpsertBatch
	}
	for start := 0; start < len(converted); start += batch {
		end := start + batch
		if end > len(converted) {
			end = len(converted)
		}
		_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: s.cfg.Collection,
			Points:         converted[start:end],
			Wait:           &waitTrue,
		})
		if err != nil {
			return classifyCallError(op, fmt.Sprintf("upsert batch [%d:%d] failed", start, end), err)
		}
	}
	return nil
}

func (s *vectorStore) DeleteBySource(ctx context.Context, sourceID string) error {
	const op = "delete_by_source"
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return opErr(op, OperationErrorValidation, "source id is required", nil)
	}

	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{keywordCondition(payloadSourceIDKey, sourceID)},
				},
			},
		},
		Wait: &waitTrue,
	})
	if err != nil {
		return classifyCallError(op, "delete by source failed", err)
	}
	return nil
}

func (s *vectorStore) Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]ScoredPoint, error) {
	const op = "search"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if s.cfg.VectorDim > 0 && len(vector) != s.cfg.VectorDim {
		return nil, opErr(op, OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d",
				s.cfg.VectorDim, len(vector)), nil)
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	ef := uint64(searchHnswEf)
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.cfg.Collection,
		Vector:         vector,
		Limit:          uint64(topK),
		Filter:         translateFilter(filter),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		Params: &pb.SearchParams{HnswEf: &ef},
	})
	if err != nil {
		return nil, classifyCallError(op, "search failed", err)
	}

	out := make([]ScoredPoint, 0, len(resp.GetResult()))
	for _, item := range resp.GetResult() {
		out = append(out, ScoredPoint{
			ID:      pointIDString(item.GetId()),
			Score:   item.GetScore(),
			Payload: fromQdrantPayload(item.GetPayload()),
		})
	}
	return out, nil
}

func translateFilter(f Filter) *pb.Filter {
	must := make([]*pb.Condition, 0, 2)
	if strings.TrimSpace(f.Type) != "" {
		must = append(must, keywordCondition(payloadTypeKey, f.Type))
	}
	if len(f.SourceIDs) > 0 {
		must = append(must, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key: payloadSourceIDKey,
					Match: &pb.Match{
						MatchValue: &pb.Match_Keywords{
							Keywords: &pb.RepeatedStrings{Strings: f.SourceIDs},
						},
					},
				},
			},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return &pb.Filter{Must: must}
}

func keywordCondition(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func pointIDString(id *pb.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprintf("%d", id.GetNum())
}

// -------------------- payload conversion --------------------

func toQdrantPayload(in map[string]any) map[string]*pb.Value {
	if len(in) == 0 {
		return map[string]*pb.Value{}
	}
	out := make(map[string]*pb.Value, len(in))
	for k, v := range in {
		out[k] = toQdrantValue(v)
	}
	return out
}

func toQdrantValue(v any) *pb.Value {
	switch t := v.(type) {
	case nil:
		return &pb.Value{Kind: &pb.Value_NullValue{NullValue: pb.NullValue_NULL_VALUE}}
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: t}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: t}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(t)}}
	case int32:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(t)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: t}}
	case float32:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: float64(t)}}
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: t}}
	case []string:
		values := make([]*pb.Value, 0, len(t))
		for _, s := range t {
			values = append(values, toQdrantValue(s))
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}
	case []any:
		values := make([]*pb.Value, 0, len(t))
		for _, item := range t {
			values = append(values, toQdrantValue(item))
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}
	case map[string]any:
		return &pb.Value{Kind: &pb.Value_StructValue{StructValue: &pb.Struct{Fields: toQdrantPayload(t)}}}
	default:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(t)}}
	}
}

func fromQdrantPayload(in map[string]*pb.Value) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = fromQdrantValue(v)
	}
	return out
}

func fromQdrantValue(v *pb.Value) any {
	if v == nil {
		return nil
	}
	switch kind := v.GetKind().(type) {
	case *pb.Value_NullValue:
		return nil
	case *pb.Value_StringValue:
		return kind.StringValue
	case *pb.Value_BoolValue:
		return kind.BoolValue
	case *pb.Value_IntegerValue:
		return kind.IntegerValue
	case *pb.Value_DoubleValue:
		return kind.DoubleValue
	case *pb.Value_ListValue:
		values := kind.ListValue.GetValues()
		out := make([]any, 0, len(values))
		for _, item := range values {
			out = append(out, fromQdrantValue(item))
		}
		return out
	case *pb.Value_StructValue:
		return fromQdrantPayload(kind.StructValue.GetFields())
	default:
		return nil
	}
}
