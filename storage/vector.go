package storage

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"pawLingo/config"
	"pawLingo/core"
)

// IndexEntry is one stored interpretation, keyed by the video it belongs
// to.
type IndexEntry struct {
	VideoID    string   `json:"video_id"`
	SignalIDs  []string `json:"signal_ids"`
	Narrative  string   `json:"narrative"`
	Confidence float64  `json:"confidence"`
}

// IndexHit is one similarity-search result.
type IndexHit struct {
	VideoID    string  `json:"video_id"`
	Score      float64 `json:"score"`
	Narrative  string  `json:"narrative"`
	Confidence float64 `json:"confidence"`
}

// InterpretationIndex abstracts the similarity-search backend over
// stored interpretation narratives.
type InterpretationIndex interface {
	Upsert(entries []IndexEntry) int
	Search(query string, topK int) []IndexHit
}

// OpenInterpretationIndex picks the backend from the VECTOR_STORE env
// var (memory, pgvector, milvus). Backends that need the embedding API
// fall back to the in-memory index when no API is configured or init
// fails.
func OpenInterpretationIndex(cfg *config.Config) InterpretationIndex {
	kind := strings.ToLower(strings.TrimSpace(os.Getenv("VECTOR_STORE")))
	switch kind {
	case "pgvector":
		if !cfg.HasValidAPI() {
			config.PrintConfigInstructions()
			fmt.Println("Warning: API configuration required for pgvector index, falling back to memory index")
			return NewMemoryIndex()
		}
		s, err := newPgVectorIndex(cfg)
		if err != nil {
			fmt.Printf("Warning: Failed to initialize pgvector index (%v), falling back to memory index\n", err)
			return NewMemoryIndex()
		}
		return s
	case "milvus":
		if !cfg.HasValidAPI() {
			config.PrintConfigInstructions()
			fmt.Println("Warning: API configuration required for milvus index, falling back to memory index")
			return NewMemoryIndex()
		}
		s, err := newMilvusIndex()
		if err != nil {
			fmt.Printf("Warning: Failed to initialize milvus index (%v), falling back to memory index\n", err)
			return NewMemoryIndex()
		}
		return s
	default:
		return NewMemoryIndex()
	}
}

// ---------------- Memory implementation (kept for fallback) ----------------

type memoryDoc struct {
	entry IndexEntry
	embed map[string]float64 // term -> weight
}

type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]memoryDoc // videoID -> latest interpretation
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: map[string]memoryDoc{}}
}

func (s *MemoryIndex) Upsert(entries []IndexEntry) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range entries {
		if e.VideoID == "" || e.Narrative == "" {
			continue
		}
		s.docs[e.VideoID] = memoryDoc{entry: e, embed: embedTerms(strings.ToLower(e.Narrative))}
		count++
	}
	return count
}

func (s *MemoryIndex) Search(query string, topK int) []IndexHit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qv := embedTerms(strings.ToLower(query))
	hits := make([]IndexHit, 0, len(s.docs))
	for _, d := range s.docs {
		hits = append(hits, IndexHit{
			VideoID:    d.entry.VideoID,
			Score:      cosine(qv, d.embed),
			Narrative:  d.entry.Narrative,
			Confidence: d.entry.Confidence,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].VideoID < hits[j].VideoID
	})
	if topK <= 0 || topK > len(hits) {
		topK = min(len(hits), 5)
	}
	return hits[:topK]
}

// embedTerms builds an L2-normalized bag-of-words vector. Good enough
// for the local fallback; real embeddings live behind the API backends.
func embedTerms(text string) map[string]float64 {
	m := map[string]float64{}
	for _, t := range strings.Fields(text) {
		m[t] += 1
	}
	var sum float64
	for _, v := range m {
		sum += v * v
	}
	if sum == 0 {
		return m
	}
	norm := math.Sqrt(sum)
	for k, v := range m {
		m[k] = v / norm
	}
	return m
}

func cosine(a, b map[string]float64) float64 {
	var dot float64
	for k, va := range a {
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	return dot
}

// ---------------- Embedding client (shared by API backends) ----------------

func openaiClient() *openai.Client {
	cfg, err := config.LoadConfig()
	if err != nil {
		return openai.NewClient(os.Getenv("API_KEY"))
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

func embedText(cli *openai.Client, text string) ([]float32, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %v", err)
	}
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(cfg.EmbeddingModel),
		Input: []string{text},
	}
	resp, err := cli.CreateEmbeddings(context.Background(), req)
	if err != nil {
		return nil, fmt.Errorf("embedding API failed: %v", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return resp.Data[0].Embedding, nil
}

// ---------------- PgVector implementation ----------------

type PgVectorIndex struct {
	conn *pgx.Conn
	oa   *openai.Client
}

func newPgVectorIndex(cfg *config.Config) (*PgVectorIndex, error) {
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PgVectorIndex{conn: conn, oa: openaiClient()}
	if err := s.ensureTable(); err != nil {
		conn.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *PgVectorIndex) ensureTable() error {
	ctx := context.Background()
	if _, err := s.conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	query := `
		CREATE TABLE IF NOT EXISTS interpretations (
			id         SERIAL PRIMARY KEY,
			video_id   VARCHAR(255) UNIQUE NOT NULL,
			narrative  TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			embedding  vector(1536),
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create interpretations table: %w", err)
	}
	indexQuery := `
		CREATE INDEX IF NOT EXISTS idx_interpretations_embedding
		ON interpretations
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 10);
	`
	if _, err := s.conn.Exec(ctx, indexQuery); err != nil {
		fmt.Printf("Warning: failed to create vector index: %v\n", err)
	}
	return nil
}

func (s *PgVectorIndex) Upsert(entries []IndexEntry) int {
	if len(entries) == 0 {
		return 0
	}
	ctx := context.Background()
	successCount := 0
	for _, e := range entries {
		if e.VideoID == "" || e.Narrative == "" {
			continue
		}
		embedding, err := embedText(s.oa, strings.ToLower(e.Narrative))
		if err != nil {
			continue
		}
		vec := pgvector.NewVector(embedding)
		_, err = s.conn.Exec(ctx, `
			INSERT INTO interpretations (video_id, narrative, confidence, embedding)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (video_id)
			DO UPDATE SET
				narrative = EXCLUDED.narrative,
				confidence = EXCLUDED.confidence,
				embedding = EXCLUDED.embedding`,
			e.VideoID, e.Narrative, e.Confidence, vec)
		if err != nil {
			continue
		}
		successCount++
	}
	return successCount
}

func (s *PgVectorIndex) Search(query string, topK int) []IndexHit {
	if topK <= 0 {
		topK = 5
	}
	queryEmbedding, err := embedText(s.oa, strings.ToLower(query))
	if err != nil {
		return nil
	}
	vec := pgvector.NewVector(queryEmbedding)
	ctx := context.Background()
	rows, err := s.conn.Query(ctx, `
		SELECT video_id, narrative, confidence,
		       1 - (embedding <=> $1) as similarity
		FROM interpretations
		ORDER BY embedding <=> $1
		LIMIT $2`, vec, topK)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var hits []IndexHit
	for rows.Next() {
		var h IndexHit
		if err := rows.Scan(&h.VideoID, &h.Narrative, &h.Confidence, &h.Score); err != nil {
			continue
		}
		hits = append(hits, h)
	}
	return hits
}

// ---------------- Milvus implementation ----------------

type MilvusIndex struct {
	mc   client.Client
	coll string
	dim  int
	oa   *openai.Client
}

func newMilvusIndex() (*MilvusIndex, error) {
	addr := os.Getenv("MILVUS_ADDR")
	if addr == "" {
		addr = "localhost:19530"
	}
	username := os.Getenv("MILVUS_USERNAME")
	password := os.Getenv("MILVUS_PASSWORD")
	apiKey := os.Getenv("MILVUS_API_KEY") // For Zilliz Cloud
	coll := os.Getenv("MILVUS_COLLECTION")
	if coll == "" {
		coll = "interpretations"
	}

	mc, err := client.NewClient(context.Background(), client.Config{Address: addr, Username: username, Password: password, APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}

	s := &MilvusIndex{mc: mc, coll: coll, dim: 1536, oa: openaiClient()}
	if err := s.ensureSchemaAndIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MilvusIndex) ensureSchemaAndIndex() error {
	ctx := context.Background()
	has, err := s.mc.HasCollection(ctx, s.coll)
	if err != nil {
		return err
	}
	if !has {
		schema := entity.NewSchema()
		schema.WithField(entity.NewField().WithName("id").WithIsAutoID(true).WithIsPrimaryKey(true).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("video_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(255))
		schema.WithField(entity.NewField().WithName("narrative").WithDataType(entity.FieldTypeVarChar).WithMaxLength(4096))
		schema.WithField(entity.NewField().WithName("confidence").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))

		if err := s.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return fmt.Errorf("new hnsw index: %w", err)
	}
	if err := s.mc.CreateIndex(ctx, s.coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := s.mc.LoadCollection(ctx, s.coll, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

func (s *MilvusIndex) Upsert(entries []IndexEntry) int {
	if len(entries) == 0 {
		return 0
	}
	videoIDs := make([]string, 0, len(entries))
	narratives := make([]string, 0, len(entries))
	confidences := make([]float64, 0, len(entries))
	vectors := make([][]float32, 0, len(entries))

	for _, e := range entries {
		if e.VideoID == "" || e.Narrative == "" {
			continue
		}
		v, err := embedText(s.oa, strings.ToLower(e.Narrative))
		if err != nil {
			continue
		}
		videoIDs = append(videoIDs, e.VideoID)
		narratives = append(narratives, e.Narrative)
		confidences = append(confidences, e.Confidence)
		vectors = append(vectors, v)
	}
	if len(vectors) == 0 {
		return 0
	}

	ctx := context.Background()
	_, err := s.mc.Insert(ctx, s.coll, "",
		entity.NewColumnVarChar("video_id", videoIDs),
		entity.NewColumnVarChar("narrative", narratives),
		entity.NewColumnDouble("confidence", confidences),
		entity.NewColumnFloatVector("vector", s.dim, vectors),
	)
	if err != nil {
		return 0
	}
	return len(vectors)
}

func (s *MilvusIndex) Search(query string, topK int) []IndexHit {
	v, err := embedText(s.oa, strings.ToLower(query))
	if err != nil {
		return nil
	}
	if topK <= 0 {
		topK = 5
	}
	ctx := context.Background()
	sp, _ := entity.NewIndexHNSWSearchParam(74)
	res, err := s.mc.Search(ctx, s.coll, []string{}, "", []string{"video_id", "narrative", "confidence"}, []entity.Vector{entity.FloatVector(v)}, "vector", entity.COSINE, topK, sp)
	if err != nil {
		return nil
	}
	var hits []IndexHit
	for _, r := range res {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			var videoID, narrative string
			var confidence float64
			if c, ok := cols["video_id"].(*entity.ColumnVarChar); ok {
				data := c.Data()
				if i < len(data) {
					videoID = data[i]
				}
			}
			if c, ok := cols["narrative"].(*entity.ColumnVarChar); ok {
				data := c.Data()
				if i < len(data) {
					narrative = data[i]
				}
			}
			if c, ok := cols["confidence"].(*entity.ColumnDouble); ok {
				data := c.Data()
				if i < len(data) {
					confidence = data[i]
				}
			}
			hits = append(hits, IndexHit{VideoID: videoID, Score: float64(r.Scores[i]), Narrative: narrative, Confidence: confidence})
		}
	}
	return hits
}

// IndexEntryFromResult builds the index entry the handlers store after a
// successful interpretation.
func IndexEntryFromResult(videoID string, signalIDs []string, result *core.InterpretationResult) IndexEntry {
	return IndexEntry{
		VideoID:    videoID,
		SignalIDs:  signalIDs,
		Narrative:  result.Summary.Narrative,
		Confidence: result.Summary.Confidence,
	}
}
