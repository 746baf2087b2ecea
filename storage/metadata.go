package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	_ "modernc.org/sqlite"

	"pawLingo/config"
	"pawLingo/core"
)

// ErrRecordNotFound is returned for Get/Delete on an unknown id.
var ErrRecordNotFound = errors.New("video record not found")

// MetadataStore abstracts the video-metadata backend. The interpretation
// engine never touches this; handlers copy narrative/confidence into
// records after a call.
type MetadataStore interface {
	List(ctx context.Context) ([]core.VideoRecord, error)
	Get(ctx context.Context, id string) (core.VideoRecord, error)
	Save(ctx context.Context, rec core.VideoRecord) error
	Delete(ctx context.Context, id string) error
}

// OpenMetadataStore picks the backend from the STORE env var (memory,
// sqlite, postgres) and falls back to memory when a backend cannot be
// initialized.
func OpenMetadataStore(cfg *config.Config) MetadataStore {
	kind := strings.ToLower(strings.TrimSpace(os.Getenv("STORE")))
	switch kind {
	case "sqlite":
		s, err := newSQLiteMetadataStore(cfg.SQLitePath)
		if err != nil {
			fmt.Printf("Warning: Failed to initialize sqlite store (%v), falling back to memory store\n", err)
			return NewMemoryMetadataStore()
		}
		return s
	case "postgres":
		s, err := newPostgresMetadataStore(cfg.PostgresURL)
		if err != nil {
			fmt.Printf("Warning: Failed to initialize postgres store (%v), falling back to memory store\n", err)
			return NewMemoryMetadataStore()
		}
		return s
	default:
		return NewMemoryMetadataStore()
	}
}

// ---------------- Memory implementation (kept for fallback) ----------------

type MemoryMetadataStore struct {
	mu      sync.RWMutex
	records map[string]core.VideoRecord
}

func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{records: map[string]core.VideoRecord{}}
}

func (s *MemoryMetadataStore) List(_ context.Context) ([]core.VideoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.VideoRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	// newest first, id as a stable tiebreaker
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryMetadataStore) Get(_ context.Context, id string) (core.VideoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return core.VideoRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (s *MemoryMetadataStore) Save(_ context.Context, rec core.VideoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

func (s *MemoryMetadataStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrRecordNotFound
	}
	delete(s.records, id)
	return nil
}

// ---------------- SQLite implementation ----------------

const videosSchema = `
CREATE TABLE IF NOT EXISTS videos (
    id            TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    pet_name      TEXT NOT NULL DEFAULT '',
    video_url     TEXT NOT NULL,
    thumbnail_url TEXT NOT NULL DEFAULT '',
    signal_ids    TEXT NOT NULL DEFAULT '[]',
    place         TEXT NOT NULL DEFAULT '',
    interaction   TEXT NOT NULL DEFAULT '',
    object        TEXT NOT NULL DEFAULT '',
    translation   TEXT NOT NULL DEFAULT '',
    confidence    REAL NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);
`

type SQLiteMetadataStore struct {
	db *sql.DB
}

func newSQLiteMetadataStore(path string) (*SQLiteMetadataStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(videosSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteMetadataStore{db: db}, nil
}

func (s *SQLiteMetadataStore) Close() error { return s.db.Close() }

func (s *SQLiteMetadataStore) List(ctx context.Context) ([]core.VideoRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, pet_name, video_url, thumbnail_url, signal_ids,
		       place, interaction, object, translation, confidence,
		       created_at, updated_at
		FROM videos ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.VideoRecord
	for rows.Next() {
		rec, err := scanVideoRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteMetadataStore) Get(ctx context.Context, id string) (core.VideoRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, pet_name, video_url, thumbnail_url, signal_ids,
		       place, interaction, object, translation, confidence,
		       created_at, updated_at
		FROM videos WHERE id = ?`, id)
	rec, err := scanVideoRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.VideoRecord{}, ErrRecordNotFound
	}
	return rec, err
}

func (s *SQLiteMetadataStore) Save(ctx context.Context, rec core.VideoRecord) error {
	ids, err := json.Marshal(rec.SignalIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO videos
		(id, title, pet_name, video_url, thumbnail_url, signal_ids,
		 place, interaction, object, translation, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			pet_name = excluded.pet_name,
			video_url = excluded.video_url,
			thumbnail_url = excluded.thumbnail_url,
			signal_ids = excluded.signal_ids,
			place = excluded.place,
			interaction = excluded.interaction,
			object = excluded.object,
			translation = excluded.translation,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Title, rec.PetName, rec.VideoURL, rec.ThumbnailURL, string(ids),
		rec.Place, rec.Interaction, rec.Object, rec.Translation, rec.Confidence,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano), rec.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteMetadataStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM videos WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// scanVideoRow decodes one videos row; signal ids and timestamps are
// stored as text.
func scanVideoRow(scan func(dest ...any) error) (core.VideoRecord, error) {
	var rec core.VideoRecord
	var ids, createdAt, updatedAt string
	if err := scan(&rec.ID, &rec.Title, &rec.PetName, &rec.VideoURL, &rec.ThumbnailURL, &ids,
		&rec.Place, &rec.Interaction, &rec.Object, &rec.Translation, &rec.Confidence,
		&createdAt, &updatedAt); err != nil {
		return core.VideoRecord{}, err
	}
	if err := json.Unmarshal([]byte(ids), &rec.SignalIDs); err != nil {
		return core.VideoRecord{}, fmt.Errorf("decode signal_ids for %s: %w", rec.ID, err)
	}
	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return core.VideoRecord{}, fmt.Errorf("decode created_at for %s: %w", rec.ID, err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return core.VideoRecord{}, fmt.Errorf("decode updated_at for %s: %w", rec.ID, err)
	}
	return rec, nil
}

// ---------------- Postgres implementation ----------------

type PostgresMetadataStore struct {
	conn *pgx.Conn
}

func newPostgresMetadataStore(dbURL string) (*PostgresMetadataStore, error) {
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresMetadataStore{conn: conn}
	if err := s.ensureTable(); err != nil {
		conn.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *PostgresMetadataStore) ensureTable() error {
	ctx := context.Background()
	query := `
		CREATE TABLE IF NOT EXISTS videos (
			id            VARCHAR(255) PRIMARY KEY,
			title         TEXT NOT NULL,
			pet_name      TEXT NOT NULL DEFAULT '',
			video_url     TEXT NOT NULL,
			thumbnail_url TEXT NOT NULL DEFAULT '',
			signal_ids    JSONB NOT NULL DEFAULT '[]',
			place         TEXT NOT NULL DEFAULT '',
			interaction   TEXT NOT NULL DEFAULT '',
			object        TEXT NOT NULL DEFAULT '',
			translation   TEXT NOT NULL DEFAULT '',
			confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		);
	`
	if _, err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create videos table: %w", err)
	}
	return nil
}

func (s *PostgresMetadataStore) List(ctx context.Context) ([]core.VideoRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, title, pet_name, video_url, thumbnail_url, signal_ids,
		       place, interaction, object, translation, confidence,
		       created_at, updated_at
		FROM videos ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.VideoRecord
	for rows.Next() {
		var rec core.VideoRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.PetName, &rec.VideoURL, &rec.ThumbnailURL,
			&rec.SignalIDs, &rec.Place, &rec.Interaction, &rec.Object,
			&rec.Translation, &rec.Confidence, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresMetadataStore) Get(ctx context.Context, id string) (core.VideoRecord, error) {
	var rec core.VideoRecord
	err := s.conn.QueryRow(ctx, `
		SELECT id, title, pet_name, video_url, thumbnail_url, signal_ids,
		       place, interaction, object, translation, confidence,
		       created_at, updated_at
		FROM videos WHERE id = $1`, id).
		Scan(&rec.ID, &rec.Title, &rec.PetName, &rec.VideoURL, &rec.ThumbnailURL,
			&rec.SignalIDs, &rec.Place, &rec.Interaction, &rec.Object,
			&rec.Translation, &rec.Confidence, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.VideoRecord{}, ErrRecordNotFound
	}
	return rec, err
}

func (s *PostgresMetadataStore) Save(ctx context.Context, rec core.VideoRecord) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO videos
		(id, title, pet_name, video_url, thumbnail_url, signal_ids,
		 place, interaction, object, translation, confidence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			pet_name = EXCLUDED.pet_name,
			video_url = EXCLUDED.video_url,
			thumbnail_url = EXCLUDED.thumbnail_url,
			signal_ids = EXCLUDED.signal_ids,
			place = EXCLUDED.place,
			interaction = EXCLUDED.interaction,
			object = EXCLUDED.object,
			translation = EXCLUDED.translation,
			confidence = EXCLUDED.confidence,
			updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.Title, rec.PetName, rec.VideoURL, rec.ThumbnailURL, rec.SignalIDs,
		rec.Place, rec.Interaction, rec.Object, rec.Translation, rec.Confidence,
		rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (s *PostgresMetadataStore) Delete(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, "DELETE FROM videos WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}
