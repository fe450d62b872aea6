package regsearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/config"
)

// Store persists regulation excerpts with pgvector embeddings and
// serves top-N similarity queries.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewStore connects to PostgreSQL and prepares the excerpt schema.
func NewStore(cfg config.SearchConfig, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	store := &Store{db: db, logger: logger}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize excerpt store: %w", err)
	}

	logger.Info("Excerpt store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns))

	return store, nil
}

func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var extensionExists bool
	query := "SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector')"
	if err := s.db.GetContext(ctx, &extensionExists, query); err != nil {
		return fmt.Errorf("failed to check pgvector extension: %w", err)
	}
	if !extensionExists {
		return fmt.Errorf("pgvector extension is not installed")
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS regulation_excerpts (
			id BIGSERIAL PRIMARY KEY,
			regulation TEXT NOT NULL,
			article TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			text_hash TEXT NOT NULL UNIQUE,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, EmbeddingDimensions)
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create regulation_excerpts table: %w", err)
	}

	return nil
}

// Insert stores one excerpt, skipping duplicates by text hash.
func (s *Store) Insert(ctx context.Context, excerpt *Excerpt) error {
	if excerpt.TextHash == "" {
		excerpt.TextHash = HashText(excerpt.Text)
	}

	query := `
		INSERT INTO regulation_excerpts (regulation, article, text, text_hash, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (text_hash) DO NOTHING
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		excerpt.Regulation,
		excerpt.Article,
		excerpt.Text,
		excerpt.TextHash,
		formatEmbedding(excerpt.Embedding),
	).Scan(&excerpt.ID, &excerpt.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil // duplicate
		}
		return fmt.Errorf("failed to insert excerpt: %w", err)
	}

	return nil
}

// SearchSimilar returns the excerpts nearest to the query embedding by
// cosine distance.
func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, options *SearchOptions) ([]Match, error) {
	if options == nil {
		options = &SearchOptions{Limit: 3}
	}
	limit := options.Limit
	if limit <= 0 {
		limit = 3
	}

	query := `
		SELECT id, regulation, article, text, text_hash, created_at,
		       1 - (embedding <=> $1) AS similarity,
		       embedding <=> $1 AS distance
		FROM regulation_excerpts`
	args := []interface{}{formatEmbedding(embedding)}

	if options.RegulationFilter != "" {
		query += " WHERE regulation = $2"
		args = append(args, options.RegulationFilter)
	}
	query += fmt.Sprintf(" ORDER BY distance ASC LIMIT %d", limit)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var e Excerpt
		var similarity, distance float32
		if err := rows.Scan(&e.ID, &e.Regulation, &e.Article, &e.Text, &e.TextHash,
			&e.CreatedAt, &similarity, &distance); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		if similarity < options.MinSimilarity {
			continue
		}
		matches = append(matches, Match{Excerpt: &e, Similarity: similarity, Distance: distance})
	}

	return matches, rows.Err()
}

// CreateIndex builds the approximate-nearest-neighbor index. Worth
// doing only once the table has real volume.
func (s *Store) CreateIndex(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS regulation_excerpts_embedding_idx
		ON regulation_excerpts
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	return nil
}

// GetStats returns index statistics.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{PerRegulation: make(map[string]int64)}

	if err := s.db.GetContext(ctx, &stats.TotalExcerpts,
		"SELECT COUNT(*) FROM regulation_excerpts"); err != nil {
		return nil, fmt.Errorf("failed to count excerpts: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx,
		"SELECT regulation, COUNT(*) FROM regulation_excerpts GROUP BY regulation")
	if err != nil {
		return nil, fmt.Errorf("failed to group excerpts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var regulation string
		var count int64
		if err := rows.Scan(&regulation, &count); err != nil {
			return nil, err
		}
		stats.PerRegulation[regulation] = count
	}

	return stats, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// HashText returns the dedup hash for an excerpt body.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// formatEmbedding renders a vector in pgvector literal syntax.
func formatEmbedding(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// maskDatabaseURL hides credentials for logging.
func maskDatabaseURL(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "<invalid-url>"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}
