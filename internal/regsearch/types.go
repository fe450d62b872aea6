package regsearch

import "time"

// Excerpt is a stored regulation-text fragment with its embedding.
type Excerpt struct {
	ID         int64     `db:"id" json:"id"`
	Regulation string    `db:"regulation" json:"regulation"`
	Article    string    `db:"article" json:"article"`
	Text       string    `db:"text" json:"text"`
	TextHash   string    `db:"text_hash" json:"text_hash"`
	Embedding  []float32 `db:"-" json:"embedding,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Match is one similarity search result.
type Match struct {
	Excerpt    *Excerpt `json:"excerpt"`
	Similarity float32  `json:"similarity"`
	Distance   float32  `json:"distance"`
}

// SearchOptions tunes a similarity query.
type SearchOptions struct {
	Limit            int     `json:"limit"`
	MinSimilarity    float32 `json:"min_similarity"`
	RegulationFilter string  `json:"regulation_filter,omitempty"`
}

// Stats summarizes the excerpt index.
type Stats struct {
	TotalExcerpts int64            `json:"total_excerpts"`
	PerRegulation map[string]int64 `json:"per_regulation"`
}
