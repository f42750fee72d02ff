package engine

// Memory is a stored record: a user-authored text with a category, a
// write timestamp, and a fixed-dimension embedding.
type Memory struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Timestamp int64     `json:"timestamp"`
	Embedding []float32 `json:"embedding"`
}

// SearchResult is a single ranked hit returned by Search.
type SearchResult struct {
	ID        string  `json:"id"`
	Content   string  `json:"content"`
	Category  string  `json:"category"`
	Score     float32 `json:"score"`
	Timestamp int64   `json:"timestamp"`
}

const (
	prefPrefix = "pref:"
	metaPrefix = "meta:"
)
