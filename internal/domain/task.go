package domain

import (
	"time"
)

// Source is one user-configured web source to harvest articles from.
type Source struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskGroup ties one batch fetch request to its owner and member tasks.
// Membership is fixed at creation.
type TaskGroup struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TaskIDs   []string  `json:"task_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// FetchTask is the mutable state of one source-fetch as it moves through the
// pipeline. It is owned exclusively by the orchestrator goroutine running it.
type FetchTask struct {
	ID          string `json:"id"`
	TaskGroupID string `json:"task_group_id"`
	UserID      string `json:"user_id"`
	SourceID    string `json:"source_id"`
	SourceName  string `json:"source_name"`
	SourceURL   string `json:"source_url"`
	Step        Step   `json:"step"`
	Progress    int    `json:"progress"`
	Message     string `json:"message"`
	ItemsSaved  int    `json:"items_saved"`
}

// Candidate is one article the LLM identified inside a chunk of crawled
// markdown, before deduplication.
type Candidate struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// NewsItem is a deduplicated candidate with source metadata attached, ready
// for persistence.
type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	SourceID    string    `json:"source_id"`
	SourceName  string    `json:"source_name"`
	Category    string    `json:"category,omitempty"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Credential holds one user's LLM access configuration.
type Credential struct {
	UserID   string `json:"user_id"`
	APIKey   string `json:"api_key"`
	Endpoint string `json:"endpoint,omitempty"`
	Model    string `json:"model,omitempty"`
}
