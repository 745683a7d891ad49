package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"newsharvest/internal/domain"
	"newsharvest/internal/metrics"
)

// Session is one reusable connection to the LLM text service. A session is
// owned by the pool while idle and by exactly one caller while checked out.
type Session interface {
	ExtractArticles(ctx context.Context, content string) ([]domain.Candidate, error)
}

const extractSystemPrompt = `You are a news extraction assistant. The user gives you a chunk of markdown crawled from a news source. Identify every link that points to an individual article and respond with a JSON array only, no prose. Each element must be an object with fields "title", "url" and "description". Skip navigation, category and pagination links. If no articles are present, respond with [].`

type session struct {
	client        *openai.Client
	model         string
	maxTokens     int
	contextWindow int
}

func newSession(cfg PoolConfig) *session {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}

	return &session{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         cfg.Model,
		maxTokens:     cfg.MaxTokens,
		contextWindow: cfg.ContextWindow,
	}
}

// ExtractArticles sends one chunk of cleaned markdown to the model and parses
// the candidate articles from its reply. Failures are returned to the caller;
// the session itself never retries.
func (s *session) ExtractArticles(ctx context.Context, content string) ([]domain.Candidate, error) {
	content = s.truncate(content)

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
	})
	metrics.LLMCalls.Inc()
	metrics.LLMCallDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("llm completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm returned no choices")
	}

	candidates, err := parseCandidates(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse llm response: %w", err)
	}
	return candidates, nil
}

// truncate caps the chunk to the configured context window. Token budgets are
// approximated at four bytes per token, leaving room for the prompt itself.
// The cut never lands inside a multi-byte rune.
func (s *session) truncate(content string) string {
	limit := s.contextWindow * 4
	if limit <= 0 || len(content) <= limit {
		return content
	}
	for limit > 0 && !utf8.RuneStart(content[limit]) {
		limit--
	}
	return content[:limit]
}

func parseCandidates(reply string) ([]domain.Candidate, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	reply = strings.TrimSpace(reply)

	// Models occasionally wrap the array in prose; recover the array part.
	if !strings.HasPrefix(reply, "[") {
		start := strings.Index(reply, "[")
		end := strings.LastIndex(reply, "]")
		if start < 0 || end < start {
			return nil, fmt.Errorf("no JSON array in reply")
		}
		reply = reply[start : end+1]
	}

	var candidates []domain.Candidate
	if err := json.Unmarshal([]byte(reply), &candidates); err != nil {
		return nil, err
	}

	filtered := candidates[:0]
	for _, c := range candidates {
		if strings.TrimSpace(c.URL) == "" || strings.TrimSpace(c.Title) == "" {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered, nil
}
