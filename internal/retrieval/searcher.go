// Package retrieval answers statute queries from a single vector store using
// a short-lived file_search assistant.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ezqanoon/statute-bot/internal/assistant"
)

const (
	DefaultTopK         = 6
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = time.Second

	// NoResults is returned when the store produced no usable text.
	NoResults = "No relevant statute text found."

	searchAssistantName  = "temp_search_assistant"
	searchInstructions   = "You are a search assistant. Retrieve relevant information from the vector store."
	cleanupTimeout       = 10 * time.Second
	chunkSeparator       = "\n\n"
	unknownStatusMessage = "no status"
)

// Searcher runs one-shot file_search queries.
type Searcher struct {
	host     assistant.Host
	model    string
	topK     int
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithTopK caps the number of text chunks returned.
func WithTopK(k int) Option {
	return func(s *Searcher) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithTimeout sets the polling ceiling of a search run.
func WithTimeout(d time.Duration) Option {
	return func(s *Searcher) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPollInterval sets the wait between status checks.
func WithPollInterval(d time.Duration) Option {
	return func(s *Searcher) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSearcher creates a Searcher that registers its temporary assistants
// with the given model.
func NewSearcher(host assistant.Host, model string, opts ...Option) *Searcher {
	s := &Searcher{
		host:     host,
		model:    model,
		topK:     DefaultTopK,
		timeout:  DefaultTimeout,
		interval: DefaultPollInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search queries the vector store and returns up to topK text chunks joined
// by blank lines. It never fails: problems are reported in the returned text
// so the calling model can relay them.
func (s *Searcher) Search(ctx context.Context, vectorStoreID, query string) string {
	log := s.logger.With("vector_store_id", vectorStoreID)
	log.Info("searching vector store", "query", query)

	chunks, err := s.search(ctx, log, vectorStoreID, query)
	var failed *failedRunError
	switch {
	case errors.As(err, &failed):
		log.Warn("search run did not complete", "status", failed.status)
		return "Search failed with status: " + failed.status
	case err != nil:
		log.Error("search failed", "error", err)
		return fmt.Sprintf("Error searching vector store: %v", err)
	case len(chunks) == 0:
		log.Info("search returned no text")
		return NoResults
	}

	log.Info("search completed", "chunks", len(chunks))
	return strings.Join(chunks, chunkSeparator)
}

type failedRunError struct {
	status string
}

func (e *failedRunError) Error() string {
	return "search run ended with status " + e.status
}

func (s *Searcher) search(ctx context.Context, log *slog.Logger, vectorStoreID, query string) ([]string, error) {
	assistantID, err := s.host.CreateAssistant(ctx, assistant.AssistantSpec{
		Name:           searchAssistantName,
		Instructions:   searchInstructions,
		Model:          s.model,
		VectorStoreIDs: []string{vectorStoreID},
	})
	if err != nil {
		return nil, err
	}
	defer s.cleanup(ctx, log, assistantID, s.host.DeleteAssistant)

	threadID, err := s.host.CreateThread(ctx)
	if err != nil {
		return nil, err
	}
	defer s.cleanup(ctx, log, threadID, s.host.DeleteThread)

	if err := s.host.AddUserMessage(ctx, threadID, query); err != nil {
		return nil, err
	}
	run, err := s.host.CreateRun(ctx, threadID, assistantID)
	if err != nil {
		return nil, err
	}

	if run.Status.Pending() {
		// lastErr holds the most recent retrieve failure and is cleared by
		// the next successful retrieve.
		var lastErr error
		err = assistant.Poll(ctx, s.interval, s.timeout, func(ctx context.Context, attempt int) (bool, error) {
			next, err := s.host.RetrieveRun(ctx, threadID, run.ID)
			if err != nil {
				lastErr = err
				log.Warn("retrieve search run failed, retrying", "attempt", attempt, "error", err)
				return false, nil
			}
			lastErr = nil
			run = next
			return !run.Status.Pending(), nil
		})
		if errors.Is(err, assistant.ErrPollCeiling) && lastErr != nil {
			return nil, lastErr
		}
		if err != nil && !errors.Is(err, assistant.ErrPollCeiling) {
			return nil, err
		}
	}

	if run.Status != assistant.StatusCompleted {
		status := string(run.Status)
		if status == "" {
			status = unknownStatusMessage
		}
		return nil, &failedRunError{status: status}
	}

	messages, err := s.host.ListMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return s.collect(messages), nil
}

// collect gathers trimmed assistant text parts, newest message first.
func (s *Searcher) collect(messages []assistant.Message) []string {
	var chunks []string
	for _, m := range messages {
		if m.Role != assistant.RoleAssistant {
			continue
		}
		for _, part := range m.Content {
			if !part.IsText() {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			chunks = append(chunks, text)
			if len(chunks) == s.topK {
				return chunks
			}
		}
	}
	return chunks
}

func (s *Searcher) cleanup(ctx context.Context, log *slog.Logger, id string, del func(context.Context, string) error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := del(cctx, id); err != nil {
		log.Debug("search cleanup failed", "id", id, "error", err)
	}
}
