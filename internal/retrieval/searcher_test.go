package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ezqanoon/statute-bot/internal/assistant"
	"github.com/ezqanoon/statute-bot/internal/assistant/assistanttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSearcher(host assistant.Host, opts ...Option) *Searcher {
	opts = append([]Option{WithPollInterval(time.Millisecond), WithTimeout(20 * time.Millisecond)}, opts...)
	return NewSearcher(host, "gpt-test", opts...)
}

func script(steps []assistanttest.Step, messages ...assistant.Message) map[string]*assistanttest.Script {
	return map[string]*assistanttest.Script{
		searchAssistantName: {Steps: steps, Messages: messages},
	}
}

func TestSearchJoinsAssistantText(t *testing.T) {
	host := assistanttest.New(script(
		[]assistanttest.Step{{Status: assistant.StatusCompleted}},
		assistanttest.Text(assistant.RoleAssistant, "  Section 379: theft  "),
		assistanttest.Text(assistant.RoleUser, "theft"),
		assistanttest.Text(assistant.RoleAssistant, "Section 380: theft in dwelling house"),
	))

	got := newTestSearcher(host).Search(context.Background(), "vs_punjab", "theft")
	assert.Equal(t, "Section 379: theft\n\nSection 380: theft in dwelling house", got)

	require.Len(t, host.Assistants, 1)
	spec := host.Assistants[0]
	assert.Equal(t, "temp_search_assistant", spec.Name)
	assert.Equal(t, "gpt-test", spec.Model)
	assert.Equal(t, []string{"vs_punjab"}, spec.VectorStoreIDs)
	assert.Empty(t, spec.Tools)

	assert.Len(t, host.DeletedAssistant, 1)
	assert.Len(t, host.DeletedThreads, 1)
}

func TestSearchCapsAtTopK(t *testing.T) {
	var msgs []assistant.Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, assistanttest.Text(assistant.RoleAssistant, fmt.Sprintf("chunk %d", i)))
	}
	host := assistanttest.New(script([]assistanttest.Step{{Status: assistant.StatusCompleted}}, msgs...))

	got := newTestSearcher(host, WithTopK(2)).Search(context.Background(), "vs", "q")
	assert.Equal(t, "chunk 0\n\nchunk 1", got)
}

func TestSearchNoResults(t *testing.T) {
	host := assistanttest.New(script(
		[]assistanttest.Step{{Status: assistant.StatusCompleted}},
		assistanttest.Text(assistant.RoleAssistant, "   "),
		assistant.Message{Role: assistant.RoleAssistant, Content: []assistant.ContentPart{{Type: "image_file"}}},
	))

	got := newTestSearcher(host).Search(context.Background(), "vs", "q")
	assert.Equal(t, NoResults, got)
}

func TestSearchFailedRun(t *testing.T) {
	host := assistanttest.New(script([]assistanttest.Step{{Status: assistant.StatusFailed}}))

	got := newTestSearcher(host).Search(context.Background(), "vs", "q")
	assert.Equal(t, "Search failed with status: failed", got)
	assert.Len(t, host.DeletedAssistant, 1)
}

func TestSearchTimeout(t *testing.T) {
	host := assistanttest.New(nil)

	got := newTestSearcher(host).Search(context.Background(), "vs", "q")
	assert.Equal(t, "Search failed with status: in_progress", got)
	assert.Equal(t, 20, host.Retrievals)
}

func TestSearchHostError(t *testing.T) {
	host := assistanttest.New(nil)
	host.Errors["CreateAssistant"] = errors.New("invalid vector store")

	got := newTestSearcher(host).Search(context.Background(), "vs", "q")
	assert.Equal(t, "Error searching vector store: invalid vector store", got)
}

func TestSearchRetriesTransientRetrieveError(t *testing.T) {
	host := assistanttest.New(script(
		[]assistanttest.Step{{Err: errors.New("503")}, {Status: assistant.StatusCompleted}},
		assistanttest.Text(assistant.RoleAssistant, "Section 10"),
	))

	got := newTestSearcher(host).Search(context.Background(), "vs", "q")
	assert.Equal(t, "Section 10", got)
	assert.Equal(t, 2, host.Retrievals)
}

func TestSearchRetrieveErrorUntilCeiling(t *testing.T) {
	host := assistanttest.New(nil)
	host.Errors["RetrieveRun"] = errors.New("503")

	got := newTestSearcher(host).Search(context.Background(), "vs", "q")
	assert.Equal(t, "Error searching vector store: 503", got)
	assert.Equal(t, 20, host.Retrievals)
	assert.Len(t, host.DeletedThreads, 1)
}

func TestSearchTimeoutShorterThanInterval(t *testing.T) {
	host := assistanttest.New(script(
		[]assistanttest.Step{{Status: assistant.StatusCompleted}},
		assistanttest.Text(assistant.RoleAssistant, "Section 11"),
	))

	searcher := NewSearcher(host, "gpt-test", WithPollInterval(20*time.Millisecond), WithTimeout(15*time.Millisecond))
	got := searcher.Search(context.Background(), "vs", "q")
	assert.Equal(t, "Section 11", got)
	assert.Equal(t, 1, host.Retrievals)
}

func TestSearchIgnoresCleanupFailures(t *testing.T) {
	host := assistanttest.New(script(
		[]assistanttest.Step{{Status: assistant.StatusCompleted}},
		assistanttest.Text(assistant.RoleAssistant, "Section 9"),
	))
	host.Errors["DeleteAssistant"] = errors.New("gone")
	host.Errors["DeleteThread"] = errors.New("gone")

	got := newTestSearcher(host).Search(context.Background(), "vs", "q")
	assert.Equal(t, "Section 9", got)
}
