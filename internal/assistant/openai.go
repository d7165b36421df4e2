package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/sashabaranov/go-openai"
)

// messagePageSize bounds ListMessages. A run thread holds one user message
// and a handful of assistant replies.
const messagePageSize = 100

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// OpenAIClient implements Host and VectorStores on the OpenAI Assistants API.
type OpenAIClient struct {
	client *openai.Client
	logger *slog.Logger
}

// Ensure OpenAIClient implements the ports.
var (
	_ Host         = (*OpenAIClient)(nil)
	_ VectorStores = (*OpenAIClient)(nil)
)

// NewOpenAIClient creates a client for the hosted model.
func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}, nil
}

// CreateAssistant registers an assistant definition and returns its ID.
func (c *OpenAIClient) CreateAssistant(ctx context.Context, spec AssistantSpec) (string, error) {
	name := spec.Name
	instructions := spec.Instructions
	req := openai.AssistantRequest{
		Model:        spec.Model,
		Name:         &name,
		Instructions: &instructions,
		Tools:        make([]openai.AssistantTool, 0, len(spec.Tools)+1),
	}
	for _, t := range spec.Tools {
		req.Tools = append(req.Tools, openai.AssistantTool{
			Type: openai.AssistantToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if len(spec.VectorStoreIDs) > 0 {
		req.Tools = append(req.Tools, openai.AssistantTool{Type: openai.AssistantToolTypeFileSearch})
		req.ToolResources = &openai.AssistantToolResource{
			FileSearch: &openai.AssistantToolFileSearch{VectorStoreIDs: spec.VectorStoreIDs},
		}
	}

	created, err := c.client.CreateAssistant(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create assistant %q: %w", spec.Name, err)
	}
	c.logger.Debug("assistant created", "assistant_id", created.ID, "name", spec.Name, "tools", len(req.Tools))
	return created.ID, nil
}

// DeleteAssistant removes an assistant definition.
func (c *OpenAIClient) DeleteAssistant(ctx context.Context, assistantID string) error {
	if _, err := c.client.DeleteAssistant(ctx, assistantID); err != nil {
		return fmt.Errorf("delete assistant %s: %w", assistantID, err)
	}
	return nil
}

// CreateThread opens an empty conversation thread.
func (c *OpenAIClient) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

// DeleteThread removes a conversation thread.
func (c *OpenAIClient) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := c.client.DeleteThread(ctx, threadID); err != nil {
		return fmt.Errorf("delete thread %s: %w", threadID, err)
	}
	return nil
}

// AddUserMessage appends a user turn to the thread.
func (c *OpenAIClient) AddUserMessage(ctx context.Context, threadID, content string) error {
	_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("add message to thread %s: %w", threadID, err)
	}
	return nil
}

// CreateRun starts the assistant on the thread.
func (c *OpenAIClient) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: assistantID})
	if err != nil {
		return nil, fmt.Errorf("create run on thread %s: %w", threadID, err)
	}
	return toRun(run), nil
}

// RetrieveRun fetches the current run state.
func (c *OpenAIClient) RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error) {
	run, err := c.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return nil, fmt.Errorf("retrieve run %s: %w", runID, err)
	}
	return toRun(run), nil
}

// SubmitToolOutputs answers the run's pending tool calls.
func (c *OpenAIClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error) {
	req := openai.SubmitToolOutputsRequest{
		ToolOutputs: make([]openai.ToolOutput, 0, len(outputs)),
	}
	for _, o := range outputs {
		req.ToolOutputs = append(req.ToolOutputs, openai.ToolOutput{
			ToolCallID: o.ToolCallID,
			Output:     o.Output,
		})
	}

	run, err := c.client.SubmitToolOutputs(ctx, threadID, runID, req)
	if err != nil {
		return nil, fmt.Errorf("submit %d tool outputs to run %s: %w", len(outputs), runID, err)
	}
	return toRun(run), nil
}

// ListMessages returns the thread's messages, most recent first.
func (c *OpenAIClient) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	limit := messagePageSize
	order := "desc"
	list, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list messages of thread %s: %w", threadID, err)
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, m := range list.Messages {
		msg := Message{
			ID:      m.ID,
			Role:    m.Role,
			Content: make([]ContentPart, 0, len(m.Content)),
		}
		for _, part := range m.Content {
			cp := ContentPart{Type: part.Type}
			if part.Text != nil {
				cp.Text = part.Text.Value
			}
			msg.Content = append(msg.Content, cp)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// CreateVectorStore creates an empty vector store.
func (c *OpenAIClient) CreateVectorStore(ctx context.Context, name string) (string, error) {
	vs, err := c.client.CreateVectorStore(ctx, openai.VectorStoreRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("create vector store %q: %w", name, err)
	}
	return vs.ID, nil
}

// DeleteVectorStore deletes a vector store. Files stay in the account.
func (c *OpenAIClient) DeleteVectorStore(ctx context.Context, vectorStoreID string) error {
	resp, err := c.client.DeleteVectorStore(ctx, vectorStoreID)
	if err != nil {
		return fmt.Errorf("delete vector store %s: %w", vectorStoreID, err)
	}
	if !resp.Deleted {
		return fmt.Errorf("vector store %s was not deleted", vectorStoreID)
	}
	return nil
}

// UploadFile uploads a local file for use by assistants.
func (c *OpenAIClient) UploadFile(ctx context.Context, path string) (string, error) {
	file, err := c.client.CreateFile(ctx, openai.FileRequest{
		FileName: filepath.Base(path),
		FilePath: path,
		Purpose:  string(openai.PurposeAssistants),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	return file.ID, nil
}

// AttachFile adds an uploaded file to a vector store.
func (c *OpenAIClient) AttachFile(ctx context.Context, vectorStoreID, fileID string) error {
	_, err := c.client.CreateVectorStoreFile(ctx, vectorStoreID, openai.VectorStoreFileRequest{FileID: fileID})
	if err != nil {
		return fmt.Errorf("attach file %s to vector store %s: %w", fileID, vectorStoreID, err)
	}
	return nil
}

func toRun(run openai.Run) *Run {
	out := &Run{
		ID:       run.ID,
		ThreadID: run.ThreadID,
		Status:   RunStatus(run.Status),
	}
	if run.LastError != nil {
		out.LastError = run.LastError.Message
	}
	if run.RequiredAction != nil && run.RequiredAction.SubmitToolOutputs != nil {
		for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
	}
	return out
}
