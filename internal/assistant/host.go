// Package assistant is the port to the hosted model: assistants, threads,
// runs, messages and the vector stores backing the file_search tool.
package assistant

import (
	"context"
)

// RunStatus is the lifecycle state of a hosted run.
type RunStatus string

const (
	StatusQueued         RunStatus = "queued"
	StatusInProgress     RunStatus = "in_progress"
	StatusRequiresAction RunStatus = "requires_action"
	StatusCompleted      RunStatus = "completed"
	StatusFailed         RunStatus = "failed"
	StatusCancelling     RunStatus = "cancelling"
	StatusCancelled      RunStatus = "cancelled"
	StatusExpired        RunStatus = "expired"
	StatusIncomplete     RunStatus = "incomplete"
	// StatusTimedOut is never reported by the host. The poll loop uses it
	// when the ceiling is reached before the run settles.
	StatusTimedOut RunStatus = "timed_out"
)

// Pending reports whether the host is still working on the run without
// needing anything from the caller.
func (s RunStatus) Pending() bool {
	return s == StatusQueued || s == StatusInProgress
}

// RoleAssistant and RoleUser are the message authors we care about.
const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

// ToolDefinition describes a function tool registered with an assistant.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  any
}

// AssistantSpec is the reusable assistant definition created per run.
type AssistantSpec struct {
	Name         string
	Instructions string
	Model        string
	Tools        []ToolDefinition
	// VectorStoreIDs enables the file_search tool bound to these stores.
	VectorStoreIDs []string
}

// ToolCall is a function invocation the host is waiting on.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolOutput answers a single ToolCall.
type ToolOutput struct {
	ToolCallID string
	Output     string
}

// Run is a snapshot of a hosted run.
type Run struct {
	ID        string
	ThreadID  string
	Status    RunStatus
	ToolCalls []ToolCall
	LastError string
}

// ContentPart is one content item of a message. Text is empty for
// non-text parts.
type ContentPart struct {
	Type string
	Text string
}

// IsText reports whether the part carries text.
func (p ContentPart) IsText() bool {
	return p.Type == "text"
}

// Message is a thread message.
type Message struct {
	ID      string
	Role    string
	Content []ContentPart
}

// Host drives conversations on the hosted model.
type Host interface {
	CreateAssistant(ctx context.Context, spec AssistantSpec) (string, error)
	DeleteAssistant(ctx context.Context, assistantID string) error

	CreateThread(ctx context.Context) (string, error)
	DeleteThread(ctx context.Context, threadID string) error
	AddUserMessage(ctx context.Context, threadID, content string) error

	CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error)

	// ListMessages returns the thread's messages, most recent first.
	ListMessages(ctx context.Context, threadID string) ([]Message, error)
}

// VectorStores manages the document collections searched by file_search.
type VectorStores interface {
	CreateVectorStore(ctx context.Context, name string) (string, error)
	DeleteVectorStore(ctx context.Context, vectorStoreID string) error
	UploadFile(ctx context.Context, path string) (string, error)
	AttachFile(ctx context.Context, vectorStoreID, fileID string) error
}
