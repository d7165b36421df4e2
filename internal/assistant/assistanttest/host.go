// Package assistanttest provides a scripted in-memory assistant.Host.
package assistanttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ezqanoon/statute-bot/internal/assistant"
)

// Step is one RetrieveRun result.
type Step struct {
	Status    assistant.RunStatus
	ToolCalls []assistant.ToolCall
	Err       error
}

// Script drives every run of one assistant (matched by assistant name).
type Script struct {
	// Steps are returned by successive RetrieveRun calls. Once exhausted the
	// run stays in_progress.
	Steps []Step
	// AfterSubmit is the status returned by SubmitToolOutputs. Defaults to
	// in_progress.
	AfterSubmit assistant.RunStatus
	// Messages are returned by ListMessages, most recent first.
	Messages []assistant.Message
}

// Submission records a SubmitToolOutputs call.
type Submission struct {
	Assistant string
	RunID     string
	Outputs   []assistant.ToolOutput
}

type runState struct {
	assistant string
	threadID  string
	cursor    int
}

// Host is a fake assistant.Host. Scripts are keyed by assistant name.
type Host struct {
	mu sync.Mutex

	Scripts map[string]*Script
	// Errors forces a method (by name, e.g. "CreateThread") to fail.
	Errors map[string]error

	Assistants       []assistant.AssistantSpec
	DeletedAssistant []string
	DeletedThreads   []string
	UserMessages     map[string][]string
	Submissions      []Submission
	Retrievals       int

	assistantNames map[string]string
	threadOwner    map[string]string
	runs           map[string]*runState
	seq            int
}

var _ assistant.Host = (*Host)(nil)

// New returns a Host with the given scripts.
func New(scripts map[string]*Script) *Host {
	if scripts == nil {
		scripts = make(map[string]*Script)
	}
	return &Host{
		Scripts:        scripts,
		Errors:         make(map[string]error),
		UserMessages:   make(map[string][]string),
		assistantNames: make(map[string]string),
		threadOwner:    make(map[string]string),
		runs:           make(map[string]*runState),
	}
}

func (h *Host) nextID(prefix string) string {
	h.seq++
	return fmt.Sprintf("%s_%d", prefix, h.seq)
}

func (h *Host) fail(method string) error {
	return h.Errors[method]
}

// CreateAssistant records the spec.
func (h *Host) CreateAssistant(_ context.Context, spec assistant.AssistantSpec) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("CreateAssistant"); err != nil {
		return "", err
	}
	id := h.nextID("asst")
	h.assistantNames[id] = spec.Name
	h.Assistants = append(h.Assistants, spec)
	return id, nil
}

// DeleteAssistant records the deletion.
func (h *Host) DeleteAssistant(_ context.Context, assistantID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.DeletedAssistant = append(h.DeletedAssistant, assistantID)
	return h.fail("DeleteAssistant")
}

// CreateThread opens a thread.
func (h *Host) CreateThread(_ context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("CreateThread"); err != nil {
		return "", err
	}
	return h.nextID("thread"), nil
}

// DeleteThread records the deletion.
func (h *Host) DeleteThread(_ context.Context, threadID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.DeletedThreads = append(h.DeletedThreads, threadID)
	return h.fail("DeleteThread")
}

// AddUserMessage records the message.
func (h *Host) AddUserMessage(_ context.Context, threadID, content string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("AddUserMessage"); err != nil {
		return err
	}
	h.UserMessages[threadID] = append(h.UserMessages[threadID], content)
	return nil
}

// CreateRun starts a run in the queued state.
func (h *Host) CreateRun(_ context.Context, threadID, assistantID string) (*assistant.Run, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("CreateRun"); err != nil {
		return nil, err
	}
	name := h.assistantNames[assistantID]
	id := h.nextID("run")
	h.runs[id] = &runState{assistant: name, threadID: threadID}
	h.threadOwner[threadID] = name
	return &assistant.Run{ID: id, ThreadID: threadID, Status: assistant.StatusQueued}, nil
}

// RetrieveRun returns the next scripted step.
func (h *Host) RetrieveRun(_ context.Context, threadID, runID string) (*assistant.Run, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retrievals++
	if err := h.fail("RetrieveRun"); err != nil {
		return nil, err
	}
	state, ok := h.runs[runID]
	if !ok {
		return nil, fmt.Errorf("unknown run %s", runID)
	}
	script := h.Scripts[state.assistant]
	if script == nil || state.cursor >= len(script.Steps) {
		return &assistant.Run{ID: runID, ThreadID: threadID, Status: assistant.StatusInProgress}, nil
	}
	step := script.Steps[state.cursor]
	state.cursor++
	if step.Err != nil {
		return nil, step.Err
	}
	return &assistant.Run{
		ID:        runID,
		ThreadID:  threadID,
		Status:    step.Status,
		ToolCalls: step.ToolCalls,
	}, nil
}

// SubmitToolOutputs records the outputs.
func (h *Host) SubmitToolOutputs(_ context.Context, threadID, runID string, outputs []assistant.ToolOutput) (*assistant.Run, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("SubmitToolOutputs"); err != nil {
		return nil, err
	}
	state, ok := h.runs[runID]
	if !ok {
		return nil, fmt.Errorf("unknown run %s", runID)
	}
	h.Submissions = append(h.Submissions, Submission{
		Assistant: state.assistant,
		RunID:     runID,
		Outputs:   append([]assistant.ToolOutput(nil), outputs...),
	})
	status := assistant.StatusInProgress
	if script := h.Scripts[state.assistant]; script != nil && script.AfterSubmit != "" {
		status = script.AfterSubmit
	}
	return &assistant.Run{ID: runID, ThreadID: threadID, Status: status}, nil
}

// ListMessages returns the scripted messages of the thread's assistant.
func (h *Host) ListMessages(_ context.Context, threadID string) ([]assistant.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail("ListMessages"); err != nil {
		return nil, err
	}
	script := h.Scripts[h.threadOwner[threadID]]
	if script == nil {
		return nil, nil
	}
	return script.Messages, nil
}

// Text builds a message with a single text part.
func Text(role, text string) assistant.Message {
	return assistant.Message{
		Role:    role,
		Content: []assistant.ContentPart{{Type: "text", Text: text}},
	}
}
