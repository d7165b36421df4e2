package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ezqanoon/statute-bot/internal/assistant"
	"github.com/google/uuid"
)

const (
	// DefaultPollInterval is the wait between two run status checks.
	DefaultPollInterval = time.Second
	// DefaultTimeout is the total polling budget of one run.
	DefaultTimeout = 60 * time.Second
	// NoResponse is returned when a completed run left no readable message.
	NoResponse = "No response generated."

	cleanupTimeout = 10 * time.Second
	progressEvery  = 5
)

// ErrRunTimeout matches RunErrors caused by the polling ceiling.
var ErrRunTimeout = errors.New("run timed out")

// RunError reports a run that did not complete.
type RunError struct {
	// Status is the last status reported by the host.
	Status   assistant.RunStatus
	TimedOut bool
	// Detail is the host's explanation for a failed run, if any.
	Detail string
	// Err is the last transient host error seen while polling.
	Err error
}

func (e *RunError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run failed with status: %s", e.Status)
	if e.TimedOut {
		b.WriteString(" (timed out)")
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	return b.String()
}

// Unwrap exposes ErrRunTimeout and the last transient error.
func (e *RunError) Unwrap() []error {
	var errs []error
	if e.TimedOut {
		errs = append(errs, ErrRunTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Outcome is the run's final state, including the loop-local timed_out.
func (e *RunError) Outcome() assistant.RunStatus {
	if e.TimedOut {
		return assistant.StatusTimedOut
	}
	return e.Status
}

// Result is the final answer of a run.
type Result struct {
	Output   string
	RunID    string
	ThreadID string
}

// Runner drives agents through hosted runs.
type Runner struct {
	host     assistant.Host
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPollInterval sets the wait between status checks.
func WithPollInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithTimeout sets the polling ceiling of a single run.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner on the given host.
func NewRunner(host assistant.Host, opts ...RunnerOption) *Runner {
	r := &Runner{
		host:     host,
		interval: DefaultPollInterval,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run registers the agent with the host, submits input and waits for the
// final answer, executing tool calls as the host requests them.
func (r *Runner) Run(ctx context.Context, a *Agent, input string) (*Result, error) {
	return r.run(ctx, a, input, "")
}

func (r *Runner) run(ctx context.Context, a *Agent, input, parentTrace string) (*Result, error) {
	traceID := uuid.NewString()
	log := r.logger.With("agent", a.Name(), "trace_id", traceID)
	if parentTrace != "" {
		log = log.With("parent_trace_id", parentTrace)
	}
	log.Info("running agent", "model", a.Model(), "tools", len(a.tools), "input_length", len(input))

	assistantID, err := r.host.CreateAssistant(ctx, a.Spec())
	if err != nil {
		return nil, fmt.Errorf("register agent %s: %w", a.Name(), err)
	}
	defer r.cleanup(ctx, log, "assistant", assistantID, r.host.DeleteAssistant)

	threadID, err := r.host.CreateThread(ctx)
	if err != nil {
		return nil, err
	}
	defer r.cleanup(ctx, log, "thread", threadID, r.host.DeleteThread)

	if err := r.host.AddUserMessage(ctx, threadID, input); err != nil {
		return nil, err
	}

	run, err := r.host.CreateRun(ctx, threadID, assistantID)
	if err != nil {
		return nil, err
	}
	log = log.With("run_id", run.ID, "thread_id", threadID)
	log.Info("run started", "status", run.Status)

	run, err = r.await(ctx, log, a, input, traceID, threadID, run)
	if err != nil {
		log.Error("run did not complete", "error", err)
		return nil, err
	}

	messages, err := r.host.ListMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	output := finalAnswer(messages)
	log.Info("run completed", "output_length", len(output))

	return &Result{Output: output, RunID: run.ID, ThreadID: threadID}, nil
}

// await polls the run until it settles, answering tool calls on the way.
// A tool call is executed at most once even if its submission is retried.
func (r *Runner) await(ctx context.Context, log *slog.Logger, a *Agent, input, traceID, threadID string, run *assistant.Run) (*assistant.Run, error) {
	current := run
	answered := make(map[string]string)
	var lastErr error

	settled := func(s assistant.RunStatus) bool {
		return !s.Pending() && s != assistant.StatusRequiresAction
	}

	if !settled(current.Status) {
		err := assistant.Poll(ctx, r.interval, r.timeout, func(ctx context.Context, attempt int) (bool, error) {
			next, err := r.host.RetrieveRun(ctx, threadID, current.ID)
			if err != nil {
				lastErr = err
				log.Warn("retrieve run failed, retrying", "attempt", attempt, "error", err)
				return false, nil
			}
			current = next

			if current.Status == assistant.StatusRequiresAction {
				submitted, err := r.answerToolCalls(ctx, log, a, input, traceID, threadID, current, answered)
				if err != nil {
					lastErr = err
					log.Warn("submit tool outputs failed, retrying", "attempt", attempt, "error", err)
					return false, nil
				}
				current = submitted
			}

			if attempt%progressEvery == 0 && !settled(current.Status) {
				log.Info("still waiting for run", "waited", time.Duration(attempt)*r.interval, "status", current.Status)
			}
			return settled(current.Status), nil
		})
		if errors.Is(err, assistant.ErrPollCeiling) {
			return nil, &RunError{Status: current.Status, TimedOut: true, Err: lastErr}
		}
		if err != nil {
			return nil, err
		}
	}

	if current.Status != assistant.StatusCompleted {
		return nil, &RunError{Status: current.Status, Detail: current.LastError}
	}
	return current, nil
}

func (r *Runner) answerToolCalls(ctx context.Context, log *slog.Logger, a *Agent, input, traceID, threadID string, run *assistant.Run, answered map[string]string) (*assistant.Run, error) {
	log.Info("run requires action", "tool_calls", len(run.ToolCalls))

	outputs := make([]assistant.ToolOutput, 0, len(run.ToolCalls))
	for _, call := range run.ToolCalls {
		out, ok := answered[call.ID]
		if !ok {
			out = r.invoke(ctx, log, a, input, traceID, call)
			answered[call.ID] = out
		}
		outputs = append(outputs, assistant.ToolOutput{ToolCallID: call.ID, Output: out})
	}

	log.Info("submitting tool outputs", "count", len(outputs))
	return r.host.SubmitToolOutputs(ctx, threadID, run.ID, outputs)
}

// invoke resolves and executes one tool call. It never fails: errors and
// panics become an "Error: ..." output so the hosted run can carry on.
func (r *Runner) invoke(ctx context.Context, log *slog.Logger, a *Agent, input, traceID string, call assistant.ToolCall) (output string) {
	log = log.With("tool", call.Name, "call_id", call.ID)
	defer func() {
		if p := recover(); p != nil {
			log.Error("tool panicked", "panic", p)
			output = fmt.Sprintf("Error: %v", p)
		}
	}()

	tool, ok := a.Lookup(call.Name)
	if !ok {
		log.Warn("tool not found in agent tools")
		return fmt.Sprintf("Tool %s not found", call.Name)
	}

	args := json.RawMessage(call.Arguments)
	switch tool.Kind {
	case SubAgent:
		query := subAgentQuery(args, input)
		log.Info("running sub-agent", "sub_agent", tool.Agent().Name())
		res, err := r.run(ctx, tool.Agent(), query, traceID)
		if err != nil {
			log.Error("sub-agent failed", "error", err)
			return "Error: " + err.Error()
		}
		return res.Output
	default:
		result, err := tool.Call(withLogger(ctx, log), args)
		if err != nil {
			log.Error("tool execution failed", "error", err)
			return "Error: " + err.Error()
		}
		return result
	}
}

// subAgentQuery extracts the query argument, falling back to the parent's
// input when none was supplied.
func subAgentQuery(args json.RawMessage, input string) string {
	var parsed struct {
		Query any `json:"query"`
	}
	if err := json.Unmarshal(args, &parsed); err != nil {
		return input
	}
	if q, ok := parsed.Query.(string); ok && q != "" {
		return q
	}
	return input
}

// finalAnswer picks the latest assistant text from messages listed newest
// first, then the first message's text, then NoResponse.
func finalAnswer(messages []assistant.Message) string {
	for _, m := range messages {
		if m.Role != assistant.RoleAssistant {
			continue
		}
		if text, ok := leadingText(m); ok {
			return text
		}
	}
	if len(messages) > 0 {
		if text, ok := leadingText(messages[0]); ok {
			return text
		}
	}
	return NoResponse
}

func leadingText(m assistant.Message) (string, bool) {
	if len(m.Content) == 0 || !m.Content[0].IsText() || m.Content[0].Text == "" {
		return "", false
	}
	return m.Content[0].Text, true
}

func (r *Runner) cleanup(ctx context.Context, log *slog.Logger, kind, id string, del func(context.Context, string) error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := del(cctx, id); err != nil {
		log.Warn("cleanup failed", "kind", kind, "id", id, "error", err)
	}
}
