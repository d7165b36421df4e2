// Package agent describes agents and their tools and drives them through
// hosted runs until they produce a final answer.
package agent

import (
	"errors"
	"fmt"

	"github.com/ezqanoon/statute-bot/internal/assistant"
)

// ErrDuplicateTool is returned by New when two tools share a name.
var ErrDuplicateTool = errors.New("duplicate tool name")

// Agent is an immutable bundle of instructions, a model and invocable tools.
type Agent struct {
	name         string
	instructions string
	model        string
	tools        []Tool
	byName       map[string]Tool
}

// New builds an agent and indexes its tools by name.
func New(name, instructions, model string, tools ...Tool) (*Agent, error) {
	if name == "" {
		return nil, fmt.Errorf("agent name cannot be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("agent %s: model cannot be empty", name)
	}

	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		if t.Name() == "" {
			return nil, fmt.Errorf("agent %s: tool without a name", name)
		}
		if _, exists := byName[t.Name()]; exists {
			return nil, fmt.Errorf("agent %s: %w: %s", name, ErrDuplicateTool, t.Name())
		}
		byName[t.Name()] = t
	}

	return &Agent{
		name:         name,
		instructions: instructions,
		model:        model,
		tools:        append([]Tool(nil), tools...),
		byName:       byName,
	}, nil
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// Instructions returns the agent's system instructions.
func (a *Agent) Instructions() string { return a.instructions }

// Model returns the model identifier.
func (a *Agent) Model() string { return a.model }

// Tools returns a copy of the agent's tools in registration order.
func (a *Agent) Tools() []Tool { return append([]Tool(nil), a.tools...) }

// Lookup resolves a tool by name.
func (a *Agent) Lookup(name string) (Tool, bool) {
	t, ok := a.byName[name]
	return t, ok
}

// Spec is the assistant definition registered with the host for a run.
func (a *Agent) Spec() assistant.AssistantSpec {
	defs := make([]assistant.ToolDefinition, 0, len(a.tools))
	for _, t := range a.tools {
		defs = append(defs, t.Definition())
	}
	return assistant.AssistantSpec{
		Name:         a.name,
		Instructions: a.instructions,
		Model:        a.model,
		Tools:        defs,
	}
}

// subAgentArgs is the argument shape of every agent exposed as a tool.
type subAgentArgs struct {
	Query string `json:"query" desc:"The query to send to this agent"`
}

// AsTool exposes the agent as a tool of a parent agent. The parent's model
// passes a single query string.
func (a *Agent) AsTool(name, description string) Tool {
	return Tool{
		Schema: SchemaFor(name, description, subAgentArgs{}),
		Kind:   SubAgent,
		agent:  a,
	}
}

func (a *Agent) String() string {
	return fmt.Sprintf("Agent(name=%s, model=%s)", a.name, a.model)
}
