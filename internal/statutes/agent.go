package statutes

import (
	"context"
	"fmt"

	"github.com/ezqanoon/statute-bot/internal/agent"
)

// AgentName is the name of the top-level assistant.
const AgentName = "EZQanoonLegalBot"

// Instructions is the dispatch policy of the top-level assistant.
const Instructions = `
You are an expert legal assistant for the statutes of Pakistan.
You can search separate legal databases for each province, the federation and the National Assembly.

GOAL:
Give accurate legal information grounded only in the laws of the jurisdiction the user is asking about.

RULES:
1. **Never guess the jurisdiction**: if the user asks a legal question without naming one (e.g. "What is the punishment for theft?"), ask which jurisdiction applies.
   - Example: "Please specify the jurisdiction (e.g. Punjab, Sindh, Federal) so I can search the correct laws."
2. **Do not search early**: do not call any search tool while the jurisdiction is unknown or the user has not yet answered your clarification question.
3. **Use the matching tool only**: once the jurisdiction is clear (e.g. "in Punjab"), call that jurisdiction's tool (e.g. search_punjab_statutes) and no other.
4. **Answer from the results**: base the answer only on the text the tool returned and always cite the section number and the act.
5. **Small talk**: answer greetings and simple questions yourself without searching.
6. **Your name**: when asked, your name is **EZQanoon Legal Bot**.
`

const specialistInstructions = `
You are a legal research specialist for the statutes of %s, Pakistan.
Use %s to find the provisions relevant to the query you receive and report them with their section numbers and act names.
If the search returns nothing relevant, say so plainly.
`

// Searcher queries one vector store. It reports problems in the returned text.
type Searcher interface {
	Search(ctx context.Context, vectorStoreID, query string) string
}

// searchArgs is the argument shape of every jurisdiction search tool.
type searchArgs struct {
	Query string `json:"query"`
}

// Options selects how the top-level agent is assembled.
type Options struct {
	Model  string
	Stores StoreIDs
	// Specialists wraps each jurisdiction in its own sub-agent instead of
	// giving the top-level agent the search tools directly.
	Specialists bool
}

// NewAgent builds the top-level legal assistant.
func NewAgent(searcher Searcher, opts Options) (*agent.Agent, error) {
	if err := opts.Stores.Validate(); err != nil {
		return nil, err
	}

	tools := make([]agent.Tool, 0, len(Jurisdictions))
	for _, j := range Jurisdictions {
		search := SearchTool(searcher, j, opts.Stores[j.Key])
		if !opts.Specialists {
			tools = append(tools, search)
			continue
		}

		specialist, err := agent.New(
			j.Key+"_specialist",
			fmt.Sprintf(specialistInstructions, j.Name, j.ToolName),
			opts.Model,
			search,
		)
		if err != nil {
			return nil, fmt.Errorf("build %s specialist: %w", j.Key, err)
		}
		tools = append(tools, specialist.AsTool(j.ToolName, j.Description))
	}

	return agent.New(AgentName, Instructions, opts.Model, tools...)
}

// SearchTool exposes one jurisdiction's vector store as a tool.
func SearchTool(searcher Searcher, j Jurisdiction, vectorStoreID string) agent.Tool {
	return agent.FunctionTool(j.ToolName, j.Description, func(ctx context.Context, args searchArgs) (string, error) {
		return searcher.Search(ctx, vectorStoreID, args.Query), nil
	})
}
