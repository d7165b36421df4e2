package statutes

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ezqanoon/statute-bot/internal/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSearcher struct {
	calls [][2]string
}

func (s *recordingSearcher) Search(_ context.Context, vectorStoreID, query string) string {
	s.calls = append(s.calls, [2]string{vectorStoreID, query})
	return "results from " + vectorStoreID
}

func allStores() StoreIDs {
	stores := StoreIDs{}
	for _, k := range Keys() {
		stores[k] = "vs_" + k
	}
	return stores
}

func TestNewAgentRegistersEveryJurisdiction(t *testing.T) {
	a, err := NewAgent(&recordingSearcher{}, Options{Model: "gpt-test", Stores: allStores()})
	require.NoError(t, err)

	assert.Equal(t, AgentName, a.Name())
	assert.Equal(t, Instructions, a.Instructions())
	require.Len(t, a.Tools(), 8)
	for _, j := range Jurisdictions {
		tool, ok := a.Lookup(j.ToolName)
		require.True(t, ok, j.ToolName)
		assert.Equal(t, agent.LocalFunction, tool.Kind)
		assert.Equal(t, j.Description, tool.Schema.Description)
		assert.Equal(t, []string{"query"}, tool.Schema.Parameters.Required)
	}
}

func TestSearchToolRoutesToItsStore(t *testing.T) {
	searcher := &recordingSearcher{}
	a, err := NewAgent(searcher, Options{Model: "gpt-test", Stores: allStores()})
	require.NoError(t, err)

	tool, ok := a.Lookup("search_punjab_statutes")
	require.True(t, ok)
	out, err := tool.Call(context.Background(), json.RawMessage(`{"query":"theft"}`))
	require.NoError(t, err)

	assert.Equal(t, "results from vs_punjab", out)
	assert.Equal(t, [][2]string{{"vs_punjab", "theft"}}, searcher.calls)
}

func TestNewAgentSpecialists(t *testing.T) {
	a, err := NewAgent(&recordingSearcher{}, Options{Model: "gpt-test", Stores: allStores(), Specialists: true})
	require.NoError(t, err)

	tool, ok := a.Lookup("search_sindh_statutes")
	require.True(t, ok)
	assert.Equal(t, agent.SubAgent, tool.Kind)

	specialist := tool.Agent()
	assert.Equal(t, "sindh_specialist", specialist.Name())
	assert.Contains(t, specialist.Instructions(), "Sindh")
	_, ok = specialist.Lookup("search_sindh_statutes")
	assert.True(t, ok)
}

func TestNewAgentRequiresEveryStore(t *testing.T) {
	stores := allStores()
	delete(stores, "gba")
	stores["kashmir"] = ""

	_, err := NewAgent(&recordingSearcher{}, Options{Model: "gpt-test", Stores: stores})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kashmir, gba")
}

func TestLookup(t *testing.T) {
	j, ok := Lookup(" KPK ")
	require.True(t, ok)
	assert.Equal(t, "search_kpk_statutes", j.ToolName)

	_, ok = Lookup("islamabad")
	assert.False(t, ok)
}
