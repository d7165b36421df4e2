// Package statutes assembles the legal assistant: the jurisdiction catalog,
// its search tools and the top-level agent that dispatches between them.
package statutes

import (
	"fmt"
	"strings"
)

// Jurisdiction is one legal database the assistant can search.
type Jurisdiction struct {
	// Key identifies the jurisdiction in configuration and the CLI.
	Key         string
	Name        string
	ToolName    string
	Description string
}

// Jurisdictions lists every searchable jurisdiction, provinces first.
var Jurisdictions = []Jurisdiction{
	{Key: "sindh", Name: "Sindh", ToolName: "search_sindh_statutes", Description: "Search for Sindh laws and statutes."},
	{Key: "punjab", Name: "Punjab", ToolName: "search_punjab_statutes", Description: "Search for Punjab laws and statutes."},
	{Key: "kpk", Name: "Khyber Pakhtunkhwa", ToolName: "search_kpk_statutes", Description: "Search for Khyber Pakhtunkhwa (KPK) laws and statutes."},
	{Key: "balochistan", Name: "Balochistan", ToolName: "search_balochistan_statutes", Description: "Search for Balochistan laws and statutes."},
	{Key: "kashmir", Name: "Azad Jammu & Kashmir", ToolName: "search_kashmir_statutes", Description: "Search for Azad Jammu & Kashmir (AJK) laws and statutes."},
	{Key: "gba", Name: "Gilgit-Baltistan", ToolName: "search_gba_statutes", Description: "Search for Gilgit-Baltistan (GBA) laws and statutes."},
	{Key: "national", Name: "National Assembly", ToolName: "search_national_assembly_statutes", Description: "Search for National Assembly laws and statutes."},
	{Key: "federal", Name: "Federal", ToolName: "search_federal_statutes", Description: "Search for Federal laws and statutes."},
}

// Lookup finds a jurisdiction by key, case-insensitively.
func Lookup(key string) (Jurisdiction, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, j := range Jurisdictions {
		if j.Key == key {
			return j, true
		}
	}
	return Jurisdiction{}, false
}

// Keys returns every jurisdiction key in catalog order.
func Keys() []string {
	keys := make([]string, len(Jurisdictions))
	for i, j := range Jurisdictions {
		keys[i] = j.Key
	}
	return keys
}

// StoreIDs maps jurisdiction keys to vector store IDs.
type StoreIDs map[string]string

// Validate reports the jurisdictions without a vector store.
func (s StoreIDs) Validate() error {
	var missing []string
	for _, j := range Jurisdictions {
		if s[j.Key] == "" {
			missing = append(missing, j.Key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing vector store for: %s", strings.Join(missing, ", "))
	}
	return nil
}
