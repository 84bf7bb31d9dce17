package server

import (
	"sort"
	"strings"

	"github.com/aeolun/pulse/pkg/protocol"
)

// UserSearch answers live user-search queries with a case-insensitive
// substring match over every user identifier the registry has seen.
type UserSearch struct {
	registry *Registry
}

// NewUserSearch wires a search over the registry.
func NewUserSearch(registry *Registry) *UserSearch {
	return &UserSearch{registry: registry}
}

// Search returns every known user ID containing query, excluding the
// requester, sorted for deterministic output. An empty query matches all
// other known users; treating that as "no search" is a caller convention.
func (us *UserSearch) Search(requesterID, query string) []protocol.SearchResultEntry {
	needle := strings.ToLower(query)

	results := make([]protocol.SearchResultEntry, 0)
	for _, id := range us.registry.KnownUserIDs() {
		if id == requesterID {
			continue
		}
		if strings.Contains(strings.ToLower(id), needle) {
			results = append(results, protocol.SearchResultEntry{ID: id})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}
