package internal

import (
	"sort"
	"time"
)

// Stats summarizes a set of conversations
type Stats struct {
	Conversations int
	Messages      int
	ByProvider    []ProviderCount
	ByRole        map[Role]int
	Oldest        time.Time
	Newest        time.Time
}

// ProviderCount is a per-provider tally
type ProviderCount struct {
	Provider      Provider
	Conversations int
	Messages      int
}

// ComputeStats folds over a conversation list. It holds no state between calls.
func ComputeStats(conversations []*Conversation) Stats {
	stats := Stats{ByRole: make(map[Role]int)}
	perProvider := make(map[Provider]*ProviderCount)

	for _, conv := range conversations {
		stats.Conversations++
		stats.Messages += len(conv.Messages)

		pc, ok := perProvider[conv.Provider]
		if !ok {
			pc = &ProviderCount{Provider: conv.Provider}
			perProvider[conv.Provider] = pc
		}
		pc.Conversations++
		pc.Messages += len(conv.Messages)

		for _, msg := range conv.Messages {
			stats.ByRole[msg.Role]++
		}

		if stats.Oldest.IsZero() || conv.CreatedAt.Before(stats.Oldest) {
			stats.Oldest = conv.CreatedAt
		}
		if conv.UpdatedAt.After(stats.Newest) {
			stats.Newest = conv.UpdatedAt
		}
	}

	stats.ByProvider = make([]ProviderCount, 0, len(perProvider))
	for _, pc := range perProvider {
		stats.ByProvider = append(stats.ByProvider, *pc)
	}
	sort.Slice(stats.ByProvider, func(i, j int) bool {
		return stats.ByProvider[i].Provider < stats.ByProvider[j].Provider
	})

	return stats
}

// FilterByProvider returns the conversations from provider p, preserving order
func FilterByProvider(conversations []*Conversation, p Provider) []*Conversation {
	filtered := make([]*Conversation, 0, len(conversations))
	for _, conv := range conversations {
		if conv.Provider == p {
			filtered = append(filtered, conv)
		}
	}
	return filtered
}
