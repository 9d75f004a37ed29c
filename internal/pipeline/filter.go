// Package pipeline is the reactive filter-and-aggregate core of the
// dashboard: the filter state, the filtered-view engine, the aggregate
// reducers, and the Session that runs every user action as one transaction.
package pipeline

import (
	"strings"
	"time"

	"github.com/TobiSchelling/crisisboard/internal/corpus"
)

// FilterState holds the user-chosen predicates. All predicates compose by
// logical AND. An empty string predicate places no constraint; a missing
// Start or End makes the filtered view empty.
type FilterState struct {
	Start     *time.Time `json:"start"`
	End       *time.Time `json:"end"`
	Keyword   string     `json:"keyword"`
	Location  string     `json:"location"`
	Word      string     `json:"selectedWord"`
	Topic     string     `json:"selectedTopic"`
	BlockList []string   `json:"blockList"`
}

// Clone returns a deep copy, safe to publish while the original keeps changing.
func (f FilterState) Clone() FilterState {
	out := f
	if f.Start != nil {
		t := *f.Start
		out.Start = &t
	}
	if f.End != nil {
		t := *f.End
		out.End = &t
	}
	out.BlockList = append([]string(nil), f.BlockList...)
	return out
}

// HasTimeRange reports whether both time bounds are set.
func (f FilterState) HasTimeRange() bool {
	return f.Start != nil && f.End != nil
}

// Matches reports whether m satisfies every active predicate.
func (f FilterState) Matches(m corpus.Message) bool {
	if !f.HasTimeRange() {
		return false
	}
	if m.Time.Before(*f.Start) || m.Time.After(*f.End) {
		return false
	}
	if f.Keyword != "" && !strings.Contains(m.MessageWords, f.Keyword) {
		return false
	}
	if f.Location != "" && m.Location != f.Location {
		return false
	}
	if f.Word != "" && !strings.Contains(m.MessageWords, f.Word) {
		return false
	}
	if f.Topic != "" && m.Topic != f.Topic {
		return false
	}
	return true
}

// Apply returns the messages matching f, in corpus order. The result is never
// nil; no match yields an empty slice.
func Apply(messages []corpus.Message, f FilterState) []corpus.Message {
	out := []corpus.Message{}
	if !f.HasTimeRange() {
		return out
	}
	for _, m := range messages {
		if f.Matches(m) {
			out = append(out, m)
		}
	}
	return out
}

// BlockSet is a normalized lookup over a block list.
type BlockSet map[string]struct{}

// NewBlockSet builds a BlockSet. Words are compared trimmed and lower-cased.
func NewBlockSet(words []string) BlockSet {
	set := make(BlockSet, len(words))
	for _, w := range words {
		if w = normalizeWord(w); w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// Contains reports whether word is blocked.
func (b BlockSet) Contains(word string) bool {
	_, ok := b[normalizeWord(word)]
	return ok
}

// CleanBlockList trims entries and drops blanks and duplicates, keeping order.
func CleanBlockList(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		key := strings.ToLower(w)
		if w == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
	}
	return out
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}
