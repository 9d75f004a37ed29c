package corpus

import (
	"sort"
	"strings"
)

const (
	DefaultMinDocFreq      = 3
	DefaultGraphNodes      = 300
	DefaultMinCooccurrence = 2
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "can": true, "shall": true,
	"to": true, "of": true, "in": true, "for": true, "on": true, "with": true, "at": true,
	"by": true, "from": true, "as": true, "into": true, "through": true, "during": true,
	"before": true, "after": true, "above": true, "below": true, "and": true, "but": true,
	"or": true, "nor": true, "not": true, "so": true, "yet": true, "both": true,
	"either": true, "neither": true, "each": true, "every": true, "all": true, "any": true,
	"few": true, "more": true, "most": true, "other": true, "some": true, "such": true,
	"no": true, "only": true, "own": true, "same": true, "than": true, "too": true,
	"very": true, "just": true, "how": true, "what": true, "which": true, "who": true,
	"whom": true, "this": true, "that": true, "these": true, "those": true, "it": true,
	"its": true, "about": true, "up": true, "out": true, "one": true, "also": true,
	"like": true, "get": true, "you": true, "your": true, "our": true, "their": true,
	"there": true, "here": true, "they": true, "them": true, "his": true, "her": true,
	"she": true, "him": true, "rt": true, "amp": true,
}

// IndexOptions tunes index building.
type IndexOptions struct {
	// MinDocFreq is the minimum number of messages a word must occur in.
	MinDocFreq int
	// GraphNodes caps the number of words that become graph nodes.
	GraphNodes int
	// MinCooccurrence is the minimum number of shared messages for a link.
	MinCooccurrence int
}

func (o IndexOptions) withDefaults() IndexOptions {
	if o.MinDocFreq <= 0 {
		o.MinDocFreq = DefaultMinDocFreq
	}
	if o.GraphNodes <= 0 {
		o.GraphNodes = DefaultGraphNodes
	}
	if o.MinCooccurrence <= 0 {
		o.MinCooccurrence = DefaultMinCooccurrence
	}
	return o
}

// Tokens splits a normalized message_words string into distinct index terms,
// in first-seen order.
func Tokens(messageWords string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, word := range strings.Fields(strings.ToLower(messageWords)) {
		word = strings.Trim(word, ".,!?:;\"'()-[]#@")
		if len(word) <= 2 || stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		out = append(out, word)
	}
	return out
}

// BuildLexicon derives a word -> messages index from the corpus. Entries are
// ordered by document frequency descending, then alphabetically.
func BuildLexicon(messages []Message, opts IndexOptions) []WordEntry {
	opts = opts.withDefaults()

	postings := make(map[string][]int)
	for _, m := range messages {
		for _, word := range Tokens(m.MessageWords) {
			postings[word] = append(postings[word], m.Index)
		}
	}

	entries := make([]WordEntry, 0, len(postings))
	for word, msgs := range postings {
		if len(msgs) < opts.MinDocFreq {
			continue
		}
		entries = append(entries, WordEntry{Word: word, Messages: msgs})
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].Messages) != len(entries[j].Messages) {
			return len(entries[i].Messages) > len(entries[j].Messages)
		}
		return entries[i].Word < entries[j].Word
	})
	return entries
}

// BuildWordGraph turns the leading lexicon entries into graph nodes and links
// every pair of nodes that share at least MinCooccurrence messages. The link
// weight is the number of shared messages.
func BuildWordGraph(lexicon []WordEntry, opts IndexOptions) WordGraph {
	opts = opts.withDefaults()

	n := len(lexicon)
	if n > opts.GraphNodes {
		n = opts.GraphNodes
	}

	g := WordGraph{Nodes: make([]WordGraphNode, n), Links: []WordGraphEdge{}}
	byMessage := make(map[int][]int)
	for i := 0; i < n; i++ {
		e := lexicon[i]
		g.Nodes[i] = WordGraphNode{Index: i, Word: e.Word, Messages: e.Messages}
		for _, idx := range e.Messages {
			byMessage[idx] = append(byMessage[idx], i)
		}
	}

	type pair struct{ a, b int }
	shared := make(map[pair]int)
	for _, nodes := range byMessage {
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				a, b := nodes[i], nodes[j]
				if a > b {
					a, b = b, a
				}
				shared[pair{a, b}]++
			}
		}
	}

	for p, count := range shared {
		if count < opts.MinCooccurrence {
			continue
		}
		g.Links = append(g.Links, WordGraphEdge{Source: p.a, Target: p.b, Weight: float64(count)})
	}
	sort.Slice(g.Links, func(i, j int) bool {
		if g.Links[i].Source != g.Links[j].Source {
			return g.Links[i].Source < g.Links[j].Source
		}
		return g.Links[i].Target < g.Links[j].Target
	})
	return g
}
