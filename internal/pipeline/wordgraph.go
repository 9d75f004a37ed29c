package pipeline

import (
	"sort"

	"github.com/TobiSchelling/crisisboard/internal/corpus"
)

// FilteredWordGraph is the word graph restricted to the current filter.
type FilteredWordGraph struct {
	Nodes []corpus.WordGraphNode `json:"nodes"`
	Links []corpus.WordGraphEdge `json:"links"`
}

// FilterWordGraph keeps the nodes with at least one filtered message, ranks
// them by the size of their full message set (ties keep graph order), caps
// them at opts.GraphNodes, and keeps only links between retained nodes.
// Blocked words never become active.
func FilterWordGraph(filtered []corpus.Message, graph corpus.WordGraph, blocked BlockSet, opts Options) FilteredWordGraph {
	opts = opts.withDefaults()

	inFilter := make(map[int]struct{}, len(filtered))
	for _, m := range filtered {
		inFilter[m.Index] = struct{}{}
	}

	active := []corpus.WordGraphNode{}
	for _, node := range graph.Nodes {
		if blocked.Contains(node.Word) {
			continue
		}
		for _, idx := range node.Messages {
			if _, ok := inFilter[idx]; ok {
				active = append(active, node)
				break
			}
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return len(active[i].Messages) > len(active[j].Messages)
	})
	if len(active) > opts.GraphNodes {
		active = active[:opts.GraphNodes]
	}

	retained := make(map[int]struct{}, len(active))
	for _, node := range active {
		retained[node.Index] = struct{}{}
	}

	links := []corpus.WordGraphEdge{}
	for _, link := range graph.Links {
		_, src := retained[link.Source]
		_, dst := retained[link.Target]
		if src && dst {
			links = append(links, link)
		}
	}

	return FilteredWordGraph{Nodes: active, Links: links}
}
