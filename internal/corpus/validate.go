package corpus

import "fmt"

// Validate checks the cross-references of a dataset: unique message indices,
// unique lexicon words, unique graph node indices, that every lexicon,
// node and edge reference points at something that exists, and that no
// word or node lists the same message twice. Aggregation
// assumes these hold and never masks a violation as a non-match.
func Validate(ds *Dataset) error {
	known := make(map[int]struct{}, len(ds.Messages))
	for _, m := range ds.Messages {
		if _, dup := known[m.Index]; dup {
			return fmt.Errorf("%w: duplicate message index %d", ErrInvalidDataset, m.Index)
		}
		known[m.Index] = struct{}{}
	}

	words := make(map[string]struct{}, len(ds.Lexicon))
	for _, e := range ds.Lexicon {
		if _, dup := words[e.Word]; dup {
			return fmt.Errorf("%w: duplicate lexicon word %q", ErrInvalidDataset, e.Word)
		}
		words[e.Word] = struct{}{}
		if err := checkRefs(known, e.Messages); err != nil {
			return fmt.Errorf("%w: lexicon word %q: %w", ErrInvalidDataset, e.Word, err)
		}
	}

	nodes := make(map[int]struct{}, len(ds.Graph.Nodes))
	for _, n := range ds.Graph.Nodes {
		if _, dup := nodes[n.Index]; dup {
			return fmt.Errorf("%w: duplicate graph node index %d", ErrInvalidDataset, n.Index)
		}
		nodes[n.Index] = struct{}{}
		if err := checkRefs(known, n.Messages); err != nil {
			return fmt.Errorf("%w: graph node %d (%q): %w", ErrInvalidDataset, n.Index, n.Word, err)
		}
	}

	for i, l := range ds.Graph.Links {
		if _, ok := nodes[l.Source]; !ok {
			return fmt.Errorf("%w: link #%d: source node %d does not exist", ErrInvalidDataset, i, l.Source)
		}
		if _, ok := nodes[l.Target]; !ok {
			return fmt.Errorf("%w: link #%d: target node %d does not exist", ErrInvalidDataset, i, l.Target)
		}
	}
	return nil
}

func checkRefs(known map[int]struct{}, refs []int) error {
	seen := make(map[int]struct{}, len(refs))
	for _, idx := range refs {
		if _, ok := known[idx]; !ok {
			return fmt.Errorf("unknown message index %d", idx)
		}
		if _, dup := seen[idx]; dup {
			return fmt.Errorf("message index %d listed twice", idx)
		}
		seen[idx] = struct{}{}
	}
	return nil
}
