package corpus

import "time"

// JunkTopic marks messages that are excluded from topic aggregation.
const JunkTopic = "Junk"

// Message is one corpus record.
type Message struct {
	Index          int       `json:"index"`
	Time           time.Time `json:"time"`
	Location       string    `json:"location"`
	Account        string    `json:"account,omitempty"`
	Message        string    `json:"message,omitempty"`
	At             []string  `json:"at,omitempty"`
	Tag            []string  `json:"tag,omitempty"`
	MessageWords   string    `json:"message_words"`
	MessageRevised string    `json:"message_revised,omitempty"`
	Emotion        *float64  `json:"emotion"` // nil when the source score was missing or non-finite
	Topic          string    `json:"topic"`
}

// WordEntry associates a lexicon word with the messages that contain it.
type WordEntry struct {
	Word     string `json:"word"`
	Messages []int  `json:"messages"`
}

// WordGraphNode is a word in the co-occurrence graph.
type WordGraphNode struct {
	Index    int    `json:"index"`
	Word     string `json:"word"`
	Messages []int  `json:"messages"`
}

// WordGraphEdge is a weighted co-occurrence link between two nodes.
type WordGraphEdge struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Weight float64 `json:"weight"`
}

// WordGraph is the precomputed word co-occurrence graph.
type WordGraph struct {
	Nodes []WordGraphNode `json:"nodes"`
	Links []WordGraphEdge `json:"links"`
}

// Dataset bundles every static input of the dashboard. It is built once at
// startup and never mutated afterwards.
type Dataset struct {
	Messages  []Message
	Lexicon   []WordEntry
	Graph     WordGraph
	BlockList []string
}

// Span returns the earliest and latest message time. ok is false for an
// empty corpus.
func (d *Dataset) Span() (start, end time.Time, ok bool) {
	if len(d.Messages) == 0 {
		return time.Time{}, time.Time{}, false
	}
	start, end = d.Messages[0].Time, d.Messages[0].Time
	for _, m := range d.Messages[1:] {
		if m.Time.Before(start) {
			start = m.Time
		}
		if m.Time.After(end) {
			end = m.Time
		}
	}
	return start, end, true
}

// Locations returns the distinct message locations in first-seen order.
func (d *Dataset) Locations() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range d.Messages {
		if m.Location == "" || seen[m.Location] {
			continue
		}
		seen[m.Location] = true
		out = append(out, m.Location)
	}
	return out
}
