package pipeline

import (
	"sort"

	"github.com/TobiSchelling/crisisboard/internal/corpus"
)

// TopicCount is the number of filtered messages in one topic.
type TopicCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// TopicCounts counts filtered messages per topic, skipping the Junk sentinel
// and untagged messages. Counts are ordered descending; ties keep the order
// in which topics were first seen.
func TopicCounts(filtered []corpus.Message) []TopicCount {
	out := []TopicCount{}
	position := make(map[string]int)
	for _, m := range filtered {
		if m.Topic == "" || m.Topic == corpus.JunkTopic {
			continue
		}
		if i, ok := position[m.Topic]; ok {
			out[i].Value++
			continue
		}
		position[m.Topic] = len(out)
		out = append(out, TopicCount{Name: m.Topic, Value: 1})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// Heatmap is the filtered view as published to the geographic consumer.
func Heatmap(filtered []corpus.Message) []corpus.Message {
	return filtered
}
