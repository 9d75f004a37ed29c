package pipeline

import (
	"time"

	"github.com/TobiSchelling/crisisboard/internal/corpus"
)

var t0 = time.Date(2020, 4, 6, 0, 0, 0, 0, time.UTC)

func at(hours int) time.Time { return t0.Add(time.Duration(hours) * time.Hour) }

func atPtr(hours int) *time.Time {
	t := at(hours)
	return &t
}

func emo(v float64) *float64 { return &v }

// testDataset is five messages across three locations. "flood" appears in
// three of them with emotions 1, 1 and -1.
func testDataset() *corpus.Dataset {
	return &corpus.Dataset{
		Messages: []corpus.Message{
			{Index: 0, Time: at(1), Location: "Downtown", MessageWords: "flood water rising", Emotion: emo(1), Topic: "Shelter"},
			{Index: 1, Time: at(2), Location: "Downtown", MessageWords: "flood power out", Emotion: emo(1), Topic: corpus.JunkTopic},
			{Index: 2, Time: at(3), Location: "Palace Hills", MessageWords: "flood bridge closed", Emotion: emo(-1), Topic: corpus.JunkTopic},
			{Index: 3, Time: at(4), Location: "Palace Hills", MessageWords: "water power shelter", Topic: "Utility"},
			{Index: 4, Time: at(5), Location: "Old Town", MessageWords: "fire road", Emotion: emo(0.5), Topic: "Shelter"},
		},
		Lexicon: []corpus.WordEntry{
			{Word: "flood", Messages: []int{0, 1, 2}},
			{Word: "water", Messages: []int{0, 3}},
			{Word: "power", Messages: []int{1, 3}},
			{Word: "shelter", Messages: []int{3}},
			{Word: "fire", Messages: []int{4}},
		},
		Graph: corpus.WordGraph{
			Nodes: []corpus.WordGraphNode{
				{Index: 0, Word: "flood", Messages: []int{0, 1, 2}},
				{Index: 1, Word: "water", Messages: []int{0, 3}},
				{Index: 2, Word: "power", Messages: []int{1, 3}},
				{Index: 3, Word: "fire", Messages: []int{4}},
			},
			Links: []corpus.WordGraphEdge{
				{Source: 0, Target: 1, Weight: 2},
				{Source: 0, Target: 2, Weight: 1},
				{Source: 1, Target: 2, Weight: 3},
				{Source: 2, Target: 3, Weight: 1},
			},
		},
	}
}

func fullRange() FilterState {
	return FilterState{Start: atPtr(0), End: atPtr(24)}
}

func indices(msgs []corpus.Message) []int {
	out := make([]int, len(msgs))
	for i, m := range msgs {
		out[i] = m.Index
	}
	return out
}
