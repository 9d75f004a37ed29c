package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TobiSchelling/crisisboard/internal/corpus"
	"github.com/TobiSchelling/crisisboard/internal/pipeline"
)

var t0 = time.Date(2020, 4, 6, 14, 0, 0, 0, time.UTC)

func emo(v float64) *float64 { return &v }

func dataset() *corpus.Dataset {
	var msgs []corpus.Message
	locations := []string{"Downtown", "Downtown", "Old Town", "Downtown"}
	topics := []string{"Shelter", "Utility", "Shelter", corpus.JunkTopic}
	for i := range locations {
		msgs = append(msgs, corpus.Message{
			Index: i, Time: t0.Add(time.Duration(i) * time.Hour), Location: locations[i],
			MessageWords: "flood water", Emotion: emo(0.5), Topic: topics[i],
		})
	}
	return &corpus.Dataset{
		Messages: msgs,
		Lexicon: []corpus.WordEntry{
			{Word: "water", Messages: []int{0, 1, 2, 3}},
			{Word: "flood", Messages: []int{0, 1, 2}},
		},
		Graph: corpus.WordGraph{
			Nodes: []corpus.WordGraphNode{
				{Index: 0, Word: "water", Messages: []int{0, 1, 2, 3}},
				{Index: 1, Word: "flood", Messages: []int{0, 1, 2}},
			},
			Links: []corpus.WordGraphEdge{{Source: 0, Target: 1, Weight: 3}},
		},
	}
}

func TestRenderCharts(t *testing.T) {
	s := pipeline.NewSession(dataset(), pipeline.Options{})
	s.Reset()
	snap := s.SetKeyword("flood")

	md := Render(snap, Options{})
	assert.Contains(t, md, "# Crisis Dashboard Report")
	assert.Contains(t, md, "- **Time range:** 2020-04-06 14:00:00 to 2020-04-06 17:00:00")
	assert.Contains(t, md, "- **Keyword:** flood")
	assert.Contains(t, md, "4 messages match")
	assert.Contains(t, md, "| Downtown | 3 |")
	assert.Contains(t, md, "| water | 4 | +0.50 |")
	assert.Contains(t, md, "## Special Topic Words")
	assert.Contains(t, md, "| Shelter | 2 | 66.7% |")
	assert.NotContains(t, md, "Junk")
	assert.NotContains(t, md, "## Word Graph")
}

func TestRenderGraph(t *testing.T) {
	s := pipeline.NewSession(dataset(), pipeline.Options{Variant: pipeline.VariantGraph})
	snap := s.Reset()

	md := Render(snap, Options{TopN: 1})
	assert.Contains(t, md, "## Word Graph")
	assert.Contains(t, md, "2 words, 1 links.")
	assert.Contains(t, md, "| water / flood | 3 |")
	assert.NotContains(t, md, "## Topics")
	assert.NotContains(t, md, "| flood | 3 |", "top words are capped at one row")
}

func TestRenderEmptySnapshot(t *testing.T) {
	s := pipeline.NewSession(dataset(), pipeline.Options{})

	md := Render(s.Snapshot(), Options{})
	assert.Contains(t, md, "- **Time range:** not set")
	assert.Contains(t, md, "0 messages match")
	assert.NotContains(t, md, "## Top Words")
}
