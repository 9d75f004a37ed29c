package pipeline

import (
	"sort"

	"github.com/TobiSchelling/crisisboard/internal/corpus"
)

const (
	// DefaultMinSupport is the minimum filtered count for a word to appear
	// in the word cloud.
	DefaultMinSupport = 3
	// DefaultTopWords caps the word cloud.
	DefaultTopWords = 100
	// DefaultGraphNodes caps the filtered word graph.
	DefaultGraphNodes = 50
)

// DefaultSpecialWords is the disaster-relevant allow-list behind the
// special-topic words view.
var DefaultSpecialWords = []string{
	"power", "water", "nuclear", "shelter", "road", "fire", "gas", "rescue",
	"bridge", "medicine", "food", "sewer", "volunteer", "transport", "collapse",
}

// WordCloudEntry is one word of the word cloud.
type WordCloudEntry struct {
	Name      string  `json:"name"`
	Value     int     `json:"value"`
	Sentiment float64 `json:"sentiment"`
}

// WordCloud counts, for every lexicon word, the filtered messages that
// contain it and averages their emotion. Words below opts.MinSupport and
// blocked words are dropped; the rest are ordered by count descending (ties
// keep lexicon order) and truncated to opts.TopWords.
func WordCloud(filtered []corpus.Message, lexicon []corpus.WordEntry, blocked BlockSet, opts Options) []WordCloudEntry {
	opts = opts.withDefaults()

	inFilter := make(map[int]*float64, len(filtered))
	for _, m := range filtered {
		inFilter[m.Index] = m.Emotion
	}

	out := []WordCloudEntry{}
	for _, entry := range lexicon {
		count := 0
		var emotionSum float64
		for _, idx := range entry.Messages {
			emotion, ok := inFilter[idx]
			if !ok {
				continue
			}
			count++
			if emotion != nil {
				emotionSum += *emotion
			}
		}
		if count < opts.MinSupport || blocked.Contains(entry.Word) {
			continue
		}
		out = append(out, WordCloudEntry{
			Name:      entry.Word,
			Value:     count,
			Sentiment: emotionSum / float64(count),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if len(out) > opts.TopWords {
		out = out[:opts.TopWords]
	}
	return out
}

// SpecialWords keeps the word-cloud entries whose name is on the allow-list,
// in word-cloud order.
func SpecialWords(cloud []WordCloudEntry, allowList []string) []WordCloudEntry {
	allowed := make(map[string]bool, len(allowList))
	for _, w := range allowList {
		allowed[w] = true
	}

	out := []WordCloudEntry{}
	for _, e := range cloud {
		if allowed[e.Name] {
			out = append(out, e)
		}
	}
	return out
}
