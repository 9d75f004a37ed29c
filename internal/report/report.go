// Package report renders a dashboard snapshot as Markdown.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/TobiSchelling/crisisboard/internal/pipeline"
)

// DefaultTopN is how many rows each ranked section shows.
const DefaultTopN = 10

// Options controls report rendering.
type Options struct {
	TopN int
}

// Render writes the snapshot as a Markdown document.
func Render(snap *pipeline.Snapshot, opts Options) string {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}

	var b strings.Builder
	b.WriteString("# Crisis Dashboard Report\n\n")
	fmt.Fprintf(&b, "Revision %d (%s, %s variant)\n\n", snap.Revision, snap.Action, snap.Variant)

	writeFilters(&b, snap.Filters)

	fmt.Fprintf(&b, "## Messages\n\n%s messages match the current filters.\n\n", humanize.Comma(int64(len(snap.Filtered))))
	if len(snap.Filtered) == 0 {
		return b.String()
	}

	writeLocations(&b, snap, opts.TopN)
	writeWords(&b, "Top Words", snap.WordCloud, opts.TopN)

	switch snap.Variant {
	case pipeline.VariantGraph:
		writeGraph(&b, snap.WordGraph, opts.TopN)
	default:
		writeWords(&b, "Special Topic Words", snap.SpecialWords, opts.TopN)
		writeTopics(&b, snap.Topics)
	}
	return b.String()
}

func writeFilters(b *strings.Builder, f pipeline.FilterState) {
	b.WriteString("## Filters\n\n")
	if f.HasTimeRange() {
		fmt.Fprintf(b, "- **Time range:** %s to %s\n", f.Start.Format(time.DateTime), f.End.Format(time.DateTime))
	} else {
		b.WriteString("- **Time range:** not set\n")
	}
	for _, p := range []struct{ label, value string }{
		{"Keyword", f.Keyword},
		{"Location", f.Location},
		{"Word", f.Word},
		{"Topic", f.Topic},
	} {
		if p.value != "" {
			fmt.Fprintf(b, "- **%s:** %s\n", p.label, p.value)
		}
	}
	if len(f.BlockList) > 0 {
		fmt.Fprintf(b, "- **Blocked words:** %s\n", strings.Join(f.BlockList, ", "))
	}
	b.WriteString("\n")
}

func writeLocations(b *strings.Builder, snap *pipeline.Snapshot, topN int) {
	counts := make(map[string]int)
	var order []string
	for _, m := range snap.Heatmap {
		if _, ok := counts[m.Location]; !ok {
			order = append(order, m.Location)
		}
		counts[m.Location]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > topN {
		order = order[:topN]
	}

	b.WriteString("## Locations\n\n| Location | Messages |\n|---|---:|\n")
	for _, loc := range order {
		name := loc
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(b, "| %s | %s |\n", name, humanize.Comma(int64(counts[loc])))
	}
	b.WriteString("\n")
}

func writeWords(b *strings.Builder, title string, words []pipeline.WordCloudEntry, topN int) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if len(words) == 0 {
		b.WriteString("No words reach the minimum support.\n\n")
		return
	}
	if len(words) > topN {
		words = words[:topN]
	}
	b.WriteString("| Word | Messages | Sentiment |\n|---|---:|---:|\n")
	for _, w := range words {
		fmt.Fprintf(b, "| %s | %s | %+.2f |\n", w.Name, humanize.Comma(int64(w.Value)), w.Sentiment)
	}
	b.WriteString("\n")
}

func writeTopics(b *strings.Builder, topics []pipeline.TopicCount) {
	b.WriteString("## Topics\n\n")
	if len(topics) == 0 {
		b.WriteString("No categorized messages.\n\n")
		return
	}
	total := 0
	for _, t := range topics {
		total += t.Value
	}
	b.WriteString("| Topic | Messages | Share |\n|---|---:|---:|\n")
	for _, t := range topics {
		fmt.Fprintf(b, "| %s | %s | %s%% |\n", t.Name, humanize.Comma(int64(t.Value)),
			humanize.Ftoa(math.Round(1000*float64(t.Value)/float64(total))/10))
	}
	b.WriteString("\n")
}

func writeGraph(b *strings.Builder, g *pipeline.FilteredWordGraph, topN int) {
	b.WriteString("## Word Graph\n\n")
	if g == nil || len(g.Nodes) == 0 {
		b.WriteString("No graph words occur in the filtered messages.\n\n")
		return
	}
	fmt.Fprintf(b, "%d words, %d links.\n\n", len(g.Nodes), len(g.Links))

	words := make(map[int]string, len(g.Nodes))
	for _, n := range g.Nodes {
		words[n.Index] = n.Word
	}
	links := append(g.Links[:0:0], g.Links...)
	sort.SliceStable(links, func(i, j int) bool { return links[i].Weight > links[j].Weight })
	if len(links) > topN {
		links = links[:topN]
	}
	if len(links) == 0 {
		return
	}
	b.WriteString("| Words | Weight |\n|---|---:|\n")
	for _, l := range links {
		fmt.Fprintf(b, "| %s / %s | %s |\n", words[l.Source], words[l.Target], humanize.Ftoa(l.Weight))
	}
	b.WriteString("\n")
}
