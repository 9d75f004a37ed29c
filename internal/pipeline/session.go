package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/crisisboard/internal/corpus"
	"github.com/TobiSchelling/crisisboard/internal/logging"
)

// Variant selects which aggregates a dashboard configuration publishes.
type Variant string

const (
	// VariantCharts publishes the word cloud, special-word and topic charts.
	VariantCharts Variant = "charts"
	// VariantGraph publishes the word cloud and the word co-occurrence graph.
	VariantGraph Variant = "graph"
)

// ParseVariant validates a variant name. Empty means charts.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantCharts:
		return VariantCharts, nil
	case VariantGraph:
		return VariantGraph, nil
	}
	return "", fmt.Errorf("unknown dashboard variant %q (want %q or %q)", s, VariantCharts, VariantGraph)
}

// Options tunes aggregation. Zero fields take the package defaults.
type Options struct {
	Variant      Variant
	MinSupport   int
	TopWords     int
	GraphNodes   int
	SpecialWords []string
}

// DefaultOptions returns the standard charts configuration.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.Variant == "" {
		o.Variant = VariantCharts
	}
	if o.MinSupport <= 0 {
		o.MinSupport = DefaultMinSupport
	}
	if o.TopWords <= 0 {
		o.TopWords = DefaultTopWords
	}
	if o.GraphNodes <= 0 {
		o.GraphNodes = DefaultGraphNodes
	}
	if len(o.SpecialWords) == 0 {
		o.SpecialWords = DefaultSpecialWords
	}
	return o
}

// Phase is the dispatch state of a Session.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseMutating
	PhaseRecomputing
	PhasePublished
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseMutating:
		return "mutating"
	case PhaseRecomputing:
		return "recomputing"
	case PhasePublished:
		return "published"
	}
	return fmt.Sprintf("phase(%d)", int32(p))
}

// Action names the user action behind a transaction.
type Action string

const (
	ActionInit      Action = "init"
	ActionTimeRange Action = "time_range"
	ActionKeyword   Action = "keyword"
	ActionLocation  Action = "location"
	ActionWord      Action = "word"
	ActionTopic     Action = "topic"
	ActionBlockList Action = "block_list"
	ActionReset     Action = "reset"
)

// Step names one recomputation inside a transaction.
type Step string

const (
	StepFilter       Step = "filter"
	StepHeatmap      Step = "heatmap"
	StepWordCloud    Step = "word_cloud"
	StepSpecialWords Step = "special_words"
	StepTopics       Step = "topics"
	StepWordGraph    Step = "word_graph"
)

// Snapshot is everything one transaction published. Snapshots are immutable;
// a consumer holding one sees a single consistent filter state across all
// outputs. Outputs not produced by the session's variant are nil.
type Snapshot struct {
	Revision     uint64             `json:"revision"`
	Action       Action             `json:"action"`
	Variant      Variant            `json:"variant"`
	Filters      FilterState        `json:"filters"`
	Filtered     []corpus.Message   `json:"filteredView"`
	Heatmap      []corpus.Message   `json:"heatmapData"`
	WordCloud    []WordCloudEntry   `json:"wordCloud"`
	SpecialWords []WordCloudEntry   `json:"specialTopicWords"`
	Topics       []TopicCount       `json:"topicCounts"`
	WordGraph    *FilteredWordGraph `json:"filteredWordGraph"`
	Steps        []Step             `json:"steps"`
	PublishedAt  time.Time          `json:"publishedAt"`
}

// Observer is notified after every published transaction.
type Observer interface {
	TransactionPublished(snap *Snapshot, elapsed time.Duration)
}

// Session owns the filter state of one dashboard and publishes aggregate
// snapshots. Transactions are serialized; Snapshot never blocks.
type Session struct {
	mu        sync.Mutex
	data      *corpus.Dataset
	opts      Options
	filters   FilterState
	blocked   BlockSet
	revision  uint64
	observers []Observer
	log       zerolog.Logger

	phase   atomic.Int32
	current atomic.Pointer[Snapshot]
}

// NewSession creates a session over an immutable dataset and publishes the
// initial snapshot. The initial filter has no time range, so every output
// starts empty.
func NewSession(data *corpus.Dataset, opts Options, observers ...Observer) *Session {
	s := &Session{
		data:      data,
		opts:      opts.withDefaults(),
		observers: observers,
		log:       logging.Component("pipeline"),
	}
	s.dispatch(ActionInit, func(f *FilterState) {
		f.BlockList = CleanBlockList(data.BlockList)
	})
	return s
}

// Dataset returns the session's read-only dataset.
func (s *Session) Dataset() *corpus.Dataset { return s.data }

// Options returns the effective aggregation options.
func (s *Session) Options() Options { return s.opts }

// Snapshot returns the last published snapshot.
func (s *Session) Snapshot() *Snapshot { return s.current.Load() }

// Phase returns the current dispatch phase.
func (s *Session) Phase() Phase { return Phase(s.phase.Load()) }

// SetTimeRange sets both time bounds. A nil bound empties the filtered view.
func (s *Session) SetTimeRange(start, end *time.Time) *Snapshot {
	return s.dispatch(ActionTimeRange, func(f *FilterState) {
		f.Start, f.End = copyTime(start), copyTime(end)
	})
}

// SetKeyword sets the keyword substring predicate.
func (s *Session) SetKeyword(keyword string) *Snapshot {
	return s.dispatch(ActionKeyword, func(f *FilterState) { f.Keyword = keyword })
}

// SetLocation sets the exact-match location predicate.
func (s *Session) SetLocation(location string) *Snapshot {
	return s.dispatch(ActionLocation, func(f *FilterState) { f.Location = location })
}

// SelectWord sets the word chosen on the word charts. Empty clears it.
func (s *Session) SelectWord(word string) *Snapshot {
	return s.dispatch(ActionWord, func(f *FilterState) { f.Word = word })
}

// SelectTopic sets the topic chosen on the topic chart. Empty clears it.
func (s *Session) SelectTopic(topic string) *Snapshot {
	return s.dispatch(ActionTopic, func(f *FilterState) { f.Topic = topic })
}

// SetBlockList replaces the block list.
func (s *Session) SetBlockList(words []string) *Snapshot {
	return s.dispatch(ActionBlockList, func(f *FilterState) { f.BlockList = CleanBlockList(words) })
}

// Reset widens the time range to the whole corpus and clears every other
// predicate, so the filtered view is the full corpus. The block list stays.
func (s *Session) Reset() *Snapshot {
	return s.dispatch(ActionReset, func(f *FilterState) {
		f.Start, f.End = nil, nil
		if start, end, ok := s.data.Span(); ok {
			f.Start, f.End = &start, &end
		}
		f.Keyword, f.Location, f.Word, f.Topic = "", "", "", ""
	})
}

// dispatch runs one transaction: apply the mutation, recompute every
// dependent output, publish them together.
func (s *Session) dispatch(action Action, mutate func(*FilterState)) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := time.Now()

	s.phase.Store(int32(PhaseMutating))
	mutate(&s.filters)
	s.blocked = NewBlockSet(s.filters.BlockList)

	s.phase.Store(int32(PhaseRecomputing))
	s.revision++
	snap := s.recompute(action)

	s.phase.Store(int32(PhasePublished))
	s.current.Store(snap)
	elapsed := time.Since(started)
	for _, o := range s.observers {
		o.TransactionPublished(snap, elapsed)
	}
	s.phase.Store(int32(PhaseIdle))

	s.log.Debug().
		Str("action", string(action)).
		Uint64("revision", snap.Revision).
		Int("filtered", len(snap.Filtered)).
		Dur("elapsed", elapsed).
		Msg("snapshot published")
	return snap
}

func (s *Session) recompute(action Action) *Snapshot {
	snap := &Snapshot{
		Revision: s.revision,
		Action:   action,
		Variant:  s.opts.Variant,
		Filters:  s.filters.Clone(),
	}

	snap.Filtered = Apply(s.data.Messages, s.filters)
	snap.Steps = append(snap.Steps, StepFilter)

	snap.Heatmap = Heatmap(snap.Filtered)
	snap.Steps = append(snap.Steps, StepHeatmap)

	snap.WordCloud = WordCloud(snap.Filtered, s.data.Lexicon, s.blocked, s.opts)
	snap.Steps = append(snap.Steps, StepWordCloud)

	switch s.opts.Variant {
	case VariantGraph:
		graph := FilterWordGraph(snap.Filtered, s.data.Graph, s.blocked, s.opts)
		snap.WordGraph = &graph
		snap.Steps = append(snap.Steps, StepWordGraph)
	default:
		snap.SpecialWords = SpecialWords(snap.WordCloud, s.opts.SpecialWords)
		snap.Steps = append(snap.Steps, StepSpecialWords)

		snap.Topics = TopicCounts(snap.Filtered)
		snap.Steps = append(snap.Steps, StepTopics)
	}

	snap.PublishedAt = time.Now().UTC()
	return snap
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
