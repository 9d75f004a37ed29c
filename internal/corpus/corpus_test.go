package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCorpus = `[
  {"index": 0, "time": "2020-04-06 08:00:00", "location": "Palace Hills", "account": "a1",
   "message": "Power out near the bridge", "message_words": "power bridge out",
   "message_revised": "power out bridge", "emotion": -0.5, "topic": "Utility Safety"},
  {"index": 1, "time": "2020-04-06T09:30:00Z", "location": "Downtown",
   "message_words": "shelter open downtown", "emotion": NaN, "topic": "Shelter"},
  {"index": 2, "time": "2020-04-07 10:00:00", "location": "Downtown",
   "message_words": "lol", "emotion": 0, "topic": "Junk"}
]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDecodeMessages(t *testing.T) {
	msgs, err := DecodeMessages(strings.NewReader(sampleCorpus))
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.True(t, time.Date(2020, 4, 6, 8, 0, 0, 0, time.UTC).Equal(msgs[0].Time))
	assert.True(t, time.Date(2020, 4, 6, 9, 30, 0, 0, time.UTC).Equal(msgs[1].Time))
	require.NotNil(t, msgs[0].Emotion)
	assert.Equal(t, -0.5, *msgs[0].Emotion)
	assert.Nil(t, msgs[1].Emotion, "NaN emotion should decode as nil")
	assert.Equal(t, JunkTopic, msgs[2].Topic)
}

func TestDecodeMessagesMissingField(t *testing.T) {
	_, err := DecodeMessages(strings.NewReader(`[{"index": 4, "location": "x", "message_words": "w", "topic": "t"}]`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDataset)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Time", verrs[0].Field())
}

func TestDecodeMessagesBadTimestamp(t *testing.T) {
	_, err := DecodeMessages(strings.NewReader(
		`[{"index": 0, "time": "not a time", "location": "", "message_words": "", "topic": "t"}]`))
	require.ErrorIs(t, err, ErrInvalidDataset)
	assert.Contains(t, err.Error(), "not a time")
}

func TestIndexZeroIsPresent(t *testing.T) {
	msgs, err := DecodeMessages(strings.NewReader(
		`[{"index": 0, "time": "2020-04-06", "location": "", "message_words": "", "topic": "t"}]`))
	require.NoError(t, err)
	assert.Equal(t, 0, msgs[0].Index)
}

func TestEmptyTopicIsPresent(t *testing.T) {
	msgs, err := DecodeMessages(strings.NewReader(
		`[{"index": 0, "time": "2020-04-06", "location": "Downtown", "message_words": "w", "topic": ""}]`))
	require.NoError(t, err)
	assert.Empty(t, msgs[0].Topic)

	_, err = DecodeMessages(strings.NewReader(
		`[{"index": 0, "time": "2020-04-06", "location": "Downtown", "message_words": "w"}]`))
	require.ErrorIs(t, err, ErrInvalidDataset)
}

func TestSanitizeNonFinite(t *testing.T) {
	in := `{"a": NaN, "b": -Infinity, "c": "NaN stays", "d": [Infinity, 1.5], "e": "esc \" NaN"}`
	want := `{"a": null, "b": null, "c": "NaN stays", "d": [null, 1.5], "e": "esc \" NaN"}`
	assert.Equal(t, want, string(SanitizeNonFinite([]byte(in))))

	plain := []byte(`{"a": 1}`)
	assert.Equal(t, plain, SanitizeNonFinite(plain))
}

func TestDecodeWordGraph(t *testing.T) {
	g, err := DecodeWordGraph(strings.NewReader(`{
		"nodes": [{"index": 0, "word": "power", "messages": [0]}, {"index": 1, "word": "bridge", "messages": [0]}],
		"links": [{"source": 0, "target": 1, "weight": 2.5}]
	}`))
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, WordGraphEdge{Source: 0, Target: 1, Weight: 2.5}, g.Links[0])

	_, err = DecodeWordGraph(strings.NewReader(`{"nodes": [{"index": 0, "messages": []}], "links": []}`))
	assert.ErrorIs(t, err, ErrInvalidDataset)
}

func TestDecodeBlockListDropsBlanks(t *testing.T) {
	words, err := DecodeBlockList(strings.NewReader(`["rt", " ", "", "http"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"rt", "http"}, words)
}

func TestValidate(t *testing.T) {
	base := func() *Dataset {
		return &Dataset{
			Messages: []Message{{Index: 0}, {Index: 1}},
			Lexicon:  []WordEntry{{Word: "power", Messages: []int{0, 1}}},
			Graph: WordGraph{
				Nodes: []WordGraphNode{{Index: 0, Word: "power", Messages: []int{0}}, {Index: 1, Word: "gas", Messages: []int{1}}},
				Links: []WordGraphEdge{{Source: 0, Target: 1, Weight: 1}},
			},
		}
	}
	require.NoError(t, Validate(base()))

	tests := []struct {
		name   string
		mutate func(ds *Dataset)
		want   string
	}{
		{"duplicate message", func(ds *Dataset) { ds.Messages[1].Index = 0 }, "duplicate message index 0"},
		{"duplicate word", func(ds *Dataset) { ds.Lexicon = append(ds.Lexicon, WordEntry{Word: "power"}) }, "duplicate lexicon word"},
		{"unknown lexicon ref", func(ds *Dataset) { ds.Lexicon[0].Messages = []int{7} }, "unknown message index 7"},
		{"unknown node ref", func(ds *Dataset) { ds.Graph.Nodes[0].Messages = []int{9} }, "unknown message index 9"},
		{"repeated lexicon ref", func(ds *Dataset) { ds.Lexicon[0].Messages = []int{0, 0, 0} }, "message index 0 listed twice"},
		{"repeated node ref", func(ds *Dataset) { ds.Graph.Nodes[1].Messages = []int{1, 0, 1} }, "message index 1 listed twice"},
		{"dangling target", func(ds *Dataset) { ds.Graph.Links[0].Target = 5 }, "target node 5 does not exist"},
		{"dangling source", func(ds *Dataset) { ds.Graph.Links[0].Source = -1 }, "source node -1 does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := base()
			tt.mutate(ds)
			err := Validate(ds)
			require.ErrorIs(t, err, ErrInvalidDataset)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	files := Files{
		Corpus:    writeFile(t, dir, "corpus.json", sampleCorpus),
		Lexicon:   writeFile(t, dir, "wordcloud.json", `[{"word": "power", "messages": [0]}]`),
		Graph:     writeFile(t, dir, "wordgraph.json", `{"nodes": [{"index": 3, "word": "power", "messages": [0]}], "links": []}`),
		BlockList: writeFile(t, dir, "blacklist.json", `["lol"]`),
	}

	ds, err := LoadFiles(files)
	require.NoError(t, err)
	assert.Len(t, ds.Messages, 3)
	assert.Len(t, ds.Lexicon, 1)
	assert.Equal(t, 3, ds.Graph.Nodes[0].Index)
	assert.Equal(t, []string{"lol"}, ds.BlockList)

	start, end, ok := ds.Span()
	require.True(t, ok)
	assert.True(t, time.Date(2020, 4, 6, 8, 0, 0, 0, time.UTC).Equal(start))
	assert.True(t, time.Date(2020, 4, 7, 10, 0, 0, 0, time.UTC).Equal(end))
	assert.Equal(t, []string{"Palace Hills", "Downtown"}, ds.Locations())
}

func TestLoadFilesRejectsDanglingLexicon(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadFiles(Files{
		Corpus:  writeFile(t, dir, "corpus.json", sampleCorpus),
		Lexicon: writeFile(t, dir, "wordcloud.json", `[{"word": "power", "messages": [42]}]`),
	})
	require.ErrorIs(t, err, ErrInvalidDataset)
}

func TestLoadFilesRequiresCorpus(t *testing.T) {
	_, err := LoadFiles(Files{})
	assert.ErrorIs(t, err, ErrInvalidDataset)
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"power", "outage", "bridge"}, Tokens("The POWER outage, the bridge power #rt"))
}

func TestBuildLexiconAndGraph(t *testing.T) {
	msgs := []Message{
		{Index: 10, MessageWords: "power water"},
		{Index: 11, MessageWords: "power water fire"},
		{Index: 12, MessageWords: "power fire"},
		{Index: 13, MessageWords: "water"},
	}
	lex := BuildLexicon(msgs, IndexOptions{MinDocFreq: 2})
	require.Len(t, lex, 3)
	assert.Equal(t, WordEntry{Word: "power", Messages: []int{10, 11, 12}}, lex[0])
	assert.Equal(t, WordEntry{Word: "water", Messages: []int{10, 11, 13}}, lex[1])
	assert.Equal(t, WordEntry{Word: "fire", Messages: []int{11, 12}}, lex[2])

	g := BuildWordGraph(lex, IndexOptions{MinCooccurrence: 2})
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, []WordGraphEdge{
		{Source: 0, Target: 1, Weight: 2},
		{Source: 0, Target: 2, Weight: 2},
	}, g.Links)

	capped := BuildWordGraph(lex, IndexOptions{GraphNodes: 1})
	assert.Len(t, capped.Nodes, 1)
	assert.Empty(t, capped.Links)

	require.NoError(t, Validate(&Dataset{Messages: msgs, Lexicon: lex, Graph: g}))
}
