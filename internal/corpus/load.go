// Package corpus holds the static inputs of the dashboard: the message
// corpus, the lexicon index, the word co-occurrence graph and the initial
// block list, together with their loaders and load-time validation.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"

	"github.com/TobiSchelling/crisisboard/internal/logging"
)

// ErrInvalidDataset is wrapped by every load-time validation failure.
var ErrInvalidDataset = errors.New("invalid dataset")

var validate = validator.New()

// Files names the source files of a dataset. Only Corpus is required.
type Files struct {
	Corpus    string
	Lexicon   string
	Graph     string
	BlockList string
}

type messageRecord struct {
	Index          *int     `json:"index" validate:"required"`
	Time           *string  `json:"time" validate:"required,min=1"`
	Location       *string  `json:"location" validate:"required"`
	Account        string   `json:"account"`
	Message        string   `json:"message"`
	At             []string `json:"at"`
	Tag            []string `json:"tag"`
	MessageWords   *string  `json:"message_words" validate:"required"`
	MessageRevised string   `json:"message_revised"`
	Emotion        *float64 `json:"emotion"`
	Topic          *string  `json:"topic" validate:"required"`
}

type wordRecord struct {
	Word     *string `json:"word" validate:"required,min=1"`
	Messages []int   `json:"messages" validate:"required"`
}

type nodeRecord struct {
	Index    *int    `json:"index" validate:"required"`
	Word     *string `json:"word" validate:"required,min=1"`
	Messages []int   `json:"messages" validate:"required"`
}

type linkRecord struct {
	Source *int     `json:"source" validate:"required"`
	Target *int     `json:"target" validate:"required"`
	Weight *float64 `json:"weight" validate:"required"`
}

type graphRecord struct {
	Nodes []nodeRecord `json:"nodes" validate:"required,dive"`
	Links []linkRecord `json:"links" validate:"required,dive"`
}

// LoadFiles reads and validates a dataset from JSON files.
func LoadFiles(files Files) (*Dataset, error) {
	log := logging.Component("corpus")
	if files.Corpus == "" {
		return nil, fmt.Errorf("%w: no corpus file configured", ErrInvalidDataset)
	}

	ds := &Dataset{}
	var err error

	if ds.Messages, err = decodeFile(files.Corpus, DecodeMessages); err != nil {
		return nil, err
	}
	if files.Lexicon != "" {
		if ds.Lexicon, err = decodeFile(files.Lexicon, DecodeLexicon); err != nil {
			return nil, err
		}
	}
	if files.Graph != "" {
		graph, err := decodeFile(files.Graph, DecodeWordGraph)
		if err != nil {
			return nil, err
		}
		ds.Graph = *graph
	}
	if files.BlockList != "" {
		if ds.BlockList, err = decodeFile(files.BlockList, DecodeBlockList); err != nil {
			return nil, err
		}
	}

	if err := Validate(ds); err != nil {
		return nil, err
	}

	log.Info().
		Int("messages", len(ds.Messages)).
		Int("words", len(ds.Lexicon)).
		Int("graph_nodes", len(ds.Graph.Nodes)).
		Int("graph_links", len(ds.Graph.Links)).
		Int("blocked", len(ds.BlockList)).
		Msg("dataset loaded")
	return ds, nil
}

func decodeFile[T any](path string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	v, err := decode(f)
	if err != nil {
		return zero, fmt.Errorf("loading %s: %w", path, err)
	}
	return v, nil
}

// DecodeMessages decodes a JSON array of messages. Non-finite emotion scores
// (NaN, Infinity) become nil; a missing field or an unparsable timestamp is an
// error.
func DecodeMessages(r io.Reader) ([]Message, error) {
	var records []messageRecord
	if err := decodeSanitized(r, &records); err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(records))
	for i, rec := range records {
		if err := validate.Struct(rec); err != nil {
			return nil, fmt.Errorf("%w: message #%d: %w", ErrInvalidDataset, i, err)
		}
		ts, err := ParseTime(*rec.Time)
		if err != nil {
			return nil, fmt.Errorf("%w: message %d: %w", ErrInvalidDataset, *rec.Index, err)
		}
		messages = append(messages, Message{
			Index:          *rec.Index,
			Time:           ts,
			Location:       *rec.Location,
			Account:        rec.Account,
			Message:        rec.Message,
			At:             rec.At,
			Tag:            rec.Tag,
			MessageWords:   *rec.MessageWords,
			MessageRevised: rec.MessageRevised,
			Emotion:        rec.Emotion,
			Topic:          *rec.Topic,
		})
	}
	return messages, nil
}

// DecodeLexicon decodes a JSON array of {word, messages} records.
func DecodeLexicon(r io.Reader) ([]WordEntry, error) {
	var records []wordRecord
	if err := decodeSanitized(r, &records); err != nil {
		return nil, err
	}

	entries := make([]WordEntry, 0, len(records))
	for i, rec := range records {
		if err := validate.Struct(rec); err != nil {
			return nil, fmt.Errorf("%w: word #%d: %w", ErrInvalidDataset, i, err)
		}
		entries = append(entries, WordEntry{Word: *rec.Word, Messages: rec.Messages})
	}
	return entries, nil
}

// DecodeWordGraph decodes a {nodes, links} JSON document.
func DecodeWordGraph(r io.Reader) (*WordGraph, error) {
	var rec graphRecord
	if err := decodeSanitized(r, &rec); err != nil {
		return nil, err
	}
	if err := validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("%w: word graph: %w", ErrInvalidDataset, err)
	}

	g := &WordGraph{
		Nodes: make([]WordGraphNode, 0, len(rec.Nodes)),
		Links: make([]WordGraphEdge, 0, len(rec.Links)),
	}
	for _, n := range rec.Nodes {
		g.Nodes = append(g.Nodes, WordGraphNode{Index: *n.Index, Word: *n.Word, Messages: n.Messages})
	}
	for _, l := range rec.Links {
		g.Links = append(g.Links, WordGraphEdge{Source: *l.Source, Target: *l.Target, Weight: *l.Weight})
	}
	return g, nil
}

// DecodeBlockList decodes a JSON array of strings. Blank entries are dropped.
func DecodeBlockList(r io.Reader) ([]string, error) {
	var words []string
	if err := decodeSanitized(r, &words); err != nil {
		return nil, err
	}
	out := words[:0]
	for _, w := range words {
		if strings.TrimSpace(w) != "" {
			out = append(out, w)
		}
	}
	return out, nil
}

// ParseTime parses a corpus or filter timestamp. Zone-less values are UTC.
func ParseTime(s string) (time.Time, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}

func decodeSanitized(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading: %w", err)
	}
	if err := json.Unmarshal(SanitizeNonFinite(data), v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	return nil
}
