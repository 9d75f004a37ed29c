// Package ingest loads a dataset from JSON files, fills in missing word
// indexes and stores the result in the SQLite database.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/TobiSchelling/crisisboard/internal/corpus"
	"github.com/TobiSchelling/crisisboard/internal/database"
	"github.com/TobiSchelling/crisisboard/internal/logging"
)

// StepResult holds the result of a single ingest step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full ingest run.
type Result struct {
	Source  string
	Steps   []StepResult
	Dataset *corpus.Dataset
}

// Failed reports whether any step returned an error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Ingester orchestrates the load, index and store steps.
type Ingester struct {
	db    *database.DB
	index corpus.IndexOptions
	log   zerolog.Logger
}

// New creates an ingester writing to db.
func New(db *database.DB, index corpus.IndexOptions) *Ingester {
	return &Ingester{db: db, index: index, log: logging.Component("ingest")}
}

// Run executes the three ingest steps. A failed load stops the run.
func (in *Ingester) Run(ctx context.Context, files corpus.Files) *Result {
	r := &Result{Source: files.Corpus}

	// Step 1: Load
	step, ds := in.runLoad(files)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}
	r.Dataset = ds

	if err := ctx.Err(); err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Index", Err: err})
		return r
	}

	// Step 2: Index
	r.Steps = append(r.Steps, in.runIndex(ds))

	if err := ctx.Err(); err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Store", Err: err})
		return r
	}

	// Step 3: Store
	r.Steps = append(r.Steps, in.runStore(files.Corpus, ds))
	return r
}

// DryRun loads and indexes the files without writing to the database. A nil
// database stands for one that does not exist yet.
func (in *Ingester) DryRun(files corpus.Files) *Result {
	r := &Result{Source: files.Corpus}

	step, ds := in.runLoad(files)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}
	r.Dataset = ds
	r.Steps = append(r.Steps, in.runIndex(ds))

	if in.db == nil {
		r.Steps = append(r.Steps, StepResult{
			Name: "Store",
			Summary: fmt.Sprintf("[dry-run] Would create a database with %s messages",
				humanize.Comma(int64(len(ds.Messages)))),
		})
		return r
	}

	stats, err := in.db.GetStats()
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Store", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{
		Name: "Store",
		Summary: fmt.Sprintf("[dry-run] Would replace %s stored messages with %s",
			humanize.Comma(int64(stats.Messages)), humanize.Comma(int64(len(ds.Messages)))),
	})
	return r
}

// Reindex rebuilds the lexicon and word graph of the stored dataset.
func (in *Ingester) Reindex() StepResult {
	in.log.Info().Msg("rebuilding word indexes")
	ds, err := in.db.LoadDataset()
	if err != nil {
		return StepResult{Name: "Index", Err: err}
	}

	lexicon := corpus.BuildLexicon(ds.Messages, in.index)
	graph := corpus.BuildWordGraph(lexicon, in.index)
	if err := in.db.ReplaceIndexes(lexicon, graph); err != nil {
		return StepResult{Name: "Index", Err: fmt.Errorf("storing indexes: %w", err)}
	}
	return StepResult{
		Name: "Index",
		Summary: fmt.Sprintf("Rebuilt %s words and %d graph nodes with %d links",
			humanize.Comma(int64(len(lexicon))), len(graph.Nodes), len(graph.Links)),
	}
}

func (in *Ingester) runLoad(files corpus.Files) (StepResult, *corpus.Dataset) {
	in.log.Info().Str("corpus", files.Corpus).Msg("step 1/3: loading dataset")
	started := time.Now()
	ds, err := corpus.LoadFiles(files)
	if err != nil {
		return StepResult{Name: "Load", Err: err}, nil
	}

	summary := fmt.Sprintf("Loaded %s messages in %s", humanize.Comma(int64(len(ds.Messages))), time.Since(started).Round(time.Millisecond))
	if start, end, ok := ds.Span(); ok {
		summary += fmt.Sprintf(" spanning %s to %s", start.Format(time.DateTime), end.Format(time.DateTime))
	}
	return StepResult{Name: "Load", Summary: summary}, ds
}

// runIndex builds whichever of the lexicon and word graph the files did
// not supply.
func (in *Ingester) runIndex(ds *corpus.Dataset) StepResult {
	in.log.Info().Msg("step 2/3: checking word indexes")
	var built []string

	if len(ds.Lexicon) == 0 {
		ds.Lexicon = corpus.BuildLexicon(ds.Messages, in.index)
		built = append(built, "lexicon")
	}
	if len(ds.Graph.Nodes) == 0 {
		ds.Graph = corpus.BuildWordGraph(ds.Lexicon, in.index)
		built = append(built, "word graph")
	}

	verb := "Using precomputed"
	if len(built) > 0 {
		verb = fmt.Sprintf("Built %v;", built)
	}
	return StepResult{
		Name: "Index",
		Summary: fmt.Sprintf("%s %s words, %d graph nodes, %d links",
			verb, humanize.Comma(int64(len(ds.Lexicon))), len(ds.Graph.Nodes), len(ds.Graph.Links)),
	}
}

func (in *Ingester) runStore(source string, ds *corpus.Dataset) StepResult {
	in.log.Info().Str("db", in.db.Path()).Msg("step 3/3: storing dataset")
	rec, err := in.db.ImportDataset(source, ds)
	if err != nil {
		return StepResult{Name: "Store", Err: err}
	}
	return StepResult{
		Name:    "Store",
		Summary: fmt.Sprintf("Import #%d stored %s messages", rec.ID, humanize.Comma(int64(rec.MessageCount))),
	}
}
