package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TobiSchelling/crisisboard/internal/corpus"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ImportDataset replaces the stored dataset with ds in one transaction and
// records the import. The dataset is validated first.
func (db *DB) ImportDataset(source string, ds *corpus.Dataset) (*ImportRecord, error) {
	if err := corpus.Validate(ds); err != nil {
		return nil, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, table := range []string{"graph_edges", "graph_nodes", "lexicon", "messages", "blocklist"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return nil, fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	stmt, err := tx.Prepare(
		`INSERT INTO messages (idx, position, time, location, account, message, at_accounts,
		tags, message_words, message_revised, emotion, topic)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for i, m := range ds.Messages {
		at, err := json.Marshal(nonNil(m.At))
		if err != nil {
			return nil, err
		}
		tags, err := json.Marshal(nonNil(m.Tag))
		if err != nil {
			return nil, err
		}
		if _, err := stmt.Exec(m.Index, i, m.Time.UTC().Format(timeLayout), m.Location, m.Account,
			m.Message, string(at), string(tags), m.MessageWords, m.MessageRevised, m.Emotion, m.Topic,
		); err != nil {
			return nil, fmt.Errorf("inserting message %d: %w", m.Index, err)
		}
	}

	if err := insertIndexes(tx, ds.Lexicon, ds.Graph); err != nil {
		return nil, err
	}
	if err := insertBlockList(tx, ds.BlockList); err != nil {
		return nil, err
	}

	rec := &ImportRecord{
		Source:       source,
		MessageCount: len(ds.Messages),
		LexiconCount: len(ds.Lexicon),
		NodeCount:    len(ds.Graph.Nodes),
		EdgeCount:    len(ds.Graph.Links),
	}
	result, err := tx.Exec(
		`INSERT INTO imports (source, message_count, lexicon_count, node_count, edge_count)
		VALUES (?, ?, ?, ?, ?)`,
		rec.Source, rec.MessageCount, rec.LexiconCount, rec.NodeCount, rec.EdgeCount,
	)
	if err != nil {
		return nil, fmt.Errorf("recording import: %w", err)
	}
	if rec.ID, err = result.LastInsertId(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	db.log.Info().
		Str("source", source).
		Int("messages", rec.MessageCount).
		Int("words", rec.LexiconCount).
		Int("nodes", rec.NodeCount).
		Msg("dataset imported")
	return rec, nil
}

// ReplaceIndexes swaps the stored lexicon and word graph, leaving messages
// untouched. References must resolve against the stored messages.
func (db *DB) ReplaceIndexes(lexicon []corpus.WordEntry, graph corpus.WordGraph) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"graph_edges", "graph_nodes", "lexicon"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	if err := insertIndexes(tx, lexicon, graph); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadDataset reads the stored dataset back in corpus order. The result is
// validated like a dataset loaded from files.
func (db *DB) LoadDataset() (*corpus.Dataset, error) {
	ds := &corpus.Dataset{}

	messages, err := db.loadMessages()
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	ds.Messages = messages

	if ds.Lexicon, err = db.loadLexicon(); err != nil {
		return nil, fmt.Errorf("loading lexicon: %w", err)
	}
	if ds.Graph, err = db.loadGraph(); err != nil {
		return nil, fmt.Errorf("loading word graph: %w", err)
	}
	if ds.BlockList, err = db.GetBlockList(); err != nil {
		return nil, fmt.Errorf("loading block list: %w", err)
	}

	if err := corpus.Validate(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (db *DB) loadMessages() ([]corpus.Message, error) {
	rows, err := db.conn.Query(
		`SELECT idx, time, location, account, message, at_accounts, tags,
		message_words, message_revised, emotion, topic
		FROM messages ORDER BY position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []corpus.Message{}
	for rows.Next() {
		var m corpus.Message
		var ts, at, tags string
		var emotion sql.NullFloat64
		if err := rows.Scan(&m.Index, &ts, &m.Location, &m.Account, &m.Message, &at, &tags,
			&m.MessageWords, &m.MessageRevised, &emotion, &m.Topic); err != nil {
			return nil, err
		}
		if m.Time, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("message %d: %w", m.Index, err)
		}
		if err := json.Unmarshal([]byte(at), &m.At); err != nil {
			return nil, fmt.Errorf("message %d at: %w", m.Index, err)
		}
		if err := json.Unmarshal([]byte(tags), &m.Tag); err != nil {
			return nil, fmt.Errorf("message %d tags: %w", m.Index, err)
		}
		if emotion.Valid {
			v := emotion.Float64
			m.Emotion = &v
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (db *DB) loadLexicon() ([]corpus.WordEntry, error) {
	rows, err := db.conn.Query("SELECT word, messages FROM lexicon ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lexicon := []corpus.WordEntry{}
	for rows.Next() {
		var e corpus.WordEntry
		var refs string
		if err := rows.Scan(&e.Word, &refs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(refs), &e.Messages); err != nil {
			return nil, fmt.Errorf("word %q: %w", e.Word, err)
		}
		lexicon = append(lexicon, e)
	}
	return lexicon, rows.Err()
}

func (db *DB) loadGraph() (corpus.WordGraph, error) {
	graph := corpus.WordGraph{Nodes: []corpus.WordGraphNode{}, Links: []corpus.WordGraphEdge{}}

	rows, err := db.conn.Query("SELECT idx, word, messages FROM graph_nodes ORDER BY position")
	if err != nil {
		return graph, err
	}
	defer rows.Close()
	for rows.Next() {
		var n corpus.WordGraphNode
		var refs string
		if err := rows.Scan(&n.Index, &n.Word, &refs); err != nil {
			return graph, err
		}
		if err := json.Unmarshal([]byte(refs), &n.Messages); err != nil {
			return graph, fmt.Errorf("node %d: %w", n.Index, err)
		}
		graph.Nodes = append(graph.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return graph, err
	}

	edges, err := db.conn.Query("SELECT source, target, weight FROM graph_edges ORDER BY position")
	if err != nil {
		return graph, err
	}
	defer edges.Close()
	for edges.Next() {
		var e corpus.WordGraphEdge
		if err := edges.Scan(&e.Source, &e.Target, &e.Weight); err != nil {
			return graph, err
		}
		graph.Links = append(graph.Links, e)
	}
	return graph, edges.Err()
}

func insertIndexes(tx *sql.Tx, lexicon []corpus.WordEntry, graph corpus.WordGraph) error {
	for i, e := range lexicon {
		refs, err := json.Marshal(nonNilInts(e.Messages))
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT INTO lexicon (word, position, messages) VALUES (?, ?, ?)",
			e.Word, i, string(refs),
		); err != nil {
			return fmt.Errorf("inserting word %q: %w", e.Word, err)
		}
	}

	for i, n := range graph.Nodes {
		refs, err := json.Marshal(nonNilInts(n.Messages))
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT INTO graph_nodes (idx, position, word, messages) VALUES (?, ?, ?, ?)",
			n.Index, i, n.Word, string(refs),
		); err != nil {
			return fmt.Errorf("inserting node %d: %w", n.Index, err)
		}
	}

	for i, e := range graph.Links {
		if _, err := tx.Exec(
			"INSERT INTO graph_edges (source, target, position, weight) VALUES (?, ?, ?, ?)",
			e.Source, e.Target, i, e.Weight,
		); err != nil {
			return fmt.Errorf("inserting link %d-%d: %w", e.Source, e.Target, err)
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
