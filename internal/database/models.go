package database

import "time"

// ImportRecord describes one dataset import.
type ImportRecord struct {
	ID           int64
	Source       string
	MessageCount int
	LexiconCount int
	NodeCount    int
	EdgeCount    int
	ImportedAt   time.Time
}

// Stats contains aggregate database statistics.
type Stats struct {
	Messages   int
	Locations  int
	Topics     int
	Words      int
	GraphNodes int
	GraphEdges int
	Blocked    int
	Imports    int
	FirstTime  *time.Time
	LastTime   *time.Time
}
