// Package domain contains the core data types shared across the ingestion
// pipeline.
package domain

import "time"

// IngestRecord is the durable provenance row written for every ingested item.
// Filename is the unique key; re-ingesting the same filename overwrites the
// blob location and source URL (last-write-wins).
type IngestRecord struct {
	Filename      string `db:"filename"       json:"filename"`
	BlobName      string `db:"blobname"       json:"blobname"`
	SharePointURL string `db:"sharepoint_url" json:"sharepoint_url"`
}

// OutcomeStatus classifies the result of processing a single item.
type OutcomeStatus string

const (
	// StatusIngested means the item was stored and its metadata recorded.
	StatusIngested OutcomeStatus = "ingested"
	// StatusSkipped means the item was deliberately not ingested
	// (exclusion rule, exhausted retries, unparsable payload).
	StatusSkipped OutcomeStatus = "skipped"
	// StatusFailed means a storage write failed; the item will be picked
	// up again on the next full run.
	StatusFailed OutcomeStatus = "failed"
)

// ItemOutcome records what happened to one discovered item.
type ItemOutcome struct {
	Name   string        `json:"name"`
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// RunSummary aggregates the outcomes of one ingestion run.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Sites     int           `json:"sites"`
	Drives    int           `json:"drives"`
	Files     int           `json:"files"`
	Pages     int           `json:"pages"`
	Ingested  int           `json:"ingested"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
}

// Add folds a single item outcome into the summary counters.
func (s *RunSummary) Add(o ItemOutcome) {
	switch o.Status {
	case StatusIngested:
		s.Ingested++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
}
