package service

import "context"

// Job queues consumed by the worker pool.
const (
	QueueLookup = "jobs:lookup"
	QueueEmail  = "jobs:email"
)

// Queue enqueues a JSON-encoded job payload for background processing.
// Implemented by the Redis-backed worker dispatcher.
type Queue interface {
	Enqueue(ctx context.Context, queue string, payload interface{}) error
}

// EnrichEntityJob asks the lookup worker to fill in catalog product data for
// an entity created from a bare barcode scan.
type EnrichEntityJob struct {
	EntityID string `json:"entity_id"`
}

// EmailExportJob asks the email worker to generate a CSV export and mail it.
type EmailExportJob struct {
	ToEmail    string `json:"to_email"`
	EntityType string `json:"entity_type,omitempty"`
}
