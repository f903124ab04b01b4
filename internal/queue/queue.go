// Package queue decouples change triggers from index writes. Two transports
// implement the same contract: an in-process channel for tests and local runs,
// and engine streams with consumer groups for deployments. Both are
// at-least-once: a delivery is only settled by an explicit Ack.
package queue

import (
	"context"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
)

// Delivery is one received job plus its transport receipt.
type Delivery struct {
	Job domain.Job
	// Receipt identifies the delivery to Ack. Opaque to consumers.
	Receipt string
}

// Queue is the producer and consumer contract for indexing jobs.
type Queue interface {
	// Enqueue submits a job. Validation happens at the enqueue edge so a
	// malformed job never enters the transport.
	Enqueue(ctx context.Context, job domain.Job) error
	// Receive blocks up to the context deadline for deliveries. A nil, nil
	// return means the wait elapsed with nothing pending.
	Receive(ctx context.Context, max int) ([]Delivery, error)
	// Ack settles a delivery so it is never redelivered.
	Ack(ctx context.Context, d Delivery) error
	// Park moves a job to the dead-letter destination after the retry budget
	// is spent, and settles the original delivery.
	Park(ctx context.Context, d Delivery) error
	// Depth reports pending jobs on the main destination.
	Depth(ctx context.Context) (int64, error)
	Close() error
}
