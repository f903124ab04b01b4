package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAggregateNotFound signals that the aggregate no longer exists in the
	// relational store; callers must convert the pending upsert into a delete.
	ErrAggregateNotFound = errors.New("aggregate not found")
	// ErrDocumentNotFound signals a missing composite document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidTenant signals a malformed tenant identifier.
	ErrInvalidTenant = errors.New("invalid tenant id")
	// ErrInvalidJob signals a malformed queue job.
	ErrInvalidJob = errors.New("invalid job")
	// ErrUnknownLabel signals a label outside its family's enumeration.
	ErrUnknownLabel = errors.New("unknown association label")
	// ErrQueueClosed signals an enqueue on a stopped queue.
	ErrQueueClosed = errors.New("queue closed")
)
