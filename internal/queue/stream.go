package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nick-gallo-ethico/caseindex/internal/db"
	"github.com/nick-gallo-ethico/caseindex/internal/domain"
	"github.com/nick-gallo-ethico/caseindex/internal/metrics"
)

var _ Queue = (*Stream)(nil)

// jobField is the stream entry field carrying the serialized job.
const jobField = "job"

// DeadSuffix names the dead-letter stream relative to the main stream.
const DeadSuffix = ":dead"

// claimIdle is how long an entry may sit in any consumer's pending list
// before another Receive claims and redelivers it. Crashed consumers leave
// pending entries behind; this bound is what gets them reprocessed.
const claimIdle = 30 * time.Second

// Stream is the consumer-group stream transport. One group, N consumers.
// Unacked entries stay in the owning consumer's pending list and are
// reclaimed by any live consumer once claimIdle passes.
type Stream struct {
	store    db.Streamer
	stream   string
	group    string
	consumer string
	block    time.Duration
	logger   *zap.Logger
}

// NewStream creates the stream transport and ensures the consumer group
// exists. The consumer name is unique per process so pending-entry ownership
// stays attributable.
func NewStream(ctx context.Context, store db.Streamer, stream, group string, block time.Duration, logger *zap.Logger) (*Stream, error) {
	if block <= 0 {
		block = 2 * time.Second
	}
	err := store.StreamGroupCreate(ctx, stream, group)
	if err != nil && !errors.Is(err, db.ErrGroupExists) {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return &Stream{
		store:    store,
		stream:   stream,
		group:    group,
		consumer: "caseindex-" + uuid.NewString(),
		block:    block,
		logger:   logger,
	}, nil
}

func (s *Stream) Enqueue(ctx context.Context, job domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	_, err = s.store.StreamAdd(ctx, s.stream, map[string]string{jobField: string(payload)})
	return err
}

// Receive first reclaims entries left pending past claimIdle (crashed or
// stalled consumers), then reads new entries. Unparsable payloads are settled
// to the dead-letter stream without failing the rest of the batch.
func (s *Stream) Receive(ctx context.Context, max int) ([]Delivery, error) {
	if max <= 0 {
		max = 1
	}
	entries, err := s.store.StreamAutoClaim(ctx, s.stream, s.group, s.consumer, claimIdle, max)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		entries, err = s.store.StreamReadGroup(ctx, s.stream, s.group, s.consumer, max, s.block)
		if err != nil {
			return nil, err
		}
	}

	out := make([]Delivery, 0, len(entries))
	for _, e := range entries {
		var job domain.Job
		if err := json.Unmarshal([]byte(e.Fields[jobField]), &job); err != nil {
			s.deadLetterRaw(ctx, e, err)
			continue
		}
		out = append(out, Delivery{Job: job, Receipt: e.ID})
	}
	return out, nil
}

// deadLetterRaw moves an entry whose payload never parses to the dead-letter
// stream and acks it. A parse failure is permanent: redelivering would loop
// forever. If the dead-letter append fails the entry is left pending so a
// later reclaim retries the move.
func (s *Stream) deadLetterRaw(ctx context.Context, e db.StreamEntry, cause error) {
	if _, err := s.store.StreamAdd(ctx, s.stream+DeadSuffix, e.Fields); err != nil {
		s.logger.Error("dead-letter append failed", zap.String("entry", e.ID), zap.Error(err))
		return
	}
	if err := s.store.StreamAck(ctx, s.stream, s.group, e.ID); err != nil {
		s.logger.Error("ack failed", zap.String("entry", e.ID), zap.Error(err))
		return
	}
	metrics.PoisonJobsTotal.Inc()
	s.logger.Error("unparsable job payload dead-lettered",
		zap.String("entry", e.ID), zap.Error(cause))
}

func (s *Stream) Ack(ctx context.Context, d Delivery) error {
	return s.store.StreamAck(ctx, s.stream, s.group, d.Receipt)
}

func (s *Stream) Park(ctx context.Context, d Delivery) error {
	payload, err := json.Marshal(d.Job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if _, err := s.store.StreamAdd(ctx, s.stream+DeadSuffix, map[string]string{jobField: string(payload)}); err != nil {
		return fmt.Errorf("dead-letter append: %w", err)
	}
	return s.store.StreamAck(ctx, s.stream, s.group, d.Receipt)
}

func (s *Stream) Depth(ctx context.Context) (int64, error) {
	return s.store.StreamLen(ctx, s.stream)
}

func (s *Stream) Close() error { return nil }
