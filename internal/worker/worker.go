// Package worker runs the indexing consumer pool. Each worker pulls jobs from
// the queue, rebuilds the composite document from fresh relational state and
// writes it, then acknowledges. Failures re-enqueue with backoff until the
// attempt budget is spent, after which the job is dead-lettered.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nick-gallo-ethico/caseindex/internal/builder"
	"github.com/nick-gallo-ethico/caseindex/internal/domain"
	logpkg "github.com/nick-gallo-ethico/caseindex/internal/logger"
	"github.com/nick-gallo-ethico/caseindex/internal/metrics"
	"github.com/nick-gallo-ethico/caseindex/internal/queue"
)

// documents is the slice of the index repository the worker writes through.
type documents interface {
	Upsert(ctx context.Context, doc *domain.CaseDocument) error
	Delete(ctx context.Context, tenantID, caseID string) error
}

// provisioner ensures the tenant index exists before the first write.
type provisioner interface {
	Ensure(ctx context.Context, tenantID string, entity domain.EntityType) error
}

// Options tune the pool.
type Options struct {
	// Workers is the pool size.
	Workers int
	// BatchSize is the max deliveries pulled per receive.
	BatchSize int
	// MaxAttempts is the per-job attempt budget before dead-lettering.
	MaxAttempts int
	// BackoffBase is the first retry delay; it doubles per attempt.
	BackoffBase time.Duration
	// BackoffCap bounds the doubling.
	BackoffCap time.Duration
	// StalenessTarget is the acceptable change-to-index lag. Jobs whose lag
	// exceeds it are flagged in logs, and the bound is exported as a gauge.
	StalenessTarget time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 200 * time.Millisecond
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = 30 * time.Second
	}
	if o.StalenessTarget <= 0 {
		o.StalenessTarget = 5 * time.Second
	}
	return o
}

// Pool is the indexing worker pool.
type Pool struct {
	queue   queue.Queue
	builder *builder.Builder
	docs    documents
	prov    provisioner
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewPool creates a worker pool.
func NewPool(q queue.Queue, b *builder.Builder, docs documents, prov provisioner, opts Options, logger *zap.Logger) *Pool {
	opts = opts.withDefaults()
	metrics.IndexStalenessTarget.Set(opts.StalenessTarget.Seconds())
	return &Pool{
		queue:   q,
		builder: b,
		docs:    docs,
		prov:    prov,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run blocks until the context is cancelled, running Workers consumers.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.opts.Workers; i++ {
		g.Go(func() error { return p.consume(ctx) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Pool) consume(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		deliveries, err := p.queue.Receive(ctx, p.opts.BatchSize)
		// Handle whatever arrived before acting on the error: a transport may
		// return good deliveries alongside a partial failure, and dropping
		// them unacked would break at-least-once.
		for _, d := range deliveries {
			p.handle(ctx, d)
		}
		if err != nil {
			if errors.Is(err, domain.ErrQueueClosed) || ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("queue receive failed", zap.Error(err))
			if len(deliveries) == 0 {
				if err := p.sleep(ctx, p.opts.BackoffBase); err != nil {
					return err
				}
			}
			continue
		}
		if n, err := p.queue.Depth(ctx); err == nil {
			metrics.QueueDepth.Set(float64(n))
		}
	}
}

// handle settles a delivery one way or another: ack on success, re-enqueue
// with backoff on failure, dead-letter once the attempt budget is spent.
func (p *Pool) handle(ctx context.Context, d queue.Delivery) {
	log := logpkg.WithJob(p.logger, d.Job)
	start := p.now()
	err := p.Process(ctx, d.Job)
	op := string(d.Job.Operation)
	metrics.JobDuration.WithLabelValues(op).Observe(p.now().Sub(start).Seconds())

	if err == nil {
		metrics.JobsProcessedTotal.WithLabelValues(op, "ok").Inc()
		age := d.Job.Age(p.now())
		metrics.IndexStaleness.Observe(age.Seconds())
		if age > p.opts.StalenessTarget {
			log.Warn("staleness target exceeded", zap.Duration("lag", age))
		}
		if err := p.queue.Ack(ctx, d); err != nil {
			log.Error("ack failed", zap.Error(err))
		}
		return
	}

	if errors.Is(err, domain.ErrInvalidJob) {
		// Malformed jobs never succeed on retry.
		p.park(ctx, d, err)
		return
	}

	job := d.Job
	job.Attempts++
	if job.Attempts >= p.opts.MaxAttempts {
		p.park(ctx, d, err)
		return
	}

	metrics.JobsProcessedTotal.WithLabelValues(op, "retry").Inc()
	log.Warn("job failed, retrying",
		zap.Int("next_attempt", job.Attempts),
		zap.Error(err),
	)
	if serr := p.sleep(ctx, p.backoff(job.Attempts)); serr != nil {
		return
	}
	if rerr := p.queue.Enqueue(ctx, job); rerr != nil {
		log.Error("re-enqueue failed", zap.Error(rerr))
		return
	}
	if aerr := p.queue.Ack(ctx, d); aerr != nil {
		log.Error("ack failed", zap.Error(aerr))
	}
}

func (p *Pool) park(ctx context.Context, d queue.Delivery, cause error) {
	metrics.JobsProcessedTotal.WithLabelValues(string(d.Job.Operation), "poison").Inc()
	metrics.PoisonJobsTotal.Inc()
	log := logpkg.WithJob(p.logger, d.Job)
	log.Error("job dead-lettered", zap.Error(cause))
	if err := p.queue.Park(ctx, d); err != nil {
		log.Error("dead-letter append failed", zap.Error(err))
	}
}

func (p *Pool) backoff(attempt int) time.Duration {
	d := p.opts.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.opts.BackoffCap {
			return p.opts.BackoffCap
		}
	}
	if d > p.opts.BackoffCap {
		d = p.opts.BackoffCap
	}
	return d
}

// Process executes one job against current relational state. Exported so the
// synchronous reindex path can reuse the exact worker semantics.
func (p *Pool) Process(ctx context.Context, job domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	switch job.Operation {
	case domain.OpDelete:
		return p.delete(ctx, job)
	case domain.OpCreate, domain.OpUpdate, domain.OpReindex:
		return p.upsert(ctx, job)
	default:
		return fmt.Errorf("%w: unknown operation %q", domain.ErrInvalidJob, job.Operation)
	}
}

func (p *Pool) upsert(ctx context.Context, job domain.Job) error {
	doc, err := p.builder.Build(ctx, job.TenantID, job.EntityID)
	if errors.Is(err, domain.ErrAggregateNotFound) {
		// The aggregate vanished between the change and this delivery. The
		// correct index state is absence.
		return p.delete(ctx, job)
	}
	if err != nil {
		return fmt.Errorf("build document: %w", err)
	}

	if err := p.prov.Ensure(ctx, job.TenantID, job.EntityType); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	if err := p.docs.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (p *Pool) delete(ctx context.Context, job domain.Job) error {
	if err := p.docs.Delete(ctx, job.TenantID, job.EntityID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
