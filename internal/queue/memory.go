package queue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
)

var _ Queue = (*Memory)(nil)

// Memory is a channel-backed queue for tests and single-process runs.
// Unacked deliveries are tracked so Receive-without-Ack still counts toward
// Depth, mirroring the stream transport's pending-entries semantics.
type Memory struct {
	mu      sync.Mutex
	jobs    chan domain.Job
	pending map[string]domain.Job
	parked  []domain.Job
	nextID  int
	closed  bool
}

// NewMemory creates an in-process queue with the given buffer capacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Memory{
		jobs:    make(chan domain.Job, capacity),
		pending: make(map[string]domain.Job),
	}
}

func (m *Memory) Enqueue(_ context.Context, job domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrQueueClosed
	}
	m.jobs <- job
	return nil
}

func (m *Memory) Receive(ctx context.Context, max int) ([]Delivery, error) {
	if max <= 0 {
		max = 1
	}

	var out []Delivery
	for len(out) < max {
		if len(out) == 0 {
			// Block for the first job only.
			select {
			case job, ok := <-m.jobs:
				if !ok {
					return out, domain.ErrQueueClosed
				}
				out = append(out, m.track(job))
			case <-ctx.Done():
				return out, nil
			case <-time.After(defaultPoll):
				return out, nil
			}
			continue
		}
		select {
		case job, ok := <-m.jobs:
			if !ok {
				return out, nil
			}
			out = append(out, m.track(job))
		default:
			return out, nil
		}
	}
	return out, nil
}

const defaultPoll = 250 * time.Millisecond

func (m *Memory) track(job domain.Job) Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	receipt := strconv.Itoa(m.nextID)
	m.pending[receipt] = job
	return Delivery{Job: job, Receipt: receipt}
}

func (m *Memory) Ack(_ context.Context, d Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, d.Receipt)
	return nil
}

func (m *Memory) Park(_ context.Context, d Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parked = append(m.parked, d.Job)
	delete(m.pending, d.Receipt)
	return nil
}

func (m *Memory) Depth(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.jobs) + len(m.pending)), nil
}

// Parked exposes dead-lettered jobs (test inspection).
func (m *Memory) Parked() []domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Job, len(m.parked))
	copy(out, m.parked)
	return out
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.jobs)
	}
	return nil
}
