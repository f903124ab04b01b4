package indexing

import (
	"context"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
)

type mockQueue struct {
	enqueueFn func(ctx context.Context, job domain.Job) error
	depthFn   func(ctx context.Context) (int64, error)
}

func (m *mockQueue) Enqueue(ctx context.Context, job domain.Job) error {
	return m.enqueueFn(ctx, job)
}

func (m *mockQueue) Depth(ctx context.Context) (int64, error) {
	if m.depthFn == nil {
		return 0, nil
	}
	return m.depthFn(ctx)
}

type mockCorpus struct {
	listFn func(ctx context.Context, tenantID string) ([]string, error)
}

func (m *mockCorpus) ListCaseIDs(ctx context.Context, tenantID string) ([]string, error) {
	return m.listFn(ctx, tenantID)
}

type mockProvisioner struct {
	ensureFn func(ctx context.Context, tenantID string, entity domain.EntityType) error
	existsFn func(ctx context.Context, tenantID string, entity domain.EntityType) (bool, error)
}

func (m *mockProvisioner) Ensure(ctx context.Context, tenantID string, entity domain.EntityType) error {
	if m.ensureFn == nil {
		return nil
	}
	return m.ensureFn(ctx, tenantID, entity)
}

func (m *mockProvisioner) Exists(ctx context.Context, tenantID string, entity domain.EntityType) (bool, error) {
	if m.existsFn == nil {
		return true, nil
	}
	return m.existsFn(ctx, tenantID, entity)
}
