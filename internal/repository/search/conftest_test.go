package search

import (
	"context"

	"github.com/nick-gallo-ethico/caseindex/internal/db"
)

type mockEngine struct {
	searchFn         func(ctx context.Context, index, query string, offset, limit int, returnFields []string) (*db.SearchResult, error)
	searchCountFn    func(ctx context.Context, index, query string) (int, error)
	aggregateCountFn func(ctx context.Context, index, query, groupBy string, limit int) ([]db.GroupCount, error)
}

func (m *mockEngine) Search(ctx context.Context, index, query string, offset, limit int, returnFields []string) (*db.SearchResult, error) {
	return m.searchFn(ctx, index, query, offset, limit, returnFields)
}

func (m *mockEngine) SearchCount(ctx context.Context, index, query string) (int, error) {
	return m.searchCountFn(ctx, index, query)
}

func (m *mockEngine) AggregateCount(ctx context.Context, index, query, groupBy string, limit int) ([]db.GroupCount, error) {
	return m.aggregateCountFn(ctx, index, query, groupBy, limit)
}
