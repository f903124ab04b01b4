package db

import (
	"context"
	"time"
)

// Store is the search-engine facade combining all sub-interfaces. Consumers
// declare the narrow sub-interfaces they need.
type Store interface {
	Pinger
	JSONStore
	IndexManager
	Searcher
	Aggregator
	Streamer
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks engine connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JSONSetItem holds a single key+data pair for pipelined JSON.SET.
type JSONSetItem struct {
	Key  string
	Data []byte
}

// JSONStore provides JSON document operations. Documents are always written
// at the root path: composite documents are replaced wholesale, never merged.
type JSONStore interface {
	JSONSet(ctx context.Context, key string, data []byte) error
	JSONSetMulti(ctx context.Context, items []JSONSetItem) error
	JSONGet(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides query execution over FT indexes.
type Searcher interface {
	Search(ctx context.Context, index, query string, offset, limit int, returnFields []string) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Aggregator provides grouped-count aggregation over FT indexes.
type Aggregator interface {
	AggregateCount(ctx context.Context, index, query, groupBy string, limit int) ([]GroupCount, error)
}

// StreamEntry is one delivered stream message.
type StreamEntry struct {
	ID     string
	Fields map[string]string
}

// Streamer provides the consumer-group stream operations the job queue is
// built on.
type Streamer interface {
	StreamAdd(ctx context.Context, stream string, fields map[string]string) (string, error)
	StreamGroupCreate(ctx context.Context, stream, group string) error
	StreamReadGroup(ctx context.Context, stream, group, consumer string, count int, block time.Duration) ([]StreamEntry, error)
	StreamAutoClaim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, count int) ([]StreamEntry, error)
	StreamAck(ctx context.Context, stream, group, id string) error
	StreamLen(ctx context.Context, stream string) (int64, error)
}
