package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/nick-gallo-ethico/caseindex/internal/db"
)

// AggregateCount runs FT.AGGREGATE grouping matched documents by a single
// field and counting per group. groupBy is the field alias without the "@"
// prefix. A multi-value tag field contributes one group row per value, which
// is exactly what per-entry co-occurrence key rollups rely on.
func (s *Store) AggregateCount(
	ctx context.Context, index, query, groupBy string, limit int,
) ([]db.GroupCount, error) {
	if index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if groupBy == "" {
		return nil, fmt.Errorf("groupBy field is required")
	}
	if query == "" {
		query = "*"
	}
	if limit <= 0 {
		limit = 1000
	}

	args := []string{
		index, query,
		"GROUPBY", "1", "@" + groupBy,
		"REDUCE", "COUNT", "0", "AS", "count",
		"LIMIT", "0", strconv.Itoa(limit),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}

	return parseAggregateResult(raw, groupBy)
}

func parseAggregateResult(raw []rueidis.RedisMessage, groupBy string) ([]db.GroupCount, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	// Reply shape: [total, row1, row2, ...] where each row is a flat
	// field/value array: [groupBy, key, "count", n].
	rows := make([]db.GroupCount, 0, len(raw)-1)
	for i := 1; i < len(raw); i++ {
		pairs, err := raw[i].ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(pairs)

		key, ok := fields[groupBy]
		if !ok {
			continue
		}
		count, err := strconv.Atoi(fields["count"])
		if err != nil {
			return nil, fmt.Errorf("parse group count for %q: %w", key, err)
		}
		rows = append(rows, db.GroupCount{Key: key, Count: count})
	}
	return rows, nil
}
