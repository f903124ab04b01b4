package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/nick-gallo-ethico/caseindex/internal/db"
)

// StreamAdd appends a message to a stream and returns its id.
func (s *Store) StreamAdd(ctx context.Context, stream string, fields map[string]string) (string, error) {
	args := []string{"*"}
	for k, v := range fields {
		args = append(args, k, v)
	}

	cmd := s.b().Arbitrary("XADD").Keys(stream).Args(args...).Build()
	id, err := s.do(ctx, cmd).ToString()
	if err != nil {
		return "", &db.Error{Op: db.OpXAdd, Err: err}
	}
	return id, nil
}

// StreamGroupCreate creates a consumer group reading from the start of the
// stream, creating the stream itself if needed. An existing group is success:
// concurrent workers race to create it at startup.
func (s *Store) StreamGroupCreate(ctx context.Context, stream, group string) error {
	cmd := s.b().Arbitrary("XGROUP").Args("CREATE", stream, group, "0", "MKSTREAM").Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "BUSYGROUP") {
			return db.ErrGroupExists
		}
		return &db.Error{Op: db.OpXGroup, Err: err}
	}
	return nil
}

// StreamReadGroup reads up to count new messages for a consumer, blocking up
// to the given duration. A timeout returns an empty slice, not an error.
func (s *Store) StreamReadGroup(
	ctx context.Context, stream, group, consumer string, count int, block time.Duration,
) ([]db.StreamEntry, error) {
	if count <= 0 {
		count = 1
	}

	args := []string{
		"GROUP", group, consumer,
		"COUNT", strconv.Itoa(count),
		"BLOCK", strconv.FormatInt(block.Milliseconds(), 10),
		"STREAMS", stream, ">",
	}

	cmd := s.b().Arbitrary("XREADGROUP").Args(args...).Blocking()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, &db.Error{Op: db.OpXReadGroup, Err: err}
	}

	return parseStreamRead(raw, stream)
}

// StreamAutoClaim transfers ownership of messages pending longer than minIdle
// to the given consumer and returns them for reprocessing. This is how
// deliveries stuck in a crashed consumer's pending list get redelivered.
func (s *Store) StreamAutoClaim(
	ctx context.Context, stream, group, consumer string, minIdle time.Duration, count int,
) ([]db.StreamEntry, error) {
	if count <= 0 {
		count = 1
	}

	args := []string{
		group, consumer,
		strconv.FormatInt(minIdle.Milliseconds(), 10),
		"0-0",
		"COUNT", strconv.Itoa(count),
	}

	cmd := s.b().Arbitrary("XAUTOCLAIM").Keys(stream).Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, &db.Error{Op: db.OpXAutoClaim, Err: err}
	}

	// Reply: [next-cursor, entries, deleted-ids]. Only the entries matter
	// here: the scan always restarts from 0-0.
	if len(raw) < 2 {
		return nil, nil
	}
	entries, err := raw[1].ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpXAutoClaim, Err: err}
	}
	return parseEntryList(entries), nil
}

// StreamAck acknowledges a processed message.
func (s *Store) StreamAck(ctx context.Context, stream, group, id string) error {
	cmd := s.b().Arbitrary("XACK").Keys(stream).Args(group, id).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpXAck, Err: err}
	}
	return nil
}

// StreamLen returns the number of entries in a stream.
func (s *Store) StreamLen(ctx context.Context, stream string) (int64, error) {
	cmd := s.b().Arbitrary("XLEN").Keys(stream).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpXLen, Err: err}
	}
	return n, nil
}

// parseStreamRead unpacks the RESP2 XREADGROUP reply:
// [[stream, [[id, [f1, v1, ...]], ...]], ...]
func parseStreamRead(raw []rueidis.RedisMessage, stream string) ([]db.StreamEntry, error) {
	var out []db.StreamEntry

	for _, streamMsg := range raw {
		pair, err := streamMsg.ToArray()
		if err != nil || len(pair) != 2 {
			continue
		}
		name, err := pair[0].ToString()
		if err != nil || name != stream {
			continue
		}
		entries, err := pair[1].ToArray()
		if err != nil {
			continue
		}
		out = append(out, parseEntryList(entries)...)
	}

	return out, nil
}

// parseEntryList unpacks a stream entry array: [[id, [f1, v1, ...]], ...].
func parseEntryList(entries []rueidis.RedisMessage) []db.StreamEntry {
	var out []db.StreamEntry
	for _, entryMsg := range entries {
		entry, err := entryMsg.ToArray()
		if err != nil || len(entry) != 2 {
			continue
		}
		id, err := entry[0].ToString()
		if err != nil {
			continue
		}
		fields, err := entry[1].ToArray()
		if err != nil {
			continue
		}
		out = append(out, db.StreamEntry{
			ID:     id,
			Fields: parseFieldPairs(fields),
		})
	}
	return out
}
