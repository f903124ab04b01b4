package db

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}

// GroupCount is one row of a grouped-count aggregation.
type GroupCount struct {
	Key   string
	Count int
}
