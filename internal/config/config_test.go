package config

import "testing"

func TestValidate_InvalidTransport(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		Indexing: IndexingConfig{QueueTransport: "kafka"},
	}
	cfg.Query.DefaultPageSize = 50
	cfg.Query.MaxPageSize = 500

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid transport")
	}

	expected := `indexing.transport must be "stream" or "memory", got "kafka"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidTransports(t *testing.T) {
	for _, transport := range []string{"stream", "memory"} {
		t.Run("transport="+transport, func(t *testing.T) {
			cfg := Config{
				HTTP: HTTPConfig{Port: 8080},
				Database: DatabaseConfig{
					Addrs: []string{"localhost:6379"},
				},
				Indexing: IndexingConfig{QueueTransport: transport},
			}
			cfg.ApplyDefaults()

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for transport %q: %v", transport, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 0},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_PageSizeOrdering(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Indexing: IndexingConfig{QueueTransport: "memory"},
		Query:    QueryConfig{DefaultPageSize: 1000, MaxPageSize: 100},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when default page size exceeds max")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Indexing.Stream != "caseidx:jobs" {
		t.Errorf("expected Stream='caseidx:jobs', got %q", cfg.Indexing.Stream)
	}
	if cfg.Indexing.Group != "indexers" {
		t.Errorf("expected Group='indexers', got %q", cfg.Indexing.Group)
	}
	if cfg.Indexing.Workers != 4 {
		t.Errorf("expected Workers=4, got %d", cfg.Indexing.Workers)
	}
	if cfg.Indexing.MaxAttempts != 5 {
		t.Errorf("expected MaxAttempts=5, got %d", cfg.Indexing.MaxAttempts)
	}
	if cfg.Indexing.QueueTransport != "stream" {
		t.Errorf("expected QueueTransport='stream', got %q", cfg.Indexing.QueueTransport)
	}
	if cfg.Query.DefaultPageSize != 50 {
		t.Errorf("expected DefaultPageSize=50, got %d", cfg.Query.DefaultPageSize)
	}
	if cfg.Query.MaxPageSize != 500 {
		t.Errorf("expected MaxPageSize=500, got %d", cfg.Query.MaxPageSize)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{ReadinessTimeout: 15},
		Indexing: IndexingConfig{Workers: 16, MaxAttempts: 2, Stream: "custom:jobs"},
		Query:    QueryConfig{DefaultPageSize: 25, MaxPageSize: 250},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Indexing.Workers != 16 {
		t.Errorf("expected Workers=16, got %d", cfg.Indexing.Workers)
	}
	if cfg.Indexing.Stream != "custom:jobs" {
		t.Errorf("expected Stream='custom:jobs', got %q", cfg.Indexing.Stream)
	}
	if cfg.Query.DefaultPageSize != 25 {
		t.Errorf("expected DefaultPageSize=25, got %d", cfg.Query.DefaultPageSize)
	}
}
